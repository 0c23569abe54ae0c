package expense

import (
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPendingManager           Status = "pending_manager"
	StatusPendingHR                Status = "pending_hr"
	StatusPendingAccountManager    Status = "pending_account_manager"
	StatusApproved                 Status = "approved"
	StatusRejectedByManager        Status = "rejected_by_manager"
	StatusRejectedByHR             Status = "rejected_by_hr"
	StatusRejectedByAccountManager Status = "rejected_by_account_manager"
)

func AllStatuses() []Status {
	return []Status{
		StatusPendingManager, StatusPendingHR, StatusPendingAccountManager, StatusApproved,
		StatusRejectedByManager, StatusRejectedByHR, StatusRejectedByAccountManager,
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejectedByManager, StatusRejectedByHR, StatusRejectedByAccountManager:
		return true
	}
	return false
}

// Stage is one approval step of the expense workflow.
type Stage string

const (
	StageManager        Stage = "manager"
	StageHR             Stage = "hr"
	StageAccountManager Stage = "account_manager"
)

// ParseStage accepts the stage names used in URLs.
func ParseStage(s string) (Stage, bool) {
	switch s {
	case "manager":
		return StageManager, true
	case "hr":
		return StageHR, true
	case "account-manager", "account_manager":
		return StageAccountManager, true
	}
	return "", false
}

// Awaits is the status a request must be in for the stage to act.
func (s Stage) Awaits() Status {
	switch s {
	case StageHR:
		return StatusPendingHR
	case StageAccountManager:
		return StatusPendingAccountManager
	}
	return StatusPendingManager
}

// Next returns the status reached when the stage takes an action.
func (s Stage) Next(a approval.Action) Status {
	switch s {
	case StageManager:
		if a == approval.ActionApprove {
			return StatusPendingHR
		}
		return StatusRejectedByManager
	case StageHR:
		if a == approval.ActionApprove {
			return StatusPendingAccountManager
		}
		return StatusRejectedByHR
	default:
		if a == approval.ActionApprove {
			return StatusApproved
		}
		return StatusRejectedByAccountManager
	}
}

// ActorRole is the role recorded in history for the stage.
func (s Stage) ActorRole() employee.Role {
	switch s {
	case StageHR:
		return employee.RoleHR
	case StageAccountManager:
		return employee.RoleAccountManager
	}
	return employee.RoleManager
}

type ExpenseRequest struct {
	ID            string
	Code          string
	EmployeeID    string
	EmployeeName  *string
	Category      string
	Amount        decimal.Decimal
	Currency      string
	Description   *string
	ExpenseDate   time.Time
	TaxApplicable bool
	TaxPercentage decimal.Decimal
	FinalAmount   decimal.Decimal
	Status        Status
	DeletedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FinalAmountOf returns amount plus tax when applicable, rounded to cents.
func FinalAmountOf(amount decimal.Decimal, taxApplicable bool, taxPercentage decimal.Decimal) decimal.Decimal {
	if !taxApplicable {
		return amount.Round(2)
	}
	tax := amount.Mul(taxPercentage).Div(decimal.NewFromInt(100))
	return amount.Add(tax).Round(2)
}

type Attachment struct {
	ID          string
	RequestID   string
	FileName    string
	StoredPath  string
	ContentType string
	Size        int64
	UploadedAt  time.Time
}

// History is one append-only row per transition.
type History struct {
	ID         string
	RequestID  string
	ActorID    string
	ActorName  *string
	ActorRole  employee.Role
	Action     approval.Action
	Reason     *string
	FromStatus Status
	ToStatus   Status
	CreatedAt  time.Time
}

type StatusStat struct {
	Status Status
	Count  int64
	Total  decimal.Decimal
}
