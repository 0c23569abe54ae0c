package allocation

import (
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ImportRow is one (employee, project, month) cell of an import file.
type ImportRow struct {
	Line         int
	EmployeeCode string
	EmployeeName string
	Project      string
	Account      string
	Month        string
	Days         decimal.Decimal
}

type RowError struct {
	Line    int    `json:"line"`
	Month   string `json:"month,omitempty"`
	Message string `json:"message"`
}

type ImportResult struct {
	Processed int        `json:"processed"`
	Succeeded int        `json:"succeeded"`
	Skipped   int        `json:"skipped"`
	Errors    []RowError `json:"errors"`
}

type SaveEntry struct {
	ProjectID     string `json:"project_id"`
	AllocatedDays string `json:"allocated_days"`

	Days decimal.Decimal `json:"-"`
}

type SaveRequest struct {
	Allocations []SaveEntry `json:"allocations"`
}

func (r *SaveRequest) Validate() error {
	var errs validator.ValidationErrors
	if len(r.Allocations) == 0 {
		errs = append(errs, validator.ValidationError{Field: "allocations", Message: "allocations are required"})
	}
	seen := make(map[string]bool)
	for i := range r.Allocations {
		e := &r.Allocations[i]
		if !validator.IsValidUUID(e.ProjectID) {
			errs = append(errs, validator.ValidationError{Field: "allocations", Message: "project_id must be a valid id"})
			break
		}
		if seen[e.ProjectID] {
			errs = append(errs, validator.ValidationError{Field: "allocations", Message: "each project may appear once"})
			break
		}
		seen[e.ProjectID] = true
		d, err := decimal.NewFromString(e.AllocatedDays)
		if err != nil || d.IsNegative() || d.GreaterThan(MaxDaysPerMonth) {
			errs = append(errs, validator.ValidationError{Field: "allocations", Message: "allocated_days must be between 0 and 20"})
			break
		}
		e.Days = d
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CheckRequest struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	ProjectID  string  `json:"project_id"`
	Date       string  `json:"date"`
	Days       string  `json:"days"`

	ParsedDate time.Time       `json:"-"`
	Delta      decimal.Decimal `json:"-"`
}

func (r *CheckRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.ProjectID) {
		errs = append(errs, validator.ValidationError{Field: "project_id", Message: "project_id is required"})
	} else if !validator.IsValidUUID(r.ProjectID) {
		errs = append(errs, validator.ValidationError{Field: "project_id", Message: "project_id must be a valid id"})
	}
	d, ok := validator.IsValidDate(r.Date)
	if !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "date must be in YYYY-MM-DD format"})
	}
	r.ParsedDate = d
	delta, err := decimal.NewFromString(r.Days)
	if err != nil || delta.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "days", Message: "days must be a non-negative number"})
	}
	r.Delta = delta
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AllocationResponse struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employee_id"`
	EmployeeCode  string          `json:"employee_code"`
	EmployeeName  string          `json:"employee_name"`
	ProjectID     string          `json:"project_id"`
	ProjectName   string          `json:"project_name"`
	Account       string          `json:"account"`
	Month         string          `json:"month"`
	AllocatedDays decimal.Decimal `json:"allocated_days"`
	ConsumedDays  decimal.Decimal `json:"consumed_days"`
	RemainingDays decimal.Decimal `json:"remaining_days"`
}

func NewAllocationResponses(list []Allocation) []AllocationResponse {
	out := make([]AllocationResponse, 0, len(list))
	for _, a := range list {
		out = append(out, AllocationResponse{
			ID:            a.ID,
			EmployeeID:    a.EmployeeID,
			EmployeeCode:  a.EmployeeCode,
			EmployeeName:  a.EmployeeName,
			ProjectID:     a.ProjectID,
			ProjectName:   a.ProjectName,
			Account:       a.Account,
			Month:         a.Month,
			AllocatedDays: a.AllocatedDays,
			ConsumedDays:  a.ConsumedDays,
			RemainingDays: a.Remaining(),
		})
	}
	return out
}

type SummaryResponse struct {
	EmployeeID     string               `json:"employee_id"`
	Month          string               `json:"month"`
	TotalAllocated decimal.Decimal      `json:"total_allocated"`
	TotalConsumed  decimal.Decimal      `json:"total_consumed"`
	MonthlyLimit   decimal.Decimal      `json:"monthly_limit"`
	Allocations    []AllocationResponse `json:"allocations"`
}

type GrantResponse struct {
	Month    string `json:"month"`
	Affected int64  `json:"affected"`
}
