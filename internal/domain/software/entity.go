package software

import "time"

type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCompleted Status = "Completed"
)

func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StatusPending, StatusApproved, StatusRejected, StatusCompleted} {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

type SoftwareRequest struct {
	ID                   string
	EmployeeID           string
	EmployeeName         *string
	ManagerID            *string
	ITAdminID            *string
	AssetID              *string
	SoftwareName         string
	SoftwareVersion      *string
	Duration             *string
	BusinessUnitLocation *string
	Justification        *string
	Status               Status
	DecisionReason       *string
	DecidedAt            *time.Time
	ComplianceAnswered   bool
	QuestionnaireSentAt  *time.Time
	CompletedAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type Question struct {
	ID        string
	Text      string
	IsActive  bool
	SortOrder int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Answer struct {
	ID           string
	RequestID    string
	QuestionID   string
	QuestionText string
	Answer       string
	CreatedAt    time.Time
}
