package assignment

import (
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/notification"
)

type Relation string

const (
	RelationManager Relation = "manager"
	RelationHR      Relation = "hr"
)

// Member is one side of an assignment, resolved to the fields approver
// lookups and notifications need.
type Member struct {
	EmployeeID   string
	Name         string
	Email        string
	CompanyEmail *string
	Role         employee.Role
	AssignedAt   time.Time
}

// ContactEmail prefers the company mailbox.
func (m Member) ContactEmail() string {
	if m.CompanyEmail != nil && *m.CompanyEmail != "" {
		return *m.CompanyEmail
	}
	return m.Email
}

// IDs returns the employee ids of members.
func IDs(members []Member) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.EmployeeID)
	}
	return ids
}

// Recipients converts members into notifier addressees.
func Recipients(members []Member) []notification.Recipient {
	out := make([]notification.Recipient, 0, len(members))
	for _, m := range members {
		out = append(out, notification.Recipient{EmployeeID: m.EmployeeID, Name: m.Name, Email: m.ContactEmail()})
	}
	return out
}
