package notification

import (
	"fmt"
	"net/url"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeLeaveSubmitted          NotificationType = "leave_submitted"
	TypeLeaveAwaitingHR         NotificationType = "leave_awaiting_hr"
	TypeLeaveApproved           NotificationType = "leave_approved"
	TypeLeaveRejected           NotificationType = "leave_rejected"
	TypeExpenseAwaitingApproval NotificationType = "expense_awaiting_approval"
	TypeExpenseApproved         NotificationType = "expense_approved"
	TypeExpenseRejected         NotificationType = "expense_rejected"
	TypeSoftwareSubmitted       NotificationType = "software_submitted"
	TypeSoftwareApproved        NotificationType = "software_approved"
	TypeSoftwareRejected        NotificationType = "software_rejected"
	TypeSoftwareQuestionnaire   NotificationType = "software_questionnaire"
	TypeSoftwareAnswered        NotificationType = "software_answered"
	TypeSoftwareCompleted       NotificationType = "software_completed"
	TypeEmployeeOnboarded       NotificationType = "employee_onboarded"
)

// Recipient is an engine-resolved addressee.
type Recipient struct {
	EmployeeID string
	Name       string
	Email      string
}

// EmployeeRecipient addresses an employee at their contact email.
func EmployeeRecipient(e employee.Employee) Recipient {
	return Recipient{EmployeeID: e.ID, Name: e.Name, Email: e.ContactEmail()}
}

// ActionLink is a button rendered in action-required messages.
type ActionLink struct {
	Label string
	URL   string
}

// Event is what the engines hand to the notifier after a transition commits.
type Event struct {
	Type       NotificationType
	Title      string
	Message    string
	RequestID  string
	SenderID   *string
	Recipients []Recipient
	Actions    []ActionLink
	Data       map[string]interface{}
}

// Template selects the email template for the event.
func (e Event) Template() string {
	switch e.Type {
	case TypeSoftwareQuestionnaire:
		return "compliance_questionnaire.html"
	case TypeLeaveSubmitted, TypeLeaveAwaitingHR, TypeExpenseAwaitingApproval, TypeSoftwareSubmitted, TypeSoftwareAnswered:
		return "action_required.html"
	default:
		return "status_update.html"
	}
}

// Notification is a persisted in-app inbox entry.
type Notification struct {
	ID          string
	RecipientID string
	SenderID    *string
	Type        NotificationType
	Title       string
	Message     string
	Data        map[string]interface{}
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}

// Links builds the action URLs embedded in messages.
type Links struct {
	BaseURL string
}

// Action returns {base}/{workflow}/requests/{id}?action={action}.
func (l Links) Action(workflow, requestID, action string) string {
	return fmt.Sprintf("%s/%s/requests/%s?action=%s",
		l.BaseURL, workflow, url.PathEscape(requestID), url.QueryEscape(action))
}

// View returns the link to a request without a preselected action.
func (l Links) View(workflow, requestID string) string {
	return fmt.Sprintf("%s/%s/requests/%s", l.BaseURL, workflow, url.PathEscape(requestID))
}

// ApproveReject returns the approve and reject buttons for a request.
func (l Links) ApproveReject(workflow, requestID string) []ActionLink {
	return []ActionLink{
		{Label: "Approve", URL: l.Action(workflow, requestID, "approve")},
		{Label: "Reject", URL: l.Action(workflow, requestID, "reject")},
	}
}
