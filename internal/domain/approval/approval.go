package approval

import (
	"strings"

	"github.com/cmlabs-hris/hrms-engine/internal/pkg/validator"
)

// Action is an approver's decision on a workflow stage.
type Action string

const (
	ActionApprove Action = "Approve"
	ActionReject  Action = "Reject"
)

// ParseAction accepts "approve"/"approved" and "reject"/"rejected" in any case.
func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved":
		return ActionApprove, true
	case "reject", "rejected":
		return ActionReject, true
	}
	return "", false
}

// SlotStatus is the decision recorded in one approval slot.
type SlotStatus string

const (
	SlotPending  SlotStatus = "Pending"
	SlotApproved SlotStatus = "Approved"
	SlotRejected SlotStatus = "Rejected"
)

// Outcome maps an action to the slot status it records.
func (a Action) Outcome() SlotStatus {
	if a == ActionApprove {
		return SlotApproved
	}
	return SlotRejected
}

// ActRequest is the single canonical payload of every approval transition.
type ActRequest struct {
	Action string  `json:"action"`
	Reason *string `json:"reason,omitempty"`

	Parsed Action `json:"-"`
}

func (r *ActRequest) Validate() error {
	var errs validator.ValidationErrors

	action, ok := ParseAction(r.Action)
	if !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "action",
			Message: "action must be Approve or Reject",
		})
	}
	r.Parsed = action

	if r.Reason != nil {
		trimmed := strings.TrimSpace(*r.Reason)
		if trimmed == "" {
			r.Reason = nil
		} else if len(trimmed) > 1000 {
			errs = append(errs, validator.ValidationError{
				Field:   "reason",
				Message: "reason must not exceed 1000 characters",
			})
		} else {
			r.Reason = &trimmed
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
