package leave

import "github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"

var (
	ErrLeaveRequestNotFound   = apperror.NotFound("Leave request not found")
	ErrBalanceNotFound        = apperror.NotFound("Leave balance not found")
	ErrUnknownCategory        = apperror.Validation("Leave type is not recognised")
	ErrNoWorkingDays          = apperror.Validation("The selected range falls entirely on non-working days")
	ErrOverlappingLeave       = apperror.Conflict("You already have a leave request covering part of this range")
	ErrNoManagerAssigned      = apperror.Precondition("No manager is assigned to you; ask HR to assign one before applying")
	ErrManagerAlreadyActed    = apperror.Conflict("Manager has already acted on this request")
	ErrHRAlreadyActed         = apperror.Conflict("HR has already acted on this request")
	ErrManagerApprovalPending = apperror.Conflict("Manager approval is required before HR can act")
	ErrRequestClosed          = apperror.Conflict("This leave request is already closed")
)
