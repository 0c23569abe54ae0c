package expense

import "github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"

var (
	ErrExpenseNotFound    = apperror.NotFound("Expense request not found")
	ErrAttachmentNotFound = apperror.NotFound("Attachment not found")
	ErrReceiptRequired    = apperror.Precondition("At least one receipt is required")
	ErrFileTooLarge       = apperror.Validation("Each receipt must be 10 MB or smaller")
	ErrFileTypeNotAllowed = apperror.Validation("Receipts must be pdf, jpg, jpeg or png files")
	ErrStageAlreadyActed  = apperror.Conflict("This expense is not awaiting this approval stage")
	ErrCancelNotAllowed   = apperror.Conflict("Only requests still awaiting the manager can be cancelled")
	ErrArchiveNotAllowed  = apperror.Conflict("Only completed or rejected requests can be archived")
	ErrNotOwner           = apperror.Forbidden("Only the requester can do this")
	ErrAccountManagerOnly = apperror.Forbidden("Account Manager role required")
	ErrUnknownStage       = apperror.Validation("Unknown approval stage")
	ErrNoManagerAssigned  = apperror.Precondition("No manager is assigned to you; ask HR to assign one before submitting")
)
