package software

import "github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"

var (
	ErrRequestNotFound        = apperror.NotFound("Software request not found")
	ErrQuestionNotFound       = apperror.NotFound("Compliance question not found")
	ErrAlreadyDecided         = apperror.Conflict("This software request has already been decided")
	ErrNotApproved            = apperror.Conflict("Only approved software requests can continue to compliance")
	ErrAlreadyCompleted       = apperror.Conflict("This software request is already completed")
	ErrQuestionnaireNotSent   = apperror.Precondition("The compliance questionnaire has not been sent yet")
	ErrAnswersAlreadyRecorded = apperror.Conflict("Compliance answers have already been recorded")
	ErrComplianceNotAnswered  = apperror.Precondition("Compliance questionnaire has not been answered")
	ErrIncompleteAnswers      = apperror.Validation("Every active compliance question must be answered exactly once")
	ErrNoActiveQuestions      = apperror.Precondition("No active compliance questions are configured")
	ErrITAdminRequired        = apperror.Forbidden("IT Admin role required")
	ErrNotRequester           = apperror.Forbidden("Only the requester can answer the questionnaire")
)
