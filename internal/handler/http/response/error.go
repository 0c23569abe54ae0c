package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		if apperror.IsTimeout(err) {
			GatewayTimeout(w, "The request timed out")
			return
		}
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
		return
	}

	switch appErr.Kind {
	case apperror.KindValidation:
		writeJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   &ErrorDetail{Code: string(apperror.KindValidation), Message: appErr.Message},
		})
	case apperror.KindAuth:
		Unauthorized(w, appErr.Message)
	case apperror.KindForbidden:
		Forbidden(w, appErr.Message)
	case apperror.KindNotFound:
		NotFound(w, appErr.Message)
	case apperror.KindConflict:
		Conflict(w, appErr.Message)
	case apperror.KindPrecondition:
		PreconditionFailed(w, appErr.Message)
	case apperror.KindGateway:
		slog.Error("upstream call failed", "error", err)
		if apperror.IsTimeout(err) {
			GatewayTimeout(w, appErr.Message)
			return
		}
		BadGateway(w, appErr.Message)

	// Default
	default:
		slog.Error("internal error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
