package auth

import "github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"

var (
	ErrInvalidCredentials = apperror.Auth("Invalid email or password")
	ErrMissingToken       = apperror.Auth("Missing bearer token")
	ErrInvalidToken       = apperror.Auth("Invalid or expired token")
	ErrTokenRevoked       = apperror.Auth("Token has been revoked")
	ErrSessionNotFound    = apperror.Auth("Session not found or expired")
	ErrInactiveAccount    = apperror.Auth("Account is not active")
	ErrUnknownSubject     = apperror.Auth("Token subject does not match an employee")
	ErrInvalidState       = apperror.Auth("Sign-in state is invalid or expired")
	ErrProviderDisabled   = apperror.Precondition("Microsoft sign-in is not configured")
	ErrProfileIncomplete  = apperror.Validation("Microsoft profile has no usable email address")
	ErrSelfApproval       = apperror.Forbidden("You cannot act on your own request")
)
