package auth

import (
	"context"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (TokenResponse, error)
	MicrosoftAuthURL(ctx context.Context) (AuthURLResponse, error)
	MicrosoftCallback(ctx context.Context, req MicrosoftCallbackRequest) (TokenResponse, error)
	// Resolve turns verified token claims into an active actor.
	Resolve(ctx context.Context, token string, claims map[string]interface{}) (Actor, error)
	Logout(ctx context.Context, actor Actor) error
}

// AuthorityResolver derives what an actor may do for a subject from the
// assignment registry.
type AuthorityResolver interface {
	AuthorityOver(ctx context.Context, actor employee.Employee, subjectID string) (Authority, error)
}
