package auth

import (
	"context"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

type actorKey struct{}

// Actor is the resolved caller of a request.
type Actor struct {
	Employee  employee.Employee
	SessionID string
	Token     string
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
