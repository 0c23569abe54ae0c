package middleware

import (
	"net/http"
	"strings"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/handler/http/response"
)

// RequireRole lets the request through when the actor holds one of roles.
// Admin always passes.
func RequireRole(roles ...employee.Role) func(http.Handler) http.Handler {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	message := "Insufficient permissions: requires " + strings.Join(names, " or ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := auth.ActorFromContext(r.Context())
			if !ok {
				response.HandleError(w, auth.ErrMissingToken)
				return
			}
			if !auth.HasRole(actor.Employee, roles...) {
				response.Forbidden(w, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin requires the Admin role
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(employee.RoleAdmin)(next)
}
