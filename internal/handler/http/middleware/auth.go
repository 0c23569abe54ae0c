package middleware

import (
	"net/http"
	"strings"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// TokenFromRawHeader accepts an Authorization header that carries the token
// without the "Bearer " prefix.
func TokenFromRawHeader(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" || strings.Contains(header, " ") {
		return ""
	}
	return header
}

// Verifier finds and verifies the token in either header form.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verify(ja, jwtauth.TokenFromHeader, TokenFromRawHeader)
}

// AuthRequired resolves the verified token into an active actor.
func AuthRequired(authService auth.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				if jwtauth.TokenFromHeader(r) == "" && TokenFromRawHeader(r) == "" {
					response.HandleError(w, auth.ErrMissingToken)
					return
				}
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			raw := jwtauth.TokenFromHeader(r)
			if raw == "" {
				raw = TokenFromRawHeader(r)
			}

			actor, err := authService.Resolve(r.Context(), raw, claims)
			if err != nil {
				response.HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), actor)))
		}
		return http.HandlerFunc(hfn)
	}
}
