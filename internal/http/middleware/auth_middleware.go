package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/veridianhq/hr-api/internal/domain"
	"github.com/veridianhq/hr-api/internal/http/response"
	"github.com/veridianhq/hr-api/internal/service"
)

type contextKey string

const authContextKey contextKey = "auth_context"

// Authenticator validates a raw bearer token into a request auth context.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*service.AuthContext, error)
}

// Authenticate is the authorization guard. It accepts credentials only from
// the Authorization header; a missing or malformed header is rejected before
// any decoding happens.
func Authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing bearer token", nil)
				return
			}
			ac, err := auth.Authenticate(r.Context(), raw)
			if err != nil {
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired credentials", nil)
				return
			}
			ctx := context.WithValue(r.Context(), authContextKey, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the raw credential from the Authorization header, or
// "" when the header is missing or carries another scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// AuthFromContext returns the auth context attached by Authenticate.
func AuthFromContext(ctx context.Context) (*service.AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey).(*service.AuthContext)
	return ac, ok
}

// RoleFromContext is a convenience for guards that only need the role.
func RoleFromContext(ctx context.Context) (domain.Role, bool) {
	ac, ok := AuthFromContext(ctx)
	if !ok {
		return "", false
	}
	return ac.Role, true
}

// WithAuthContext is for tests that need to seed an authenticated request.
func WithAuthContext(ctx context.Context, ac *service.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}
