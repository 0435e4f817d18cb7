package middleware

import (
	"net/http"

	"github.com/veridianhq/hr-api/internal/domain"
	"github.com/veridianhq/hr-api/internal/http/response"
)

// RequireRole authorizes against the hierarchy-expanded role set: a caller
// passes when their role, or any role it implies, is in the allowed set.
func RequireRole(allowed ...domain.Role) func(http.Handler) http.Handler {
	names := make([]string, 0, len(allowed))
	for _, role := range allowed {
		names = append(names, string(role))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing auth context", nil)
				return
			}
			if !role.Grants(allowed...) {
				response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "insufficient role", map[string]any{"required_roles": names})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission authorizes against the caller's literal permission set.
// There is deliberately no hierarchy expansion here: a higher role does not
// inherit a lower role's permission strings.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing auth context", nil)
				return
			}
			if !role.HasPermission(permission) {
				response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "insufficient permission", map[string]string{"required": permission})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
