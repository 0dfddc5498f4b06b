package middleware

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/user"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/handler/http/response"
)

// RequireRoles allows only the listed roles. Must run after AuthRequired.
func RequireRoles(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				unauthorized(w)
				return
			}

			for _, role := range roles {
				if u.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Message(w, http.StatusForbidden, fmt.Sprintf("Forbidden: role '%s' is not allowed to access this resource", u.Role))
		})
	}
}

// RequirePermission checks if user has specific permission
func RequirePermission(permission user.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				unauthorized(w)
				return
			}

			if !user.HasPermission(u.Role, permission) {
				response.Message(w, http.StatusForbidden, fmt.Sprintf("Insufficient permissions: required '%s', but user role is '%s'", permission, u.Role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
