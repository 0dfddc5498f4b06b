package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/user"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/handler/http/response"
)

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			unauthorized(w)
			return
		}

		if !u.IsAdmin() {
			response.HandleError(w, user.ErrAdminPrivilegeRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
