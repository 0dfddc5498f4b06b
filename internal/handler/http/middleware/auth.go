package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/user"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/handler/http/response"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type userCtxKey struct{}

// AuthRequired rejects requests without a valid, unrevoked session token and
// stores the caller in the request context. Runs after jwtService.Verifier().
func AuthRequired(jwtService jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				unauthorized(w)
				return
			}

			if jwtService.IsTokenRevoked(jwtService.TokenFromRequest(r)) {
				unauthorized(w)
				return
			}

			u, err := jwtService.UserFromClaims(claims)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userCtxKey{}, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}

// UserFromContext returns the caller stored by AuthRequired.
func UserFromContext(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(user.User)
	return u, ok
}

// WithUser is used by handlers under test that skip AuthRequired.
func WithUser(ctx context.Context, u user.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

func unauthorized(w http.ResponseWriter) {
	response.Message(w, http.StatusUnauthorized, "Unauthorized")
}
