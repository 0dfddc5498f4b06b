package auth

import (
	"time"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/user"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/validator"
)

type LoginRequest struct {
	Username string `json:"username" validate:"notblank,max=100"`
	Password string `json:"password" validate:"notblank,max=255"`
}

func (r *LoginRequest) Validate() error {
	return validator.Struct(r)
}

// Session is a verified backend token and the identity it carries.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      user.User
}

type SessionResponse struct {
	User      user.UserResponse `json:"user"`
	Role      string            `json:"role"`
	ExpiresAt string            `json:"expires_at"`
}

func (s Session) ToResponse() SessionResponse {
	return SessionResponse{
		User:      s.User.ToResponse(),
		Role:      string(s.User.Role),
		ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
