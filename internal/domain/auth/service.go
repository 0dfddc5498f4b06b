package auth

import (
	"context"
	"time"
)

// AuthService relays credentials to the backend API and tracks sessions.
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (Session, error)
	Logout(ctx context.Context, token string, expiresAt time.Time) error
}
