package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/auth"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/upstream"
)

const loginPath = "auth/login"

type AuthServiceImpl struct {
	api *upstream.Client
	jwt.Service
}

func NewAuthService(api *upstream.Client, jwtService jwt.Service) auth.AuthService {
	return &AuthServiceImpl{
		api:     api,
		Service: jwtService,
	}
}

// loginPayload accepts both {token, user} and {accessToken} shaped answers.
type loginPayload struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
}

func (p loginPayload) token() string {
	if p.Token != "" {
		return p.Token
	}
	return p.AccessToken
}

// Login implements auth.AuthService.
func (a *AuthServiceImpl) Login(ctx context.Context, req auth.LoginRequest) (auth.Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return auth.Session{}, fmt.Errorf("encode login request: %w", err)
	}

	resp, err := a.api.Do(ctx, upstream.Request{Method: http.MethodPost, Path: loginPath, Body: body})
	if err != nil {
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusBadRequest) {
			return auth.Session{}, auth.ErrInvalidCredentials
		}
		return auth.Session{}, err
	}

	data, _ := upstream.Unwrap(resp.Body)
	var payload loginPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.token() == "" {
		return auth.Session{}, auth.ErrUpstreamToken
	}

	u, expiresAt, err := a.Service.Verify(payload.token())
	if err != nil {
		slog.Error("Login verify upstream token error", "error", err)
		return auth.Session{}, fmt.Errorf("%w: %v", auth.ErrUpstreamToken, err)
	}

	return auth.Session{Token: payload.token(), ExpiresAt: expiresAt, User: u}, nil
}

// Logout implements auth.AuthService.
func (a *AuthServiceImpl) Logout(ctx context.Context, token string, expiresAt time.Time) error {
	if token == "" {
		return auth.ErrInvalidToken
	}
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(24 * time.Hour)
	}
	a.Service.RevokeToken(token, expiresAt)
	return nil
}
