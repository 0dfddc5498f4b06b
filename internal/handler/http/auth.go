package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/auth"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/handler/http/response"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/jwt"
)

type AuthHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
}

type AuthHandlerImpl struct {
	jwtService  jwt.Service
	authService auth.AuthService
}

func NewAuthHandler(jwtService jwt.Service, authService auth.AuthService) AuthHandler {
	return &AuthHandlerImpl{
		jwtService:  jwtService,
		authService: authService,
	}
}

// Login implements AuthHandler.
func (a *AuthHandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq auth.LoginRequest

	// 1. Decode JSON
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		slog.Error("Login decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	// Validate DTO
	if err := loginReq.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	// Relay to the backend API
	session, err := a.authService.Login(r.Context(), loginReq)
	if err != nil {
		slog.Error("Login service error", "error", err)
		response.HandleError(w, err)
		return
	}

	http.SetCookie(w, a.jwtService.SessionCookie(session.Token, session.ExpiresAt))
	slog.Info("User logged in", "user_id", session.User.ID, "role", session.User.Role)
	response.SuccessWithMessage(w, "Login successful", session.ToResponse())
}

// Logout implements AuthHandler.
func (a *AuthHandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	token := a.jwtService.TokenFromRequest(r)
	if token == "" {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}

	// Expired or foreign tokens are still cleared from the browser.
	_, expiresAt, err := a.jwtService.Verify(token)
	if err == nil {
		if err := a.authService.Logout(r.Context(), token, expiresAt); err != nil {
			slog.Error("Logout service error", "error", err)
			response.HandleError(w, err)
			return
		}
	}

	http.SetCookie(w, a.jwtService.ClearSessionCookie())
	response.SuccessWithMessage(w, "User logged out successfully", nil)
}

// Me implements AuthHandler.
func (a *AuthHandlerImpl) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}
	response.Success(w, u.ToResponse())
}
