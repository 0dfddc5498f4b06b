package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/auth"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/user"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/upstream"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Backend API errors keep their status
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		Upstream(w, apiErr.StatusCode, apiErr.Message)
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, "Invalid username or password")
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrTokenRevoked):
		Unauthorized(w, "Token has been revoked")
	case errors.Is(err, auth.ErrUpstreamToken):
		BadGateway(w, "Authentication service returned an unusable token")

	// User domain errors
	case errors.Is(err, user.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, "Insufficient permissions")

	// Export domain errors
	case errors.Is(err, export.ErrArchiveDisabled):
		NotFound(w, "Export archive is disabled")
	case errors.Is(err, export.ErrExportRunNotFound):
		NotFound(w, "Export run not found")
	case errors.Is(err, export.ErrArtifactMissing):
		NotFound(w, "Export file is not available")

	// Backend API unreachable or slow
	case errors.Is(err, context.DeadlineExceeded):
		GatewayTimeout(w, "Backend API did not respond in time")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
