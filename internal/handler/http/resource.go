package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/handler/http/response"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/upstream"
	"github.com/go-chi/chi/v5"
)

// Resources are relayed to the backend API under the same name.
var Resources = []string{
	"students",
	"teachers",
	"classes",
	"violation-types",
	"violation-logs",
	"sanctions",
	"attendance",
}

type ResourceHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type ResourceHandlerImpl struct {
	jwtService jwt.Service
	api        *upstream.Client
}

func NewResourceHandler(jwtService jwt.Service, api *upstream.Client) ResourceHandler {
	return &ResourceHandlerImpl{
		jwtService: jwtService,
		api:        api,
	}
}

// List implements ResourceHandler.
func (h *ResourceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodGet, chi.URLParam(r, "resource"), r.URL.Query(), false)
}

// Create implements ResourceHandler.
func (h *ResourceHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodPost, chi.URLParam(r, "resource"), nil, true)
}

// Get implements ResourceHandler.
func (h *ResourceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodGet, itemPath(r), r.URL.Query(), false)
}

// Update implements ResourceHandler.
func (h *ResourceHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodPut, itemPath(r), nil, true)
}

// Delete implements ResourceHandler.
func (h *ResourceHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodDelete, itemPath(r), nil, false)
}

func itemPath(r *http.Request) string {
	return chi.URLParam(r, "resource") + "/" + url.PathEscape(chi.URLParam(r, "id"))
}

func (h *ResourceHandlerImpl) forward(w http.ResponseWriter, r *http.Request, method, path string, query url.Values, withBody bool) {
	req := upstream.Request{
		Method: method,
		Path:   path,
		Query:  query,
		Token:  h.jwtService.TokenFromRequest(r),
	}

	if withBody {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
		if err != nil {
			slog.Error("Proxy read body error", "error", err, "path", path)
			response.BadRequest(w, "Request body is too large", nil)
			return
		}
		if !json.Valid(body) {
			response.BadRequest(w, "Invalid request format", nil)
			return
		}
		req.Body = body
	}

	resp, err := h.api.Do(r.Context(), req)
	if err != nil {
		slog.Error("Proxy upstream error", "error", err, "method", method, "path", path)
		var apiErr *upstream.APIError
		if !errors.As(err, &apiErr) && !errors.Is(err, context.DeadlineExceeded) {
			response.BadGateway(w, "Backend API is unreachable")
			return
		}
		response.HandleError(w, err)
		return
	}

	data, meta := upstream.Unwrap(resp.Body)
	var payload interface{}
	if data != nil {
		payload = data
	}

	switch {
	case method == http.MethodPost:
		response.Created(w, "Created successfully", payload)
	case method == http.MethodPut:
		response.SuccessWithMessage(w, "Updated successfully", payload)
	case method == http.MethodDelete:
		response.SuccessWithMessage(w, "Deleted successfully", payload)
	case meta != nil:
		response.SuccessWithMeta(w, payload, meta)
	default:
		response.Success(w, payload)
	}
}
