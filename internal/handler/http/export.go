package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/handler/http/response"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/render"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/report"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
)

type ExportHandler interface {
	ExportPDF(w http.ResponseWriter, r *http.Request)
	ExportXLSX(w http.ResponseWriter, r *http.Request)
	ListRuns(w http.ResponseWriter, r *http.Request)
	DownloadRun(w http.ResponseWriter, r *http.Request)
	PruneRuns(w http.ResponseWriter, r *http.Request)
	Events(w http.ResponseWriter, r *http.Request)
}

// Pruner removes expired archived exports on demand.
type Pruner interface {
	PruneExpiredExports(ctx context.Context) error
}

type ExportHandlerImpl struct {
	exportService export.ExportService
	pruner        Pruner
	hub           *sse.Hub
}

// NewExportHandler accepts a nil pruner when the archive is disabled.
func NewExportHandler(exportService export.ExportService, pruner Pruner, hub *sse.Hub) ExportHandler {
	return &ExportHandlerImpl{
		exportService: exportService,
		pruner:        pruner,
		hub:           hub,
	}
}

type exportFunc func(ctx context.Context, req export.AttendanceExportRequest, requester export.Requester) (export.File, error)

// ExportPDF implements ExportHandler.
func (h *ExportHandlerImpl) ExportPDF(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "ExportPDF", h.exportService.ExportAttendancePDF)
}

// ExportXLSX implements ExportHandler.
func (h *ExportHandlerImpl) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "ExportXLSX", h.exportService.ExportAttendanceXLSX)
}

func (h *ExportHandlerImpl) export(w http.ResponseWriter, r *http.Request, op string, fn exportFunc) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Message(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req export.AttendanceExportRequest

	// 1. Decode JSON
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		slog.Error(op+" decode error", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusBadRequest, "Request body is too large", "")
			return
		}
		response.Error(w, http.StatusBadRequest, "Invalid request format", "")
		return
	}

	// 2. Validate before anything is assembled
	if err := req.Validate(); err != nil {
		slog.Warn(op+" validate error", "error", err)
		response.Error(w, http.StatusBadRequest, "Invalid export request: "+err.Error(), "")
		return
	}

	requester := export.Requester{UserID: u.ID, Name: u.DisplayName(), Role: string(u.Role)}
	file, err := fn(r.Context(), req, requester)
	if err != nil {
		if errors.Is(err, report.ErrNoRows) || errors.Is(err, report.ErrInvalidMonthLabel) {
			response.Error(w, http.StatusBadRequest, "Invalid export request: "+err.Error(), "")
			return
		}

		kind := render.KindOf(err)
		slog.Error(op+" service error", "error", err, "kind", kind.String(), "user_id", u.ID)
		details := ""
		if kind != render.KindUnknown {
			details = kind.String()
		}
		response.Error(w, http.StatusInternalServerError, renderFailureMessage(kind), details)
		return
	}

	slog.Info("Attendance recap exported",
		"user_id", u.ID,
		"class", req.ClassName,
		"month", req.Month,
		"rows", len(req.Data),
		"bytes", len(file.Content),
		"attempts", file.Attempts)
	writeFile(w, file)
}

// renderFailureMessage chooses the user-facing text for a failed export.
func renderFailureMessage(kind render.Kind) string {
	switch kind {
	case render.KindLaunchFailed:
		return "PDF renderer is unavailable: the browser could not be started"
	case render.KindNavigationTimeout:
		return "Timed out while loading the report document"
	case render.KindNavigationFailed:
		return "Failed to load the report document"
	case render.KindRenderTimeout:
		return "Timed out while generating the PDF"
	case render.KindUnknown:
		return "Failed to generate the export, please try again later"
	default:
		return "Failed to generate the export, please try again later"
	}
}

func writeFile(w http.ResponseWriter, file export.File) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Content)))
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Content); err != nil {
		slog.Error("Export write error", "error", err, "filename", file.Filename)
	}
}

// ListRuns implements ExportHandler.
func (h *ExportHandlerImpl) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(w, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	runs, err := h.exportService.ListRuns(r.Context(), limit)
	if err != nil {
		slog.Error("ListRuns service error", "error", err)
		response.HandleError(w, err)
		return
	}
	response.Success(w, runs)
}

// DownloadRun implements ExportHandler.
func (h *ExportHandlerImpl) DownloadRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	file, err := h.exportService.OpenRunArtifact(r.Context(), id)
	if err != nil {
		slog.Error("DownloadRun service error", "error", err, "run_id", id)
		response.HandleError(w, err)
		return
	}
	writeFile(w, file)
}

// PruneRuns implements ExportHandler.
func (h *ExportHandlerImpl) PruneRuns(w http.ResponseWriter, r *http.Request) {
	if h.pruner == nil {
		response.HandleError(w, export.ErrArchiveDisabled)
		return
	}

	if err := h.pruner.PruneExpiredExports(r.Context()); err != nil {
		slog.Error("PruneRuns error", "error", err)
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Expired exports removed", nil)
}

// keepaliveInterval paces ping frames on idle event streams.
var keepaliveInterval = 30 * time.Second

// Events implements ExportHandler. It streams the caller's export progress
// as Server-Sent Events until the client disconnects.
func (h *ExportHandlerImpl) Events(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Message(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(u.ID)
	defer cleanup()
	slog.Debug("Export events stream opened", "user_id", u.ID, "streams", h.hub.SubscriberCount(u.ID))

	if err := sse.Write(w, sse.Event{Name: "connected", Data: map[string]string{"user_id": u.ID}}); err != nil {
		return
	}
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := sse.Write(w, event); err != nil {
				slog.Error("Events write error", "error", err, "user_id", u.ID)
				return
			}
			flusher.Flush()

		case <-keepalive.C:
			if err := sse.Write(w, sse.Event{Name: "ping", Data: map[string]int64{"timestamp": time.Now().Unix()}}); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
