package export

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/render"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/report"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/sse"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultListLimit = 20
	maxListLimit     = 100
)

// Progress events published to the requester's SSE streams.
const (
	EventStarted   = "export.started"
	EventCompleted = "export.completed"
	EventFailed    = "export.failed"
)

// Renderer turns an HTML document into PDF bytes. *render.Supervisor is the
// production implementation.
type Renderer interface {
	Render(ctx context.Context, html string) (render.Result, error)
}

// Publisher receives progress events. *sse.Hub is the production implementation.
type Publisher interface {
	Publish(userID string, event sse.Event)
}

type exportServiceImpl struct {
	assembler *report.Assembler
	renderer  Renderer
	events    Publisher

	// archive, both nil when disabled
	runRepo export.ExportRunRepository
	storage storage.FileStorage

	now func() time.Time
}

type Option func(*exportServiceImpl)

// WithArchive keeps every generated document and records its run.
func WithArchive(runRepo export.ExportRunRepository, fileStorage storage.FileStorage) Option {
	return func(s *exportServiceImpl) {
		s.runRepo = runRepo
		s.storage = fileStorage
	}
}

func WithEvents(events Publisher) Option {
	return func(s *exportServiceImpl) {
		s.events = events
	}
}

func NewExportService(assembler *report.Assembler, renderer Renderer, opts ...Option) export.ExportService {
	s := &exportServiceImpl{
		assembler: assembler,
		renderer:  renderer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *exportServiceImpl) archiveEnabled() bool {
	return s.runRepo != nil && s.storage != nil
}

// ExportAttendancePDF implements export.ExportService.
func (s *exportServiceImpl) ExportAttendancePDF(ctx context.Context, req export.AttendanceExportRequest, requester export.Requester) (export.File, error) {
	req = req.Trimmed()

	html, err := s.assembler.Assemble(req)
	if err != nil {
		return export.File{}, err
	}

	s.publish(requester, EventStarted, map[string]interface{}{
		"format": export.FormatPDF,
		"class":  req.ClassName,
		"month":  req.Month,
	})

	result, err := s.renderer.Render(ctx, html)
	if err != nil {
		s.publishFailure(requester, export.FormatPDF, result.Attempts, err)
		s.recordFailure(ctx, req, requester, export.FormatPDF, result.Attempts, err)
		return export.File{}, err
	}

	file := export.File{
		Filename:    export.ReportFilename(req.Month, req.ClassName, export.FormatPDF),
		ContentType: contentTypePDF,
		Content:     result.PDF,
		Attempts:    result.Attempts,
	}
	s.archive(ctx, req, requester, export.FormatPDF, file)
	s.publishCompleted(requester, export.FormatPDF, file)
	return file, nil
}

// ExportAttendanceXLSX implements export.ExportService.
func (s *exportServiceImpl) ExportAttendanceXLSX(ctx context.Context, req export.AttendanceExportRequest, requester export.Requester) (export.File, error) {
	req = req.Trimmed()

	recap, err := report.BuildRecap(req)
	if err != nil {
		return export.File{}, err
	}

	content, err := report.WriteWorkbook(recap)
	if err != nil {
		s.publishFailure(requester, export.FormatXLSX, 1, err)
		s.recordFailure(ctx, req, requester, export.FormatXLSX, 1, err)
		return export.File{}, err
	}

	file := export.File{
		Filename:    export.ReportFilename(req.Month, req.ClassName, export.FormatXLSX),
		ContentType: contentTypeXLSX,
		Content:     content,
		Attempts:    1,
	}
	s.archive(ctx, req, requester, export.FormatXLSX, file)
	s.publishCompleted(requester, export.FormatXLSX, file)
	return file, nil
}

// ListRuns implements export.ExportService.
func (s *exportServiceImpl) ListRuns(ctx context.Context, limit int) ([]export.ExportRunResponse, error) {
	if !s.archiveEnabled() {
		return nil, export.ErrArchiveDisabled
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	runs, err := s.runRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list export runs: %w", err)
	}

	responses := make([]export.ExportRunResponse, 0, len(runs))
	for i := range runs {
		responses = append(responses, runs[i].ToResponse())
	}
	return responses, nil
}

// OpenRunArtifact implements export.ExportService.
func (s *exportServiceImpl) OpenRunArtifact(ctx context.Context, id string) (export.File, error) {
	if !s.archiveEnabled() {
		return export.File{}, export.ErrArchiveDisabled
	}
	if _, err := uuid.Parse(id); err != nil {
		return export.File{}, export.ErrExportRunNotFound
	}

	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return export.File{}, err
	}
	if run.ArtifactPath == nil {
		return export.File{}, export.ErrArtifactMissing
	}

	rc, err := s.storage.Download(ctx, *run.ArtifactPath)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return export.File{}, export.ErrArtifactMissing
		}
		return export.File{}, fmt.Errorf("failed to open export artifact: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return export.File{}, fmt.Errorf("failed to read export artifact: %w", err)
	}

	return export.File{
		Filename:    export.ReportFilename(run.Month, run.ClassName, run.Format),
		ContentType: contentType(run.Format),
		Content:     content,
		Attempts:    run.Attempts,
	}, nil
}

// archive stores the artifact and records the run. Failures are logged only;
// the caller already has its document.
func (s *exportServiceImpl) archive(ctx context.Context, req export.AttendanceExportRequest, requester export.Requester, format string, file export.File) {
	if !s.archiveEnabled() {
		return
	}

	run, err := s.newRun(req, requester, format, file.Attempts)
	if err != nil {
		slog.Error("Export archive new run error", "error", err)
		return
	}
	run.Status = export.RunStatusSucceeded
	run.Bytes = int64(len(file.Content))

	sum := blake2b.Sum256(file.Content)
	checksum := hex.EncodeToString(sum[:])
	run.Checksum = &checksum

	key := fmt.Sprintf("exports/%s/%s.%s", run.CreatedAt.Format("2006/01"), run.ID, format)
	path, err := s.storage.Upload(ctx, bytes.NewReader(file.Content), key, file.ContentType)
	if err != nil {
		slog.Error("Export archive upload error", "error", err, "run_id", run.ID)
		msg := "artifact upload failed"
		run.ErrorText = &msg
	} else {
		run.ArtifactPath = &path
	}

	if err := s.runRepo.Create(ctx, run); err != nil {
		slog.Error("Export archive record run error", "error", err, "run_id", run.ID)
		if run.ArtifactPath != nil {
			if err := s.storage.Delete(ctx, *run.ArtifactPath); err != nil {
				slog.Warn("Export archive orphan artifact", "error", err, "path", *run.ArtifactPath)
			}
		}
	}
}

func (s *exportServiceImpl) recordFailure(ctx context.Context, req export.AttendanceExportRequest, requester export.Requester, format string, attempts int, cause error) {
	if !s.archiveEnabled() {
		return
	}

	run, err := s.newRun(req, requester, format, attempts)
	if err != nil {
		slog.Error("Export archive new run error", "error", err)
		return
	}
	run.Status = export.RunStatusFailed
	msg := cause.Error()
	if kind := render.KindOf(cause); kind != render.KindUnknown {
		msg = kind.String() + ": " + msg
	}
	run.ErrorText = &msg

	// The request context may already be cancelled; the record still matters.
	if err := s.runRepo.Create(context.WithoutCancel(ctx), run); err != nil {
		slog.Error("Export archive record failed run error", "error", err, "run_id", run.ID)
	}
}

func (s *exportServiceImpl) newRun(req export.AttendanceExportRequest, requester export.Requester, format string, attempts int) (export.ExportRun, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return export.ExportRun{}, err
	}
	return export.ExportRun{
		ID:          id.String(),
		Format:      format,
		RequestedBy: requester.UserID,
		Role:        requester.Role,
		ClassName:   req.ClassName,
		Month:       req.Month,
		Rows:        len(req.Data),
		Attempts:    attempts,
		CreatedAt:   s.now().UTC(),
	}, nil
}

func (s *exportServiceImpl) publish(requester export.Requester, name string, data map[string]interface{}) {
	if s.events == nil || requester.UserID == "" {
		return
	}
	s.events.Publish(requester.UserID, sse.Event{Name: name, Data: data})
}

func (s *exportServiceImpl) publishCompleted(requester export.Requester, format string, file export.File) {
	s.publish(requester, EventCompleted, map[string]interface{}{
		"format":   format,
		"filename": file.Filename,
		"attempts": file.Attempts,
		"bytes":    len(file.Content),
	})
}

func (s *exportServiceImpl) publishFailure(requester export.Requester, format string, attempts int, err error) {
	s.publish(requester, EventFailed, map[string]interface{}{
		"format":   format,
		"kind":     render.KindOf(err).String(),
		"attempts": attempts,
	})
}

func contentType(format string) string {
	if format == export.FormatXLSX {
		return contentTypeXLSX
	}
	return contentTypePDF
}
