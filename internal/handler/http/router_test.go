package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/sse"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/upstream"
	authService "github.com/cmlabs-hris/discipline-dashboard-go/internal/service/auth"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type fakeExportService struct {
	calls     int
	requester export.Requester
	file      export.File
	err       error
	runs      []export.ExportRunResponse
	runsErr   error
}

func (s *fakeExportService) ExportAttendancePDF(ctx context.Context, req export.AttendanceExportRequest, requester export.Requester) (export.File, error) {
	s.calls++
	s.requester = requester
	return s.file, s.err
}

func (s *fakeExportService) ExportAttendanceXLSX(ctx context.Context, req export.AttendanceExportRequest, requester export.Requester) (export.File, error) {
	s.calls++
	s.requester = requester
	return s.file, s.err
}

func (s *fakeExportService) ListRuns(ctx context.Context, limit int) ([]export.ExportRunResponse, error) {
	return s.runs, s.runsErr
}

func (s *fakeExportService) OpenRunArtifact(ctx context.Context, id string) (export.File, error) {
	return s.file, s.err
}

type fakePruner struct{ calls int }

func (p *fakePruner) PruneExpiredExports(ctx context.Context) error {
	p.calls++
	return nil
}

type testServer struct {
	handler  http.Handler
	jwt      *jwt.JWTService
	exports  *fakeExportService
	pruner   *fakePruner
	hub      *sse.Hub
	upstream *httptest.Server
}

func newTestServer(t *testing.T, upstreamHandler http.HandlerFunc) *testServer {
	t.Helper()
	if upstreamHandler == nil {
		upstreamHandler = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }
	}
	up := httptest.NewServer(upstreamHandler)
	t.Cleanup(up.Close)

	jwtService := jwt.NewJWTService(handlerTestSecret, "session", false)
	api := upstream.NewClient(up.URL, 2*time.Second)
	exports := &fakeExportService{}
	pruner := &fakePruner{}
	hub := sse.NewHub()

	router := NewRouter(
		RouterConfig{
			Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
			FrontendURL: "http://localhost:3000",
			Health:      HealthInfo{Engine: "rod", Profile: "local"},
		},
		jwtService,
		NewAuthHandler(jwtService, authService.NewAuthService(api, jwtService)),
		NewExportHandler(exports, pruner, hub),
		NewResourceHandler(jwtService, api),
	)

	return &testServer{handler: router, jwt: jwtService, exports: exports, pruner: pruner, hub: hub, upstream: up}
}

func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	_, token, err := s.jwt.JWTAuth().Encode(map[string]interface{}{
		"user_id":  "u-1",
		"username": "bk01",
		"name":     "Dewi Kartika",
		"role":     role,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
