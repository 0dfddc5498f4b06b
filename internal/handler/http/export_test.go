package http

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/render"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportPath = "/api/attendance/export-pdf"

func exportBody() map[string]interface{} {
	return map[string]interface{}{
		"data": []map[string]interface{}{
			{"studentName": "Budi Santoso", "studentNis": "1001", "presentCount": 18, "totalEffectiveDays": 20},
		},
		"month":     "Januari 2025",
		"className": "X IPA 1",
		"waliKelas": "Siti Aminah",
	}
}

func pdfFile() export.File {
	return export.File{
		Filename:    "rekap-absensi-Januari-2025-X-IPA-1.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.7 recap"),
		Attempts:    1,
	}
}

func TestExportPDF_Success(t *testing.T) {
	s := newTestServer(t, nil)
	s.exports.file = pdfFile()

	rec := s.do(http.MethodPost, exportPath, s.token(t, "Guru BK"), exportBody())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="rekap-absensi-Januari-2025-X-IPA-1.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "14", rec.Header().Get("Content-Length"))
	assert.Equal(t, "no-store, no-cache, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))
	assert.Equal(t, "%PDF-1.7 recap", rec.Body.String())

	assert.Equal(t, 1, s.exports.calls)
	assert.Equal(t, "u-1", s.exports.requester.UserID)
	assert.Equal(t, "Dewi Kartika", s.exports.requester.Name)
	assert.Equal(t, "Guru BK", s.exports.requester.Role)
}

func TestExportPDF_VersionedAliasAndBearer(t *testing.T) {
	s := newTestServer(t, nil)
	s.exports.file = pdfFile()

	req := exportBody()
	rec := s.do(http.MethodPost, "/api/v1/attendance/export/pdf", s.token(t, "Admin"), req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, s.exports.calls)
}

func TestExportPDF_Unauthorized(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, exportPath, "", exportBody())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Unauthorized"}`, rec.Body.String())
	assert.Zero(t, s.exports.calls)
}

func TestExportPDF_ForbiddenRoleNeverRenders(t *testing.T) {
	s := newTestServer(t, nil)

	for _, role := range []string{"Guru", "Siswa"} {
		rec := s.do(http.MethodPost, exportPath, s.token(t, role), exportBody())
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NotEmpty(t, decode(t, rec)["message"])
	}

	rec := s.do(http.MethodPost, "/api/v1/attendance/export/pdf", s.token(t, "Guru"), exportBody())
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, s.exports.calls)
}

func TestExportPDF_EmptyDataRejected(t *testing.T) {
	s := newTestServer(t, nil)
	body := exportBody()
	body["data"] = []interface{}{}

	rec := s.do(http.MethodPost, exportPath, s.token(t, "Admin"), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "data")
	assert.Zero(t, s.exports.calls)
}

func TestExportPDF_BadRequests(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(t, "Admin")

	missingClass := exportBody()
	delete(missingClass, "className")
	rec := s.do(http.MethodPost, exportPath, token, missingClass)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "className")

	badMonth := exportBody()
	badMonth["month"] = "2025-01"
	rec = s.do(http.MethodPost, exportPath, token, badMonth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, exportPath, token, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request format", decode(t, rec)["error"])

	oversized := exportBody()
	oversized["waliKelas"] = strings.Repeat("a", maxRequestBody+1)
	rec = s.do(http.MethodPost, exportPath, token, oversized)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body is too large", decode(t, rec)["error"])

	assert.Zero(t, s.exports.calls)
}

func TestExportPDF_RenderFailures(t *testing.T) {
	cases := []struct {
		kind    render.Kind
		details interface{}
	}{
		{render.KindLaunchFailed, "launch_failed"},
		{render.KindNavigationTimeout, "navigation_timeout"},
		{render.KindNavigationFailed, "navigation_failed"},
		{render.KindRenderTimeout, "render_timeout"},
	}

	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			s := newTestServer(t, nil)
			s.exports.err = &render.Error{Kind: tc.kind, Op: "test", Err: errors.New("chromium says no")}

			rec := s.do(http.MethodPost, exportPath, s.token(t, "Admin"), exportBody())
			assert.Equal(t, http.StatusInternalServerError, rec.Code)

			body := decode(t, rec)
			assert.Equal(t, renderFailureMessage(tc.kind), body["error"])
			assert.Equal(t, tc.details, body["details"])
			assert.NotContains(t, rec.Body.String(), "chromium says no")
		})
	}
}

func TestExportPDF_UnknownFailureHasNoDetails(t *testing.T) {
	s := newTestServer(t, nil)
	s.exports.err = context.Canceled

	rec := s.do(http.MethodPost, exportPath, s.token(t, "Admin"), exportBody())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to generate the export, please try again later"}`, rec.Body.String())
}

func TestRenderFailureMessage_DistinctPerKind(t *testing.T) {
	seen := map[string]render.Kind{}
	for _, kind := range []render.Kind{render.KindUnknown, render.KindLaunchFailed, render.KindNavigationTimeout, render.KindNavigationFailed, render.KindRenderTimeout} {
		msg := renderFailureMessage(kind)
		_, dup := seen[msg]
		assert.False(t, dup, "message for %s reused", kind)
		seen[msg] = kind
	}
}

func TestExportXLSX(t *testing.T) {
	s := newTestServer(t, nil)
	s.exports.file = export.File{
		Filename:    "rekap-absensi-Januari-2025-X-IPA-1.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     []byte("PK\x03\x04"),
	}

	rec := s.do(http.MethodPost, "/api/v1/attendance/export/xlsx", s.token(t, "Guru BK"), exportBody())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	rec = s.do(http.MethodPost, "/api/v1/attendance/export/xlsx", s.token(t, "Guru"), exportBody())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportHistory(t *testing.T) {
	s := newTestServer(t, nil)
	s.exports.runs = []export.ExportRunResponse{{ID: "r-1", Format: "pdf", Status: "succeeded"}}

	rec := s.do(http.MethodGet, "/api/v1/exports?limit=5", s.token(t, "Guru BK"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["data"], 1)

	rec = s.do(http.MethodGet, "/api/v1/exports?limit=abc", s.token(t, "Guru BK"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.exports.runsErr = export.ErrArchiveDisabled
	rec = s.do(http.MethodGet, "/api/v1/exports", s.token(t, "Admin"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/exports", s.token(t, "Guru"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportDownloadRun(t *testing.T) {
	s := newTestServer(t, nil)
	s.exports.file = pdfFile()

	rec := s.do(http.MethodGet, "/api/v1/exports/0192f5c4-7a4e-7b1a-9c3e-2f5d8a1b4c6d/file", s.token(t, "Admin"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	s.exports.err = export.ErrExportRunNotFound
	rec = s.do(http.MethodGet, "/api/v1/exports/missing/file", s.token(t, "Admin"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportPruneRuns_AdminOnly(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/api/v1/exports/prune", s.token(t, "Guru BK"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, s.pruner.calls)

	rec = s.do(http.MethodPost, "/api/v1/exports/prune", s.token(t, "Admin"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, s.pruner.calls)
}

func readFrame(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return strings.Join(lines, "\n")
		}
		lines = append(lines, line)
	}
}

func TestExportEvents_StreamsPublishedEvents(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/exports/events", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "session", Value: s.token(t, "Guru BK")})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Contains(t, readFrame(t, reader), "event: connected")
	assert.Equal(t, 1, s.hub.SubscriberCount("u-1"))

	s.hub.Publish("u-1", sse.Event{Name: "export.completed", Data: map[string]int{"attempts": 1}})
	frame := readFrame(t, reader)
	assert.Contains(t, frame, "event: export.completed")
	assert.Contains(t, frame, `data: {"attempts":1}`)
}

func TestExportEvents_ForbiddenForTeachers(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/api/v1/exports/events", s.token(t, "Guru"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, s.hub.SubscriberCount("u-1"))
}
