package http

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type upstreamCall struct {
	method, path, query, auth, body string
}

func recordingUpstream(calls *[]upstreamCall, status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*calls = append(*calls, upstreamCall{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization"), string(b)})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestResource_ListUnwrapsDataAndMeta(t *testing.T) {
	var calls []upstreamCall
	s := newTestServer(t, recordingUpstream(&calls, http.StatusOK,
		`{"success":true,"data":[{"id":"s-1","name":"Budi"}],"pagination":{"page":2,"total":31}}`))
	token := s.token(t, "Guru")

	rec := s.do(http.MethodGet, "/api/v1/students?page=2&search=bud", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[{"id":"s-1","name":"Budi"}],"meta":{"page":2,"total":31}}`, rec.Body.String())

	if assert.Len(t, calls, 1) {
		assert.Equal(t, http.MethodGet, calls[0].method)
		assert.Equal(t, "/students", calls[0].path)
		assert.Equal(t, "page=2&search=bud", calls[0].query)
		assert.Equal(t, "Bearer "+token, calls[0].auth)
	}
}

func TestResource_CreateUpdateDelete(t *testing.T) {
	var calls []upstreamCall
	s := newTestServer(t, recordingUpstream(&calls, http.StatusOK, `{"data":{"id":"v-9"}}`))
	token := s.token(t, "Guru BK")

	rec := s.do(http.MethodPost, "/api/v1/violation-logs", token, `{"studentId":"s-1","violationTypeId":"t-2"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, map[string]interface{}{"id": "v-9"}, decode(t, rec)["data"])

	rec = s.do(http.MethodPut, "/api/v1/violation-logs/v-9", token, `{"note":"terlambat"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodDelete, "/api/v1/violation-logs/v-9", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	if assert.Len(t, calls, 3) {
		assert.Equal(t, "/violation-logs", calls[0].path)
		assert.JSONEq(t, `{"studentId":"s-1","violationTypeId":"t-2"}`, calls[0].body)
		assert.Equal(t, http.MethodPut, calls[1].method)
		assert.Equal(t, "/violation-logs/v-9", calls[1].path)
		assert.Equal(t, http.MethodDelete, calls[2].method)
	}
}

func TestResource_RelaysUpstreamError(t *testing.T) {
	var calls []upstreamCall
	s := newTestServer(t, recordingUpstream(&calls, http.StatusConflict, `{"message":"NIS sudah terdaftar"}`))

	rec := s.do(http.MethodPost, "/api/v1/students", s.token(t, "Admin"), `{"nis":"1001"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "NIS sudah terdaftar", body["error"].(map[string]interface{})["message"])
}

func TestResource_RejectsInvalidJSON(t *testing.T) {
	var calls []upstreamCall
	s := newTestServer(t, recordingUpstream(&calls, http.StatusOK, `{}`))

	rec := s.do(http.MethodPost, "/api/v1/classes", s.token(t, "Admin"), `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, calls)
}

func TestResource_UnknownResourceAndAuth(t *testing.T) {
	var calls []upstreamCall
	s := newTestServer(t, recordingUpstream(&calls, http.StatusOK, `{}`))

	rec := s.do(http.MethodGet, "/api/v1/payroll", s.token(t, "Admin"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/students", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, calls)
}
