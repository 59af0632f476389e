package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/assistant"
	"github.com/GoogleCloudPlatform/sql-assistant/internal/config"
	"github.com/GoogleCloudPlatform/sql-assistant/internal/database"
	_ "github.com/GoogleCloudPlatform/sql-assistant/internal/database/sqlite"
)

func newTestServer(t *testing.T) (*Server, *assistant.Session) {
	t.Helper()
	cfg := config.GetConfig()
	session := assistant.NewSession(cfg)
	t.Cleanup(func() { session.Close() })
	return New(cfg, session), session
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestConnectAndSchema(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/connect", map[string]any{
		"dialect": "sqlite",
		"path":    ":memory:",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "connected")

	rec = doJSON(t, router, http.MethodGet, "/api/schema", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConnectBadDialect(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/connect", map[string]any{
		"dialect": "no-such-dialect",
	}, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAskRequiresQuestion(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/ask", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskWithoutConnectionsRecordsHistory(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/ask", map[string]any{
		"question": "how many employees?",
	}, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	sessionID := rec.Header().Get(sessionHeader)
	require.NotEmpty(t, sessionID, "a session id must be minted for new clients")

	rec = doJSON(t, router, http.MethodGet, "/api/history", nil, map[string]string{
		sessionHeader: sessionID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var history []Turn
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "how many employees?", history[0].Question)
	assert.Equal(t, "error", history[0].Outcome)
	assert.NotEmpty(t, history[0].Error)
}

func TestHistoryIsolatedPerSession(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	doJSON(t, router, http.MethodPost, "/api/ask", map[string]any{"question": "q1"},
		map[string]string{sessionHeader: "session-a"})

	rec := doJSON(t, router, http.MethodGet, "/api/history", nil,
		map[string]string{sessionHeader: "session-b"})
	require.Equal(t, http.StatusOK, rec.Code)

	var history []Turn
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Empty(t, history)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	doJSON(t, router, http.MethodPost, "/api/ask", map[string]any{"question": "q"}, nil)

	rec := doJSON(t, router, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sql_assistant_asks_total")
	assert.Contains(t, rec.Body.String(), `outcome="error"`)
}

func TestTrimResultBoundsHistory(t *testing.T) {
	rows := make([][]any, historyRowCap+40)
	for i := range rows {
		rows[i] = []any{i}
	}
	trimmed := trimResult(&database.Result{Columns: []string{"n"}, Rows: rows})
	require.NotNil(t, trimmed)
	assert.Len(t, trimmed.Rows, historyRowCap)
	assert.True(t, trimmed.Truncated)

	small := &database.Result{Columns: []string{"n"}, Rows: rows[:3]}
	assert.Same(t, small, trimResult(small))
	assert.Nil(t, trimResult(nil))
}
