package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santoshkal/mcp-server-http-time/pkg/guard"
	"github.com/santoshkal/mcp-server-http-time/pkg/mcp"
	"github.com/santoshkal/mcp-server-http-time/pkg/ratelimit"
	"github.com/santoshkal/mcp-server-http-time/pkg/utils"
)

func newTestHTTP(t *testing.T, limiter *ratelimit.Limiter) http.Handler {
	t.Helper()
	return NewHTTPHandler(newTestServer(t), HTTPOptions{
		Guard:        guard.New(guard.DefaultAllowedHosts),
		Limiter:      limiter,
		MaxBodyBytes: 4096,
	}).Routes()
}

func post(h http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeRPC(t *testing.T, rec *httptest.ResponseRecorder) (mcp.RPCResponse, map[string]json.RawMessage) {
	t.Helper()
	var resp mcp.RPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	return resp, raw
}

func TestHTTPMethods(t *testing.T) {
	h := newTestHTTP(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/mcp", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, MCP-Protocol-Version, Mcp-Session-Id, Origin", rec.Header().Get("Access-Control-Allow-Headers"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MCP Server HTTP Time is running.", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Allow"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/elsewhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPRequestIDIsEchoed(t *testing.T) {
	h := newTestHTTP(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestHTTPRequestLogUsesConfiguredClientHeaders(t *testing.T) {
	saved := utils.Logger.ReplaceHooks(make(logrus.LevelHooks))
	defer utils.Logger.ReplaceHooks(saved)
	hook := logtest.NewLocal(utils.Logger)

	h := NewHTTPHandler(newTestServer(t), HTTPOptions{
		ClientHeaders: []string{"X-Client-Id"},
	}).Routes()
	rec := post(h, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, map[string]string{
		"X-Client-Id": "tenant-7",
		"X-Real-IP":   "10.0.0.9",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var handled *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "Handled request" {
			handled = e
		}
	}
	require.NotNil(t, handled)
	assert.Equal(t, "tenant-7", handled.Data["client"])
}

func TestHTTPPostToolsCall(t *testing.T) {
	h := newTestHTTP(t, nil)

	for _, path := range []string{"/", "/mcp"} {
		rec := post(h, path, `{"jsonrpc":"2.0","id":"abc","method":"tools/call","params":{"name":"days_in_month","arguments":{"date":"2024-02-15"}}}`, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

		resp, raw := decodeRPC(t, rec)
		assert.Equal(t, `"abc"`, string(raw["id"]))
		assert.NotContains(t, raw, "error")
		assert.Nil(t, resp.Error)
	}
}

func TestHTTPErrorStatuses(t *testing.T) {
	h := newTestHTTP(t, nil)

	rec := post(h, "/mcp", `{"jsonrpc":"2.0","id":1,"method":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp, raw := decodeRPC(t, rec)
	assert.Equal(t, mcp.ErrorCodeParseError, resp.Error.Code)
	assert.Equal(t, "Parse error", resp.Error.Message)
	assert.Equal(t, "null", string(raw["id"]))

	rec = post(h, "/mcp", `[]`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(h, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"teleport"}}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	resp, _ = decodeRPC(t, rec)
	assert.Equal(t, mcp.ErrorCodeMethodNotFound, resp.Error.Code)

	rec = post(h, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"ping","pad":"`+strings.Repeat("x", 5000)+`"}`, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHTTPNotificationAccepted(t *testing.T) {
	rec := post(newTestHTTP(t, nil), "/mcp", `{"jsonrpc":"2.0","method":"initialized"}`, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHTTPOriginGuard(t *testing.T) {
	h := newTestHTTP(t, nil)
	body := `{"jsonrpc":"2.0","id":1,"method":"ping"}`

	rec := post(h, "/mcp", body, map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp, raw := decodeRPC(t, rec)
	assert.Equal(t, mcp.ErrorCodeInternalError, resp.Error.Code)
	assert.Equal(t, "Invalid origin", resp.Error.Message)
	assert.Equal(t, "null", string(raw["id"]))

	for _, origin := range []string{
		"http://localhost:3000",
		"http://127.0.0.1",
		"https://mcpcentral.io",
		"https://app.mcpcentral.io",
	} {
		rec = post(h, "/mcp", body, map[string]string{"Origin": origin})
		assert.Equal(t, http.StatusOK, rec.Code, origin)
	}

	rec = post(h, "/mcp", body, map[string]string{"Origin": "https://mcpcentral.io.evil.example"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHTTPProtocolVersionHeader(t *testing.T) {
	h := newTestHTTP(t, nil)
	body := `{"jsonrpc":"2.0","id":1,"method":"ping"}`

	rec := post(h, "/mcp", body, map[string]string{"MCP-Protocol-Version": "2025-03-26"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(h, "/mcp", body, map[string]string{"MCP-Protocol-Version": "2023-01-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp, raw := decodeRPC(t, rec)
	assert.Equal(t, mcp.ErrorCodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, "Unsupported protocol version: 2023-01-01", resp.Error.Message)
	assert.Equal(t, "null", string(raw["id"]))
}

func TestHTTPRateLimit(t *testing.T) {
	now := time.UnixMilli(1742733000000).Add(10 * time.Second)
	limiter := ratelimit.New(60, time.Minute)
	limiter.SetClock(func() time.Time { return now })
	h := newTestHTTP(t, limiter)

	body := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	client := map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}

	for i := 0; i < 60; i++ {
		rec := post(h, "/mcp", body, client)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := post(h, "/mcp", body, client)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	// Same first hop through a different proxy shares the bucket.
	rec = post(h, "/mcp", body, map[string]string{"X-Forwarded-For": "203.0.113.7"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = post(h, "/mcp", body, map[string]string{"CF-Connecting-IP": "198.51.100.1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// A malformed body still counts against the budget of a fresh client.
	rec = post(h, "/mcp", `not json`, map[string]string{"X-Real-IP": "192.0.2.9"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 59, limiter.Remaining("192.0.2.9", now.UnixMilli()))

	now = now.Add(time.Minute)
	rec = post(h, "/mcp", body, client)
	assert.Equal(t, http.StatusOK, rec.Code)
	body2, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body2), `"result":{}`)
}
