package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/santoshkal/mcp-server-http-time/pkg/config"
	"github.com/santoshkal/mcp-server-http-time/pkg/guard"
	"github.com/santoshkal/mcp-server-http-time/pkg/mcp"
	"github.com/santoshkal/mcp-server-http-time/pkg/ratelimit"
)

const (
	statusText   = "MCP Server HTTP Time is running."
	allowMethods = "GET, POST, OPTIONS"
	allowHeaders = "Content-Type, MCP-Protocol-Version, Mcp-Session-Id, Origin"

	requestIDHeader = "X-Request-Id"
)

// HTTPOptions configure the HTTP transport.
type HTTPOptions struct {
	Guard *guard.Guard
	// Limiter is consulted for every POST. Nil disables rate limiting.
	Limiter       *ratelimit.Limiter
	ClientHeaders []string
	MaxBodyBytes  int64
}

// HTTPHandler serves the MCP endpoint.
type HTTPHandler struct {
	srv  *Server
	opts HTTPOptions
}

// NewHTTPHandler wraps srv with the HTTP transport rules.
func NewHTTPHandler(srv *Server, opts HTTPOptions) *HTTPHandler {
	if opts.Guard == nil {
		opts.Guard = guard.New(guard.DefaultAllowedHosts)
	}
	if len(opts.ClientHeaders) == 0 {
		opts.ClientHeaders = ratelimit.DefaultClientHeaders
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	return &HTTPHandler{srv: srv, opts: opts}
}

// Routes returns the instrumented mux serving the endpoint at "/" and "/mcp".
func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/{$}", h)
	mux.Handle("/mcp", h)
	return otelhttp.NewHandler(withRequestLog(mux, h.opts.ClientHeaders), "mcp")
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w.Header())

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, statusText)
	case http.MethodPost:
		h.handlePost(w, r)
	default:
		w.Header().Set("Allow", allowMethods)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	entry := requestLogger(r)

	if origin := r.Header.Get(guard.OriginHeader); origin != "" && !h.opts.Guard.IsValidOrigin(origin) {
		entry.Warnf("Rejected origin: %s", origin)
		writeJSON(w, http.StatusForbidden, mcp.NewErrorResponse(nil, mcp.ErrorCodeInternalError, "Invalid origin"))
		return
	}

	if v := r.Header.Get(guard.ProtocolVersionHeader); v != "" && !guard.IsSupportedProtocolVersion(v) {
		entry.Warnf("Rejected protocol version: %s", v)
		writeJSON(w, http.StatusBadRequest,
			mcp.NewErrorResponse(nil, mcp.ErrorCodeInvalidRequest, fmt.Sprintf("Unsupported protocol version: %s", v)))
		return
	}

	if h.opts.Limiter != nil {
		client := ratelimit.ClientID(r.Header, h.opts.ClientHeaders)
		if !h.opts.Limiter.Allow(client) {
			entry.Warnf("Rate limit exceeded for %s", client)
			w.Header().Set("Retry-After", strconv.Itoa(h.opts.Limiter.RetryAfter()))
			http.Error(w, "Rate limit exceeded. Try again later.", http.StatusTooManyRequests)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge,
				mcp.NewErrorResponse(nil, mcp.ErrorCodeInvalidRequest, "Request body too large"))
			return
		}
		entry.Errorf("Failed to read request: %v", err)
		writeJSON(w, http.StatusBadRequest, mcp.NewErrorResponse(nil, mcp.ErrorCodeParseError, "Parse error"))
		return
	}

	resp := h.srv.HandleMessage(r.Context(), body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if resp.Error != nil {
		entry.Debugf("JSON-RPC error: %s", resp.Error.String())
	}
	writeJSON(w, statusFor(resp), resp)
}

// statusFor maps a response to its HTTP status. Envelope errors are client errors;
// every other JSON-RPC response, errors included, is delivered with 200.
func statusFor(resp *mcp.RPCResponse) int {
	if resp.Error != nil {
		switch resp.Error.Code {
		case mcp.ErrorCodeParseError, mcp.ErrorCodeInvalidRequest:
			return http.StatusBadRequest
		}
	}
	return http.StatusOK
}

func setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Errorf("Failed to encode response: %v", err)
		data, status = []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"Internal error"}}`), http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

type ctxKey struct{}

// statusRecorder captures the status written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags each request with an id and logs its outcome. The client is
// identified with the same headers the rate limiter uses.
func withRequestLog(next http.Handler, clientHeaders []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		entry := logger.WithFields(logrus.Fields{
			"request_id": id,
			"client":     ratelimit.ClientID(r.Header, clientHeaders),
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, entry))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		entry.WithFields(logrus.Fields{
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("Handled request")
	})
}

// requestLogger returns the entry attached by withRequestLog, or a bare one.
func requestLogger(r *http.Request) *logrus.Entry {
	if entry, ok := r.Context().Value(ctxKey{}).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logger)
}

// ListenAndServe serves handler with the listener settings from cfg until ctx is
// cancelled, then shuts down gracefully within cfg.ShutdownTimeout.
func ListenAndServe(ctx context.Context, cfg config.ServerConfig, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("MCP server listening on %s (POST / or /mcp)", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
