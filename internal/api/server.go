// Package api implements the HTTP interface of the assistant.
//
// Endpoints:
//
//	GET  /health              → HealthResponse
//	GET  /version             → VersionResponse
//	POST /process             → ProcessRequest → interpretation and, above the
//	                            confidence threshold, tool results
//	GET  /tools               → every registered capability
//	POST /tools/{name}        → arguments object → capability result
//	GET  /prompts             → prompt catalog
//	POST /prompts/{name}      → string arguments → rendered prompt
//	POST /wizard              → WizardRequest → wizard step
//	POST /explain             → ExplainRequest → explanation text
//	POST /learning-path       → LearningPathRequest → learning path
//	POST /sessions            → new session ID
//	GET  /sessions/{id}/history → recent commands of a session
//	POST /jsonrpc             → one MCP JSON-RPC message
//
// Every response carries an X-Request-ID header. A caller-supplied ID is
// echoed back when it is safe, otherwise a fresh one is generated; the same
// ID tags every log line emitted while serving the request.
//
// Requests may carry a session_id created through POST /sessions. The server
// then stores command history and wizard progress for that session and
// replays them on later turns. Without a session every request stands alone.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/robloxmcp/studio-assist/common/trace"
	"github.com/robloxmcp/studio-assist/internal/assist"
	"github.com/robloxmcp/studio-assist/internal/capability"
	"github.com/robloxmcp/studio-assist/internal/mcp"
	"github.com/robloxmcp/studio-assist/internal/nlcmd"
	"github.com/robloxmcp/studio-assist/internal/observability"
	"github.com/robloxmcp/studio-assist/internal/prompts"
	"github.com/robloxmcp/studio-assist/internal/session"
	"github.com/robloxmcp/studio-assist/internal/wizard"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 * 1024 * 1024 // 1 MiB

// requestIDHeader carries the trace ID in both directions.
const requestIDHeader = "X-Request-ID"

// Handlers bundles the components the server delegates to.
type Handlers struct {
	// Version is reported by /health and /version.
	Version   string
	GitCommit string
	BuildTime string

	Assistant *assist.Assistant
	Gateway   *capability.Gateway
	Prompts   *prompts.Registry
	// MCP serves POST /jsonrpc. When nil the endpoint returns 503.
	MCP *mcp.Server
	// Sessions enables session_id handling. When nil, requests carrying a
	// session_id are rejected with 503.
	Sessions *session.Store

	// CacheSize bounds the processed-command cache. Zero or less disables it.
	CacheSize int
	// ShutdownTimeout bounds how long Stop waits for in-flight requests.
	// Zero or less means DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
}

// DefaultShutdownTimeout is used when Handlers.ShutdownTimeout is unset.
const DefaultShutdownTimeout = 5 * time.Second

// Server is the HTTP API server.
type Server struct {
	addr     string
	handlers Handlers
	server   *http.Server
	cache    *lru.Cache[string, nlcmd.ProcessedCommand]

	listener net.Listener
}

// New creates a Server listening on addr.
func New(addr string, h Handlers) (*Server, error) {
	if h.Assistant == nil || h.Gateway == nil || h.Prompts == nil {
		return nil, errors.New("api: assistant, gateway and prompts are required")
	}
	s := &Server{addr: addr, handlers: h}
	if h.CacheSize > 0 {
		cache, err := lru.New[string, nlcmd.ProcessedCommand](h.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("api: process cache: %w", err)
		}
		s.cache = cache
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("POST /process", s.handleProcess)
	mux.HandleFunc("GET /tools", s.handleListTools)
	mux.HandleFunc("POST /tools/{name}", s.handleCallTool)
	mux.HandleFunc("GET /prompts", s.handleListPrompts)
	mux.HandleFunc("POST /prompts/{name}", s.handleRenderPrompt)
	mux.HandleFunc("POST /wizard", s.handleWizard)
	mux.HandleFunc("POST /explain", s.handleExplain)
	mux.HandleFunc("POST /learning-path", s.handleLearningPath)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}/history", s.handleSessionHistory)
	mux.HandleFunc("POST /jsonrpc", s.handleJSONRPC)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.traceMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, nil
}

// traceMiddleware attaches a trace ID to the request context and response,
// and logs each request once it completes.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := trace.Sanitize(r.Header.Get(requestIDHeader))
		w.Header().Set(requestIDHeader, id)
		ctx := trace.WithTraceID(r.Context(), id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		observability.WithTrace(ctx).Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Start begins listening. It returns once the listener is bound so callers
// can immediately start sending requests.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api listen %s: %w", s.addr, err)
	}
	s.listener = ln
	slog.Info("API server listening", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		s.server.Shutdown(context.Background())
	}()
	return nil
}

// Addr returns the bound address once Start has returned, else the
// configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
	defer cancel()
	s.server.Shutdown(ctx)
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.handlers.ShutdownTimeout > 0 {
		return s.handlers.ShutdownTimeout
	}
	return DefaultShutdownTimeout
}

// TestHandler exposes the server's HTTP handler for use in httptest.NewServer.
// This is only intended for tests.
func (s *Server) TestHandler() http.Handler {
	return s.server.Handler
}

// process interprets text, consulting the cache first. The interpretation
// depends on the text alone, so the caller's context is not part of the key.
func (s *Server) process(cmd nlcmd.Command) (nlcmd.ProcessedCommand, bool) {
	if s.cache != nil {
		if pc, ok := s.cache.Get(cmd.Text); ok {
			return pc, true
		}
	}
	pc := s.handlers.Assistant.Process(cmd)
	if s.cache != nil {
		s.cache.Add(cmd.Text, pc)
	}
	return pc, false
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps an engine error to its HTTP status.
func statusFor(err error) int {
	switch {
	case capability.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, capability.ErrUnknownCapability),
		errors.Is(err, prompts.ErrUnknownPrompt),
		errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, wizard.ErrUnknownStep):
		return http.StatusUnprocessableEntity
	case errors.Is(err, capability.ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeEngineError writes err with its mapped status. Internal failures are
// logged and reported without detail.
func writeEngineError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		observability.WithTrace(ctx).Error("request failed", "err", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// decodeBody decodes the JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// parseLanguage validates an optional language tag from a request body.
func parseLanguage(tag string) (nlcmd.Language, error) {
	if tag == "" {
		return "", nil
	}
	lang, ok := nlcmd.ParseLanguage(tag)
	if !ok {
		return "", fmt.Errorf("unsupported language %q", tag)
	}
	return lang, nil
}
