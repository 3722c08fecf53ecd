// Package server exposes the tool pipeline over HTTP. Three surfaces
// share one executor: a plain JSON API (/invoke, /tools), a JSON-RPC
// 2.0 endpoint (/rpc) speaking the tools/list and tools/call methods,
// and a server-sent-events stream (/sse) broadcasting completed
// invocations. Parameters are validated against each tool's declared
// JSON schema before they reach the executor.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/deskagent/internal/config"
	"github.com/haasonsaas/deskagent/internal/executor"
	"github.com/haasonsaas/deskagent/internal/observability"
	"github.com/haasonsaas/deskagent/internal/tools"
)

// Invoker executes a named tool. Satisfied by *executor.Executor.
type Invoker interface {
	Execute(ctx context.Context, toolName string, params map[string]any) (map[string]any, error)
}

// Options wires a Server.
type Options struct {
	Config  config.ServerConfig
	Invoker Invoker
	Logger  *slog.Logger
	Metrics *observability.Metrics

	// Backend is reported by /health so operators can see which desktop
	// implementation is live.
	Backend string
}

// Server is the HTTP transport for the tool pipeline.
type Server struct {
	cfg     config.ServerConfig
	invoker Invoker
	logger  *slog.Logger
	metrics *observability.Metrics
	backend string

	schemas map[string]*jsonschema.Schema
	hub     *eventHub
	httpSrv *http.Server
}

// New builds a server, compiling every tool schema up front so malformed
// catalog entries fail at startup rather than per request.
func New(opts Options) (*Server, error) {
	if opts.Invoker == nil {
		return nil, errors.New("invoker is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	schemas := make(map[string]*jsonschema.Schema)
	for _, spec := range tools.Catalog() {
		schema, err := jsonschema.CompileString(spec.Name+".json", string(spec.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", spec.Name, err)
		}
		schemas[spec.Name] = schema
	}

	return &Server{
		cfg:     opts.Config,
		invoker: opts.Invoker,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		backend: opts.Backend,
		schemas: schemas,
		hub:     newEventHub(),
	}, nil
}

// Handler returns the full route tree with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /tools", s.handleTools)
	mux.HandleFunc("POST /invoke", s.handleInvoke)
	mux.HandleFunc("POST /rpc", s.handleRPC)
	mux.HandleFunc("GET /sse", s.handleSSE)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}
	return s.withRequestID(s.withAuth(s.withMetrics(mux)))
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	s.httpSrv = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: s.cfg.ReadTimeout,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()
	s.logger.Info("server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"backend": s.backend,
		"tools":   len(s.schemas),
	})
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools.Catalog()})
}

// invokeRequest is the body of POST /invoke.
type invokeRequest struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Tool == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "tool is required"})
		return
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	if err := s.validateParams(req.Tool, req.Params); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	result, err := s.invoker.Execute(r.Context(), req.Tool, req.Params)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, executor.ErrUnknownTool) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}

	s.hub.publish(invocationEvent{Tool: req.Tool, Result: result})
	writeJSON(w, http.StatusOK, result)
}

// validateParams checks params against the tool's declared input schema.
// Unknown tools pass through so the executor can produce its canonical
// error.
func (s *Server) validateParams(tool string, params map[string]any) error {
	schema, ok := s.schemas[tool]
	if !ok {
		return nil
	}
	// The validator wants plain JSON types; params already are, having
	// come through encoding/json.
	if err := schema.Validate(map[string]any(params)); err != nil {
		return fmt.Errorf("invalid params for %s: %v", tool, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// withAuth enforces the optional bearer token.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken != "" && r.URL.Path != "/health" {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token != s.cfg.AuthToken {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// withRequestID attaches a correlation ID to the request context.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(observability.AddRequestID(r.Context(), id)))
	})
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.metrics.ObserveHTTPRequest(r.URL.Path, strconv.Itoa(recorder.status), time.Since(start))
	})
}
