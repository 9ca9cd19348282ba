// Package http exposes the converter to editors and tools over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aretw0/hanconv/pkg/diagnostics"
	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/aretw0/hanconv/pkg/environment"
)

// MaxBodyBytes bounds a conversion request body.
const MaxBodyBytes = 1 << 20

// Service is what the HTTP layer needs from the converter.
type Service interface {
	Dispatch(ctx context.Context, req domain.ConversionRequest) domain.ConversionResult
	Diagnose(ctx context.Context) *diagnostics.Report
	Provision(ctx context.Context) environment.ProvisionReport
}

// Server holds the HTTP handlers.
type Server struct {
	Service Service
	Streams *StreamManager
	Version string
	Logger  *slog.Logger

	metrics http.Handler
}

// Option configures the handler.
type Option func(*Server)

// WithMetrics mounts h (typically promhttp.HandlerFor) at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.Version = v
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithStreams shares a StreamManager, e.g. one whose Hooks feed the dispatcher.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// NewServer creates the server without building the router.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		Service: svc,
		Streams: NewStreamManager(),
		Version: "dev",
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates a new HTTP handler for the converter.
func NewHandler(svc Service, opts ...Option) http.Handler {
	return NewServer(svc, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(CORS())

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/convert", s.Convert)
		r.Get("/actions", s.ListActions)
		r.Get("/diagnostics", s.GetDiagnostics)
		r.Post("/provision", s.PostProvision)
		r.Get("/events", s.SubscribeEvents)
	})

	return r
}

// CORS lets editor webviews and browser tools call the API.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	})
}

// ConvertRequest is the body of POST /v1/convert.
type ConvertRequest struct {
	Text   string `json:"text"`
	Action string `json:"action"`
}

// ConvertResponse is returned on success.
type ConvertResponse struct {
	RequestID string `json:"request_id"`
	Output    string `json:"output"`
	Cached    bool   `json:"cached,omitempty"`
}

// ErrorResponse is returned on failure.
type ErrorResponse struct {
	RequestID string           `json:"request_id,omitempty"`
	Error     string           `json:"error"`
	Kind      domain.ErrorKind `json:"kind"`
	ExitCode  *int             `json:"exit_code,omitempty"`
	Attempted []string         `json:"attempted,omitempty"`
}

// Convert handles the POST /v1/convert request.
func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	var body ConvertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&body); err != nil {
		s.Logger.Warn("Convert: Invalid request body", "error", err)
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Kind: domain.KindInvalidInput})
		return
	}

	res := s.Service.Dispatch(r.Context(), domain.ConversionRequest{
		Text:   body.Text,
		Action: domain.ActionKind(strings.TrimSpace(body.Action)),
	})
	if !res.OK() {
		s.writeJSON(w, StatusFor(res.Kind()), ErrorResponse{
			RequestID: res.RequestID,
			Error:     res.Err.Error(),
			Kind:      res.Kind(),
			ExitCode:  res.Err.ExitCode,
			Attempted: res.Err.Attempted,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, ConvertResponse{RequestID: res.RequestID, Output: res.Output, Cached: res.Cached})
}

// StatusFor maps a failure kind to an HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindProcessExitedNonZero, domain.KindEmptyResult:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

// ListActions handles the GET /v1/actions request.
func (s *Server) ListActions(w http.ResponseWriter, r *http.Request) {
	type action struct {
		Kind        string `json:"kind"`
		Category    string `json:"category"`
		Target      string `json:"target"`
		Description string `json:"description"`
	}
	infos := domain.Actions()
	out := make([]action, 0, len(infos))
	for _, a := range infos {
		out = append(out, action{
			Kind:        string(a.Kind),
			Category:    string(a.Category),
			Target:      a.Target.String(),
			Description: a.Description,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GetDiagnostics handles the GET /v1/diagnostics request.
// The format query parameter selects json (default), text or markdown.
func (s *Server) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	report := s.Service.Diagnose(r.Context())

	switch r.URL.Query().Get("format") {
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(report.Text()))
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(report.Markdown()))
	default:
		s.writeJSON(w, http.StatusOK, report)
	}
}

// PostProvision handles the POST /v1/provision request.
func (s *Server) PostProvision(w http.ResponseWriter, r *http.Request) {
	report := s.Service.Provision(r.Context())
	resp := struct {
		environment.ProvisionReport
		Missing      []string `json:"missing,omitempty"`
		RuntimeError string   `json:"runtime_error,omitempty"`
		InstallError string   `json:"install_error,omitempty"`
	}{ProvisionReport: report}

	for _, lib := range report.Missing() {
		resp.Missing = append(resp.Missing, lib.ImportName)
	}
	if report.RuntimeErr != nil {
		resp.RuntimeError = report.RuntimeErr.Error()
	}
	if report.Install != nil && report.Install.Err != nil {
		resp.InstallError = report.Install.Err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "hanconv-http",
		"version": strings.TrimSpace(s.Version),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		s.Logger.Error("response encode failed", "error", err)
	}
}
