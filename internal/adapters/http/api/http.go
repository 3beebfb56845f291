// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/sketchmatch/internal/domain/analysis"
	"github.com/okian/sketchmatch/pkg/logger"
)

// Default server configuration constants.
const (
	defaultMaxRequestBytes = 8 << 20
	defaultResolution      = 64
)

// Dependencies required by HTTP handlers. Using an interface keeps the
// handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Submit queues an analysis and returns the run to stream. key is the
	// client's idempotency key and may be empty.
	Submit(ctx context.Context, key string, req analysis.Request) (*analysis.Run, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	analysesHandler *AnalysesHandler
	schemaHandler   *SchemaHandler

	maxRequestBytes   int64
	defaultResolution int
	logger            logger.Logger
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithMaxRequestBytes limits the size of request bodies.
func WithMaxRequestBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxRequestBytes = n
		}
	}
}

// WithDefaultResolution sets the resolution used when a request omits it.
func WithDefaultResolution(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.defaultResolution = n
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		maxRequestBytes:   defaultMaxRequestBytes,
		defaultResolution: defaultResolution,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.analysesHandler = NewAnalysesHandler(deps, s.defaultResolution, s.logger)
	s.schemaHandler = NewSchemaHandler()
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/analyses", MetricsMiddleware(s.limitBody(s.analysesHandler.HandlePostAnalysis), "analyses"))
	mux.HandleFunc("/schema", MetricsMiddleware(s.limitBody(s.schemaHandler.HandlePostSchema), "schema"))
	mux.Handle("/metrics", MetricsHandler())
}

func (s *Server) limitBody(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxRequestBytes)
		next(w, r)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// allowMethod answers 405 with an Allow header unless r uses method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", fmt.Errorf("%w: %s", ErrMethod, r.Method))
	return false
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads one JSON document from r's body into v and classifies
// the failure: oversized bodies are ErrPayloadTooLarge, anything else is
// ErrBadRequest.
func decodeJSON(op string, r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return WrapKind(op, ErrPayloadTooLarge, err)
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

// writeDecodeError maps a decodeJSON error onto a response.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrPayloadTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", err)
		return
	}
	writeError(w, http.StatusBadRequest, "bad_request", err)
}
