// Package api exposes the research pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/config"
	"github.com/sells-group/dossier-cli/internal/metrics"
	"github.com/sells-group/dossier-cli/internal/model"
	"github.com/sells-group/dossier-cli/internal/pipeline"
)

// RunStatusHeader carries the run's terminal status on research responses.
const RunStatusHeader = "X-Run-Status"

// MaxRequestBytes caps a research request body.
const MaxRequestBytes = 1 << 20

// Researcher runs one research request.
type Researcher interface {
	Research(ctx context.Context, req pipeline.Request) (model.RunState, error)
}

// Server wires HTTP handlers to the pipeline.
type Server struct {
	router     chi.Router
	researcher Researcher
	validator  *Validator
	timeout    time.Duration
}

// NewServer constructs a Server with middleware and routes.
func NewServer(researcher Researcher, cfg config.ServerConfig) *Server {
	s := &Server{
		researcher: researcher,
		validator:  NewValidator(),
		timeout:    time.Duration(cfg.RequestTimeoutSecs) * time.Second,
	}
	if s.timeout <= 0 {
		s.timeout = 3 * time.Minute
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{RunStatusHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/research", s.research)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) research(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)

	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if fields := s.validator.Struct(req); len(fields) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": fields,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	state, err := s.researcher.Research(ctx, req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			zap.L().Error("api: research failed",
				zap.String("domain", req.Domain),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err),
			)
		}
		if state.Status != "" {
			w.Header().Set(RunStatusHeader, string(state.Status))
		}
		writeError(w, status, err.Error())
		return
	}

	w.Header().Set(RunStatusHeader, string(state.Status))
	writeJSON(w, http.StatusOK, state.Dossier)
}

// statusFor maps a research error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrScoringFailed):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrInvalidDomain), errors.Is(err, model.ErrInvalidConfig):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
