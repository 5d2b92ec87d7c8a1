// Package httpapi exposes the operational endpoints: liveness, readiness
// and Prometheus metrics. Lookups are served by the embedding application.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"lookout/internal/platform/metrics"
	"lookout/pkg/platform/middleware/requestid"
	"lookout/pkg/platform/middleware/requesttime"
)

const readyTimeout = 2 * time.Second

// Check probes one dependency; a nil error means ready.
type Check func(ctx context.Context) error

// Handler serves the ops endpoints.
type Handler struct {
	checks  map[string]Check
	metrics *metrics.Metrics
	logger  *slog.Logger
	exposer http.Handler
}

type Option func(*Handler)

// WithCheck registers a readiness probe under name.
func WithCheck(name string, check Check) Option {
	return func(h *Handler) {
		h.checks[name] = check
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithMetricsHandler replaces the /metrics handler, e.g. with one over a
// private registry.
func WithMetricsHandler(exposer http.Handler) Option {
	return func(h *Handler) {
		h.exposer = exposer
	}
}

func New(opts ...Option) *Handler {
	h := &Handler{
		checks:  make(map[string]Check),
		logger:  slog.Default(),
		exposer: metrics.Handler(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the ops routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	r.Method(http.MethodGet, "/metrics", h.exposer)
}

// NewRouter returns a chi router with the ops routes mounted.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		err := h.checks[name](ctx)
		h.metrics.ObserveReadyCheck(name, err == nil)
		if err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			h.logger.WarnContext(ctx, "readiness check failed", "dependency", name, "error", err)
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"ready": status == http.StatusOK, "checks": results})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
