// Package httptransport serves the operational HTTP surface: health and
// Prometheus metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DaniilOrchikov/blps-l1/pkg/platform/httputil"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Router struct {
	checks   map[string]HealthCheck
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

type Option func(*Router)

// WithHealthCheck adds a named dependency to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(r *Router) {
		r.checks[name] = check
	}
}

// WithGatherer replaces the default prometheus registry served at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(r *Router) {
		r.gatherer = g
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter wires the ops endpoints.
func NewRouter(opts ...Option) http.Handler {
	rt := &Router{checks: make(map[string]HealthCheck)}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.gatherer == nil {
		rt.gatherer = prometheus.DefaultGatherer
	}
	if rt.logger == nil {
		rt.logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requesttime.Middleware)
	r.Get("/healthz", rt.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
	return r
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(rt.checks))
	for name, check := range rt.checks {
		if err := check(ctx); err != nil {
			rt.logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	body := map[string]any{"status": "ok", "checks": results}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	httputil.WriteJSON(w, status, body)
}
