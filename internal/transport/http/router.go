// Package httptransport assembles the public HTTP surface.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"askdata/internal/platform/metrics"
	"askdata/pkg/platform/httputil"
	authmw "askdata/pkg/platform/middleware/auth"
	"askdata/pkg/platform/middleware/metadata"
	"askdata/pkg/platform/middleware/requesttime"
)

// Module mounts its routes on the router.
type Module interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config carries everything the router needs.
type Config struct {
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	Validator authmw.JWTValidator
	Auth      authmw.Options
	// RequestTimeout bounds handler time. Zero disables it.
	RequestTimeout time.Duration
	Health         map[string]HealthCheck
	Modules        []Module
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewRouter wires the middleware chain, the operational endpoints and the
// modules. Identity resolution runs after request metadata is captured,
// since anonymous sessions depend on it.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metadata.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	if cfg.Registry != nil {
		r.Use(metrics.NewHTTP(cfg.Registry).Middleware)
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Registry))
	}
	r.Get("/api/health", healthHandler(cfg.Health))

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		r.Use(authmw.Identify(cfg.Validator, cfg.Auth, cfg.Logger))
		for _, m := range cfg.Modules {
			m.Register(r)
		}
	})
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
