package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PillScope/internal/interfaces/http/handlers"
	"github.com/turtacn/PillScope/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware the route tree needs.
// Nil handlers leave their routes unmounted.
type RouterConfig struct {
	PillHandler   *handlers.PillHandler
	HealthHandler *handlers.HealthHandler

	CORS      *middleware.CORSConfig
	Logging   middleware.LoggingConfig
	RateLimit *middleware.RateLimitConfig

	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.PillMetrics
	MetricsPath      string
}

// NewRouter builds the complete route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	r.Use(middleware.Metrics(cfg.Metrics))
	if cfg.RateLimit != nil && cfg.RateLimit.RequestsPerSecond > 0 {
		limiter := middleware.NewKeyedLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize, cfg.RateLimit.IdleTTL)
		r.Use(middleware.RateLimit(limiter, *cfg.RateLimit))
	}

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Legacy)
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	if cfg.PillHandler != nil {
		r.Route("/api/v1", cfg.PillHandler.RegisterRoutes)
	}

	return r
}

//Personal.AI order the ending
