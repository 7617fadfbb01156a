package main

import (
	"github.com/turtacn/PillScope/internal/bootstrap"
	httpserver "github.com/turtacn/PillScope/internal/interfaces/http"
	"github.com/turtacn/PillScope/internal/interfaces/http/handlers"
	"github.com/turtacn/PillScope/internal/interfaces/http/middleware"
)

// healthCheckers probes the infrastructure the container actually opened.
func healthCheckers(c *bootstrap.Container) []handlers.HealthChecker {
	checks := []handlers.HealthChecker{handlers.NewCheck("redis", c.Redis.Ping)}
	if c.Storage != nil {
		checks = append(checks, handlers.NewCheck("storage", c.Storage.HealthCheck))
	}
	return checks
}

func routerConfig(c *bootstrap.Container) httpserver.RouterConfig {
	cfg := c.Config
	rc := httpserver.RouterConfig{
		PillHandler:      handlers.NewPillHandler(c.Pipeline, c.RetryPolicy(), cfg.Server.MaxUploadBytes, c.Logger.Named("handler")),
		HealthHandler:    handlers.NewHealthHandler(version, c.Metrics, healthCheckers(c)...),
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           c.Logger.Named("http"),
		MetricsCollector: c.Collector,
		Metrics:          c.Metrics,
		MetricsPath:      cfg.Metrics.Path,
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		rc.CORS = &cors
	}
	if cfg.Server.RateLimit > 0 {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.Server.RateLimit
		rl.BurstSize = cfg.Server.RateLimitBurst
		rc.RateLimit = &rl
	}
	return rc
}

//Personal.AI order the ending
