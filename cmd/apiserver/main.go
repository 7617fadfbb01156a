// Command apiserver serves the pill identification HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/PillScope/internal/bootstrap"
	"github.com/turtacn/PillScope/internal/config"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/PillScope/internal/interfaces/http"
)

// Injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: PILLSCOPE_* environment only)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger.Info("starting PillScope API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.Build(ctx, cfg, logger, bootstrap.Overrides{})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Warn("closing infrastructure", logging.Err(err))
		}
	}()

	if configPath != "" {
		config.Watch(configPath, func(next *config.Config) {
			if next.Log.Level != cfg.Log.Level {
				logging.SetLevel(next.Log.Level)
				logger.Info("log level changed", logging.String("level", next.Log.Level))
				cfg.Log.Level = next.Log.Level
			}
		}, func(err error) {
			logger.Warn("ignoring invalid configuration change", logging.Err(err))
		})
	}

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerConfig(container)), logger.Named("server"))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return srv.Stop(context.Background())
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

//Personal.AI order the ending
