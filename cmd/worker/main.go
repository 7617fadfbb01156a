// Command worker consumes pipeline events off the message broker and turns
// them into metrics and an audit log.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/PillScope/internal/bootstrap"
	"github.com/turtacn/PillScope/internal/config"
	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/prometheus"
)

const (
	defaultHealthPort = 8081
	defaultGroupID    = "pillscope-worker"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: PILLSCOPE_* environment only)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for /healthz and /metrics")
	flag.Parse()

	if err := run(*configPath, *healthPort); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, healthPort int) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}
	if !cfg.Messaging.Enabled {
		return errors.New("messaging is disabled; nothing to consume")
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger = logger.Named("worker")

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		Subsystem:            "worker",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewPillMetrics(collector)

	group := cfg.Messaging.GroupID
	if group == "" {
		group = defaultGroupID
	}
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Messaging.Brokers,
		Topic:           cfg.Messaging.Topic,
		GroupID:         group,
		AutoOffsetReset: "earliest",
	}, logger.Named("consumer"))
	if err != nil {
		return err
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthSrv := startHealthServer(healthPort, collector, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("consuming pipeline events",
		logging.String("topic", cfg.Messaging.Topic),
		logging.String("group", group))

	err = consumer.Consume(ctx, newEventHandler(metrics, logger))
	logger.Info("worker stopped",
		logging.Int64("consumed", consumer.Consumed()),
		logging.Int64("skipped", consumer.Skipped()))
	return err
}

// newEventHandler records every event. It never fails, so a malformed event
// cannot stall the partition.
func newEventHandler(metrics *prometheus.PillMetrics, logger logging.Logger) kafka.EventHandler {
	return func(_ context.Context, ev pill.Event) error {
		prometheus.RecordEvent(metrics, string(ev.Type), nil)
		fields := []logging.Field{
			logging.String("event_id", ev.ID),
			logging.String("event_type", string(ev.Type)),
			logging.String("imprint", ev.ImprintNumber),
			logging.String("generic_name", ev.GenericName),
			logging.Bool("cache_hit", ev.CacheHit),
		}
		if ev.AlternateName != "" {
			fields = append(fields, logging.String("alternate_name", ev.AlternateName))
		}
		if !ev.OccurredAt.IsZero() {
			fields = append(fields, logging.Duration("lag", time.Since(ev.OccurredAt)))
		}
		logger.Info("pipeline event", fields...)
		return nil
	}
}

func startHealthServer(port int, collector prometheus.MetricsCollector, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	})
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", logging.Err(err))
		}
	}()
	return srv
}

//Personal.AI order the ending
