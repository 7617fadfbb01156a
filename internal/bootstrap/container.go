// Package bootstrap assembles the identification pipeline and its
// infrastructure from configuration. Both binaries share it.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/turtacn/PillScope/internal/application/identification"
	"github.com/turtacn/PillScope/internal/config"
	"github.com/turtacn/PillScope/internal/domain/lasa"
	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/catalog/drugscom"
	"github.com/turtacn/PillScope/internal/infrastructure/database/redis"
	"github.com/turtacn/PillScope/internal/infrastructure/llm/openai"
	"github.com/turtacn/PillScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PillScope/internal/infrastructure/ocr/rekognition"
	"github.com/turtacn/PillScope/internal/infrastructure/regulatory/openfda"
	"github.com/turtacn/PillScope/internal/infrastructure/storage/minio"
)

// Container holds every wired component. Optional components (OCR, image
// storage, events, metrics) are nil when disabled in config.
type Container struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.PillMetrics

	Redis    *redis.Client
	Cache    redis.Cache
	Labels   identification.LabelStore
	LASA     *lasa.Table
	Storage  *minio.MinIOClient
	Producer *kafka.Producer

	Pipeline identification.Pipeline

	closers []func() error
}

// Overrides replaces adapters before the pipeline is assembled. Tests use
// it to substitute fakes for the network-bound collaborators.
type Overrides struct {
	Catalog   pill.CatalogSource
	Labels    pill.LabelSource
	Generator pill.TextGenerator
	Detector  pill.TextDetector
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg logging.LogConfig) (logging.Logger, error) {
	return logging.NewLogger(cfg)
}

// Build connects to redis, loads the LASA table and wires the pipeline.
// On error everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, log logging.Logger, ov Overrides) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}
	built := false
	defer func() {
		if !built {
			_ = c.Close()
		}
	}()

	var err error

	if cfg.Metrics.Enabled {
		c.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, log.Named("metrics"))
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		c.Metrics = prometheus.NewPillMetrics(c.Collector)
	}

	c.LASA, err = lasa.LoadFile(cfg.LASA.Path)
	if err != nil {
		return nil, err
	}
	log.Info("LASA table loaded", logging.String("path", cfg.LASA.Path), logging.Int("entries", c.LASA.Len()))

	c.Redis, err = redis.NewClient(&redis.RedisConfig{
		Mode:         cfg.Redis.Mode,
		Addr:         cfg.Redis.Addr,
		ClusterAddrs: cfg.Redis.Addrs,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}, log.Named("redis"))
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, c.Redis.Close)

	cacheOpts := []redis.CacheOption{redis.WithDefaultTTL(cfg.Redis.LabelTTL)}
	if cfg.Redis.KeyPrefix != "" {
		cacheOpts = append(cacheOpts, redis.WithPrefix(cfg.Redis.KeyPrefix))
	}
	c.Cache = redis.NewRedisCache(c.Redis, log.Named("cache"), cacheOpts...)

	var locks redis.LockFactory
	if cfg.Redis.Lock.Enabled {
		locks = redis.NewLockFactory(c.Redis, log.Named("lock"),
			redis.WithLockTTL(cfg.Redis.Lock.TTL),
			redis.WithRetryCount(cfg.Redis.Lock.RetryCount),
			redis.WithRetryDelay(cfg.Redis.Lock.RetryDelay),
			redis.WithWatchdog(true))
	}

	catalog := ov.Catalog
	if catalog == nil {
		catalog = drugscom.NewClient(drugscom.Config{
			BaseURL:   cfg.Catalog.BaseURL,
			UserAgent: cfg.Catalog.UserAgent,
			Timeout:   cfg.Catalog.Timeout,
		}, log.Named("catalog"))
	}
	labels := ov.Labels
	if labels == nil {
		labels = openfda.NewClient(openfda.Config{
			BaseURL:   cfg.Regulatory.BaseURL,
			APIKey:    cfg.Regulatory.APIKey,
			RateLimit: cfg.Regulatory.RateLimit,
			Timeout:   cfg.Regulatory.Timeout,
		}, log.Named("regulatory"))
	}
	generator := ov.Generator
	if generator == nil {
		generator = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
			Metrics:     c.Metrics,
		}, log.Named("llm"))
	}
	detector := ov.Detector
	if detector == nil && cfg.OCR.Enabled {
		d, derr := rekognition.NewDetector(ctx, rekognition.Config{
			Region:          cfg.OCR.Region,
			AccessKeyID:     cfg.OCR.AccessKeyID,
			SecretAccessKey: cfg.OCR.SecretAccessKey,
			Timeout:         cfg.OCR.Timeout,
		}, log.Named("ocr"))
		if derr != nil {
			return nil, derr
		}
		detector = d
	}

	var images pill.ImageStore
	if cfg.Storage.Enabled {
		c.Storage, err = minio.NewMinIOClient(&minio.MinIOConfig{
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKey,
			SecretAccessKey: cfg.Storage.SecretKey,
			UseSSL:          cfg.Storage.UseSSL,
			Region:          cfg.Storage.Region,
			Bucket:          cfg.Storage.Bucket,
			PresignExpiry:   cfg.Storage.PresignExpiry,
			RetentionDays:   cfg.Storage.RetentionDays,
		}, log.Named("storage"))
		if err != nil {
			return nil, err
		}
		images = minio.NewImageStore(c.Storage, log.Named("images"))
	}

	var events pill.EventPublisher
	if cfg.Messaging.Enabled {
		c.Producer, err = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Messaging.Brokers,
			Topic:        cfg.Messaging.Topic,
			WriteTimeout: cfg.Messaging.WriteTimeout,
		}, log.Named("events"))
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, c.Producer.Close)
		events = c.Producer
	}

	c.Labels = identification.NewLabelStore(c.Cache, labels, identification.LabelStoreConfig{
		TTL:          cfg.Redis.LabelTTL,
		FetchTimeout: cfg.Pipeline.FetchTimeout,
		Locks:        locks,
	}, c.Metrics, log.Named("labels"))

	c.Pipeline, err = identification.NewPipeline(identification.PipelineDeps{
		Resolver:      identification.NewImprintResolver(catalog, cfg.Catalog.Timeout, c.Metrics, log.Named("resolver")),
		Labels:        c.Labels,
		Explainer:     identification.NewExplanationGenerator(generator, c.Metrics, log.Named("explainer")),
		Corrector:     identification.NewCorrectionResolver(c.LASA, labels, cfg.Pipeline.FetchTimeout, c.Metrics, log.Named("corrector")),
		Detector:      detector,
		Images:        images,
		Events:        events,
		Metrics:       c.Metrics,
		Logger:        log.Named("pipeline"),
		MaxImageBytes: cfg.Server.MaxUploadBytes,
	})
	if err != nil {
		return nil, err
	}
	built = true
	return c, nil
}

// RetryPolicy is the caller-side retry policy from the pipeline section.
func (c *Container) RetryPolicy() identification.RetryPolicy {
	p := identification.DefaultRetryPolicy
	if c.Config.Pipeline.RetryAttempts > 0 {
		p.Attempts = c.Config.Pipeline.RetryAttempts
	}
	if c.Config.Pipeline.RetryInitialInterval > 0 {
		p.InitialInterval = c.Config.Pipeline.RetryInitialInterval
	}
	return p
}

// Close releases connections in reverse order of opening.
func (c *Container) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

//Personal.AI order the ending
