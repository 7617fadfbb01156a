// Package config defines the configuration structures for PillScope. No I/O
// or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// RateLimit is requests per second per client IP; zero disables limiting.
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// LockConfig controls the cross-process per-key mutex around label fetches.
type LockConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	TTL        time.Duration `mapstructure:"ttl"`
	RetryCount int           `mapstructure:"retry_count"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// RedisConfig holds the label cache connection parameters.
type RedisConfig struct {
	Mode         string        `mapstructure:"mode"` // "standalone" | "cluster"
	Addr         string        `mapstructure:"addr"`
	Addrs        []string      `mapstructure:"addrs"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	LabelTTL     time.Duration `mapstructure:"label_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	Lock         LockConfig    `mapstructure:"lock"`
}

// CatalogConfig points at the imprint catalog site.
type CatalogConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// RegulatoryConfig points at the drug label API.
type RegulatoryConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LLMConfig configures the explanation generation service.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// OCRConfig configures the text detection adapter.
type OCRConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// StorageConfig configures uploaded image persistence.
type StorageConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	Region        string        `mapstructure:"region"`
	Bucket        string        `mapstructure:"bucket"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	RetentionDays int           `mapstructure:"retention_days"` // 0 keeps images forever
}

// MessagingConfig configures pipeline event publication.
type MessagingConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// GroupID is the consumer group used by `events tail`; empty reads
	// without committing offsets.
	GroupID string `mapstructure:"group_id"`
}

// LASAConfig locates the look-alike/sound-alike table.
type LASAConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// PipelineConfig holds per-stage deadlines and caller-side retry policy.
type PipelineConfig struct {
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
	RetryAttempts        int           `mapstructure:"retry_attempts"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Catalog    CatalogConfig     `mapstructure:"catalog"`
	Regulatory RegulatoryConfig  `mapstructure:"regulatory"`
	LLM        LLMConfig         `mapstructure:"llm"`
	OCR        OCRConfig         `mapstructure:"ocr"`
	Storage    StorageConfig     `mapstructure:"storage"`
	Messaging  MessagingConfig   `mapstructure:"messaging"`
	LASA       LASAConfig        `mapstructure:"lasa"`
	Log        logging.LogConfig `mapstructure:"log"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Pipeline   PipelineConfig    `mapstructure:"pipeline"`
}

// Validate checks semantic constraints that defaults cannot repair.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil config")
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: server.max_upload_bytes must be > 0, got %d", c.Server.MaxUploadBytes)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("config: server.rate_limit must be ≥ 0, got %g", c.Server.RateLimit)
	}

	// Redis
	switch c.Redis.Mode {
	case "standalone":
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
	case "cluster":
		if len(c.Redis.Addrs) == 0 {
			return fmt.Errorf("config: redis.addrs must contain at least one node in cluster mode")
		}
	default:
		return fmt.Errorf("config: redis.mode %q is invalid; expected standalone|cluster", c.Redis.Mode)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}
	if c.Redis.LabelTTL <= 0 {
		return fmt.Errorf("config: redis.label_ttl must be > 0")
	}

	// Upstreams
	if err := validateURL("catalog.base_url", c.Catalog.BaseURL); err != nil {
		return err
	}
	if err := validateURL("regulatory.base_url", c.Regulatory.BaseURL); err != nil {
		return err
	}
	if c.Regulatory.RateLimit < 0 {
		return fmt.Errorf("config: regulatory.rate_limit must be ≥ 0")
	}

	// LLM
	if c.LLM.Model == "" {
		return fmt.Errorf("config: llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config: llm.temperature %.2f is out of range [0, 2]", c.LLM.Temperature)
	}

	// OCR
	if c.OCR.Enabled && c.OCR.Region == "" {
		return fmt.Errorf("config: ocr.region is required when ocr is enabled")
	}

	// Storage
	if c.Storage.Enabled {
		if c.Storage.Endpoint == "" {
			return fmt.Errorf("config: storage.endpoint is required when storage is enabled")
		}
		if c.Storage.Bucket == "" {
			return fmt.Errorf("config: storage.bucket is required when storage is enabled")
		}
	}

	// Messaging
	if c.Messaging.Enabled {
		if len(c.Messaging.Brokers) == 0 {
			return fmt.Errorf("config: messaging.brokers must contain at least one broker address")
		}
		if c.Messaging.Topic == "" {
			return fmt.Errorf("config: messaging.topic is required when messaging is enabled")
		}
	}

	// Pipeline
	if c.Pipeline.RetryAttempts < 1 {
		return fmt.Errorf("config: pipeline.retry_attempts must be ≥ 1, got %d", c.Pipeline.RetryAttempts)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: %s %q is not an absolute URL", field, raw)
	}
	return nil
}

//Personal.AI order the ending
