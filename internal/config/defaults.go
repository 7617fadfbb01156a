package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort            = 8080
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 60 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second
	DefaultMaxUploadBytes        = 16 << 20
	DefaultRateLimitBurst        = 20

	DefaultRedisMode         = "standalone"
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPoolSize     = 10
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultLabelTTL          = 1800 * time.Second
	DefaultLockTTL           = 15 * time.Second
	DefaultLockRetryCount    = 100
	DefaultLockRetryDelay    = 100 * time.Millisecond

	DefaultCatalogBaseURL   = "https://www.drugs.com"
	DefaultCatalogUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36"
	DefaultCatalogTimeout   = 10 * time.Second

	DefaultRegulatoryBaseURL = "https://api.fda.gov"
	DefaultRegulatoryRate    = 4.0
	DefaultRegulatoryTimeout = 10 * time.Second

	DefaultLLMModel       = "gpt-4o-mini"
	DefaultLLMTemperature = 0.2
	DefaultLLMMaxTokens   = 512
	DefaultLLMTimeout     = 30 * time.Second

	DefaultOCRRegion  = "us-east-1"
	DefaultOCRTimeout = 15 * time.Second

	DefaultStorageBucket        = "pill-images"
	DefaultStoragePresignExpiry = 24 * time.Hour

	DefaultMessagingTopic        = "pillscope.events"
	DefaultMessagingWriteTimeout = 5 * time.Second

	DefaultLASAPath = "configs/lasa.json"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "pillscope"
	DefaultMetricsPath      = "/metrics"

	DefaultFetchTimeout         = 10 * time.Second
	DefaultRetryAttempts        = 1
	DefaultRetryInitialInterval = 250 * time.Millisecond
)

// ApplyDefaults fills every zero-value field in cfg with its default. Fields
// already set by the caller are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = DefaultRateLimitBurst
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Mode == "" {
		cfg.Redis.Mode = DefaultRedisMode
	}
	if cfg.Redis.Addr == "" && cfg.Redis.Mode == DefaultRedisMode {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = DefaultRedisReadTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = DefaultRedisWriteTimeout
	}
	if cfg.Redis.LabelTTL == 0 {
		cfg.Redis.LabelTTL = DefaultLabelTTL
	}
	if cfg.Redis.Lock.TTL == 0 {
		cfg.Redis.Lock.TTL = DefaultLockTTL
	}
	if cfg.Redis.Lock.RetryCount == 0 {
		cfg.Redis.Lock.RetryCount = DefaultLockRetryCount
	}
	if cfg.Redis.Lock.RetryDelay == 0 {
		cfg.Redis.Lock.RetryDelay = DefaultLockRetryDelay
	}

	// ── Catalog ───────────────────────────────────────────────────────────────
	if cfg.Catalog.BaseURL == "" {
		cfg.Catalog.BaseURL = DefaultCatalogBaseURL
	}
	if cfg.Catalog.UserAgent == "" {
		cfg.Catalog.UserAgent = DefaultCatalogUserAgent
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = DefaultCatalogTimeout
	}

	// ── Regulatory ────────────────────────────────────────────────────────────
	if cfg.Regulatory.BaseURL == "" {
		cfg.Regulatory.BaseURL = DefaultRegulatoryBaseURL
	}
	if cfg.Regulatory.RateLimit == 0 {
		cfg.Regulatory.RateLimit = DefaultRegulatoryRate
	}
	if cfg.Regulatory.Timeout == 0 {
		cfg.Regulatory.Timeout = DefaultRegulatoryTimeout
	}

	// ── LLM ───────────────────────────────────────────────────────────────────
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultLLMModel
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = DefaultLLMTemperature
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = DefaultLLMMaxTokens
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = DefaultLLMTimeout
	}

	// ── OCR ───────────────────────────────────────────────────────────────────
	if cfg.OCR.Region == "" {
		cfg.OCR.Region = DefaultOCRRegion
	}
	if cfg.OCR.Timeout == 0 {
		cfg.OCR.Timeout = DefaultOCRTimeout
	}

	// ── Storage / Messaging ───────────────────────────────────────────────────
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = DefaultStorageBucket
	}
	if cfg.Storage.PresignExpiry == 0 {
		cfg.Storage.PresignExpiry = DefaultStoragePresignExpiry
	}
	if cfg.Messaging.Topic == "" {
		cfg.Messaging.Topic = DefaultMessagingTopic
	}
	if cfg.Messaging.WriteTimeout == 0 {
		cfg.Messaging.WriteTimeout = DefaultMessagingWriteTimeout
	}

	// ── LASA / Log / Metrics ──────────────────────────────────────────────────
	if cfg.LASA.Path == "" {
		cfg.LASA.Path = DefaultLASAPath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	if cfg.Pipeline.FetchTimeout == 0 {
		cfg.Pipeline.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Pipeline.RetryAttempts == 0 {
		cfg.Pipeline.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.Pipeline.RetryInitialInterval == 0 {
		cfg.Pipeline.RetryInitialInterval = DefaultRetryInitialInterval
	}
}

//Personal.AI order the ending
