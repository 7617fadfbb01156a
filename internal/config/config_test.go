package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/PillScope/internal/config"
)

// validConfig returns a Config that passes Validate().
func validConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Nil(t *testing.T) {
	t.Parallel()
	var cfg *config.Config
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"port zero", func(c *config.Config) { c.Server.Port = 0 }, "server.port"},
		{"port too large", func(c *config.Config) { c.Server.Port = 65536 }, "server.port"},
		{"upload limit", func(c *config.Config) { c.Server.MaxUploadBytes = -1 }, "server.max_upload_bytes"},
		{"redis addr", func(c *config.Config) { c.Redis.Addr = "" }, "redis.addr"},
		{"redis mode", func(c *config.Config) { c.Redis.Mode = "sentinel" }, "redis.mode"},
		{"cluster nodes", func(c *config.Config) { c.Redis.Mode = "cluster" }, "redis.addrs"},
		{"redis db", func(c *config.Config) { c.Redis.DB = -1 }, "redis.db"},
		{"label ttl", func(c *config.Config) { c.Redis.LabelTTL = -1 }, "redis.label_ttl"},
		{"catalog url", func(c *config.Config) { c.Catalog.BaseURL = "drugs.com" }, "catalog.base_url"},
		{"regulatory url", func(c *config.Config) { c.Regulatory.BaseURL = "::" }, "regulatory.base_url"},
		{"rate limit", func(c *config.Config) { c.Regulatory.RateLimit = -1 }, "regulatory.rate_limit"},
		{"model", func(c *config.Config) { c.LLM.Model = "" }, "llm.model"},
		{"temperature", func(c *config.Config) { c.LLM.Temperature = 3 }, "llm.temperature"},
		{"ocr region", func(c *config.Config) { c.OCR.Enabled = true; c.OCR.Region = "" }, "ocr.region"},
		{"storage endpoint", func(c *config.Config) { c.Storage.Enabled = true }, "storage.endpoint"},
		{"storage bucket", func(c *config.Config) {
			c.Storage.Enabled = true
			c.Storage.Endpoint = "localhost:9000"
			c.Storage.Bucket = ""
		}, "storage.bucket"},
		{"brokers", func(c *config.Config) { c.Messaging.Enabled = true }, "messaging.brokers"},
		{"topic", func(c *config.Config) {
			c.Messaging.Enabled = true
			c.Messaging.Brokers = []string{"localhost:9092"}
			c.Messaging.Topic = ""
		}, "messaging.topic"},
		{"retry attempts", func(c *config.Config) { c.Pipeline.RetryAttempts = 0 }, "pipeline.retry_attempts"},
		{"log level", func(c *config.Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *config.Config) { c.Log.Format = "text" }, "log.format"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_Validate_ClusterWithNodes(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Redis.Mode = "cluster"
	cfg.Redis.Addrs = []string{"10.0.0.1:6379", "10.0.0.2:6379"}
	assert.NoError(t, cfg.Validate())
}

//Personal.AI order the ending
