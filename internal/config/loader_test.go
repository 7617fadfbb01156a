package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 9090
redis:
  addr: "cache:6379"
  label_ttl: 30m
  key_prefix: "labels:"
  lock:
    enabled: true
llm:
  model: "gpt-4o-mini"
  temperature: 0.1
messaging:
  enabled: true
  brokers: ["kafka:9092"]
log:
  level: debug
  format: console
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Redis.LabelTTL)
	assert.Equal(t, "labels:", cfg.Redis.KeyPrefix)
	assert.True(t, cfg.Redis.Lock.Enabled)
	assert.Equal(t, DefaultLockTTL, cfg.Redis.Lock.TTL)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Messaging.Brokers)
	assert.Equal(t, DefaultMessagingTopic, cfg.Messaging.Topic)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, DefaultCatalogBaseURL, cfg.Catalog.BaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "log:\n  level: loud\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("PILLSCOPE_REDIS_ADDR", "env-cache:6380")
	t.Setenv("PILLSCOPE_LLM_API_KEY", "sk-test")

	cfg, err := Load(writeConfig(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-cache:6380", cfg.Redis.Addr)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PILLSCOPE_SERVER_PORT", "7070")
	t.Setenv("PILLSCOPE_REDIS_LABEL_TTL", "45m")
	t.Setenv("PILLSCOPE_REGULATORY_API_KEY", "fda-key")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 45*time.Minute, cfg.Redis.LabelTTL)
	assert.Equal(t, "fda-key", cfg.Regulatory.APIKey)
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
}

func TestConfigKeys_IncludesNestedLeaves(t *testing.T) {
	keys := configKeys(reflect.TypeOf(Config{}), "")
	assert.Contains(t, keys, "redis.lock.enabled")
	assert.Contains(t, keys, "log.output_paths")
	assert.Contains(t, keys, "llm.api_key")
	assert.NotContains(t, keys, "redis.lock")
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yaml")) })
}

//Personal.AI order the ending
