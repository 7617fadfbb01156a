package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLimiter_BurstThenReject(t *testing.T) {
	l := NewKeyedLimiter(1, 2, time.Minute)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	ok, info := l.Allow("10.0.0.1")
	assert.True(t, ok)
	assert.Equal(t, 2, info.Limit)
	assert.Equal(t, 1, info.Remaining)

	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)

	ok, info = l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.InDelta(t, time.Second, info.RetryAfter, float64(10*time.Millisecond))

	// other clients have their own bucket
	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok)
}

func TestKeyedLimiter_RefillsOverTime(t *testing.T) {
	l := NewKeyedLimiter(1, 1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ok, _ := l.Allow("a")
	require.True(t, ok)
	ok, _ = l.Allow("a")
	require.False(t, ok)

	now = now.Add(1100 * time.Millisecond)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
}

func TestKeyedLimiter_SweepsIdleBuckets(t *testing.T) {
	l := NewKeyedLimiter(10, 10, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Len())
}

func TestRateLimit_Middleware(t *testing.T) {
	config := DefaultRateLimitConfig()
	handler := RateLimit(NewKeyedLimiter(0.001, 1, time.Minute), config)(okHandler())

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pills/identify", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	handler.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"kind":"RateLimited","code":"RATE_LIMITED","message":"too many requests"}`, second.Body.String())

	// probes are never limited
	probe := httptest.NewRecorder()
	probeReq := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	probeReq.RemoteAddr = "192.0.2.7:5555"
	handler.ServeHTTP(probe, probeReq)
	assert.Equal(t, http.StatusOK, probe.Code)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.4:443"
	assert.Equal(t, "198.51.100.4", ClientIP(r))

	r.RemoteAddr = "198.51.100.4"
	assert.Equal(t, "198.51.100.4", ClientIP(r))
}

//Personal.AI order the ending
