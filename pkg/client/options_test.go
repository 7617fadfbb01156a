package client

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	custom := &http.Client{Timeout: time.Second}
	logger := &testLogger{}

	c := &Client{}
	for _, opt := range []Option{
		WithHTTPClient(custom),
		WithLogger(logger),
		WithRetryMax(4),
		WithRetryWait(10*time.Millisecond, 20*time.Millisecond),
		WithUserAgent("pillscope-web/2"),
	} {
		opt(c)
	}

	assert.Same(t, custom, c.httpClient)
	assert.Equal(t, logger, c.logger)
	assert.Equal(t, 4, c.retryMax)
	assert.Equal(t, 10*time.Millisecond, c.retryWaitMin)
	assert.Equal(t, 20*time.Millisecond, c.retryWaitMax)
	assert.Equal(t, "pillscope-web/2", c.userAgent)
}

func TestOptions_IgnoreInvalid(t *testing.T) {
	c := &Client{retryMax: 2, retryWaitMin: time.Second, retryWaitMax: 2 * time.Second, userAgent: "ua"}

	WithRetryMax(-1)(c)
	WithRetryWait(0, time.Minute)(c)
	WithRetryWait(3*time.Second, time.Second)(c)
	WithUserAgent("")(c)
	WithHTTPClient(nil)(c)

	assert.Equal(t, 2, c.retryMax)
	assert.Equal(t, 3*time.Second, c.retryWaitMin)
	assert.Equal(t, 2*time.Second, c.retryWaitMax)
	assert.Equal(t, "ua", c.userAgent)
	assert.Nil(t, c.httpClient)
}

//Personal.AI order the ending
