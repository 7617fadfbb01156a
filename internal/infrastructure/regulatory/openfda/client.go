// Package openfda fetches drug labels from the openFDA label endpoint.
package openfda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/pkg/errors"
)

const (
	labelPath    = "/drug/label.json"
	maxBodyBytes = 8 << 20
)

// Config configures the label client.
type Config struct {
	BaseURL   string
	APIKey    string
	RateLimit float64 // requests per second; zero disables limiting
	Timeout   time.Duration
}

// Client implements pill.LabelSource against openFDA.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logging.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(cfg Config, log logging.Logger, opts ...Option) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LabelURL is the request URL for genericName.
func (c *Client) LabelURL(genericName string) string {
	q := url.Values{}
	q.Set("search", fmt.Sprintf("openfda.generic_name:%q", genericName))
	q.Set("limit", "1")
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	return c.baseURL + labelPath + "?" + q.Encode()
}

// FetchLabel returns the raw response body for genericName. Transport
// failures, 429 and 5xx are retryable; a 404 or an empty result set is not.
func (c *Client) FetchLabel(ctx context.Context, genericName string) ([]byte, error) {
	if strings.TrimSpace(genericName) == "" {
		return nil, errors.New(errors.ErrCodeLabelFetchFailed, "generic name is empty")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLabelFetchFailed, "rate limiter wait aborted").MarkRetryable()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.LabelURL(genericName), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLabelFetchFailed, "failed to build label request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLabelFetchFailed, "label request failed").
			WithDetail(genericName).MarkRetryable()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLabelFetchFailed, "failed to read label response").MarkRetryable()
	}

	c.logger.Debug("Label request completed",
		logging.String("generic_name", genericName),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", time.Since(start)))

	if err := statusError(resp.StatusCode, genericName); err != nil {
		return nil, err
	}

	var doc struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLabelFetchFailed, "label response is not valid JSON").WithDetail(genericName)
	}
	if len(doc.Results) == 0 {
		return nil, errors.New(errors.ErrCodeLabelFetchFailed, "no label found").WithDetail(genericName)
	}
	return body, nil
}

func statusError(status int, genericName string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return errors.New(errors.ErrCodeLabelFetchFailed, "no label found").WithDetail(genericName)
	case status == http.StatusTooManyRequests || status >= 500:
		return errors.Newf(errors.ErrCodeLabelFetchFailed, "label service returned %d", status).
			WithDetail(genericName).MarkRetryable()
	default:
		return errors.Newf(errors.ErrCodeLabelFetchFailed, "label service returned %d", status).WithDetail(genericName)
	}
}

//Personal.AI order the ending
