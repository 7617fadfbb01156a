// Package drugscom looks up imprint codes on the drugs.com pill identifier.
package drugscom

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/pkg/errors"
)

const (
	imprintsPath = "/imprints.php"
	maxPageBytes = 4 << 20
)

// Config configures the catalog client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client implements pill.CatalogSource.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     logging.Logger
}

func NewClient(cfg Config, log logging.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log,
	}
}

// SearchURL is the catalog page URL for imprint.
func (c *Client) SearchURL(imprint string) string {
	q := url.Values{}
	q.Set("imprint", imprint)
	q.Set("color", "")
	q.Set("shape", "0")
	return c.baseURL + imprintsPath + "?" + q.Encode()
}

// Lookup fetches and parses the catalog page for imprint.
func (c *Client) Lookup(ctx context.Context, imprint string) (pill.CatalogListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SearchURL(imprint), nil)
	if err != nil {
		return pill.CatalogListing{}, errors.Wrap(err, errors.ErrCodeExternalService, "failed to build catalog request")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pill.CatalogListing{}, errors.Wrap(err, errors.ErrCodeExternalService, "catalog request failed").
			WithDetail(imprint).MarkRetryable()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pill.CatalogListing{}, errors.Newf(errors.ErrCodeExternalService, "catalog returned %d", resp.StatusCode).
			WithDetail(imprint)
	}

	listing, err := ParseListing(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return pill.CatalogListing{}, errors.Wrap(err, errors.ErrCodeExternalService, "failed to parse catalog page").WithDetail(imprint)
	}

	c.logger.Debug("Catalog page parsed",
		logging.String("imprint", imprint),
		logging.Int("names", len(listing.Names)),
		logging.Int("imprints", len(listing.Imprints)))
	return listing, nil
}

//Personal.AI order the ending
