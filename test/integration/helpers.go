// Package integration runs the HTTP API end to end: real adapters and
// router, miniredis for the cache, and httptest stand-ins for the catalog,
// regulatory and language-model services.
package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PillScope/internal/bootstrap"
	"github.com/turtacn/PillScope/internal/config"
	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/PillScope/internal/interfaces/http"
	"github.com/turtacn/PillScope/internal/interfaces/http/handlers"
	"github.com/turtacn/PillScope/internal/interfaces/http/middleware"
	"github.com/turtacn/PillScope/pkg/client"
)

const (
	allopurinolLabel = `{"results":[{"indications_and_usage":["Allopurinol is indicated in the management of patients with signs and symptoms of primary or secondary gout."],"openfda":{"generic_name":["ALLOPURINOL"]}}]}`
	trazodoneLabel   = `{"results":[{"indications_and_usage":["Trazodone is indicated for the treatment of major depressive disorder."],"openfda":{"generic_name":["TRAZODONE"]}}]}`
)

// stack is one running PillScope API with its fake upstreams.
type stack struct {
	redis     *miniredis.Miniredis
	api       *httptest.Server
	sdk       *client.Client
	container *bootstrap.Container

	labelCalls atomic.Int32
	llmCalls   atomic.Int32
}

type stubDetector struct{ text string }

func (d stubDetector) DetectLines(context.Context, []byte) ([]pill.TextDetection, error) {
	if d.text == "" {
		return nil, nil
	}
	return []pill.TextDetection{{Text: d.text, Confidence: 97.5}}, nil
}

func newStack(t *testing.T) *stack {
	t.Helper()
	s := &stack{redis: miniredis.RunT(t)}

	page, err := os.ReadFile("../../internal/infrastructure/catalog/drugscom/testdata/m71.html")
	require.NoError(t, err)
	empty, err := os.ReadFile("../../internal/infrastructure/catalog/drugscom/testdata/empty.html")
	require.NoError(t, err)

	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if strings.ReplaceAll(r.URL.Query().Get("imprint"), " ", "") == "M71" {
			_, _ = w.Write(page)
			return
		}
		_, _ = w.Write(empty)
	}))
	t.Cleanup(catalog.Close)

	labels := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.labelCalls.Add(1)
		search := r.URL.Query().Get("search")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(search, `"Allopurinol"`):
			_, _ = w.Write([]byte(allopurinolLabel))
		case strings.Contains(search, `"Trazodone"`):
			_, _ = w.Write([]byte(trazodoneLabel))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"No matches found!"}}`))
		}
	}))
	t.Cleanup(labels.Close)

	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.llmCalls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1700000000,"model":"gpt-4o-mini",` +
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"## Use\nThis medicine **treats** the condition on its label."}}]}`))
	}))
	t.Cleanup(llm.Close)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Redis.Addr = s.redis.Addr()
	cfg.Catalog.BaseURL = catalog.URL
	cfg.Regulatory.BaseURL = labels.URL
	cfg.Regulatory.RateLimit = 0
	cfg.LLM.BaseURL = llm.URL + "/v1/"
	cfg.LLM.APIKey = "test-key"
	cfg.LASA.Path = "../../configs/lasa.json"
	cfg.Metrics.Enabled = true
	require.NoError(t, cfg.Validate())

	log := logging.NewNopLogger()
	s.container, err = bootstrap.Build(context.Background(), cfg, log, bootstrap.Overrides{Detector: stubDetector{text: "M 71"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.container.Close() })

	router := httpserver.NewRouter(httpserver.RouterConfig{
		PillHandler: handlers.NewPillHandler(s.container.Pipeline, s.container.RetryPolicy(), cfg.Server.MaxUploadBytes, log),
		HealthHandler: handlers.NewHealthHandler("test", s.container.Metrics,
			handlers.NewCheck("redis", s.container.Redis.Ping)),
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           log,
		MetricsCollector: s.container.Collector,
		Metrics:          s.container.Metrics,
		MetricsPath:      cfg.Metrics.Path,
	})
	s.api = httptest.NewServer(router)
	t.Cleanup(s.api.Close)

	s.sdk, err = client.NewClient(s.api.URL)
	require.NoError(t, err)
	return s
}

func (s *stack) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(s.api.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

//Personal.AI order the ending
