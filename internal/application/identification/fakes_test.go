package identification

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/database/redis"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
)

const (
	allopurinolLabel = `{"meta":{"results":{"skip":0,"limit":1,"total":1}},"results":[{"spl_product_data_elements":["Allopurinol tablets"],"indications_and_usage":["Allopurinol is indicated in the management of patients with signs and symptoms of primary or secondary gout."],"openfda":{"generic_name":["ALLOPURINOL"]}}]}`
	trazodoneLabel   = `{"results":[{"indications_and_usage":["Trazodone is indicated for the treatment of major depressive disorder."],"openfda":{"generic_name":["TRAZODONE"]}}]}`
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeCatalog struct {
	listing pill.CatalogListing
	err     error
	calls   atomic.Int32
}

func (f *fakeCatalog) Lookup(_ context.Context, _ string) (pill.CatalogListing, error) {
	f.calls.Add(1)
	return f.listing, f.err
}

func m71Listing() pill.CatalogListing {
	return pill.CatalogListing{
		Imprints: []string{"M71", "M71"},
		Names:    []string{"Allopurinol", "Methocarbamol"},
		Descriptions: []map[string]string{
			{"Strength": "100 mg", "Color": "White", "Shape": "Round"},
			{"Strength": "750 mg"},
		},
	}
}

type fakeLabelSource struct {
	mu     sync.Mutex
	bodies map[string]string
	err    error
	delay  time.Duration
	calls  atomic.Int32
	names  []string
}

func newFakeLabelSource() *fakeLabelSource {
	return &fakeLabelSource{bodies: map[string]string{
		"Allopurinol": allopurinolLabel,
		"Trazodone":   trazodoneLabel,
	}}
}

func (f *fakeLabelSource) FetchLabel(ctx context.Context, genericName string) ([]byte, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.names = append(f.names, genericName)
	body, ok := f.bodies[genericName]
	err := f.err
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return []byte(`{"results":[]}`), nil
	}
	return []byte(body), nil
}

func (f *fakeLabelSource) Calls() int { return int(f.calls.Load()) }

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	systems []string
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systems = append(f.systems, systemPrompt)
	f.prompts = append(f.prompts, userPrompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeDetector struct {
	lines []pill.TextDetection
	err   error
	calls atomic.Int32
}

func (f *fakeDetector) DetectLines(_ context.Context, _ []byte) ([]pill.TextDetection, error) {
	f.calls.Add(1)
	return f.lines, f.err
}

type fakeImageStore struct {
	url   string
	err   error
	saved []string
}

func (f *fakeImageStore) Save(_ context.Context, name, _ string, _ []byte) (string, error) {
	f.saved = append(f.saved, name)
	return f.url, f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []pill.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, ev pill.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakePublisher) Events() []pill.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]pill.Event, len(f.events))
	copy(out, f.events)
	return out
}

type fakeMatcher map[string]string

func (m fakeMatcher) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// ─────────────────────────────────────────────────────────────────────────────
// Redis helpers
// ─────────────────────────────────────────────────────────────────────────────

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(&redis.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newTestCache(client *redis.Client) redis.Cache {
	return redis.NewRedisCache(client, logging.NewNopLogger(), redis.WithDefaultTTL(DefaultLabelTTL))
}

//Personal.AI order the ending
