package identification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/internal/testutil"
	"github.com/turtacn/PillScope/pkg/errors"
)

func TestImprintResolver_ResolveReturnsFirstCandidate(t *testing.T) {
	catalog := &fakeCatalog{listing: m71Listing()}
	r := NewImprintResolver(catalog, time.Second, nil, logging.NewNopLogger())

	got, err := r.Resolve(context.Background(), "M71")
	require.NoError(t, err)
	assert.Equal(t, "Allopurinol", got.GenericName)
	assert.Equal(t, "M71", got.Imprint)
	assert.Equal(t, 0, got.Rank)
	assert.Equal(t, "White", got.Description["Color"])
}

func TestImprintResolver_ResolveAllKeepsOrderAndScores(t *testing.T) {
	catalog := &fakeCatalog{listing: m71Listing()}
	r := NewImprintResolver(catalog, 0, nil, logging.NewNopLogger())

	all, err := r.ResolveAll(context.Background(), " M71 ")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Methocarbamol", all[1].GenericName)
	assert.Equal(t, 1, all[1].Rank)

	assert.InDelta(t, 1.0, all[0].Confidence, 1e-9)
	// rank 1, one of three description fields, label matches
	assert.InDelta(t, (0.6+0.2/3+0.2)/2, all[1].Confidence, 1e-9)
	assert.Greater(t, all[0].Confidence, all[1].Confidence)
}

func TestImprintResolver_EmptyPageIsResolutionError(t *testing.T) {
	catalog := &fakeCatalog{listing: pill.CatalogListing{}}
	r := NewImprintResolver(catalog, 0, nil, logging.NewNopLogger())

	_, err := r.Resolve(context.Background(), "ZZZ999")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeResolutionFailed))
	assert.Equal(t, "ResolutionError", errors.KindOf(err))
}

func TestImprintResolver_TransportFailureIsLoggedAndMapped(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New(errors.ErrCodeExternalService, "catalog returned 502").MarkRetryable()}
	log := testutil.NewMockLogger()
	r := NewImprintResolver(catalog, 0, nil, log)

	_, err := r.Resolve(context.Background(), "M71")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeResolutionFailed, errors.GetCode(err))
	assert.False(t, errors.IsRetryable(err))
	assert.True(t, log.HasMessage("warn", "catalog lookup failed"))
}

func TestImprintResolver_BlankCodeRejected(t *testing.T) {
	catalog := &fakeCatalog{}
	r := NewImprintResolver(catalog, 0, nil, logging.NewNopLogger())

	_, err := r.Resolve(context.Background(), "   ")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	assert.Equal(t, int32(0), catalog.calls.Load())
}

func TestBuildCandidates_MisalignedSequences(t *testing.T) {
	listing := pill.CatalogListing{
		Imprints:     []string{"IP 109"},
		Names:        []string{"Hydrocodone", "", "Acetaminophen"},
		Descriptions: []map[string]string{{"Color": "White"}},
	}
	got := buildCandidates("ip109", listing)
	require.Len(t, got, 2)
	assert.Equal(t, "IP 109", got[0].Imprint)
	assert.Equal(t, "ip109", got[1].Imprint)
	assert.Nil(t, got[1].Description)
	assert.Equal(t, 1, got[1].Rank)
}

func TestConfidence(t *testing.T) {
	full := map[string]string{"Strength": "1", "Color": "2", "Shape": "3", "Extra": "4"}
	assert.InDelta(t, 1.0, confidence(0, "m 71", "M71", full), 1e-9)
	assert.InDelta(t, 0.8, confidence(0, "M72", "M71", full), 1e-9)
	assert.InDelta(t, 0.6, confidence(0, "M72", "M71", nil), 1e-9)
	assert.InDelta(t, 0.25, confidence(3, "M71", "M71", full), 1e-9)
}

//Personal.AI order the ending
