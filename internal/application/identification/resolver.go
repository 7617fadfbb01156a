// Package identification orchestrates the pill pipeline: imprint resolution,
// the cache-aside label store, grounded explanation, LASA correction and the
// stage-tracked flow that ties them together.
package identification

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PillScope/pkg/errors"
)

// ============================================================================
// ImprintResolver
// ============================================================================

// ImprintResolver maps an imprint code to the pills the catalog lists for it.
type ImprintResolver interface {
	// ResolveAll returns every candidate in catalog order.
	ResolveAll(ctx context.Context, code string) ([]pill.CandidateIdentity, error)
	// Resolve returns the canonical candidate, the first one parsed.
	Resolve(ctx context.Context, code string) (pill.CandidateIdentity, error)
}

type imprintResolverImpl struct {
	catalog pill.CatalogSource
	timeout time.Duration
	metrics *prometheus.PillMetrics
	logger  logging.Logger
}

// NewImprintResolver builds an ImprintResolver over catalog. A zero timeout
// leaves the deadline to the catalog client.
func NewImprintResolver(catalog pill.CatalogSource, timeout time.Duration, metrics *prometheus.PillMetrics, log logging.Logger) ImprintResolver {
	return &imprintResolverImpl{
		catalog: catalog,
		timeout: timeout,
		metrics: metrics,
		logger:  log,
	}
}

func (r *imprintResolverImpl) ResolveAll(ctx context.Context, code string) ([]pill.CandidateIdentity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New(errors.ErrCodeValidation, "imprint code is required")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	listing, err := r.catalog.Lookup(ctx, code)
	prometheus.RecordUpstream(r.metrics, "catalog", err, time.Since(start))
	if err != nil {
		r.logger.Warn("catalog lookup failed",
			logging.String("imprint", code),
			logging.Err(err),
		)
		return nil, errors.New(errors.ErrCodeResolutionFailed, "no pill found for imprint").WithDetail(code)
	}

	candidates := buildCandidates(code, listing)
	if len(candidates) == 0 {
		return nil, errors.New(errors.ErrCodeResolutionFailed, "no pill found for imprint").WithDetail(code)
	}

	r.logger.Debug("imprint resolved",
		logging.String("imprint", code),
		logging.Int("candidates", len(candidates)),
		logging.String("canonical", candidates[0].GenericName),
	)
	return candidates, nil
}

func (r *imprintResolverImpl) Resolve(ctx context.Context, code string) (pill.CandidateIdentity, error) {
	candidates, err := r.ResolveAll(ctx, code)
	if err != nil {
		return pill.CandidateIdentity{}, err
	}
	return candidates[0], nil
}

// buildCandidates zips the three listing sequences by position. Names drive
// the count; missing labels fall back to the queried code and missing
// description blocks stay nil.
func buildCandidates(code string, listing pill.CatalogListing) []pill.CandidateIdentity {
	out := make([]pill.CandidateIdentity, 0, len(listing.Names))
	for i, name := range listing.Names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		label := code
		if i < len(listing.Imprints) && strings.TrimSpace(listing.Imprints[i]) != "" {
			label = strings.TrimSpace(listing.Imprints[i])
		}
		var desc map[string]string
		if i < len(listing.Descriptions) {
			desc = listing.Descriptions[i]
		}
		rank := len(out)
		out = append(out, pill.CandidateIdentity{
			Imprint:     label,
			GenericName: name,
			Description: desc,
			Rank:        rank,
			Confidence:  confidence(rank, code, label, desc),
		})
	}
	return out
}

// descriptionFields is the block size at which a description counts as
// complete (strength, color, shape).
const descriptionFields = 3

// confidence scores a candidate in [0,1]. Position dominates; a complete
// description and a label that matches the query each add up to a fifth.
func confidence(rank int, query, label string, desc map[string]string) float64 {
	n := len(desc)
	if n > descriptionFields {
		n = descriptionFields
	}
	factor := 0.6 + 0.2*float64(n)/descriptionFields
	if normalizeImprint(query) == normalizeImprint(label) {
		factor += 0.2
	}
	return factor / float64(rank+1)
}

func normalizeImprint(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

//Personal.AI order the ending
