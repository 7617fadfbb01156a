package identification

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/PillScope/internal/domain/lasa"
	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PillScope/pkg/errors"
)

// CorrectionResolver substitutes the look-alike/sound-alike partner of a
// medication the user says was misidentified.
type CorrectionResolver interface {
	Correct(ctx context.Context, reportedWrongName string) (pill.Correction, error)
}

type correctionResolverImpl struct {
	matcher lasa.Matcher
	source  pill.LabelSource
	timeout time.Duration
	metrics *prometheus.PillMetrics
	logger  logging.Logger
}

// NewCorrectionResolver builds a CorrectionResolver. The alternate's label is
// read straight from source; corrections never touch the label cache.
func NewCorrectionResolver(matcher lasa.Matcher, source pill.LabelSource, timeout time.Duration, metrics *prometheus.PillMetrics, log logging.Logger) CorrectionResolver {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &correctionResolverImpl{
		matcher: matcher,
		source:  source,
		timeout: timeout,
		metrics: metrics,
		logger:  log,
	}
}

func (c *correctionResolverImpl) Correct(ctx context.Context, reportedWrongName string) (pill.Correction, error) {
	name := strings.TrimSpace(reportedWrongName)
	if name == "" {
		return pill.Correction{}, errors.New(errors.ErrCodeValidation, "generic name is required")
	}

	alternate, ok := c.matcher.Lookup(name)
	if !ok {
		c.logger.Info("no look-alike medication known", logging.String("name", name))
		return pill.Correction{}, errors.New(errors.ErrCodeCorrectionNotFound, "no look-alike medication known").WithDetail(name)
	}

	fctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	body, err := c.source.FetchLabel(fctx, alternate)
	prometheus.RecordUpstream(c.metrics, "regulatory", err, time.Since(start))
	if err != nil {
		return pill.Correction{}, asFetchError(err, alternate)
	}
	rec, err := pill.NewLabelRecord(body)
	if err != nil {
		return pill.Correction{}, asFetchError(err, alternate)
	}

	c.logger.Info("correction resolved",
		logging.String("reported", name),
		logging.String("alternate", alternate),
	)
	return pill.Correction{
		ReportedName:     name,
		AlternateName:    alternate,
		AlternatePurpose: rec.Purpose,
		Record:           rec,
	}, nil
}

//Personal.AI order the ending
