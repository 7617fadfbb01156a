package identification

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/pkg/errors"
)

// RetryPolicy bounds a caller-side retry. Attempts counts the first call, so
// 1 means no retry.
type RetryPolicy struct {
	Attempts        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy never retries.
var DefaultRetryPolicy = RetryPolicy{Attempts: 1, InitialInterval: 250 * time.Millisecond, MaxInterval: 5 * time.Second}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0
	retries := p.Attempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// Retry calls op until it succeeds, fails with a non-retryable error, the
// attempts run out or ctx ends. Only errors marked retryable (timeouts,
// upstream 5xx and 429) are attempted again.
func Retry[T any](ctx context.Context, p RetryPolicy, log logging.Logger, op func(context.Context) (T, error)) (T, error) {
	var out T
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		v, err := op(ctx)
		if err != nil {
			if !errors.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = v
		return nil
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		if log != nil {
			log.Info("retrying after transient failure",
				logging.Int("attempt", attempt),
				logging.Duration("wait", wait),
				logging.Err(err),
			)
		}
	})
	return out, err
}

//Personal.AI order the ending
