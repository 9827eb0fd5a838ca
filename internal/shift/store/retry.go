package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/MrJamesThe3rd/caja/internal/shift"
)

// RetryPolicy bounds how often a unit of work is re-run after a transient
// store failure. MaxRetries of zero disables retrying.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// withRetry runs op until it succeeds, fails with a non-transient error or
// the policy gives up. The last transient error is returned as is.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	attempt := 0

	err := backoff.Retry(func() error {
		attempt++

		err := op()
		if err == nil {
			return nil
		}

		if !shift.IsRetryable(err) {
			return backoff.Permanent(err)
		}

		slog.Warn("transient store failure", "attempt", attempt, "error", err)

		return err
	}, s.retry.backOff(ctx))

	if errors.Is(err, context.DeadlineExceeded) && !shift.IsRetryable(err) {
		return fmt.Errorf("%w: %w", shift.ErrTransient, err)
	}

	return err
}
