// Package retry wraps cenkalti/backoff for the retry-with-exponential-
// backoff policy spec.md §5 requires around network object transfer:
// "on timeout the object is retried up to N times (default 3) with
// exponential backoff; permanent failure surfaces to the caller."
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cxz/splitgraph/internal/apperrors"
)

// DefaultMaxAttempts is the default retry count for network operations.
const DefaultMaxAttempts = 3

// Policy configures the backoff schedule used by Do.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy returns the spec's default: 3 attempts, exponential backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     DefaultMaxAttempts,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// Do retries fn according to p until it succeeds, the context is
// cancelled (surfaced as apperrors.ErrCancelled), or MaxAttempts is
// exhausted (the last error is returned verbatim). fn should return a
// backoff.Permanent-wrapped error for failures that must not be retried.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by attempt count below, not wall clock

	attempts := 0
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	operation := func() error {
		attempts++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(apperrors.ErrCancelled)
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempts >= maxAttempts {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(bo, ctx))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		// backoff returns the raw context error when cancellation lands
		// during the wait between attempts.
		return apperrors.ErrCancelled
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}
