package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// RetryPolicy bounds how often an operation is attempted and how long to wait
// between attempts.
type RetryPolicy struct {
	MaxAttempts int
	// Backoff returns the wait after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
}

// LinearBackoff waits attempt × step after each failure.
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// DefaultRoutePolicy is three attempts with 300ms, 600ms waits in between.
func DefaultRoutePolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: LinearBackoff(300 * time.Millisecond)}
}

// Retry runs op until it succeeds or the policy is exhausted, returning the
// last error. Waits go through clock so tests can advance time. A cancelled
// context aborts the wait and returns the context error wrapped around the
// last failure.
func Retry[T any](ctx context.Context, clock clockwork.Clock, policy RetryPolicy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	attempts := max(policy.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx, attempt)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		var wait time.Duration
		if policy.Backoff != nil {
			wait = policy.Backoff(attempt)
		}
		if !sleepWithContext(ctx, clock, wait) {
			return zero, fmt.Errorf("%w (last error: %w)", ctx.Err(), lastErr)
		}
	}
	return zero, lastErr
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
