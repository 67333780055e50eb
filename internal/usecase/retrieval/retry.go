package retrieval

import (
	"context"
	"time"
)

// WithRetry runs fn and, on failure, retries exactly once after a bounded
// backoff. Context cancellation cuts the backoff short.
func WithRetry(ctx context.Context, backoff time.Duration, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
	}
	return fn()
}
