// internal/utils/retry.go
package utils

import (
	"context"
	"time"
)

// DefaultRetryAttempts and DefaultRetryDelay match the processing defaults
// for render attempts.
const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
)

// Retry runs op up to attempts times, sleeping initialDelay * 2^i between
// failures (no jitter). Non-retryable failures and context cancellation stop
// immediately; otherwise the last observed error is returned after the
// budget is exhausted.
func Retry(ctx context.Context, attempts int, initialDelay time.Duration, op func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	if initialDelay <= 0 {
		initialDelay = DefaultRetryDelay
	}

	var lastErr error
	delay := initialDelay
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return lastErr
}
