// Package retry runs startup operations with capped exponential backoff.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// MaxBackoff caps the wait between attempts.
const MaxBackoff = 16 * time.Second

// Do calls fn up to attempts times, sleeping Backoff(n) after the n-th
// failure. A non-positive attempts means a single try. It returns the last
// error, or the context error if ctx ends while waiting.
func Do(ctx context.Context, name string, attempts int, fn func(ctx context.Context) error) error {
	return do(ctx, name, attempts, fn, sleep)
}

func do(ctx context.Context, name string, attempts int, fn func(ctx context.Context) error, wait func(context.Context, time.Duration) bool) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			slog.Info(name+" succeeded", "attempts", attempt)
			return nil
		}
		if attempt == attempts {
			break
		}

		backoff := Backoff(attempt)
		slog.Warn(name+" failed, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"backoff", backoff,
			"error", lastErr,
		)
		if !wait(ctx, backoff) {
			return fmt.Errorf("%s cancelled: %w", name, ctx.Err())
		}
	}

	return fmt.Errorf("%s after %d attempts: %w", name, attempts, lastErr)
}

// Backoff returns 1s, 2s, 4s ... capped at MaxBackoff.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 5 {
		return MaxBackoff
	}
	backoff := time.Duration(1<<(attempt-1)) * time.Second
	if backoff > MaxBackoff {
		backoff = MaxBackoff
	}
	return backoff
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
