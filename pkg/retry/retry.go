package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config holds the parameters for the retry strategy.
type Config struct {
	Attempts  int
	BaseDelay time.Duration
	// Retryable decides whether a failed attempt is worth repeating. Nil retries every error.
	Retryable func(error) bool
	Logger    *slog.Logger
}

// Do executes fn with exponential back-off until it succeeds, returns a
// non-retryable error, runs out of attempts, or ctx is done.
func (c Config) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}

	delay := c.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if c.Retryable != nil && !c.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		if c.Logger != nil {
			c.Logger.Warn("retrying", "op", op, "attempt", attempt, "of", attempts, "delay", delay, "error", lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w (last error: %v)", op, ctx.Err(), lastErr)
		case <-timer.C:
		}
		delay *= 2
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}
