// Retry configuration and mechanism for source fetches.
package errhandling

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/yougis/lumen/internal/logger"
)

// Default retry configuration values
const (
	DefaultMaxAttempts       = 3
	DefaultDelayMs           = 1000
	DefaultBackoffMultiplier = 2.0
	DefaultMaxDelayMs        = 30000
	MaxRetryAttempts         = 10
	MinBackoffMultiplier     = 1.0
)

// RetryConfig holds retry configuration for a source fetch.
// It determines how transient errors are handled with automatic retries.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (1 = no retry).
	MaxAttempts int

	// DelayMs is the initial delay between retries in milliseconds.
	DelayMs int

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64

	// MaxDelayMs is the maximum delay between retries in milliseconds.
	MaxDelayMs int
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       DefaultMaxAttempts,
		DelayMs:           DefaultDelayMs,
		BackoffMultiplier: DefaultBackoffMultiplier,
		MaxDelayMs:        DefaultMaxDelayMs,
	}
}

// normalized returns the configuration with out-of-range values clamped.
func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.MaxAttempts > MaxRetryAttempts {
		c.MaxAttempts = MaxRetryAttempts
	}
	if c.DelayMs <= 0 {
		c.DelayMs = DefaultDelayMs
	}
	if c.BackoffMultiplier < MinBackoffMultiplier {
		c.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if c.MaxDelayMs <= 0 {
		c.MaxDelayMs = DefaultMaxDelayMs
	}
	return c
}

// Delay returns the delay before the given retry attempt (1-based).
func (c RetryConfig) Delay(attempt int) time.Duration {
	delay := float64(c.DelayMs) * math.Pow(c.BackoffMultiplier, float64(attempt-1))
	if delay > float64(c.MaxDelayMs) {
		delay = float64(c.MaxDelayMs)
	}
	return time.Duration(delay) * time.Millisecond
}

// Do runs fn with retries. Only errors classified as retryable trigger
// another attempt; non-retryable errors and context cancellation return
// immediately. The last error is returned when all attempts fail.
func Do(ctx context.Context, cfg RetryConfig, op string, fn func(ctx context.Context) error) error {
	cfg = cfg.normalized()
	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == cfg.MaxAttempts {
			return err
		}

		delay := cfg.Delay(attempt)
		logger.Warn("retrying after transient error",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
