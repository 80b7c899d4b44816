// Package retry implements exponential backoff with jitter for operations
// against flaky transports.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Config configures retry behavior with exponential backoff.
type Config struct {
	MaxRetries int           // retry attempts after the first try
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap on any single delay
	Multiplier float64       // exponential growth factor
	Jitter     bool          // add up to ±10% random jitter
}

// DefaultConfig returns the retry configuration used by the HTTP resource
// client.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Do runs op until it succeeds, the retry budget runs out, ctx is done, or
// op returns an error the retryable predicate rejects. Non-retryable errors
// are returned immediately and untouched, so typed errors survive for
// errors.As at the caller.
func Do(ctx context.Context, cfg Config, retryable func(error) bool, op func() error) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt >= cfg.MaxRetries {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay(cfg, attempt)):
		}
	}
}

// delay computes the backoff for the given zero-based attempt.
func delay(cfg Config, attempt int) time.Duration {
	d := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}

	if cfg.Jitter {
		jitterRange := d * 0.1
		d += (rand.Float64() - 0.5) * 2 * jitterRange
		if d < 0 {
			d = float64(cfg.BaseDelay)
		}
	}

	return time.Duration(d)
}
