package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures how a submit that lost lock contention is retried.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64 // 0.0 to 1.0
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		JitterFraction: 0.25,
	}
}

// isRetryable returns true only for lock contention. Nothing was written
// in that case and the tracker still holds the pending changes.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrLockContention)
}

// backoff computes the delay for the given attempt with jitter.
func (cfg *RetryConfig) backoff(attempt int) time.Duration {
	base := float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if base > float64(cfg.MaxBackoff) {
		base = float64(cfg.MaxBackoff)
	}
	jitter := base * cfg.JitterFraction * (rand.Float64()*2 - 1) // +/- jitter
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retry executes fn, retrying lock contention with backoff.
func retry(ctx context.Context, cfg *RetryConfig, operation string, fn func() error) error {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt < cfg.MaxRetries {
			if err := sleep(ctx, cfg.backoff(attempt)); err != nil {
				return fmt.Errorf("%s: %w (retry cancelled)", operation, lastErr)
			}
		}
	}
	return fmt.Errorf("%s: %w (after %d retries)", operation, lastErr, cfg.MaxRetries)
}

// SubmitWithRetry submits the context, retrying while another owner holds
// a required field lock.
func SubmitWithRetry(ctx context.Context, c *Context, cfg *RetryConfig) (result *SubmitResult, err error) {
	err = retry(ctx, cfg, "submit changes", func() error {
		result, err = c.SubmitChanges(ctx)
		return err
	})
	return
}
