package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kilupskalvis/doctrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	assert.False(t, isRetryable(nil))
	assert.True(t, isRetryable(&LockContentionError{}))
	assert.False(t, isRetryable(&PartialWriteError{}))
	assert.False(t, isRetryable(ErrTypeConflict))
	assert.False(t, isRetryable(context.Canceled))
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		JitterFraction: 0.0, // no jitter for deterministic test
	}

	assert.Equal(t, 100*time.Millisecond, cfg.backoff(0))
	assert.Equal(t, 200*time.Millisecond, cfg.backoff(1))
	assert.Equal(t, 400*time.Millisecond, cfg.backoff(2))
}

func TestRetryConfig_BackoffCapped(t *testing.T) {
	cfg := &RetryConfig{
		MaxRetries:     10,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     5 * time.Second,
		JitterFraction: 0.0,
	}
	assert.Equal(t, 5*time.Second, cfg.backoff(10))
}

func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		JitterFraction: 0.0,
	}
}

func TestRetry_Success(t *testing.T) {
	attempts := 0
	err := retry(context.Background(), fastRetry(), "test", func() error {
		attempts++
		if attempts < 3 {
			return &LockContentionError{}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_Exhausted(t *testing.T) {
	attempts := 0
	err := retry(context.Background(), fastRetry(), "test", func() error {
		attempts++
		return &LockContentionError{}
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockContention))
	assert.Contains(t, err.Error(), "after 3 retries")
	assert.Equal(t, 4, attempts)
}

func TestRetry_NonRetryable(t *testing.T) {
	attempts := 0
	err := retry(context.Background(), fastRetry(), "test", func() error {
		attempts++
		return ErrTypeConflict
	})
	assert.ErrorIs(t, err, ErrTypeConflict)
	assert.Equal(t, 1, attempts)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &RetryConfig{MaxRetries: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	attempts := 0
	err := retry(ctx, cfg, "test", func() error {
		attempts++
		cancel()
		return &LockContentionError{}
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry cancelled")
	assert.Equal(t, 1, attempts)
}

func TestSubmitWithRetry_WaitsForLock(t *testing.T) {
	ctx := context.Background()
	tc, db, mc := newMockContext(t, newDoc("o1", models.D("name", "a")))
	orders, err := Documents(tc, "orders")
	require.NoError(t, err)

	other := NewLockCoordinator(db.Locks())
	require.NoError(t, other.AcquireAll(ctx, []models.LockRequest{req("o1", "name")}))

	o1, err := orders.FindByID(ctx, "o1")
	require.NoError(t, err)
	o1.Set("name", "b")

	// The other writer lets go after the first failed attempt
	attempts := 0
	err = retry(ctx, fastRetry(), "submit", func() error {
		attempts++
		_, err := tc.SubmitChanges(ctx)
		if err != nil && attempts == 1 {
			require.NoError(t, other.Release(ctx))
		}
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "b", mc.Docs["o1"].Lookup("name"))
}

func TestSubmitWithRetry_GivesUp(t *testing.T) {
	ctx := context.Background()
	tc, db, mc := newMockContext(t, newDoc("o1", models.D("name", "a")))
	orders, err := Documents(tc, "orders")
	require.NoError(t, err)

	other := NewLockCoordinator(db.Locks())
	require.NoError(t, other.AcquireAll(ctx, []models.LockRequest{req("o1", "name")}))

	o1, err := orders.FindByID(ctx, "o1")
	require.NoError(t, err)
	o1.Set("name", "b")

	_, err = SubmitWithRetry(ctx, tc, fastRetry())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockContention))
	assert.Empty(t, mc.Batches)
}
