package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kilupskalvis/doctrack/internal/models"
	"github.com/kilupskalvis/doctrack/internal/store"
	"github.com/oklog/ulid/v2"
)

// LockCoordinator claims field locks in a shared lock collection on behalf
// of a single owner token. Locks never expire; a coordinator must be
// released or closed to give them up.
type LockCoordinator struct {
	locks  store.LockCollection
	owner  string
	now    func() time.Time
	logger *slog.Logger
}

// LockOption configures a LockCoordinator
type LockOption func(*LockCoordinator)

// WithOwner sets the owner token instead of a random UUID
func WithOwner(owner string) LockOption {
	return func(c *LockCoordinator) { c.owner = owner }
}

// WithLockClock sets the clock used for TakenAt
func WithLockClock(now func() time.Time) LockOption {
	return func(c *LockCoordinator) { c.now = now }
}

// WithLockLogger sets the logger
func WithLockLogger(logger *slog.Logger) LockOption {
	return func(c *LockCoordinator) { c.logger = logger }
}

// NewLockCoordinator creates a coordinator with a fresh owner token
func NewLockCoordinator(locks store.LockCollection, opts ...LockOption) *LockCoordinator {
	c := &LockCoordinator{
		locks:  locks,
		owner:  uuid.NewString(),
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Owner returns the token written to TakenBy
func (c *LockCoordinator) Owner() string {
	return c.owner
}

// tryAcquire upserts the lock row and reports whether this owner holds it
// and whether this call created it.
func (c *LockCoordinator) tryAcquire(ctx context.Context, req models.LockRequest) (held, created bool, row *models.Lock, err error) {
	candidate := &models.Lock{
		ID:         ulid.Make().String(),
		DocumentID: req.DocumentID,
		Field:      req.Field,
		TakenBy:    c.owner,
		TakenAt:    c.now().UTC(),
	}
	row, err = c.locks.FindOneAndUpsert(ctx, lockKey(req), candidate)
	if err != nil {
		return false, false, nil, fmt.Errorf("acquire lock %s.%s: %w", req.DocumentID, req.Field, err)
	}
	held = row.TakenBy == c.owner
	return held, held && row.ID == candidate.ID, row, nil
}

// AcquireAll claims every request in order. On the first lock held by
// another owner it releases the locks created by this call and returns a
// *LockContentionError.
func (c *LockCoordinator) AcquireAll(ctx context.Context, requests []models.LockRequest) error {
	var created []store.LockKey

	for _, req := range requests {
		held, isNew, row, err := c.tryAcquire(ctx, req)
		if err != nil {
			c.releaseKeys(ctx, created)
			return err
		}
		if !held {
			c.logger.Warn("lock contention",
				"document_id", req.DocumentID, "field", req.Field, "held_by", row.TakenBy)
			c.releaseKeys(ctx, created)
			return &LockContentionError{Request: req, HeldBy: row.TakenBy}
		}
		if isNew {
			created = append(created, lockKey(req))
		}
	}

	c.logger.Debug("locks acquired", "owner", c.owner, "count", len(requests))
	return nil
}

// AcquireAny claims as many requests as it can and returns those held. The
// bool reports whether at least one lock is held.
func (c *LockCoordinator) AcquireAny(ctx context.Context, requests []models.LockRequest) ([]models.LockRequest, bool, error) {
	var acquired []models.LockRequest
	for _, req := range requests {
		held, _, _, err := c.tryAcquire(ctx, req)
		if err != nil {
			return acquired, len(acquired) > 0, err
		}
		if held {
			acquired = append(acquired, req)
		}
	}
	return acquired, len(acquired) > 0, nil
}

// Held lists the lock rows owned by this coordinator
func (c *LockCoordinator) Held(ctx context.Context) ([]*models.Lock, error) {
	all, err := c.locks.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.Lock
	for _, l := range all {
		if l.TakenBy == c.owner {
			out = append(out, l)
		}
	}
	return out, nil
}

// Release deletes every lock row owned by this coordinator
func (c *LockCoordinator) Release(ctx context.Context) error {
	n, err := c.locks.DeleteMany(ctx, store.LockFilter{Owner: c.owner})
	if err != nil {
		return fmt.Errorf("release locks: %w", err)
	}
	if n > 0 {
		c.logger.Debug("locks released", "owner", c.owner, "count", n)
	}
	return nil
}

// Close releases all locks held by the coordinator
func (c *LockCoordinator) Close() error {
	return c.Release(context.Background())
}

func (c *LockCoordinator) releaseKeys(ctx context.Context, keys []store.LockKey) {
	if len(keys) == 0 {
		return
	}
	if _, err := c.locks.DeleteMany(ctx, store.LockFilter{Owner: c.owner, Keys: keys}); err != nil {
		c.logger.Warn("failed to release partially acquired locks", "owner", c.owner, "error", err)
	}
}

func lockKey(req models.LockRequest) store.LockKey {
	return store.LockKey{DocumentID: req.DocumentID, Field: req.Field}
}
