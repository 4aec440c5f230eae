package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kilupskalvis/doctrack/internal/models"
	"github.com/kilupskalvis/doctrack/internal/store"
)

// SubmitResult counts what a submit wrote
type SubmitResult struct {
	Inserted   int
	Updated    int
	Deleted    int
	Operations int
	Groups     int
	Locks      int
}

func (r *SubmitResult) add(other *SubmitResult) {
	if other == nil {
		return
	}
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Deleted += other.Deleted
	r.Operations += other.Operations
	r.Groups += other.Groups
	r.Locks += other.Locks
}

// Collection tracks entities of one store collection
type Collection[E interface {
	comparable
	Entity
}] struct {
	owner    *Context
	docs     store.DocumentCollection
	locks    store.LockCollection
	decode   func(*models.Document) (E, error)
	resolver ValueResolver
	tracker  *Tracker[E]
	logger   *slog.Logger
}

// Register opens the named collection of the context's database and
// tracks it. Collections are submitted in registration order.
func Register[E interface {
	comparable
	Entity
}](c *Context, name string, decode func(*models.Document) (E, error)) (*Collection[E], error) {
	docs, err := c.db.Collection(name)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", name, err)
	}
	coll := &Collection[E]{
		owner:    c,
		docs:     docs,
		locks:    c.db.Locks(),
		decode:   decode,
		resolver: c.resolverFor(name),
		tracker:  NewTracker[E](),
		logger:   c.logger.With("collection", name),
	}
	c.collections = append(c.collections, coll)
	return coll, nil
}

// Documents registers a collection tracked as raw documents
func Documents(c *Context, name string) (*Collection[*models.Document], error) {
	return Register(c, name, func(doc *models.Document) (*models.Document, error) {
		return doc, nil
	})
}

// Name returns the store collection name
func (c *Collection[E]) Name() string {
	return c.docs.Name()
}

// Tracker exposes the collection's tracker
func (c *Collection[E]) Tracker() *Tracker[E] {
	return c.tracker
}

// InsertOnSubmit queues an entity for insertion
func (c *Collection[E]) InsertOnSubmit(entity E) error {
	return c.tracker.InsertOnSubmit(entity)
}

// InsertAllOnSubmit queues entities for insertion
func (c *Collection[E]) InsertAllOnSubmit(entities ...E) error {
	return c.tracker.InsertAllOnSubmit(entities...)
}

// DeleteOnSubmit queues an entity for deletion
func (c *Collection[E]) DeleteOnSubmit(entity E) error {
	return c.tracker.DeleteOnSubmit(entity)
}

// DeleteAllOnSubmit queues entities for deletion
func (c *Collection[E]) DeleteAllOnSubmit(entities ...E) error {
	return c.tracker.DeleteAllOnSubmit(entities...)
}

// Attach tracks an entity read elsewhere, returning the tracked reference
func (c *Collection[E]) Attach(entity E) (E, error) {
	return c.tracker.Attach(entity)
}

// Find reads the documents matching filter and returns tracked entities.
// Documents already tracked resolve to the existing reference.
func (c *Collection[E]) Find(ctx context.Context, filter store.Filter) ([]E, error) {
	docs, err := c.docs.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.Name(), err)
	}
	out := make([]E, 0, len(docs))
	for _, doc := range docs {
		e, err := c.attachDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// FindByID reads one document and returns the tracked entity
func (c *Collection[E]) FindByID(ctx context.Context, id string) (E, error) {
	if te, ok := c.tracker.GetByID(id); ok {
		return te.Entity, nil
	}
	var zero E
	doc, err := c.docs.FindByID(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("find %s in %s: %w", id, c.Name(), err)
	}
	return c.attachDocument(doc)
}

func (c *Collection[E]) attachDocument(doc *models.Document) (E, error) {
	if te, ok := c.tracker.GetByID(doc.ID()); ok {
		return te.Entity, nil
	}
	var zero E
	e, err := c.decode(doc)
	if err != nil {
		return zero, fmt.Errorf("decode %s: %w", doc.ID(), err)
	}
	return c.tracker.Attach(e)
}

// Changes returns the pending change set
func (c *Collection[E]) Changes() (*models.ChangeSet, error) {
	return c.tracker.Changes()
}

// Compile returns the operations and locks a submit would use, without
// touching the store
func (c *Collection[E]) Compile() (*CompiledChanges, error) {
	cs, err := c.tracker.Changes()
	if err != nil {
		return nil, err
	}
	return CompileChanges(cs, c.resolver)
}

// SubmitChanges writes this collection's pending changes. It shares the
// owning context's submit guard.
func (c *Collection[E]) SubmitChanges(ctx context.Context) (*SubmitResult, error) {
	if !c.owner.submitting.CompareAndSwap(false, true) {
		return nil, ErrAlreadySubmitting
	}
	defer c.owner.submitting.Store(false)
	return c.submit(ctx)
}

func (c *Collection[E]) submit(ctx context.Context) (result *SubmitResult, err error) {
	// Step 1: Compute and compile the pending changes
	compiled, err := c.Compile()
	if err != nil {
		return nil, err
	}
	if compiled.IsEmpty() {
		return &SubmitResult{}, nil
	}
	c.logger.Debug("changes compiled", "operations", len(compiled.Operations), "locks", len(compiled.Locks))

	// Step 2: Acquire every field lock the updates need
	if len(compiled.Locks) > 0 {
		locks := NewLockCoordinator(c.locks, WithLockLogger(c.logger))
		defer func() {
			if rerr := locks.Release(context.WithoutCancel(ctx)); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}()
		if err := locks.AcquireAll(ctx, compiled.Locks); err != nil {
			return nil, err
		}
	}

	// Step 3: Execute the write groups
	result, err = executeOperations(ctx, c.docs, compiled.Operations, c.logger)
	if err != nil {
		return result, err
	}
	result.Locks = len(compiled.Locks)

	// Step 4: Reset tracked state to what the store now holds
	if err := c.tracker.AcceptChanges(); err != nil {
		return result, fmt.Errorf("reset tracked state: %w", err)
	}
	return result, nil
}

// executeOperations runs deletes, then inserts, then updates, each grouped
// by ascending execution order. It stops at the first group the store did
// not fully process.
func executeOperations(ctx context.Context, docs store.DocumentCollection, ops []models.WriteOperation, logger *slog.Logger) (*SubmitResult, error) {
	result := &SubmitResult{}

	for _, opType := range []models.OperationType{models.OperationDelete, models.OperationInsert, models.OperationUpdate} {
		for _, group := range groupByOrder(ops, opType) {
			order := group[0].ExecutionOrder
			res, err := docs.BulkWrite(ctx, group)
			if err != nil && res == nil {
				return result, fmt.Errorf("%s %s group %d: %w", docs.Name(), opType, order, err)
			}

			result.Inserted += res.InsertedCount
			result.Updated += res.MatchedCount
			result.Deleted += res.DeletedCount
			result.Operations += res.ProcessedCount

			if err != nil || !res.Acknowledged() {
				perr := &PartialWriteError{
					Collection:     docs.Name(),
					Type:           opType,
					ExecutionOrder: order,
					Requested:      len(group),
					Processed:      res.ProcessedCount,
					Err:            err,
				}
				if perr.Err == nil && len(res.WriteErrors) > 0 {
					perr.Err = res.WriteErrors[0].Err
				}
				logger.Warn("write group not fully processed",
					"type", string(opType), "order", order, "requested", len(group), "processed", res.ProcessedCount)
				return result, perr
			}

			result.Groups++
			logger.Debug("write group applied", "type", string(opType), "order", order, "count", len(group))
		}
	}
	return result, nil
}

func groupByOrder(ops []models.WriteOperation, opType models.OperationType) [][]models.WriteOperation {
	var selected []models.WriteOperation
	for _, op := range ops {
		if op.Type == opType {
			selected = append(selected, op)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].ExecutionOrder < selected[j].ExecutionOrder
	})

	var groups [][]models.WriteOperation
	for i := 0; i < len(selected); {
		j := i
		for j < len(selected) && selected[j].ExecutionOrder == selected[i].ExecutionOrder {
			j++
		}
		groups = append(groups, selected[i:j])
		i = j
	}
	return groups
}
