package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/kilupskalvis/doctrack/internal/models"
	"github.com/kilupskalvis/doctrack/internal/store"
)

// submitter is the type-erased view of a Collection[E]
type submitter interface {
	Name() string
	submit(ctx context.Context) (*SubmitResult, error)
}

// Context groups the tracked collections of one database and submits them
// together. Only one submit may run on a context at a time.
type Context struct {
	db          store.Database
	schemas     map[string]*models.CollectionSchema
	logger      *slog.Logger
	collections []submitter
	submitting  atomic.Bool
}

// ContextOption configures a Context
type ContextOption func(*Context)

// WithLogger sets the logger used for submit diagnostics
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *Context) { c.logger = logger }
}

// WithSchemas sets the schemas used to resolve written values, keyed by
// collection name
func WithSchemas(schemas map[string]*models.CollectionSchema) ContextOption {
	return func(c *Context) { c.schemas = schemas }
}

// NewContext creates a tracking context over db
func NewContext(db store.Database, opts ...ContextOption) *Context {
	c := &Context{
		db:     db,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Context) resolverFor(name string) ValueResolver {
	if schema, ok := c.schemas[name]; ok {
		return NewSchemaResolver(schema)
	}
	return PassthroughResolver{}
}

// SubmitChanges submits every registered collection in registration
// order. A second call while one is in flight fails with
// ErrAlreadySubmitting.
func (c *Context) SubmitChanges(ctx context.Context) (*SubmitResult, error) {
	if !c.submitting.CompareAndSwap(false, true) {
		return nil, ErrAlreadySubmitting
	}
	defer c.submitting.Store(false)

	total := &SubmitResult{}
	for _, coll := range c.collections {
		res, err := coll.submit(ctx)
		total.add(res)
		if err != nil {
			return total, fmt.Errorf("submit %s: %w", coll.Name(), err)
		}
	}
	return total, nil
}
