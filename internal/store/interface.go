package store

import (
	"context"
	"errors"

	"github.com/kilupskalvis/doctrack/internal/models"
)

// Sentinel errors for expected conditions.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrInvalidUpdate  = errors.New("invalid update")
	ErrUnknownBackend = errors.New("unknown lock backend")
)

// Filter selects documents in Find. A nil filter matches everything.
type Filter func(doc *models.Document) bool

// WriteError describes an operation of a bulk write that was not processed
type WriteError struct {
	Index int
	Err   error
}

// BulkWriteResult reports how much of an ordered bulk write was processed.
// Processing stops at the first failed operation.
type BulkWriteResult struct {
	RequestCount   int
	ProcessedCount int
	InsertedCount  int
	MatchedCount   int
	DeletedCount   int
	WriteErrors    []WriteError
}

// Acknowledged reports whether every requested operation was processed
func (r *BulkWriteResult) Acknowledged() bool {
	return r != nil && r.ProcessedCount == r.RequestCount
}

// DocumentCollection defines the contract for a collection of documents.
// This interface enables mocking for testing the core package.
type DocumentCollection interface {
	Name() string

	// Reads
	Find(ctx context.Context, filter Filter) ([]*models.Document, error)
	FindByID(ctx context.Context, id string) (*models.Document, error)

	// Writes
	InsertOne(ctx context.Context, doc *models.Document) error
	DeleteOne(ctx context.Context, id string) (int, error)
	BulkWrite(ctx context.Context, ops []models.WriteOperation) (*BulkWriteResult, error)
}

// LockKey identifies one lock row
type LockKey struct {
	DocumentID string
	Field      string
}

// LockFilter selects lock rows for deletion. Rows must be owned by Owner;
// when Keys is non-empty only those keys are deleted.
type LockFilter struct {
	Owner string
	Keys  []LockKey
}

// LockCollection is the schema-fixed side collection used as a lock table
type LockCollection interface {
	// FindOneAndUpsert inserts onInsert if no row exists for key and returns
	// the row as it is after the call. An existing row is never modified.
	FindOneAndUpsert(ctx context.Context, key LockKey, onInsert *models.Lock) (*models.Lock, error)
	DeleteMany(ctx context.Context, filter LockFilter) (int, error)
	List(ctx context.Context) ([]*models.Lock, error)
}

// Database groups the collections of one store
type Database interface {
	Collection(name string) (DocumentCollection, error)
	Locks() LockCollection
	Close() error
}
