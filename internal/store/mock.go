package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilupskalvis/doctrack/internal/models"
)

// MockDatabase is an in-memory Database for testing.
type MockDatabase struct {
	mu          sync.Mutex
	collections map[string]*MockCollection
	locks       LockCollection
	// Err can be set to make Collection return an error
	Err error
}

// NewMockDatabase creates a MockDatabase with an in-memory lock table.
func NewMockDatabase() *MockDatabase {
	return &MockDatabase{
		collections: make(map[string]*MockCollection),
		locks:       NewMockLocks(),
	}
}

// Collection returns the named collection, creating it if needed.
func (m *MockDatabase) Collection(name string) (DocumentCollection, error) {
	return m.Mock(name)
}

// Mock returns the concrete mock collection for name.
func (m *MockDatabase) Mock(name string) (*MockCollection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	c, ok := m.collections[name]
	if !ok {
		c = NewMockCollection(name)
		m.collections[name] = c
	}
	return c, nil
}

// Locks returns the lock collection.
func (m *MockDatabase) Locks() LockCollection {
	return m.locks
}

// UseLocks replaces the lock collection.
func (m *MockDatabase) UseLocks(locks LockCollection) {
	m.locks = locks
}

// Close is a no-op.
func (m *MockDatabase) Close() error {
	return nil
}

// MockCollection is an in-memory DocumentCollection for testing.
type MockCollection struct {
	name string
	// Docs stores documents by id
	Docs map[string]*models.Document
	// Err can be set to make methods return an error
	Err error
	// AckLimit caps the operations processed by the n-th BulkWrite call
	// (0-based). Operations beyond the cap are reported as failed.
	AckLimit map[int]int
	// Batches records every BulkWrite call in order
	Batches [][]models.WriteOperation
}

// NewMockCollection creates an empty MockCollection.
func NewMockCollection(name string) *MockCollection {
	return &MockCollection{
		name:     name,
		Docs:     make(map[string]*models.Document),
		AckLimit: make(map[int]int),
	}
}

// AddDocument stores a copy of doc.
func (m *MockCollection) AddDocument(doc *models.Document) {
	m.Docs[doc.ID()] = doc.Clone()
}

func (m *MockCollection) Name() string {
	return m.name
}

// Find returns copies of matching documents in id order.
func (m *MockCollection) Find(ctx context.Context, filter Filter) ([]*models.Document, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	ids := make([]string, 0, len(m.Docs))
	for id := range m.Docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []*models.Document
	for _, id := range ids {
		doc := m.Docs[id]
		if filter == nil || filter(doc) {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}

// FindByID returns a copy of one document.
func (m *MockCollection) FindByID(ctx context.Context, id string) (*models.Document, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	doc, ok := m.Docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

// InsertOne stores a copy of doc.
func (m *MockCollection) InsertOne(ctx context.Context, doc *models.Document) error {
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.Docs[doc.ID()]; ok {
		return ErrDuplicateKey
	}
	m.AddDocument(doc)
	return nil
}

// DeleteOne removes a document.
func (m *MockCollection) DeleteOne(ctx context.Context, id string) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	if _, ok := m.Docs[id]; !ok {
		return 0, nil
	}
	delete(m.Docs, id)
	return 1, nil
}

// BulkWrite records the batch and applies it in order.
func (m *MockCollection) BulkWrite(ctx context.Context, ops []models.WriteOperation) (*BulkWriteResult, error) {
	batch := len(m.Batches)
	m.Batches = append(m.Batches, ops)
	if m.Err != nil {
		return nil, m.Err
	}

	limit, capped := m.AckLimit[batch]
	result := &BulkWriteResult{RequestCount: len(ops)}
	for i, op := range ops {
		if capped && i >= limit {
			result.WriteErrors = append(result.WriteErrors, WriteError{Index: i, Err: fmt.Errorf("operation not acknowledged")})
			break
		}
		if err := m.apply(op, result); err != nil {
			result.WriteErrors = append(result.WriteErrors, WriteError{Index: i, Err: err})
			break
		}
		result.ProcessedCount++
	}
	return result, nil
}

func (m *MockCollection) apply(op models.WriteOperation, result *BulkWriteResult) error {
	switch op.Type {
	case models.OperationInsert:
		if _, ok := m.Docs[op.DocumentID]; ok {
			return ErrDuplicateKey
		}
		m.AddDocument(op.Document)
		result.InsertedCount++
	case models.OperationDelete:
		if _, ok := m.Docs[op.DocumentID]; ok {
			delete(m.Docs, op.DocumentID)
			result.DeletedCount++
		}
	case models.OperationUpdate:
		doc, ok := m.Docs[op.DocumentID]
		if !ok {
			return nil
		}
		if err := ApplyUpdate(doc, op.Update); err != nil {
			return err
		}
		result.MatchedCount++
	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
	return nil
}

// MockLocks is an in-memory LockCollection that is safe for concurrent use.
type MockLocks struct {
	mu   sync.Mutex
	rows map[LockKey]*models.Lock
	// Err can be set to make methods return an error
	Err error
}

// NewMockLocks creates an empty MockLocks.
func NewMockLocks() *MockLocks {
	return &MockLocks{rows: make(map[LockKey]*models.Lock)}
}

func (m *MockLocks) FindOneAndUpsert(ctx context.Context, key LockKey, onInsert *models.Lock) (*models.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	row, ok := m.rows[key]
	if !ok {
		copied := *onInsert
		copied.DocumentID, copied.Field = key.DocumentID, key.Field
		row = &copied
		m.rows[key] = row
	}
	out := *row
	return &out, nil
}

func (m *MockLocks) DeleteMany(ctx context.Context, filter LockFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}

	keys := filter.Keys
	if len(keys) == 0 {
		for k := range m.rows {
			keys = append(keys, k)
		}
	}
	n := 0
	for _, k := range keys {
		if row, ok := m.rows[k]; ok && row.TakenBy == filter.Owner {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *MockLocks) List(ctx context.Context) ([]*models.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*models.Lock, 0, len(m.rows))
	for _, row := range m.rows {
		copied := *row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Field < out[j].Field
	})
	return out, nil
}
