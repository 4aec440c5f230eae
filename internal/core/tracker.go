package core

import (
	"fmt"
	"maps"
	"slices"

	"github.com/kilupskalvis/doctrack/internal/models"
	"github.com/oklog/ulid/v2"
)

// Entity is anything that can be stored as a document.
// *models.Document implements it directly.
type Entity interface {
	DocumentID() string
	ToDocument() (*models.Document, error)
}

// IDAssigner is implemented by entities that accept a generated id when
// they are inserted without one.
type IDAssigner interface {
	AssignDocumentID(id string)
}

// TrackedEntity is the tracker's record for one entity
type TrackedEntity[E Entity] struct {
	Entity E
	State  models.EntityState

	token    uint64
	id       string
	snapshot *models.Document
}

// Snapshot returns the document as last read from or written to the store.
// It is nil unless the state is ReadFromSource.
func (t *TrackedEntity[E]) Snapshot() *models.Document {
	return t.snapshot
}

func (t *TrackedEntity[E]) takeSnapshot() error {
	doc, err := t.Entity.ToDocument()
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", t.Entity.DocumentID(), err)
	}
	t.snapshot = doc.Clone()
	return nil
}

// Tracker holds tracked entities keyed by an attach-order token, indexed by
// reference and by store id. It is not safe for concurrent use.
type Tracker[E interface {
	comparable
	Entity
}] struct {
	next     uint64
	entities map[uint64]*TrackedEntity[E]
	byRef    map[E]uint64
	byID     map[string]uint64
}

// NewTracker creates an empty tracker
func NewTracker[E interface {
	comparable
	Entity
}]() *Tracker[E] {
	return &Tracker[E]{
		entities: make(map[uint64]*TrackedEntity[E]),
		byRef:    make(map[E]uint64),
		byID:     make(map[string]uint64),
	}
}

// Len returns the number of tracked entities
func (t *Tracker[E]) Len() int {
	return len(t.entities)
}

// Get returns the record for an entity reference
func (t *Tracker[E]) Get(entity E) (*TrackedEntity[E], bool) {
	token, ok := t.byRef[entity]
	if !ok {
		return nil, false
	}
	return t.entities[token], true
}

// GetByID returns the record tracked under a store id
func (t *Tracker[E]) GetByID(id string) (*TrackedEntity[E], bool) {
	token, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return t.entities[token], true
}

// State returns the state of an entity and whether it is tracked
func (t *Tracker[E]) State(entity E) (models.EntityState, bool) {
	te, ok := t.Get(entity)
	if !ok {
		return 0, false
	}
	return te.State, true
}

// Entities returns all records in attach order
func (t *Tracker[E]) Entities() []*TrackedEntity[E] {
	tokens := slices.Sorted(maps.Keys(t.entities))
	out := make([]*TrackedEntity[E], len(tokens))
	for i, token := range tokens {
		out[i] = t.entities[token]
	}
	return out
}

func (t *Tracker[E]) attach(entity E, state models.EntityState) *TrackedEntity[E] {
	t.next++
	te := &TrackedEntity[E]{Entity: entity, State: state, token: t.next}
	t.entities[te.token] = te
	t.byRef[entity] = te.token
	t.index(te)
	return te
}

// index records the entity's current id. An id already claimed by another
// record is left with that record.
func (t *Tracker[E]) index(te *TrackedEntity[E]) {
	id := te.Entity.DocumentID()
	if id == te.id {
		return
	}
	if te.id != "" && t.byID[te.id] == te.token {
		delete(t.byID, te.id)
	}
	te.id = id
	if id == "" {
		return
	}
	if _, taken := t.byID[id]; !taken {
		t.byID[id] = te.token
	}
}

func (t *Tracker[E]) detach(te *TrackedEntity[E]) {
	delete(t.entities, te.token)
	if t.byRef[te.Entity] == te.token {
		delete(t.byRef, te.Entity)
	}
	if te.id != "" && t.byID[te.id] == te.token {
		delete(t.byID, te.id)
	}
}

// InsertOnSubmit queues an entity for insertion. Entities without an id
// that implement IDAssigner are given a new ULID.
func (t *Tracker[E]) InsertOnSubmit(entity E) error {
	te, ok := t.Get(entity)
	if !ok {
		if entity.DocumentID() == "" {
			if a, ok := any(entity).(IDAssigner); ok {
				a.AssignDocumentID(ulid.Make().String())
			}
		}
		t.attach(entity, models.StateAdded)
		return nil
	}

	switch te.State {
	case models.StateAdded, models.StateReadFromSource:
		return &StateConflictError{Op: "insert", DocumentID: te.Entity.DocumentID(), State: te.State, Err: ErrEntityExists}
	case models.StateDeleted:
		te.State = models.StateReadFromSource
	case models.StateNoActionRequired:
		te.State = models.StateAdded
	}
	return nil
}

// DeleteOnSubmit queues an entity for deletion
func (t *Tracker[E]) DeleteOnSubmit(entity E) error {
	te, ok := t.Get(entity)
	if !ok {
		t.attach(entity, models.StateDeleted)
		return nil
	}

	switch te.State {
	case models.StateAdded:
		te.State = models.StateNoActionRequired
	case models.StateReadFromSource:
		te.State = models.StateDeleted
	case models.StateDeleted, models.StateNoActionRequired:
		return &StateConflictError{Op: "delete", DocumentID: te.Entity.DocumentID(), State: te.State, Err: ErrAlreadyDeleted}
	}
	return nil
}

// InsertAllOnSubmit queues each entity in turn, stopping at the first conflict
func (t *Tracker[E]) InsertAllOnSubmit(entities ...E) error {
	for _, e := range entities {
		if err := t.InsertOnSubmit(e); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAllOnSubmit queues each entity in turn, stopping at the first conflict
func (t *Tracker[E]) DeleteAllOnSubmit(entities ...E) error {
	for _, e := range entities {
		if err := t.DeleteOnSubmit(e); err != nil {
			return err
		}
	}
	return nil
}

// Attach registers an entity read from the store. If the same reference or
// another entity with the same id is already tracked, the tracked reference
// is returned instead.
func (t *Tracker[E]) Attach(entity E) (E, error) {
	if te, ok := t.Get(entity); ok {
		return te.Entity, nil
	}
	if id := entity.DocumentID(); id != "" {
		if te, ok := t.GetByID(id); ok {
			return te.Entity, nil
		}
	}

	te := t.attach(entity, models.StateReadFromSource)
	if err := te.takeSnapshot(); err != nil {
		t.detach(te)
		var zero E
		return zero, err
	}
	return entity, nil
}

// Detach stops tracking an entity. It reports whether the entity was tracked.
func (t *Tracker[E]) Detach(entity E) bool {
	te, ok := t.Get(entity)
	if !ok {
		return false
	}
	t.detach(te)
	return true
}

// Changes derives the pending change set. The tracker is not modified.
func (t *Tracker[E]) Changes() (*models.ChangeSet, error) {
	cs := &models.ChangeSet{}
	for _, te := range t.Entities() {
		switch te.State {
		case models.StateAdded:
			doc, err := te.Entity.ToDocument()
			if err != nil {
				return nil, fmt.Errorf("convert %s: %w", te.Entity.DocumentID(), err)
			}
			cs.Inserts = append(cs.Inserts, doc)

		case models.StateDeleted:
			cs.Deletes = append(cs.Deletes, te.Entity.DocumentID())

		case models.StateReadFromSource:
			doc, err := te.Entity.ToDocument()
			if err != nil {
				return nil, fmt.Errorf("convert %s: %w", te.Entity.DocumentID(), err)
			}
			diffs, err := Diff(te.snapshot, doc)
			if err != nil {
				return nil, fmt.Errorf("diff %s: %w", te.Entity.DocumentID(), err)
			}
			if len(diffs) > 0 {
				cs.Updates = append(cs.Updates, models.DocumentUpdate{
					DocumentID:  te.Entity.DocumentID(),
					Differences: diffs,
				})
			}
		}
	}
	return cs, nil
}

// AcceptChanges moves every record to its post-submit state: added entities
// become read-from-source, deleted ones are detached and read-from-source
// snapshots are refreshed.
func (t *Tracker[E]) AcceptChanges() error {
	for _, te := range t.Entities() {
		switch te.State {
		case models.StateAdded:
			if err := te.takeSnapshot(); err != nil {
				return err
			}
			te.State = models.StateReadFromSource
			t.index(te)
		case models.StateDeleted:
			t.detach(te)
		case models.StateReadFromSource:
			if err := te.takeSnapshot(); err != nil {
				return err
			}
		}
	}
	return nil
}
