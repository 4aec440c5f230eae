package core

import (
	"errors"
	"testing"

	"github.com/kilupskalvis/doctrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// order is a typed entity used to exercise the tracker with something other
// than raw documents
type order struct {
	ID       string
	Customer string
	Items    []string
}

func (o *order) DocumentID() string { return o.ID }

func (o *order) AssignDocumentID(id string) { o.ID = id }

func (o *order) ToDocument() (*models.Document, error) {
	return models.NewDocument(
		models.D("_id", o.ID),
		models.D("customer", o.Customer),
		models.D("items", o.Items),
	), nil
}

func decodeOrder(doc *models.Document) (*order, error) {
	o := &order{ID: doc.ID()}
	if s, ok := doc.Lookup("customer").(string); ok {
		o.Customer = s
	}
	if items, ok := doc.Lookup("items").([]any); ok {
		for _, item := range items {
			if s, ok := item.(string); ok {
				o.Items = append(o.Items, s)
			}
		}
	}
	return o, nil
}

func newDoc(id string, fields ...models.Field) *models.Document {
	return models.NewDocument(append([]models.Field{models.D("_id", id)}, fields...)...)
}

func requireState(t *testing.T, tr *Tracker[*models.Document], doc *models.Document, want models.EntityState) {
	t.Helper()
	state, ok := tr.State(doc)
	require.True(t, ok, "entity is not tracked")
	assert.Equal(t, want, state)
}

func TestTracker_InsertTransitions(t *testing.T) {
	tr := NewTracker[*models.Document]()
	doc := newDoc("1")

	require.NoError(t, tr.InsertOnSubmit(doc))
	requireState(t, tr, doc, models.StateAdded)

	err := tr.InsertOnSubmit(doc)
	assert.True(t, errors.Is(err, ErrEntityExists))
	var conflict *StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, models.StateAdded, conflict.State)
	assert.Equal(t, "1", conflict.DocumentID)

	require.NoError(t, tr.DeleteOnSubmit(doc))
	requireState(t, tr, doc, models.StateNoActionRequired)

	err = tr.DeleteOnSubmit(doc)
	assert.True(t, errors.Is(err, ErrAlreadyDeleted))

	require.NoError(t, tr.InsertOnSubmit(doc))
	requireState(t, tr, doc, models.StateAdded)
}

func TestTracker_ReadFromSourceTransitions(t *testing.T) {
	tr := NewTracker[*models.Document]()
	doc, err := tr.Attach(newDoc("1", models.D("n", 1)))
	require.NoError(t, err)
	requireState(t, tr, doc, models.StateReadFromSource)

	assert.True(t, errors.Is(tr.InsertOnSubmit(doc), ErrEntityExists))

	require.NoError(t, tr.DeleteOnSubmit(doc))
	requireState(t, tr, doc, models.StateDeleted)

	assert.True(t, errors.Is(tr.DeleteOnSubmit(doc), ErrAlreadyDeleted))

	require.NoError(t, tr.InsertOnSubmit(doc))
	requireState(t, tr, doc, models.StateReadFromSource)
}

func TestTracker_DeleteUntracked(t *testing.T) {
	tr := NewTracker[*models.Document]()
	doc := newDoc("7")

	require.NoError(t, tr.DeleteOnSubmit(doc))
	requireState(t, tr, doc, models.StateDeleted)

	cs, err := tr.Changes()
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, cs.Deletes)
}

func TestTracker_InsertAssignsID(t *testing.T) {
	tr := NewTracker[*models.Document]()
	doc := models.NewDocument(models.D("name", "x"))

	require.NoError(t, tr.InsertOnSubmit(doc))
	assert.Len(t, doc.ID(), 26)
	assert.Equal(t, models.IDField, doc.Keys()[0])

	te, ok := tr.GetByID(doc.ID())
	require.True(t, ok)
	assert.Same(t, doc, te.Entity)
}

func TestTracker_InsertKeepsExistingID(t *testing.T) {
	tr := NewTracker[*order]()
	o := &order{ID: "order-1"}

	require.NoError(t, tr.InsertOnSubmit(o))
	assert.Equal(t, "order-1", o.ID)
}

func TestTracker_AllOnSubmitStopsAtConflict(t *testing.T) {
	tr := NewTracker[*models.Document]()
	a, b := newDoc("a"), newDoc("b")
	require.NoError(t, tr.InsertOnSubmit(b))

	err := tr.InsertAllOnSubmit(a, b, newDoc("c"))
	assert.True(t, errors.Is(err, ErrEntityExists))
	assert.Equal(t, 2, tr.Len())

	require.NoError(t, tr.DeleteAllOnSubmit(a, b))
	requireState(t, tr, a, models.StateNoActionRequired)
	requireState(t, tr, b, models.StateNoActionRequired)
}

func TestTracker_Changes(t *testing.T) {
	tr := NewTracker[*models.Document]()

	added := newDoc("added", models.D("n", 1))
	require.NoError(t, tr.InsertOnSubmit(added))

	deleted, err := tr.Attach(newDoc("deleted"))
	require.NoError(t, err)
	require.NoError(t, tr.DeleteOnSubmit(deleted))

	modified, err := tr.Attach(newDoc("modified", models.D("n", 1)))
	require.NoError(t, err)
	modified.Set("n", 2)

	_, err = tr.Attach(newDoc("untouched", models.D("n", 1)))
	require.NoError(t, err)

	skipped := newDoc("skipped")
	require.NoError(t, tr.InsertOnSubmit(skipped))
	require.NoError(t, tr.DeleteOnSubmit(skipped))

	cs, err := tr.Changes()
	require.NoError(t, err)

	require.Len(t, cs.Inserts, 1)
	assert.Equal(t, "added", cs.Inserts[0].ID())
	assert.Equal(t, []string{"deleted"}, cs.Deletes)
	require.Len(t, cs.Updates, 1)
	assert.Equal(t, "modified", cs.Updates[0].DocumentID)
	assert.Equal(t, []string{"set n = 2"}, diffStrings(cs.Updates[0].Differences))
	assert.Equal(t, 3, cs.TotalChanges())

	// Changes does not modify tracked state
	requireState(t, tr, added, models.StateAdded)
}

func TestTracker_DeleteThenReinsertIsNoop(t *testing.T) {
	tr := NewTracker[*models.Document]()
	doc, err := tr.Attach(newDoc("1", models.D("n", 1)))
	require.NoError(t, err)

	require.NoError(t, tr.DeleteOnSubmit(doc))
	require.NoError(t, tr.InsertOnSubmit(doc))

	cs, err := tr.Changes()
	require.NoError(t, err)
	assert.True(t, cs.IsEmpty())
}

func TestTracker_DeleteReinsertModifyIsUpdate(t *testing.T) {
	tr := NewTracker[*models.Document]()
	doc, err := tr.Attach(newDoc("1", models.D("n", 1)))
	require.NoError(t, err)

	require.NoError(t, tr.DeleteOnSubmit(doc))
	require.NoError(t, tr.InsertOnSubmit(doc))
	doc.Set("n", 5)

	cs, err := tr.Changes()
	require.NoError(t, err)
	assert.Empty(t, cs.Inserts)
	assert.Empty(t, cs.Deletes)
	require.Len(t, cs.Updates, 1)
	assert.Len(t, cs.Updates[0].Differences, 1)
}

func TestTracker_AttachIdentityMap(t *testing.T) {
	tr := NewTracker[*models.Document]()
	first, err := tr.Attach(newDoc("1", models.D("n", 1)))
	require.NoError(t, err)

	again, err := tr.Attach(newDoc("1", models.D("n", 99)))
	require.NoError(t, err)
	assert.Same(t, first, again)

	same, err := tr.Attach(first)
	require.NoError(t, err)
	assert.Same(t, first, same)
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_SnapshotIsIsolated(t *testing.T) {
	tr := NewTracker[*models.Document]()
	doc, err := tr.Attach(newDoc("1", models.D("tags", models.A("a"))))
	require.NoError(t, err)

	doc.Set("tags", models.A("a", "b"))

	te, ok := tr.Get(doc)
	require.True(t, ok)
	assert.Equal(t, []any{"a"}, te.Snapshot().Lookup("tags"))
}

func TestTracker_AcceptChanges(t *testing.T) {
	tr := NewTracker[*models.Document]()

	added := newDoc("added")
	require.NoError(t, tr.InsertOnSubmit(added))

	deleted, err := tr.Attach(newDoc("deleted"))
	require.NoError(t, err)
	require.NoError(t, tr.DeleteOnSubmit(deleted))

	modified, err := tr.Attach(newDoc("modified", models.D("n", 1)))
	require.NoError(t, err)
	modified.Set("n", 2)

	skipped := newDoc("skipped")
	require.NoError(t, tr.InsertOnSubmit(skipped))
	require.NoError(t, tr.DeleteOnSubmit(skipped))

	require.NoError(t, tr.AcceptChanges())

	requireState(t, tr, added, models.StateReadFromSource)
	requireState(t, tr, modified, models.StateReadFromSource)
	requireState(t, tr, skipped, models.StateNoActionRequired)
	_, tracked := tr.State(deleted)
	assert.False(t, tracked)
	_, tracked = tr.GetByID("deleted")
	assert.False(t, tracked)

	cs, err := tr.Changes()
	require.NoError(t, err)
	assert.True(t, cs.IsEmpty())

	// A new edit after accepting is diffed against the refreshed snapshot
	added.Set("flag", true)
	cs, err = tr.Changes()
	require.NoError(t, err)
	require.Len(t, cs.Updates, 1)
	assert.Equal(t, []string{"add flag = true"}, diffStrings(cs.Updates[0].Differences))
}

func TestTracker_TypedEntity(t *testing.T) {
	tr := NewTracker[*order]()
	o, err := decodeOrder(newDoc("o1", models.D("customer", "ann"), models.D("items", models.A("a"))))
	require.NoError(t, err)

	tracked, err := tr.Attach(o)
	require.NoError(t, err)
	tracked.Items = append(tracked.Items, "b")

	cs, err := tr.Changes()
	require.NoError(t, err)
	require.Len(t, cs.Updates, 1)
	assert.Equal(t, []string{`add items.1 = "b"`}, diffStrings(cs.Updates[0].Differences))
}

func TestTracker_DetachAndEntitiesOrder(t *testing.T) {
	tr := NewTracker[*models.Document]()
	docs := []*models.Document{newDoc("c"), newDoc("a"), newDoc("b")}
	for _, d := range docs {
		require.NoError(t, tr.InsertOnSubmit(d))
	}

	assert.True(t, tr.Detach(docs[1]))
	assert.False(t, tr.Detach(docs[1]))

	var ids []string
	for _, te := range tr.Entities() {
		ids = append(ids, te.Entity.ID())
	}
	assert.Equal(t, []string{"c", "b"}, ids)
}
