package core

import (
	"fmt"

	"github.com/kilupskalvis/doctrack/internal/models"
)

// CompiledChanges is the store-level work for one change set
type CompiledChanges struct {
	Operations []models.WriteOperation
	Locks      []models.LockRequest
}

// IsEmpty reports whether there is nothing to execute
func (c *CompiledChanges) IsEmpty() bool {
	return c == nil || len(c.Operations) == 0
}

// CompileChanges turns a change set into ordered write operations and the
// field locks the updates need. Inserts and deletes run at order 1 and need
// no locks. Update differences are grouped per document by root field and
// keep their detection order within a group. New values are passed through
// resolver before they are written; a nil resolver leaves them unchanged.
func CompileChanges(cs *models.ChangeSet, resolver ValueResolver) (*CompiledChanges, error) {
	if resolver == nil {
		resolver = PassthroughResolver{}
	}
	out := &CompiledChanges{}
	if cs == nil {
		return out, nil
	}

	for _, id := range cs.Deletes {
		out.Operations = append(out.Operations, models.WriteOperation{
			Type:           models.OperationDelete,
			DocumentID:     id,
			ExecutionOrder: 1,
		})
	}
	for _, doc := range cs.Inserts {
		out.Operations = append(out.Operations, models.WriteOperation{
			Type:           models.OperationInsert,
			DocumentID:     doc.ID(),
			Document:       doc,
			ExecutionOrder: 1,
		})
	}

	for _, upd := range cs.Updates {
		ops, locks, err := compileUpdate(upd, resolver)
		if err != nil {
			return nil, fmt.Errorf("compile update %s: %w", upd.DocumentID, err)
		}
		out.Operations = append(out.Operations, ops...)
		out.Locks = append(out.Locks, locks...)
	}
	return out, nil
}

func compileUpdate(upd models.DocumentUpdate, resolver ValueResolver) ([]models.WriteOperation, []models.LockRequest, error) {
	var roots []string
	groups := make(map[string][]models.Difference)
	for _, d := range upd.Differences {
		root := d.RootField()
		if _, seen := groups[root]; !seen {
			roots = append(roots, root)
		}
		groups[root] = append(groups[root], d)
	}

	combined := &models.UpdateDocument{}
	var steps []models.WriteOperation
	locks := make([]models.LockRequest, 0, len(roots))

	for _, root := range roots {
		g := &stepGroup{documentID: upd.DocumentID, order: 1}
		for _, d := range groups[root] {
			if err := g.add(d, combined, resolver); err != nil {
				return nil, nil, err
			}
		}
		g.flushCompaction()
		steps = append(steps, g.ops...)
		locks = append(locks, models.LockRequest{DocumentID: upd.DocumentID, Field: root})
	}

	var ops []models.WriteOperation
	if !combined.IsEmpty() {
		ops = append(ops, models.WriteOperation{
			Type:           models.OperationUpdate,
			DocumentID:     upd.DocumentID,
			Update:         combined,
			ExecutionOrder: 1,
		})
	}
	return append(ops, steps...), locks, nil
}

// stepGroup accumulates the ordered steps of one root field. A run of
// removes on the same array is followed by exactly one compaction step.
type stepGroup struct {
	documentID  string
	order       int
	ops         []models.WriteOperation
	pendingPull string
	hasPending  bool
}

func (g *stepGroup) add(d models.Difference, combined *models.UpdateDocument, resolver ValueResolver) error {
	switch d := d.(type) {
	case *models.FieldDifference:
		if !d.Path.HasIndex() {
			return addFieldChange(combined, d, resolver)
		}
		g.flushCompaction()
		u := &models.UpdateDocument{}
		if err := addFieldChange(u, d, resolver); err != nil {
			return err
		}
		g.step(u)

	case *models.ArrayItemDifference:
		arrayPath := d.ArrayPath().String()
		switch d.Kind {
		case models.ArrayItemRemove:
			if g.hasPending && g.pendingPull != arrayPath {
				g.flushCompaction()
			}
			g.step((&models.UpdateDocument{}).UnsetField(d.Path.String()))
			g.pendingPull = arrayPath
			g.hasPending = true
		case models.ArrayItemAdd:
			g.flushCompaction()
			v, err := resolver.Resolve(d.Path, d.Item)
			if err != nil {
				return err
			}
			g.step((&models.UpdateDocument{}).PushAt(arrayPath, d.ItemIndex(), v))
		default:
			return fmt.Errorf("%w: array item kind %s", ErrUnknownDifference, d.Kind)
		}

	default:
		return fmt.Errorf("%w: %T", ErrUnknownDifference, d)
	}
	return nil
}

func (g *stepGroup) step(u *models.UpdateDocument) {
	g.order++
	g.ops = append(g.ops, models.WriteOperation{
		Type:           models.OperationUpdate,
		DocumentID:     g.documentID,
		Update:         u,
		ExecutionOrder: g.order,
	})
}

func (g *stepGroup) flushCompaction() {
	if !g.hasPending {
		return
	}
	g.step((&models.UpdateDocument{}).PullNull(g.pendingPull))
	g.hasPending = false
	g.pendingPull = ""
}

func addFieldChange(u *models.UpdateDocument, d *models.FieldDifference, resolver ValueResolver) error {
	if d.NewMissing {
		u.UnsetField(d.Path.String())
		return nil
	}
	v, err := resolver.Resolve(d.Path, d.NewValue)
	if err != nil {
		return err
	}
	u.SetField(d.Path.String(), v)
	return nil
}
