package store

import (
	"fmt"
	"slices"

	"github.com/kilupskalvis/doctrack/internal/models"
)

// ApplyUpdate applies the operators of u to doc in place, in the order
// set, unset, push, pull-nulls. Numeric path segments index into arrays
// and name fields of documents.
func ApplyUpdate(doc *models.Document, u *models.UpdateDocument) error {
	if u == nil {
		return nil
	}
	for _, f := range u.Set {
		if _, err := setIn(doc, models.ParsePath(f.Path), models.CloneValue(f.Value)); err != nil {
			return fmt.Errorf("%w: set %s: %v", ErrInvalidUpdate, f.Path, err)
		}
	}
	for _, p := range u.Unset {
		if err := unsetIn(doc, models.ParsePath(p)); err != nil {
			return fmt.Errorf("%w: unset %s: %v", ErrInvalidUpdate, p, err)
		}
	}
	for _, push := range u.Push {
		err := updateArray(doc, push.Field, true, func(items []any) []any {
			pos := min(max(push.Position, 0), len(items))
			values := make([]any, len(push.Values))
			for i, v := range push.Values {
				values[i] = models.CloneValue(v)
			}
			return slices.Insert(items, pos, values...)
		})
		if err != nil {
			return fmt.Errorf("%w: push %s: %v", ErrInvalidUpdate, push.Field, err)
		}
	}
	for _, field := range u.PullNulls {
		err := updateArray(doc, field, false, func(items []any) []any {
			return slices.DeleteFunc(items, func(v any) bool { return v == nil })
		})
		if err != nil {
			return fmt.Errorf("%w: pull %s: %v", ErrInvalidUpdate, field, err)
		}
	}
	return nil
}

func elementName(e models.PathElement) string {
	return e.String()
}

func getIn(node any, path models.FieldPath) (any, bool) {
	for _, e := range path {
		switch n := node.(type) {
		case *models.Document:
			v, ok := n.Get(elementName(e))
			if !ok {
				return nil, false
			}
			node = v
		case []any:
			if !e.IsIndex || e.Index >= len(n) {
				return nil, false
			}
			node = n[e.Index]
		default:
			return nil, false
		}
	}
	return node, true
}

// setIn returns node with the value at path replaced, creating missing
// sub-documents and padding arrays with nulls as needed.
func setIn(node any, path models.FieldPath, v any) (any, error) {
	if len(path) == 0 {
		return v, nil
	}
	head, rest := path[0], path[1:]

	switch n := node.(type) {
	case *models.Document:
		name := elementName(head)
		child, _ := n.Get(name)
		if child == nil && len(rest) > 0 {
			child = models.NewDocument()
		}
		updated, err := setIn(child, rest, v)
		if err != nil {
			return nil, err
		}
		n.Set(name, updated)
		return n, nil

	case []any:
		if !head.IsIndex {
			return nil, fmt.Errorf("cannot use field %q of an array", head.Key)
		}
		for len(n) <= head.Index {
			n = append(n, nil)
		}
		child := n[head.Index]
		if child == nil && len(rest) > 0 {
			child = models.NewDocument()
		}
		updated, err := setIn(child, rest, v)
		if err != nil {
			return nil, err
		}
		n[head.Index] = updated
		return n, nil

	default:
		return nil, fmt.Errorf("cannot create field %q in %s", elementName(head), models.KindOf(node))
	}
}

// unsetIn removes a document field, or nulls an array element. Missing
// paths are ignored.
func unsetIn(doc *models.Document, path models.FieldPath) error {
	if len(path) == 0 {
		return fmt.Errorf("empty path")
	}
	parent, ok := getIn(doc, path.Parent())
	if !ok {
		return nil
	}
	last := path.Last()

	switch p := parent.(type) {
	case *models.Document:
		p.Delete(elementName(last))
	case []any:
		if last.IsIndex && last.Index < len(p) {
			p[last.Index] = nil
		}
	}
	return nil
}

// updateArray replaces the array at the dotted path with fn's result. A
// missing array is created only when create is set.
func updateArray(doc *models.Document, dotted string, create bool, fn func([]any) []any) error {
	path := models.ParsePath(dotted)
	current, ok := getIn(doc, path)
	if !ok || current == nil {
		if !create {
			return nil
		}
		current = []any{}
	}
	items, isArray := current.([]any)
	if !isArray {
		return fmt.Errorf("field is %s, not array", models.KindOf(current))
	}
	_, err := setIn(doc, path, fn(items))
	return err
}
