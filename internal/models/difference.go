package models

import (
	"fmt"
	"strings"
)

// Difference is a single change between two snapshots of a document,
// addressed by field path. It is implemented by *FieldDifference and
// *ArrayItemDifference only.
type Difference interface {
	FieldPath() FieldPath
	RootField() string
	isDifference()
}

// FieldDifference replaces or removes a scalar or a whole subtree.
// OldMissing / NewMissing distinguish an absent field from an explicit null.
type FieldDifference struct {
	Path       FieldPath
	OldValue   any
	NewValue   any
	OldMissing bool
	NewMissing bool
}

func (d *FieldDifference) FieldPath() FieldPath { return d.Path }
func (d *FieldDifference) RootField() string    { return d.Path.RootField() }
func (*FieldDifference) isDifference()          {}

func (d *FieldDifference) String() string {
	switch {
	case d.NewMissing:
		return fmt.Sprintf("unset %s", d.Path)
	case d.OldMissing:
		return fmt.Sprintf("add %s = %s", d.Path, formatValue(d.NewValue))
	default:
		return fmt.Sprintf("set %s = %s", d.Path, formatValue(d.NewValue))
	}
}

// ArrayItemKind says whether an array item was added or removed
type ArrayItemKind int

const (
	ArrayItemAdd ArrayItemKind = iota + 1
	ArrayItemRemove
)

func (k ArrayItemKind) String() string {
	switch k {
	case ArrayItemAdd:
		return "add"
	case ArrayItemRemove:
		return "remove"
	}
	return fmt.Sprintf("ArrayItemKind(%d)", int(k))
}

// ArrayItemDifference adds or removes one array element. The last element
// of Path is the index: in the new array for adds, in the old array for
// removes.
type ArrayItemDifference struct {
	Path FieldPath
	Kind ArrayItemKind
	Item any
}

func (d *ArrayItemDifference) FieldPath() FieldPath { return d.Path }
func (d *ArrayItemDifference) RootField() string    { return d.Path.RootField() }
func (*ArrayItemDifference) isDifference()          {}

// ArrayPath is the path of the array holding the item
func (d *ArrayItemDifference) ArrayPath() FieldPath { return d.Path.Parent() }

// ItemIndex is the position of the item in its array
func (d *ArrayItemDifference) ItemIndex() int { return d.Path.Last().Index }

func (d *ArrayItemDifference) String() string {
	return fmt.Sprintf("%s %s = %s", d.Kind, d.Path, formatValue(d.Item))
}

func formatValue(v any) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}
