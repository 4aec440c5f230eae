package models

import (
	"fmt"
	"strings"
)

// OperationType represents the type of store write operation
type OperationType string

const (
	OperationInsert OperationType = "insert"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
)

// WriteOperation is a single compiled store write.
// Operations sharing an ExecutionOrder are sent as one ordered batch, and a
// batch never runs before every lower-ordered batch of the same type.
type WriteOperation struct {
	Type           OperationType
	DocumentID     string
	Document       *Document       // insert only
	Update         *UpdateDocument // update only
	ExecutionOrder int
}

func (op WriteOperation) String() string {
	switch op.Type {
	case OperationInsert:
		return fmt.Sprintf("[%d] insert %s", op.ExecutionOrder, op.DocumentID)
	case OperationDelete:
		return fmt.Sprintf("[%d] delete %s", op.ExecutionOrder, op.DocumentID)
	default:
		return fmt.Sprintf("[%d] update %s %s", op.ExecutionOrder, op.DocumentID, op.Update)
	}
}

// FieldValue is one assignment of a $set-style operator
type FieldValue struct {
	Path  string
	Value any
}

// PushSpec inserts Values into the array at Field, starting at Position
type PushSpec struct {
	Field    string
	Position int
	Values   []any
}

// UpdateDocument is the operator document of an update. Operators are
// applied in the order set, unset, push, pull-nulls.
type UpdateDocument struct {
	Set       []FieldValue
	Unset     []string
	Push      []PushSpec
	PullNulls []string
}

// SetField appends a set operator
func (u *UpdateDocument) SetField(path string, value any) *UpdateDocument {
	u.Set = append(u.Set, FieldValue{Path: path, Value: value})
	return u
}

// UnsetField appends an unset operator
func (u *UpdateDocument) UnsetField(path string) *UpdateDocument {
	u.Unset = append(u.Unset, path)
	return u
}

// PushAt appends a positional push operator
func (u *UpdateDocument) PushAt(field string, position int, values ...any) *UpdateDocument {
	u.Push = append(u.Push, PushSpec{Field: field, Position: position, Values: values})
	return u
}

// PullNull appends a remove-all-nulls operator for the array at field
func (u *UpdateDocument) PullNull(field string) *UpdateDocument {
	u.PullNulls = append(u.PullNulls, field)
	return u
}

// IsEmpty reports whether the update has no operators
func (u *UpdateDocument) IsEmpty() bool {
	return u == nil || len(u.Set)+len(u.Unset)+len(u.Push)+len(u.PullNulls) == 0
}

func (u *UpdateDocument) String() string {
	if u == nil {
		return "{}"
	}
	var parts []string
	if len(u.Set) > 0 {
		var s []string
		for _, f := range u.Set {
			s = append(s, fmt.Sprintf("%q: %s", f.Path, formatValue(f.Value)))
		}
		parts = append(parts, "$set: {"+strings.Join(s, ", ")+"}")
	}
	if len(u.Unset) > 0 {
		var s []string
		for _, p := range u.Unset {
			s = append(s, fmt.Sprintf("%q: 1", p))
		}
		parts = append(parts, "$unset: {"+strings.Join(s, ", ")+"}")
	}
	for _, p := range u.Push {
		parts = append(parts, fmt.Sprintf("$push: {%q: {$each: %s, $position: %d}}", p.Field, formatValue(p.Values), p.Position))
	}
	for _, f := range u.PullNulls {
		parts = append(parts, fmt.Sprintf("$pull: {%q: null}", f))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// DocumentUpdate holds the differences detected for one stored document
type DocumentUpdate struct {
	DocumentID  string
	Differences []Difference
}

// ChangeSet is the pending work of a collection at a point in time
type ChangeSet struct {
	Inserts []*Document
	Updates []DocumentUpdate
	Deletes []string
}

// IsEmpty reports whether there is nothing to write
func (c *ChangeSet) IsEmpty() bool {
	return c == nil || len(c.Inserts)+len(c.Updates)+len(c.Deletes) == 0
}

// TotalChanges returns the number of affected documents
func (c *ChangeSet) TotalChanges() int {
	if c == nil {
		return 0
	}
	return len(c.Inserts) + len(c.Updates) + len(c.Deletes)
}
