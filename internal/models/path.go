package models

import (
	"strconv"
	"strings"
)

// PathElement is one step of a field path: a field name or an array index
type PathElement struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key returns a field-name path element
func Key(name string) PathElement {
	return PathElement{Key: name}
}

// Index returns an array-index path element
func Index(i int) PathElement {
	return PathElement{Index: i, IsIndex: true}
}

func (e PathElement) String() string {
	if e.IsIndex {
		return strconv.Itoa(e.Index)
	}
	return e.Key
}

// FieldPath addresses a value inside a document
type FieldPath []PathElement

// Child returns a new path with elem appended; the receiver is not modified
func (p FieldPath) Child(elem PathElement) FieldPath {
	out := make(FieldPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, elem)
}

// String returns the dotted form, e.g. "items.2.qty"
func (p FieldPath) String() string {
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = e.String()
	}
	return strings.Join(parts, ".")
}

// HasIndex reports whether the path passes through an array index
func (p FieldPath) HasIndex() bool {
	for _, e := range p {
		if e.IsIndex {
			return true
		}
	}
	return false
}

// Root returns the path truncated immediately before its first array index
func (p FieldPath) Root() FieldPath {
	for i, e := range p {
		if e.IsIndex {
			return p[:i]
		}
	}
	return p
}

// RootField is the dotted form of Root; it is the unit of lock granularity
func (p FieldPath) RootField() string {
	return p.Root().String()
}

// Parent returns the path without its last element
func (p FieldPath) Parent() FieldPath {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1]
}

// Last returns the final element of the path
func (p FieldPath) Last() PathElement {
	if len(p) == 0 {
		return PathElement{}
	}
	return p[len(p)-1]
}

// ParsePath splits a dotted path. Purely numeric segments become indexes.
func ParsePath(dotted string) FieldPath {
	if dotted == "" {
		return nil
	}
	parts := strings.Split(dotted, ".")
	out := make(FieldPath, len(parts))
	for i, part := range parts {
		if n, err := strconv.Atoi(part); err == nil && n >= 0 {
			out[i] = Index(n)
			continue
		}
		out[i] = Key(part)
	}
	return out
}
