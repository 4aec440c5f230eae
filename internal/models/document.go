// Package models defines the core data structures used throughout doctrack
// including document trees, differences, write operations, and locks.
package models

import (
	"fmt"
	"strings"
)

// IDField is the name of the field holding a document's store id
const IDField = "_id"

// Document is an ordered set of named values. Field order is preserved
// through encoding and drives the order of generated differences.
type Document struct {
	keys   []string
	values map[string]any
}

// Field is a single name/value pair of a document
type Field struct {
	Name  string
	Value any
}

// NewDocument creates a document from the given fields, in order.
// Values are normalized with Normalize; unsupported values panic.
func NewDocument(fields ...Field) *Document {
	d := &Document{values: make(map[string]any, len(fields))}
	for _, f := range fields {
		d.Set(f.Name, f.Value)
	}
	return d
}

// D is shorthand for building a Field
func D(name string, value any) Field {
	return Field{Name: name, Value: value}
}

// A builds an array value
func A(items ...any) []any {
	if items == nil {
		return []any{}
	}
	return items
}

// Len returns the number of fields
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the field names in order
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.keys...)
}

// Has reports whether the field exists
func (d *Document) Has(name string) bool {
	if d == nil {
		return false
	}
	_, ok := d.values[name]
	return ok
}

// Get returns the value of a field and whether it exists
func (d *Document) Get(name string) (any, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.values[name]
	return v, ok
}

// Lookup returns the value of a field, or nil when missing
func (d *Document) Lookup(name string) any {
	v, _ := d.Get(name)
	return v
}

// Set assigns a field, keeping its position if it already exists and
// appending it otherwise. It panics if value cannot be normalized.
func (d *Document) Set(name string, value any) *Document {
	n, err := Normalize(value)
	if err != nil {
		panic(fmt.Sprintf("models: field %s: %v", name, err))
	}
	d.put(name, n)
	return d
}

func (d *Document) put(name string, value any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, ok := d.values[name]; !ok {
		d.keys = append(d.keys, name)
	}
	d.values[name] = value
}

// Delete removes a field and reports whether it existed
func (d *Document) Delete(name string) bool {
	if d == nil {
		return false
	}
	if _, ok := d.values[name]; !ok {
		return false
	}
	delete(d.values, name)
	for i, k := range d.keys {
		if k == name {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return true
}

// Fields returns the fields in order
func (d *Document) Fields() []Field {
	if d == nil {
		return nil
	}
	out := make([]Field, len(d.keys))
	for i, k := range d.keys {
		out[i] = Field{Name: k, Value: d.values[k]}
	}
	return out
}

// ID returns the string form of the _id field, or "" when unset
func (d *Document) ID() string {
	v, ok := d.Get(IDField)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// DocumentID implements the entity contract so raw documents can be tracked
func (d *Document) DocumentID() string {
	return d.ID()
}

// ToDocument implements the entity contract; the live document is returned
func (d *Document) ToDocument() (*Document, error) {
	return d, nil
}

// AssignDocumentID sets _id as the first field
func (d *Document) AssignDocumentID(id string) {
	if d.Has(IDField) {
		d.put(IDField, id)
		return
	}
	d.put(IDField, id)
	d.keys = append([]string{IDField}, d.keys[:len(d.keys)-1]...)
}

// Clone returns a deep, self-contained copy
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := &Document{
		keys:   append([]string(nil), d.keys...),
		values: make(map[string]any, len(d.values)),
	}
	for k, v := range d.values {
		c.values[k] = CloneValue(v)
	}
	return c
}

// Equal compares two documents field by field, in order
func (d *Document) Equal(other *Document) bool {
	if d.Len() != other.Len() {
		return false
	}
	if d.Len() == 0 {
		return true
	}
	for i, k := range d.keys {
		if other.keys[i] != k {
			return false
		}
		if !Equal(d.values[k], other.values[k]) {
			return false
		}
	}
	return true
}

// String renders the document in a compact JSON-like form for diagnostics
func (d *Document) String() string {
	var b strings.Builder
	writeValue(&b, d)
	return b.String()
}

func writeValue(b *strings.Builder, v any) {
	switch t := v.(type) {
	case *Document:
		if t == nil {
			b.WriteString("null")
			return
		}
		b.WriteByte('{')
		for i, k := range t.keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%q: ", k)
			writeValue(b, t.values[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, item)
		}
		b.WriteByte(']')
	case string:
		fmt.Fprintf(b, "%q", t)
	case nil:
		b.WriteString("null")
	default:
		fmt.Fprintf(b, "%v", t)
	}
}
