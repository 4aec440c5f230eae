package core

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"github.com/kilupskalvis/doctrack/internal/models"
)

// ValueResolver turns a raw value found at path into the value that should
// be written to the store
type ValueResolver interface {
	Resolve(path models.FieldPath, raw any) (any, error)
}

// PassthroughResolver returns every value unchanged
type PassthroughResolver struct{}

func (PassthroughResolver) Resolve(_ models.FieldPath, raw any) (any, error) {
	return raw, nil
}

// SchemaResolver coerces values to the kinds declared by a collection
// schema. Values at undeclared paths pass through unchanged.
type SchemaResolver struct {
	schema *models.CollectionSchema
}

// NewSchemaResolver creates a resolver for the given schema
func NewSchemaResolver(schema *models.CollectionSchema) *SchemaResolver {
	return &SchemaResolver{schema: schema}
}

// Resolve coerces raw to the kind declared at path
func (r *SchemaResolver) Resolve(path models.FieldPath, raw any) (any, error) {
	return resolveValue(path, r.lookup(path), raw)
}

func (r *SchemaResolver) lookup(path models.FieldPath) *models.FieldSchema {
	if r == nil || r.schema == nil || len(path) == 0 {
		return nil
	}
	if path[0].IsIndex {
		return nil
	}
	field := r.schema.Field(path[0].Key)
	for _, e := range path[1:] {
		if field == nil {
			return nil
		}
		if e.IsIndex {
			if field.Kind != models.KindArray {
				return nil
			}
			field = field.Elem
			continue
		}
		if field.Kind != models.KindDocument {
			return nil
		}
		field = field.Field(e.Key)
	}
	return field
}

func resolveValue(path models.FieldPath, field *models.FieldSchema, raw any) (any, error) {
	if field == nil || raw == nil {
		return raw, nil
	}
	kind := models.KindOf(raw)
	if kind == field.Kind && kind != models.KindDocument && kind != models.KindArray {
		return raw, nil
	}

	switch field.Kind {
	case models.KindInt:
		if f, ok := raw.(float64); ok && f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int64(f), nil
		}
	case models.KindDouble:
		if n, ok := raw.(int64); ok {
			return float64(n), nil
		}
	case models.KindDateTime:
		if s, ok := raw.(string); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w: %v", path, ErrIncompatibleValue, err)
			}
			return t.UTC(), nil
		}
	case models.KindBinary:
		if s, ok := raw.(string); ok {
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w: %v", path, ErrIncompatibleValue, err)
			}
			return b, nil
		}
	case models.KindDocument:
		if doc, ok := raw.(*models.Document); ok {
			return resolveDocument(path, field, doc)
		}
	case models.KindArray:
		if items, ok := raw.([]any); ok {
			out := make([]any, len(items))
			for i, item := range items {
				v, err := resolveValue(path.Child(models.Index(i)), field.Elem, item)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("resolve %s: %w: %s is not assignable to %s", path, ErrIncompatibleValue, kind, field.Kind)
}

func resolveDocument(path models.FieldPath, field *models.FieldSchema, doc *models.Document) (*models.Document, error) {
	if len(field.Fields) == 0 {
		return doc, nil
	}
	out := models.NewDocument()
	for _, f := range doc.Fields() {
		v, err := resolveValue(path.Child(models.Key(f.Name)), field.Field(f.Name), f.Value)
		if err != nil {
			return nil, err
		}
		out.Set(f.Name, v)
	}
	return out, nil
}
