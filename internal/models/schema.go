package models

import (
	"fmt"
	"sort"
	"strings"
)

// CollectionSchema is a static description of the typed fields of a
// collection. Fields not described are schemaless.
type CollectionSchema struct {
	Name   string
	Fields []*FieldSchema
}

// FieldSchema describes one field. Elem describes array items and Fields
// describes the fields of a sub-document.
type FieldSchema struct {
	Name   string
	Kind   Kind
	Elem   *FieldSchema
	Fields []*FieldSchema
}

// Field returns the named field of a schema level, or nil
func (s *CollectionSchema) Field(name string) *FieldSchema {
	if s == nil {
		return nil
	}
	return findField(s.Fields, name)
}

// Field returns the named sub-field, or nil
func (f *FieldSchema) Field(name string) *FieldSchema {
	if f == nil {
		return nil
	}
	return findField(f.Fields, name)
}

func findField(fields []*FieldSchema, name string) *FieldSchema {
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ParseSchema builds a schema from dotted field paths mapped to kind names.
// A "[]" suffix on a segment marks an array whose items continue the path:
//
//	"age" = "int"
//	"tags[]" = "string"
//	"items[].qty" = "int"
func ParseSchema(name string, kinds map[string]string) (*CollectionSchema, error) {
	schema := &CollectionSchema{Name: name}

	paths := make([]string, 0, len(kinds))
	for p := range kinds {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		kind, err := ParseKind(kinds[p])
		if err != nil {
			return nil, fmt.Errorf("schema %s, field %s: %w", name, p, err)
		}
		if err := schema.add(p, kind); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
	}
	return schema, nil
}

func (s *CollectionSchema) add(path string, kind Kind) error {
	segments := strings.Split(path, ".")
	level := &s.Fields

	for i, seg := range segments {
		isArray := strings.HasSuffix(seg, "[]")
		fieldName := strings.TrimSuffix(seg, "[]")
		if fieldName == "" {
			return fmt.Errorf("invalid field path %q", path)
		}
		last := i == len(segments)-1

		field := findField(*level, fieldName)
		if field == nil {
			field = &FieldSchema{Name: fieldName, Kind: KindDocument}
			*level = append(*level, field)
		}

		target := field
		if isArray {
			field.Kind = KindArray
			if field.Elem == nil {
				field.Elem = &FieldSchema{Kind: KindDocument}
			}
			target = field.Elem
		}

		if last {
			target.Kind = kind
			return nil
		}
		if target.Kind != KindDocument {
			return fmt.Errorf("field path %q descends into %s", path, target.Kind)
		}
		level = &target.Fields
	}
	return nil
}
