package models

import (
	"bytes"
	"fmt"
	"sort"
	"time"
)

// Kind identifies the type of a value in a document tree
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindDateTime
	KindBinary
	KindDocument
	KindArray
)

var kindNames = map[Kind]string{
	KindNull:     "null",
	KindBool:     "bool",
	KindInt:      "int",
	KindDouble:   "double",
	KindString:   "string",
	KindDateTime: "datetime",
	KindBinary:   "binary",
	KindDocument: "document",
	KindArray:    "array",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind returns the Kind for a name as produced by Kind.String
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindNull, fmt.Errorf("unknown value kind %q", name)
}

// KindOf returns the kind of a normalized value.
// It panics on values that are not part of the document tree model.
func KindOf(v any) Kind {
	switch t := v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int64:
		return KindInt
	case float64:
		return KindDouble
	case string:
		return KindString
	case time.Time:
		return KindDateTime
	case []byte:
		return KindBinary
	case *Document:
		if t == nil {
			return KindNull
		}
		return KindDocument
	case []any:
		return KindArray
	default:
		panic(fmt.Sprintf("models: unsupported value type %T", v))
	}
}

// Normalize converts common Go values into the document tree model:
// sized integers become int64, float32 becomes float64, typed slices become
// []any and map[string]any becomes a *Document with sorted keys.
func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, int64, float64, string, []byte:
		return t, nil
	case time.Time:
		return t.UTC(), nil
	case *Document:
		if t == nil {
			return nil, nil
		}
		return t, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case float32:
		return float64(t), nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = int64(n)
		}
		return out, nil
	case []int64:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, nil
	case []float64:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = f
		}
		return out, nil
	case []*Document:
		out := make([]any, len(t))
		for i, d := range t {
			out[i] = d
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		doc := NewDocument()
		for _, k := range keys {
			n, err := Normalize(t[k])
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			doc.put(k, n)
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// Equal reports whether two normalized values are structurally equal.
// Documents compare field by field in order.
func Equal(a, b any) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case KindNull:
		return true
	case KindBool:
		return a.(bool) == b.(bool)
	case KindInt:
		return a.(int64) == b.(int64)
	case KindDouble:
		return a.(float64) == b.(float64)
	case KindString:
		return a.(string) == b.(string)
	case KindDateTime:
		return a.(time.Time).Equal(b.(time.Time))
	case KindBinary:
		return bytes.Equal(a.([]byte), b.([]byte))
	case KindDocument:
		return a.(*Document).Equal(b.(*Document))
	case KindArray:
		x, y := a.([]any), b.([]any)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// CloneValue returns a deep copy of a normalized value
func CloneValue(v any) any {
	switch t := v.(type) {
	case *Document:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}
