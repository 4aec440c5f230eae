package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kilupskalvis/doctrack/internal/models"
)

// parseDocument decodes a JSON object keeping its field order. Integral
// numbers become int64, other numbers float64.
func parseDocument(data []byte) (*models.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseJSONValue(dec)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(*models.Document)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}
	return doc, nil
}

// parseValue decodes any JSON value
func parseValue(data string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	return parseJSONValue(dec)
}

func parseJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			doc := models.NewDocument()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key := keyTok.(string)
				v, err := parseJSONValue(dec)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", key, err)
				}
				doc.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return doc, nil
		case '[':
			items := []any{}
			for dec.More() {
				v, err := parseJSONValue(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return items, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		return t.Float64()
	default:
		// string, bool or nil
		return t, nil
	}
}

// formatJSON renders a value as indented JSON in document field order.
// Datetimes become RFC 3339 strings and binary values base64.
func formatJSON(v any) string {
	var b strings.Builder
	writeJSON(&b, v, "")
	return b.String()
}

func writeJSON(b *strings.Builder, v any, indent string) {
	switch t := v.(type) {
	case *models.Document:
		if t.Len() == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{\n")
		for i, f := range t.Fields() {
			key, _ := json.Marshal(f.Name)
			b.WriteString(indent + "  ")
			b.Write(key)
			b.WriteString(": ")
			writeJSON(b, f.Value, indent+"  ")
			if i < t.Len()-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(indent + "}")
	case []any:
		if len(t) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[\n")
		for i, item := range t {
			b.WriteString(indent + "  ")
			writeJSON(b, item, indent+"  ")
			if i < len(t)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(indent + "]")
	case time.Time:
		data, _ := json.Marshal(t.Format(time.RFC3339Nano))
		b.Write(data)
	case []byte:
		data, _ := json.Marshal(base64.StdEncoding.EncodeToString(t))
		b.Write(data)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			b.WriteString("null")
			return
		}
		b.Write(data)
	}
}
