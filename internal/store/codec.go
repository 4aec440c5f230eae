package store

import (
	"bytes"
	"fmt"
	"time"

	"github.com/kilupskalvis/doctrack/internal/models"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// EncodeDocument serializes a document as msgpack, keeping field order.
func EncodeDocument(doc *models.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	err := encodeValue(enc, doc)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", doc.ID(), err)
	}
	return buf.Bytes(), nil
}

// DecodeDocument is the inverse of EncodeDocument.
func DecodeDocument(data []byte) (*models.Document, error) {
	dec := msgpack.GetDecoder()
	dec.Reset(bytes.NewReader(data))
	v, err := decodeValue(dec)
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc, ok := v.(*models.Document)
	if !ok {
		return nil, fmt.Errorf("decode document: top-level value is %T", v)
	}
	return doc, nil
}

func encodeValue(enc *msgpack.Encoder, v any) error {
	switch t := v.(type) {
	case nil:
		return enc.EncodeNil()
	case bool:
		return enc.EncodeBool(t)
	case int64:
		return enc.EncodeInt(t)
	case float64:
		return enc.EncodeFloat64(t)
	case string:
		return enc.EncodeString(t)
	case time.Time:
		return enc.EncodeTime(t)
	case []byte:
		if t == nil {
			t = []byte{}
		}
		return enc.EncodeBytes(t)
	case *models.Document:
		if t == nil {
			return enc.EncodeNil()
		}
		if err := enc.EncodeMapLen(t.Len()); err != nil {
			return err
		}
		for _, f := range t.Fields() {
			if err := enc.EncodeString(f.Name); err != nil {
				return err
			}
			if err := encodeValue(enc, f.Value); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
		return nil
	case []any:
		if err := enc.EncodeArrayLen(len(t)); err != nil {
			return err
		}
		for _, item := range t {
			if err := encodeValue(enc, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
}

func decodeValue(dec *msgpack.Decoder) (any, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}

	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return nil, err
		}
		doc := models.NewDocument()
		for i := 0; i < n; i++ {
			name, err := dec.DecodeString()
			if err != nil {
				return nil, err
			}
			v, err := decodeValue(dec)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			doc.Set(name, v)
		}
		return doc, nil

	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		items := make([]any, n)
		for i := range items {
			if items[i], err = decodeValue(dec); err != nil {
				return nil, err
			}
		}
		return items, nil

	default:
		v, err := dec.DecodeInterface()
		if err != nil {
			return nil, err
		}
		return models.Normalize(v)
	}
}
