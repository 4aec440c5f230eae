package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchema(t *testing.T) {
	schema, err := ParseSchema("orders", map[string]string{
		"age":         "int",
		"tags[]":      "string",
		"items[].qty": "int",
		"meta.when":   "datetime",
	})
	require.NoError(t, err)

	assert.Equal(t, KindInt, schema.Field("age").Kind)

	tags := schema.Field("tags")
	require.NotNil(t, tags)
	assert.Equal(t, KindArray, tags.Kind)
	assert.Equal(t, KindString, tags.Elem.Kind)

	items := schema.Field("items")
	require.NotNil(t, items)
	assert.Equal(t, KindArray, items.Kind)
	assert.Equal(t, KindDocument, items.Elem.Kind)
	assert.Equal(t, KindInt, items.Elem.Field("qty").Kind)

	meta := schema.Field("meta")
	assert.Equal(t, KindDocument, meta.Kind)
	assert.Equal(t, KindDateTime, meta.Field("when").Kind)

	assert.Nil(t, schema.Field("missing"))
}

func TestParseSchema_Errors(t *testing.T) {
	_, err := ParseSchema("x", map[string]string{"a": "decimal"})
	assert.Error(t, err)

	_, err = ParseSchema("x", map[string]string{"a": "int", "a.b": "int"})
	assert.Error(t, err)

	_, err = ParseSchema("x", map[string]string{"[].a": "int"})
	assert.Error(t, err)
}
