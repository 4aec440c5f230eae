package store

import (
	"testing"
	"time"

	"github.com/kilupskalvis/doctrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_PreservesValuesAndOrder(t *testing.T) {
	when := time.Date(2024, 3, 4, 5, 6, 7, 8000, time.UTC)
	doc := models.NewDocument(
		models.D("_id", "o1"),
		models.D("zeta", "last-alphabetically"),
		models.D("alpha", int64(-3)),
		models.D("big", int64(1)<<40),
		models.D("ratio", 2.0),
		models.D("ok", true),
		models.D("none", nil),
		models.D("when", when),
		models.D("raw", []byte{0, 1, 2}),
		models.D("items", models.A(
			models.NewDocument(models.D("qty", 1), models.D("sku", "a")),
			models.A("nested", nil),
		)),
		models.D("empty", models.A()),
		models.D("sub", models.NewDocument()),
	)

	data, err := EncodeDocument(doc)
	require.NoError(t, err)

	decoded, err := DecodeDocument(data)
	require.NoError(t, err)

	assert.Equal(t, doc.Keys(), decoded.Keys())
	assert.True(t, doc.Equal(decoded), "decoded %s", decoded)
	assert.IsType(t, float64(0), decoded.Lookup("ratio"))
	assert.IsType(t, int64(0), decoded.Lookup("alpha"))
	assert.True(t, when.Equal(decoded.Lookup("when").(time.Time)))
}

func TestCodec_DecodeRejectsNonDocument(t *testing.T) {
	_, err := DecodeDocument([]byte{0x93, 0x01, 0x02, 0x03}) // [1, 2, 3]
	assert.Error(t, err)

	_, err = DecodeDocument([]byte{0xc1})
	assert.Error(t, err)
}
