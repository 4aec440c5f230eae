package core

import (
	"errors"
	"testing"

	"github.com/kilupskalvis/doctrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diffStrings renders differences in their String form for compact assertions
func diffStrings(diffs []models.Difference) []string {
	out := make([]string, len(diffs))
	for i, d := range diffs {
		out[i] = d.(interface{ String() string }).String()
	}
	return out
}

func arrayDoc(items ...any) *models.Document {
	return models.NewDocument(models.D("_id", "1"), models.D("items", models.A(items...)))
}

func TestDiff_EqualDocuments(t *testing.T) {
	doc := models.NewDocument(
		models.D("_id", "1"),
		models.D("name", "widget"),
		models.D("tags", models.A("a", "b")),
		models.D("address", models.NewDocument(models.D("city", "Riga"))),
	)

	diffs, err := Diff(doc, doc.Clone())
	require.NoError(t, err)
	assert.Empty(t, diffs)
}

func TestDiff_FieldChanges(t *testing.T) {
	old := models.NewDocument(models.D("_id", "1"), models.D("a", 1), models.D("b", "x"), models.D("c", true))
	new := models.NewDocument(models.D("_id", "1"), models.D("b", "y"), models.D("c", true), models.D("d", 2.5))

	diffs, err := Diff(old, new)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"unset a",
		`set b = "y"`,
		"add d = 2.5",
	}, diffStrings(diffs))

	removed := diffs[0].(*models.FieldDifference)
	assert.True(t, removed.NewMissing)
	assert.Equal(t, int64(1), removed.OldValue)
}

func TestDiff_NestedDocument(t *testing.T) {
	old := models.NewDocument(models.D("address", models.NewDocument(models.D("city", "Riga"), models.D("zip", "1000"))))
	new := models.NewDocument(models.D("address", models.NewDocument(models.D("city", "Tallinn"), models.D("zip", "1000"))))

	diffs, err := Diff(old, new)
	require.NoError(t, err)
	require.Len(t, diffs, 1)

	d := diffs[0].(*models.FieldDifference)
	assert.Equal(t, "address.city", d.Path.String())
	assert.Equal(t, "address.city", d.RootField())
	assert.Equal(t, "Tallinn", d.NewValue)
}

func TestDiff_Arrays(t *testing.T) {
	tests := []struct {
		name string
		old  []any
		new  []any
		want []string
	}{
		{
			name: "add to empty",
			old:  []any{},
			new:  []any{"x"},
			want: []string{`add items.0 = "x"`},
		},
		{
			name: "remove last item",
			old:  []any{"x"},
			new:  []any{},
			want: []string{`remove items.0 = "x"`},
		},
		{
			name: "append one",
			old:  []any{"x", "y"},
			new:  []any{"x", "y", "z"},
			want: []string{`add items.2 = "z"`},
		},
		{
			name: "append two",
			old:  []any{"x"},
			new:  []any{"x", "y", "z"},
			want: []string{`add items.1 = "y"`, `add items.2 = "z"`},
		},
		{
			name: "prepend",
			old:  []any{"y"},
			new:  []any{"x", "y"},
			want: []string{`add items.0 = "x"`},
		},
		{
			name: "remove from middle",
			old:  []any{"a", "b", "c"},
			new:  []any{"a", "c"},
			want: []string{`remove items.1 = "b"`},
		},
		{
			name: "removes before adds",
			old:  []any{"a", "b", "c"},
			new:  []any{"b", "d"},
			want: []string{
				`remove items.0 = "a"`,
				`remove items.2 = "c"`,
				`add items.1 = "d"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diffs, err := Diff(arrayDoc(tt.old...), arrayDoc(tt.new...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, diffStrings(diffs))
			for _, d := range diffs {
				assert.Equal(t, "items", d.RootField())
			}
		})
	}
}

func TestDiff_ArrayOfDocumentsRecurses(t *testing.T) {
	old := arrayDoc(models.NewDocument(models.D("qty", 1)), models.NewDocument(models.D("qty", 2)))
	new := arrayDoc(models.NewDocument(models.D("qty", 1)), models.NewDocument(models.D("qty", 3)))

	diffs, err := Diff(old, new)
	require.NoError(t, err)
	require.Len(t, diffs, 1)

	d := diffs[0].(*models.FieldDifference)
	assert.Equal(t, "items.1.qty", d.Path.String())
	assert.Equal(t, "items", d.RootField())
	assert.Equal(t, int64(3), d.NewValue)
}

func TestDiff_MatchedPairsAddressedByNewIndex(t *testing.T) {
	old := arrayDoc("x", models.NewDocument(models.D("qty", 1)))
	new := arrayDoc(models.NewDocument(models.D("qty", 2)), "y")

	diffs, err := Diff(old, new)
	require.NoError(t, err)

	assert.Equal(t, []string{
		`remove items.0 = "x"`,
		`add items.1 = "y"`,
		"set items.0.qty = 2",
	}, diffStrings(diffs))
}

func TestDiff_NullReplacesWholeValue(t *testing.T) {
	old := models.NewDocument(models.D("a", nil), models.D("b", models.A(1, 2)))
	new := models.NewDocument(models.D("a", models.NewDocument(models.D("x", 1))), models.D("b", nil))

	diffs, err := Diff(old, new)
	require.NoError(t, err)
	require.Len(t, diffs, 2)

	for _, d := range diffs {
		fd, ok := d.(*models.FieldDifference)
		require.True(t, ok)
		assert.False(t, fd.OldMissing)
		assert.False(t, fd.NewMissing)
	}
	assert.Nil(t, diffs[1].(*models.FieldDifference).NewValue)
}

func TestDiff_TypeConflict(t *testing.T) {
	tests := []struct {
		name string
		old  any
		new  any
		msg  string
	}{
		{"int to string", 1, "1", "value for field a used to be of type int, trying to set as type string"},
		{"string to int", "1", 1, "value for field a used to be of type string, trying to set as type int"},
		{"array to document", models.A(1), models.NewDocument(), "value for field a used to be of type array, trying to set as type document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Diff(models.NewDocument(models.D("a", tt.old)), models.NewDocument(models.D("a", tt.new)))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTypeConflict))

			var conflict *TypeConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, tt.msg, conflict.Error())
		})
	}
}

func TestDiff_TypeConflictInsideArray(t *testing.T) {
	old := arrayDoc(models.NewDocument(models.D("qty", 1)))
	new := arrayDoc(models.NewDocument(models.D("qty", "one")))

	_, err := Diff(old, new)
	var conflict *TypeConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "items.0.qty", conflict.Path.String())
}
