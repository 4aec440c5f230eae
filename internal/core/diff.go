// Package core implements the domain logic for doctrack including
// entity tracking, structural diffing, change compilation, field locks
// and the submit pipeline.
package core

import (
	"github.com/kilupskalvis/doctrack/internal/models"
)

// Diff computes the differences that turn old into new. Removed fields come
// first in old's field order, then added and changed fields in new's order.
func Diff(old, new *models.Document) ([]models.Difference, error) {
	var out []models.Difference
	if err := diffDocuments(nil, old, new, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func diffDocuments(path models.FieldPath, old, new *models.Document, out *[]models.Difference) error {
	for _, f := range old.Fields() {
		if new.Has(f.Name) {
			continue
		}
		*out = append(*out, &models.FieldDifference{
			Path:       path.Child(models.Key(f.Name)),
			OldValue:   f.Value,
			NewMissing: true,
		})
	}

	for _, f := range new.Fields() {
		fieldPath := path.Child(models.Key(f.Name))
		oldValue, ok := old.Get(f.Name)
		if !ok {
			*out = append(*out, &models.FieldDifference{
				Path:       fieldPath,
				NewValue:   f.Value,
				OldMissing: true,
			})
			continue
		}
		if err := diffValues(fieldPath, oldValue, f.Value, out); err != nil {
			return err
		}
	}
	return nil
}

func diffValues(path models.FieldPath, old, new any, out *[]models.Difference) error {
	if models.Equal(old, new) {
		return nil
	}

	oldKind, newKind := models.KindOf(old), models.KindOf(new)
	if oldKind == models.KindNull || newKind == models.KindNull {
		*out = append(*out, &models.FieldDifference{Path: path, OldValue: old, NewValue: new})
		return nil
	}
	if oldKind != newKind {
		return &TypeConflictError{Path: path, OldKind: oldKind, NewKind: newKind}
	}

	switch newKind {
	case models.KindArray:
		return diffArrays(path, old.([]any), new.([]any), out)
	case models.KindDocument:
		return diffDocuments(path, old.(*models.Document), new.(*models.Document), out)
	default:
		*out = append(*out, &models.FieldDifference{Path: path, OldValue: old, NewValue: new})
		return nil
	}
}

// diffArrays emits removes by ascending old index, then adds by ascending
// new index, then the nested differences of matched pairs addressed by new
// index. Applied in that order every index refers to the array as it is at
// that step.
func diffArrays(path models.FieldPath, old, new []any, out *[]models.Difference) error {
	head := 0
	for head < len(old) && head < len(new) && models.Equal(old[head], new[head]) {
		head++
	}
	tail := 0
	for tail < len(old)-head && tail < len(new)-head &&
		models.Equal(old[len(old)-1-tail], new[len(new)-1-tail]) {
		tail++
	}

	left := old[head : len(old)-tail]
	right := new[head : len(new)-tail]

	if len(left) == 0 {
		for i, item := range right {
			*out = append(*out, arrayItem(path, head+i, models.ArrayItemAdd, item))
		}
		return nil
	}
	if len(right) == 0 {
		for i, item := range left {
			*out = append(*out, arrayItem(path, head+i, models.ArrayItemRemove, item))
		}
		return nil
	}

	common := LCS(left, right, structuralMatch)

	kept := make(map[int]bool, len(common.LeftIndices))
	for _, i := range common.LeftIndices {
		kept[i] = true
	}
	for i, item := range left {
		if !kept[i] {
			*out = append(*out, arrayItem(path, head+i, models.ArrayItemRemove, item))
		}
	}

	kept = make(map[int]bool, len(common.RightIndices))
	for _, j := range common.RightIndices {
		kept[j] = true
	}
	for j, item := range right {
		if !kept[j] {
			*out = append(*out, arrayItem(path, head+j, models.ArrayItemAdd, item))
		}
	}

	for k := range common.LeftIndices {
		i, j := common.LeftIndices[k], common.RightIndices[k]
		if err := diffValues(path.Child(models.Index(head+j)), left[i], right[j], out); err != nil {
			return err
		}
	}
	return nil
}

// structuralMatch aligns equal items, and provisionally any two arrays or
// any two documents; matched pairs are diffed recursively.
func structuralMatch(a, b any) bool {
	if models.Equal(a, b) {
		return true
	}
	ka, kb := models.KindOf(a), models.KindOf(b)
	return ka == kb && (ka == models.KindArray || ka == models.KindDocument)
}

func arrayItem(path models.FieldPath, index int, kind models.ArrayItemKind, item any) *models.ArrayItemDifference {
	return &models.ArrayItemDifference{
		Path: path.Child(models.Index(index)),
		Kind: kind,
		Item: item,
	}
}
