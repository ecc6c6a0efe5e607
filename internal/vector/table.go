// Package vector holds the per-session embedding table and brute-force similarity ranking.
package vector

import (
	"fmt"

	"github.com/hyperjump/tanya/internal/models"
)

// Table is an ordered mapping from passage ID to embedding vector.
// All vectors share one dimension. A table is filled once and then only read.
type Table struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	index      map[string]int
}

// NewTable creates an empty table. A dimension of 0 is fixed by the first Add.
func NewTable(dimensions int) *Table {
	if dimensions < 0 {
		dimensions = 0
	}
	return &Table{
		dimensions: dimensions,
		index:      make(map[string]int),
	}
}

// Add appends vectors with the given IDs. Vectors are copied.
func (t *Table) Add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("%w: ids and vectors length mismatch", models.ErrInvalidInput)
	}
	for i, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: empty id at %d", models.ErrInvalidInput, i)
		}
		if _, ok := t.index[id]; ok {
			return fmt.Errorf("%w: duplicate id %q", models.ErrInvalidInput, id)
		}
		if len(vectors[i]) == 0 {
			return fmt.Errorf("%w: empty vector for %q", models.ErrInvalidInput, id)
		}
		if t.dimensions == 0 {
			t.dimensions = len(vectors[i])
		}
		if len(vectors[i]) != t.dimensions {
			return fmt.Errorf("%w: vector dimension mismatch for %q: got %d, expected %d",
				models.ErrInvalidInput, id, len(vectors[i]), t.dimensions)
		}
		vec := make([]float32, t.dimensions)
		copy(vec, vectors[i])
		t.index[id] = len(t.ids)
		t.ids = append(t.ids, id)
		t.vectors = append(t.vectors, vec)
	}
	return nil
}

// IDs returns the IDs in insertion order.
func (t *Table) IDs() []string {
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}

// Size returns the number of vectors in the table.
func (t *Table) Size() int {
	if t == nil {
		return 0
	}
	return len(t.ids)
}

// Dimensions returns the common vector dimension, or 0 for an empty table.
func (t *Table) Dimensions() int {
	return t.dimensions
}
