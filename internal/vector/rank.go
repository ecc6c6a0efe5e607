package vector

import (
	"fmt"
	"sort"

	"github.com/hyperjump/tanya/internal/models"
)

// Rank scores every vector in the table against query by inner product and returns
// all IDs ordered by score descending. Equal scores are ordered by ascending ID.
// Vectors are expected to be unit length; Rank does not normalize.
func Rank(query []float32, table *Table) ([]models.Ranked, error) {
	if table.Size() == 0 {
		return nil, fmt.Errorf("%w: embedding table is empty", models.ErrInvalidInput)
	}
	if len(query) != table.dimensions {
		return nil, fmt.Errorf("%w: query dimension mismatch: got %d, expected %d",
			models.ErrInvalidInput, len(query), table.dimensions)
	}
	ranked := make([]models.Ranked, len(table.ids))
	for i, vec := range table.vectors {
		ranked[i] = models.Ranked{ID: table.ids[i], Score: InnerProduct(query, vec)}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked, nil
}
