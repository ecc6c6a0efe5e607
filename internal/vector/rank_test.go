package vector

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"github.com/hyperjump/tanya/internal/models"
)

func TestRank_oppositeVectors(t *testing.T) {
	tbl := NewTable(1)
	if err := tbl.Add([]string{"a", "b"}, [][]float32{{1}, {-1}}); err != nil {
		t.Fatal(err)
	}
	got, err := Rank([]float32{1}, tbl)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.Ranked{{ID: "a", Score: 1}, {ID: "b", Score: -1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank() = %v, want %v", got, want)
	}
}

func TestRank_errors(t *testing.T) {
	tbl := NewTable(2)
	if err := tbl.Add([]string{"a"}, [][]float32{{1, 0}}); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name  string
		query []float32
		table *Table
	}{
		{"nil table", []float32{1, 0}, nil},
		{"empty table", []float32{1, 0}, NewTable(2)},
		{"dimension mismatch", []float32{1, 0, 0}, tbl},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rank(tt.query, tt.table)
			if !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestRank_tiesByID(t *testing.T) {
	tbl := NewTable(2)
	if err := tbl.Add([]string{"c", "a", "b"}, [][]float32{{1, 0}, {1, 0}, {0, 1}}); err != nil {
		t.Fatal(err)
	}
	got, err := Rank([]float32{1, 0}, tbl)
	if err != nil {
		t.Fatal(err)
	}
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	if want := []string{"a", "c", "b"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func TestRank_permutationSortedByDot(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	const n, dim = 50, 8
	tbl := NewTable(dim)
	ids := make([]string, n)
	vecs := make([][]float32, n)
	byID := make(map[string][]float32, n)
	for i := range ids {
		ids[i] = string(rune('A'+i%26)) + string(rune('a'+i/26))
		vecs[i] = make([]float32, dim)
		for j := range vecs[i] {
			vecs[i][j] = r.Float32()*2 - 1
		}
		byID[ids[i]] = vecs[i]
	}
	if err := tbl.Add(ids, vecs); err != nil {
		t.Fatal(err)
	}
	query := make([]float32, dim)
	for j := range query {
		query[j] = r.Float32()*2 - 1
	}

	got, err := Rank(query, tbl)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != n {
		t.Fatalf("len = %d, want %d", len(got), n)
	}
	gotIDs := make([]string, n)
	for i, rk := range got {
		gotIDs[i] = rk.ID
		if want := InnerProduct(query, byID[rk.ID]); rk.Score != want {
			t.Errorf("score of %s = %v, want %v", rk.ID, rk.Score, want)
		}
		if i > 0 && got[i-1].Score < rk.Score {
			t.Errorf("position %d: %v ranked above %v", i, got[i-1].Score, rk.Score)
		}
	}
	want := append([]string(nil), ids...)
	sort.Strings(want)
	sort.Strings(gotIDs)
	if !reflect.DeepEqual(gotIDs, want) {
		t.Error("ranking is not a permutation of the table ids")
	}
}

func TestInnerProduct(t *testing.T) {
	if got := InnerProduct([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("length mismatch: got %v, want 0", got)
	}
	if got := InnerProduct([]float32{1, 2}, []float32{3, 4}); got != 11 {
		t.Errorf("InnerProduct = %v, want 11", got)
	}
	if got := L2Norm([]float32{3, 4}); math.Abs(got-5) > 1e-9 {
		t.Errorf("L2Norm = %v, want 5", got)
	}
}
