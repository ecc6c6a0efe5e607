package prompt

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/tanya/internal/models"
)

func scenarioPassages() map[string]models.Passage {
	return map[string]models.Passage{
		"p1": {ID: "p1", Text: "first", Tokens: 50},
		"p2": {ID: "p2", Text: "second", Tokens: 80},
		"p3": {ID: "p3", Text: "third", Tokens: 40},
	}
}

func TestAssemble_earlyStop(t *testing.T) {
	a := NewAssembler()
	ranked := []models.Ranked{{ID: "p2", Score: 0.9}, {ID: "p1", Score: 0.5}, {ID: "p3", Score: 0.1}}

	sel, err := a.Assemble(ranked, scenarioPassages(), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(sel.Passages) != 1 || sel.Passages[0].ID != "p2" {
		t.Fatalf("selection = %+v, want [p2]", sel.Passages)
	}
	if sel.Tokens != 80+a.SeparatorTokens() {
		t.Errorf("Tokens = %d, want %d", sel.Tokens, 80+a.SeparatorTokens())
	}
	if sel.Context != "\n* second" {
		t.Errorf("Context = %q", sel.Context)
	}
}

func TestAssemble_stopsAtFirstMisfit(t *testing.T) {
	passages := map[string]models.Passage{
		"big":   {ID: "big", Text: "big", Tokens: 500},
		"small": {ID: "small", Text: "small", Tokens: 1},
	}
	ranked := []models.Ranked{{ID: "big"}, {ID: "small"}}

	sel, err := NewAssembler().Assemble(ranked, passages, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(sel.Passages) != 0 || sel.Context != "" || sel.Tokens != 0 {
		t.Errorf("expected empty selection, got %+v", sel)
	}
}

func TestAssemble_budgetAndOrder(t *testing.T) {
	passages := map[string]models.Passage{}
	var ranked []models.Ranked
	for i, n := range []int{3, 7, 2, 9, 4, 4, 1} {
		id := string(rune('a' + i))
		passages[id] = models.Passage{ID: id, Text: strings.Repeat("w ", n), Tokens: n}
		ranked = append(ranked, models.Ranked{ID: id})
	}
	a := NewAssembler()
	for budget := 1; budget <= 40; budget++ {
		sel, err := a.Assemble(ranked, passages, budget)
		if err != nil {
			t.Fatal(err)
		}
		if sel.Tokens > budget {
			t.Errorf("budget %d: used %d tokens", budget, sel.Tokens)
		}
		for i, p := range sel.Passages {
			if p.ID != ranked[i].ID {
				t.Errorf("budget %d: selection is not a prefix of the ranking at %d", budget, i)
			}
		}
	}
}

func TestAssemble_idempotent(t *testing.T) {
	a := NewAssembler()
	ranked := []models.Ranked{{ID: "p3"}, {ID: "p1"}, {ID: "p2"}}
	first, err := a.Assemble(ranked, scenarioPassages(), 120)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Assemble(ranked, scenarioPassages(), 120)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

func TestAssemble_errors(t *testing.T) {
	a := NewAssembler()
	tests := []struct {
		name   string
		ranked []models.Ranked
		budget int
	}{
		{"zero budget", []models.Ranked{{ID: "p1"}}, 0},
		{"negative budget", []models.Ranked{{ID: "p1"}}, -5},
		{"unknown id", []models.Ranked{{ID: "nope"}}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Assemble(tt.ranked, scenarioPassages(), tt.budget)
			if !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAssemble_countsMissingTokensAndFlattens(t *testing.T) {
	passages := map[string]models.Passage{
		"x": {ID: "x", Text: "line one\nline two"},
	}
	sel, err := NewAssembler(WithSeparator("\n- ")).Assemble([]models.Ranked{{ID: "x"}}, passages, 10)
	if err != nil {
		t.Fatal(err)
	}
	if sel.Context != "\n- line one line two" {
		t.Errorf("Context = %q", sel.Context)
	}
	if sel.Passages[0].Tokens != 4 || sel.Tokens != 5 {
		t.Errorf("tokens: passage %d, total %d; want 4, 5", sel.Passages[0].Tokens, sel.Tokens)
	}
}

func TestAssemble_skipsDuplicateIDs(t *testing.T) {
	sel, err := NewAssembler().Assemble([]models.Ranked{{ID: "p1"}, {ID: "p1"}}, scenarioPassages(), 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(sel.Passages) != 1 {
		t.Errorf("selected %d passages, want 1", len(sel.Passages))
	}
}
