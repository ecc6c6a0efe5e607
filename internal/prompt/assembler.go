package prompt

import (
	"fmt"
	"strings"

	"github.com/hyperjump/tanya/internal/models"
)

// DefaultSeparator prefixes every selected passage in the context.
const DefaultSeparator = "\n* "

// Selection is the packed context for one query.
type Selection struct {
	Context  string
	Passages []models.Passage
	Tokens   int
}

// Assembler packs ranked passages into a context string.
type Assembler struct {
	separator       string
	separatorTokens int
	counter         Counter
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithSeparator sets the passage separator.
func WithSeparator(sep string) AssemblerOption {
	return func(a *Assembler) {
		if sep != "" {
			a.separator = sep
		}
	}
}

// WithCounter sets the token counter used for the separator and for passages without a token count.
func WithCounter(c Counter) AssemblerOption {
	return func(a *Assembler) {
		if c != nil {
			a.counter = c
		}
	}
}

// NewAssembler creates an assembler. Defaults: DefaultSeparator and WordCounter.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{separator: DefaultSeparator, counter: WordCounter{}}
	for _, opt := range opts {
		opt(a)
	}
	a.separatorTokens = a.counter.Count(a.separator)
	return a
}

// Assemble walks the ranking in order and selects passages while the cumulative cost
// (passage tokens plus separator tokens) stays within budget. The scan stops at the first
// passage that does not fit; later, smaller passages are not tried.
func (a *Assembler) Assemble(ranked []models.Ranked, passages map[string]models.Passage, budget int) (*Selection, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("%w: token budget must be positive, got %d", models.ErrInvalidInput, budget)
	}
	sel := &Selection{}
	var sb strings.Builder
	seen := make(map[string]struct{}, len(ranked))
	for _, r := range ranked {
		p, ok := passages[r.ID]
		if !ok {
			return nil, fmt.Errorf("%w: ranked id %q has no passage", models.ErrInvalidInput, r.ID)
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		tokens := p.Tokens
		if tokens == 0 && p.Text != "" {
			tokens = a.counter.Count(p.Text)
		}
		cost := tokens + a.separatorTokens
		if sel.Tokens+cost > budget {
			break
		}
		sel.Tokens += cost
		p.Tokens = tokens
		sel.Passages = append(sel.Passages, p)
		sb.WriteString(a.separator)
		sb.WriteString(flatten(p.Text))
	}
	sel.Context = sb.String()
	return sel, nil
}

// SeparatorTokens returns the token cost added per selected passage.
func (a *Assembler) SeparatorTokens() int {
	return a.separatorTokens
}

func flatten(text string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
}
