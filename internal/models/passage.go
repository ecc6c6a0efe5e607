// Package models defines core data structures for passages, rankings, conversations, and saved turns.
package models

import (
	"fmt"
	"strings"
)

// Passage is one unit of source text used for retrieval.
type Passage struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Tokens  int    `json:"tokens"`
	Locator string `json:"locator,omitempty"` // section title, page, or timestamp in the source
}

// Ranked is a passage identifier with its similarity score.
type Ranked struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// ValidatePassages checks that the set is non-empty, IDs are present and unique,
// every passage has text, and token counts are non-negative.
func ValidatePassages(passages []Passage) error {
	if len(passages) == 0 {
		return fmt.Errorf("%w: passage set is empty", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(passages))
	for i, p := range passages {
		if p.ID == "" {
			return fmt.Errorf("%w: passage %d has no id", ErrInvalidInput, i)
		}
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("%w: duplicate passage id %q", ErrInvalidInput, p.ID)
		}
		if strings.TrimSpace(p.Text) == "" {
			return fmt.Errorf("%w: passage %q has no text", ErrInvalidInput, p.ID)
		}
		if p.Tokens < 0 {
			return fmt.Errorf("%w: passage %q has negative token count", ErrInvalidInput, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// IndexPassages returns the passages keyed by ID.
func IndexPassages(passages []Passage) map[string]Passage {
	out := make(map[string]Passage, len(passages))
	for _, p := range passages {
		out[p.ID] = p
	}
	return out
}
