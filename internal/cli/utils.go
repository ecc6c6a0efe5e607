// Package cli provides CLI output helpers for tanya.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/session"
	"github.com/hyperjump/tanya/pkg/utils"
)

// OutputFormat is the format for answer output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("%w: output format must be text or json, got %q", models.ErrInvalidInput, s)
}

// WriteAnswer writes res to w in the given format. In text format, verbose also prints the prompt.
func WriteAnswer(w io.Writer, res *session.Result, format OutputFormat, verbose bool) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		writeAnswerText(w, res, verbose)
		return nil
	}
}

func writeAnswerText(w io.Writer, res *session.Result, verbose bool) {
	if verbose {
		fmt.Fprintln(w, "--- Prompt ---")
		fmt.Fprintln(w, res.Prompt)
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\n%s\n\n", strings.TrimSpace(res.Answer))
	if len(res.Selected) > 0 {
		fmt.Fprintf(w, "--- Context: %d passages ---\n", len(res.Selected))
		for i, p := range res.Selected {
			writePassage(w, i+1, p)
		}
	}
	if res.Saved {
		fmt.Fprintln(w, "(saved)")
	}
}

func writePassage(w io.Writer, rank int, p models.Passage) {
	loc := p.ID
	if p.Locator != "" {
		loc = p.ID + " @ " + p.Locator
	}
	fmt.Fprintf(w, "%d. [%s] %d tokens\n", rank, loc, p.Tokens)
	fmt.Fprintf(w, "   %s\n", TruncateWords(utils.CollapseSpace(p.Text), 30))
}

// WriteMessages writes a chat history, one message per block.
func WriteMessages(w io.Writer, msgs []models.Message, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(msgs)
	}
	for _, m := range msgs {
		fmt.Fprintf(w, "[%s]\n%s\n\n", m.Role, strings.TrimSpace(m.Content))
	}
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
