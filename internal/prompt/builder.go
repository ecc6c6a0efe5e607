package prompt

import "github.com/hyperjump/tanya/internal/models"

// DefaultHeader is the instruction placed before the context.
const DefaultHeader = "Answer the question as truthfully as possible using the provided context, " +
	"and if the answer is not contained within the text below, say \"I don't know.\"\n\nContext:\n"

// Builder renders prompts from a header, a packed context and a question.
type Builder struct {
	header string
}

// NewBuilder returns a builder using header, or DefaultHeader when empty.
func NewBuilder(header string) *Builder {
	if header == "" {
		header = DefaultHeader
	}
	return &Builder{header: header}
}

// Prompt returns the single-shot prompt.
func (b *Builder) Prompt(sel *Selection, query string) string {
	return b.header + contextOf(sel) + "\n\n Q: " + query + "\n A:"
}

// UserMessage returns the chat-mode user message. The header is included only on the first turn.
func (b *Builder) UserMessage(sel *Selection, query string, firstTurn bool) models.Message {
	content := contextOf(sel) + "\n\n Q: " + query + "\n A:"
	if firstTurn {
		content = b.header + content
	}
	return models.Message{Role: models.RoleUser, Content: content}
}

func contextOf(sel *Selection) string {
	if sel == nil {
		return ""
	}
	return sel.Context
}
