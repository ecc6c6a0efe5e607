package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lu4p/cat"

	"github.com/hyperjump/tanya/pkg/utils"
)

// extractPlain returns content as string, validating it is valid UTF-8.
// Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "\ufffd"))
	}
	return string(content), nil
}

// catParagraphs extracts .odt and .rtf text with lu4p/cat.
func catParagraphs(content []byte) ([]paragraph, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return nil, fmt.Errorf("extract document text: %w", err)
	}
	return textParagraphs(text, "s1", ""), nil
}

// textParagraphs splits text on line breaks into paragraphs with IDs "<prefix>-p<n>".
// Whitespace inside a paragraph is collapsed; empty lines are dropped.
func textParagraphs(text, prefix, locator string) []paragraph {
	var out []paragraph
	for _, line := range strings.Split(text, "\n") {
		line = utils.CollapseSpace(line)
		if line == "" {
			continue
		}
		out = append(out, paragraph{
			id:      fmt.Sprintf("%s-p%d", prefix, len(out)+1),
			locator: locator,
			text:    line,
		})
	}
	return out
}
