package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// pdfParagraphs returns the text lines of every page, with IDs "page<n>-p<m>".
func pdfParagraphs(content []byte) ([]paragraph, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	var out []paragraph
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		out = append(out, textParagraphs(text, fmt.Sprintf("page%d", i), fmt.Sprintf("page %d", i))...)
	}
	return out, nil
}
