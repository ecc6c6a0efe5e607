package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/pkg/utils"
)

// Table column names. Only content is required.
const (
	ColumnContent = "content"
	ColumnID      = "id"
	ColumnTitle   = "title"
	ColumnHeading = "heading"
	ColumnTokens  = "tokens"
)

// LoadTable reads a .csv or .xlsx table with a header row and returns one passage per row.
// The passage ID is the id column, else "title/heading", else "row-<n>". A missing or empty
// tokens cell is filled with the extractor's count.
func (e *Extractor) LoadTable(path string) ([]models.Passage, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var rows [][]string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		r := csv.NewReader(bytes.NewReader(content))
		r.FieldsPerRecord = -1
		if rows, err = r.ReadAll(); err != nil {
			return nil, fmt.Errorf("parse CSV: %w", err)
		}
	case ".xlsx":
		if rows, err = xlsxRows(content); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unsupported table format %q", models.ErrInvalidInput, ext)
	}
	return e.rowsToPassages(rows)
}

func (e *Extractor) rowsToPassages(rows [][]string) ([]models.Passage, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table is empty", models.ErrInvalidInput)
	}
	cols := make(map[string]int)
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols[ColumnContent]; !ok {
		return nil, fmt.Errorf("%w: table has no %q column", models.ErrInvalidInput, ColumnContent)
	}
	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []models.Passage
	for n, row := range rows[1:] {
		text := utils.CollapseSpace(cell(row, ColumnContent))
		if text == "" {
			continue
		}
		p := models.Passage{Text: text, Locator: cell(row, ColumnHeading)}
		switch title, heading := cell(row, ColumnTitle), cell(row, ColumnHeading); {
		case cell(row, ColumnID) != "":
			p.ID = cell(row, ColumnID)
		case title != "" && heading != "":
			p.ID = title + "/" + heading
		default:
			p.ID = fmt.Sprintf("row-%d", n+1)
		}
		if raw := cell(row, ColumnTokens); raw != "" {
			tokens, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: tokens %q is not an integer", models.ErrInvalidInput, n+1, raw)
			}
			p.Tokens = tokens
		} else {
			p.Tokens = e.counter.Count(text)
		}
		out = append(out, p)
	}
	return out, nil
}
