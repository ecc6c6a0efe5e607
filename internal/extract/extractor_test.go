package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/tanya/internal/models"
)

const wordDocOpen = `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
const wordDocClose = `</w:body></w:document>`

func wordPara(text string) string {
	return `<w:p w:rsidR="00AB"><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

func wordHeading(text string) string {
	return `<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>` + text + `</w:t></w:r></w:p>`
}

// minimalDocx returns .docx zip bytes with word/document.xml holding the given body XML.
func minimalDocx(body string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(wordDocOpen + body + wordDocClose))
	_ = w.Close()
	return buf.Bytes()
}

// minimalDocxWithContentTypes returns a .docx zip with [Content_Types].xml pointing to a custom document path.
func minimalDocxWithContentTypes(body, docPath string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, _ := w.Create("[Content_Types].xml")
	_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override PartName="/` + docPath + `" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`))
	fw, _ := w.Create(docPath)
	_, _ = fw.Write([]byte(wordDocOpen + body + wordDocClose))
	_ = w.Close()
	return buf.Bytes()
}

func TestPassagesBytes_docxParagraphs(t *testing.T) {
	body := wordPara("Intro paragraph.") +
		wordHeading("Installation") +
		wordPara("Run the installer.") +
		`<w:p/>` +
		`<w:p><w:r><w:t>Split</w:t></w:r><w:r><w:tab/><w:t>runs</w:t></w:r></w:p>` +
		wordHeading("Usage") +
		wordPara("Call the API.")

	e := NewExtractor()
	got, err := e.PassagesBytes(minimalDocx(body), ".docx")
	if err != nil {
		t.Fatalf("PassagesBytes: %v", err)
	}
	want := []models.Passage{
		{ID: "s1-p1", Text: "Intro paragraph.", Tokens: 2},
		{ID: "s2-p1", Text: "Run the installer.", Tokens: 3, Locator: "Installation"},
		{ID: "s2-p2", Text: "Split runs", Tokens: 2, Locator: "Installation"},
		{ID: "s3-p1", Text: "Call the API.", Tokens: 3, Locator: "Usage"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d passages, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("passage %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if err := models.ValidatePassages(got); err != nil {
		t.Errorf("extracted passages must be valid: %v", err)
	}
}

func TestPassagesBytes_docxHeadingFirst(t *testing.T) {
	body := wordHeading("Title") + wordPara("Body.")
	got, err := NewExtractor().PassagesBytes(minimalDocx(body), ".docx")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "s1-p1" || got[0].Locator != "Title" {
		t.Errorf("got %+v", got)
	}
}

func TestPassagesBytes_docxWithDocument2(t *testing.T) {
	content := minimalDocxWithContentTypes(wordPara("Content from document2"), "word/document2.xml")
	got, err := NewExtractor().PassagesBytes(content, ".docx")
	if err != nil {
		t.Fatalf("PassagesBytes: %v", err)
	}
	if len(got) != 1 || got[0].Text != "Content from document2" {
		t.Errorf("got %+v", got)
	}
}

func TestPassagesBytes_docxContentTypesReversedOrder(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, _ := w.Create("[Content_Types].xml")
	_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml" PartName="/word/document3.xml"/>
</Types>`))
	fw, _ := w.Create("word/document3.xml")
	_, _ = fw.Write([]byte(wordDocOpen + wordPara("Reversed order test") + wordDocClose))
	_ = w.Close()

	got, err := NewExtractor().PassagesBytes(buf.Bytes(), ".docx")
	if err != nil {
		t.Fatalf("PassagesBytes: %v", err)
	}
	if len(got) != 1 || got[0].Text != "Reversed order test" {
		t.Errorf("got %+v", got)
	}
}

func TestPassagesBytes_docxErrors(t *testing.T) {
	e := NewExtractor()
	if _, err := e.PassagesBytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for invalid docx")
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, _ = w.Create("other.xml")
	_ = w.Close()
	if _, err := e.PassagesBytes(buf.Bytes(), ".docx"); err == nil {
		t.Error("expected error when document.xml is missing")
	}
}

func TestPassagesBytes_plain(t *testing.T) {
	got, err := NewExtractor().PassagesBytes([]byte("first line\n\n  second   line \n"), ".txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].ID != "s1-p2" || got[1].Text != "second line" {
		t.Errorf("got %+v", got)
	}
}

func TestPassagesBytes_unsupported(t *testing.T) {
	_, err := NewExtractor().PassagesBytes([]byte("x"), ".doc")
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPassages_docxFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.docx")
	if err := os.WriteFile(path, minimalDocx(wordPara("one")+wordPara("two")), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().Passages(path)
	if err != nil {
		t.Fatalf("Passages: %v", err)
	}
	if len(got) != 2 || got[0].Text != "one" || got[1].Text != "two" {
		t.Errorf("got %+v", got)
	}
}

func TestPassages_nonexistent(t *testing.T) {
	if _, err := NewExtractor().Passages("/nonexistent/path/file.docx"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestExtractPlain_invalidUTF8(t *testing.T) {
	got, _ := extractPlain([]byte("hello\x80world"))
	if got != "hello\uFFFDworld" {
		t.Errorf("got %q", got)
	}
}

func TestIsDocument(t *testing.T) {
	for _, ext := range []string{".docx", ".DOCX", ".pdf", ".odt", ".rtf"} {
		if !IsDocument(ext) {
			t.Errorf("%s should be accepted", ext)
		}
	}
	for _, ext := range []string{".doc", ".txt", ""} {
		if IsDocument(ext) {
			t.Errorf("%s should be rejected", ext)
		}
	}
}
