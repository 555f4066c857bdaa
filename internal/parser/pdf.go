package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/pagetoc/internal/anchor"
	"github.com/dgallion1/pagetoc/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser reads the document outline (bookmarks) of a PDF. Bookmark depth
// becomes the heading level, capped at 6.
type PDFParser struct{}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// ledongthuc/pdf opens by path, so we write to a temp file.
	tmp, err := os.CreateTemp("", "pagetoc-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	f, reader, err := pdflib.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	doc := &doctree.Document{Title: trimExt(filename)}
	doc.Headings = flattenOutline(reader.Outline().Child, 1, nil)
	anchor.Assign(doc.Headings)

	return doc, nil
}

func flattenOutline(entries []pdflib.Outline, level int, out []doctree.Heading) []doctree.Heading {
	for _, e := range entries {
		title := strings.TrimSpace(e.Title)
		if title != "" {
			out = append(out, doctree.Heading{Level: min(level, 6), Text: title})
		}
		out = flattenOutline(e.Child, level+1, out)
	}
	return out
}
