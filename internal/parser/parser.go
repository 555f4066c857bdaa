package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/dgallion1/pagetoc/internal/doctree"
)

// Parser extracts the heading sequence of a document.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// SupportedExtensions lists file extensions headings can be read from.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// Options narrows what a parser reports.
type Options struct {
	Region cascadia.Selector // HTML content region; nil means <body>
	Levels []int             // Heading levels to keep; empty means 1-6
}

// ForFileWith is ForFile restricted to opts. HTML is scanned only inside
// opts.Region; every format drops headings outside opts.Levels.
func ForFileWith(filename string, opts Options) (Parser, error) {
	p, err := ForFile(filename)
	if err != nil {
		return nil, err
	}
	if hp, ok := p.(*HTMLParser); ok {
		hp.Region = opts.Region
		hp.Levels = opts.Levels
		return hp, nil
	}
	if len(opts.Levels) == 0 {
		return p, nil
	}
	return &levelFilter{next: p, levels: opts.Levels}, nil
}

type levelFilter struct {
	next   Parser
	levels []int
}

func (f *levelFilter) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	doc, err := f.next.Parse(r, filename)
	if err != nil {
		return nil, err
	}
	keep := make(map[int]bool, len(f.levels))
	for _, l := range f.levels {
		keep[l] = true
	}
	kept := doc.Headings[:0]
	for _, h := range doc.Headings {
		if keep[h.Level] {
			kept = append(kept, h)
		}
	}
	doc.Headings = kept
	return doc, nil
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func trimExt(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
