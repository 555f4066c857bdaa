package parser

import (
	"fmt"
	"io"

	"github.com/andybalholm/cascadia"
	"github.com/dgallion1/pagetoc/internal/doctree"
	"github.com/dgallion1/pagetoc/internal/page"
)

// HTMLParser reads headings from HTML files. Only headings inside Region are
// considered; a nil Region means the <body>.
type HTMLParser struct {
	Region cascadia.Selector
	Levels []int
}

var bodySel = cascadia.MustCompile("body")

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	pg, err := page.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &doctree.Document{Title: trimExt(filename)}
	if title := pg.Title(); title != "" {
		doc.Title = title
	}

	region := p.Region
	if region == nil {
		region = bodySel
	}
	doc.Headings = page.Headings(pg.ContentRegion(region), p.Levels)
	return doc, nil
}
