package toc

import (
	"github.com/dgallion1/pagetoc/internal/doctree"
	"golang.org/x/net/html"
)

// Locator finds the list item that encloses the active sidebar entry. It
// returns nil when the page has no active entry.
type Locator interface {
	ActiveItem() *html.Node
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func() *html.Node

func (f LocatorFunc) ActiveItem() *html.Node { return f() }

// Plan is the outcome of building a TOC for a page, before anything in the
// page is touched.
type Plan struct {
	Outline   *doctree.Outline
	Container *html.Node // nil when the outline is empty
	Anchor    *html.Node // container goes right after this node; nil = unattached
}

// Prepare builds and renders the outline and decides where it goes. The
// locator is only consulted when there is something to insert.
func Prepare(headings []doctree.Heading, loc Locator, opts Options) Plan {
	outline := Build(headings)
	plan := Plan{Outline: outline}
	if outline.Empty() {
		return plan
	}
	plan.Container = Render(outline, opts)
	if loc != nil {
		if anchor := loc.ActiveItem(); anchor != nil && anchor.Parent != nil {
			plan.Anchor = anchor
		}
	}
	return plan
}

// Attachable reports whether Apply would insert the container.
func (p Plan) Attachable() bool {
	return p.Container != nil && p.Anchor != nil && p.Container.Parent == nil
}

// Apply inserts the container as the next sibling of the anchor. It reports
// whether the page was modified.
func (p Plan) Apply() bool {
	if !p.Attachable() {
		return false
	}
	p.Anchor.Parent.InsertBefore(p.Container, p.Anchor.NextSibling)
	return true
}
