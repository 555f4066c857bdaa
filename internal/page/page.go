// Package page applies the table of contents to a parsed HTML page.
package page

import (
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/dgallion1/pagetoc/internal/anchor"
	"github.com/dgallion1/pagetoc/internal/doctree"
	"github.com/dgallion1/pagetoc/internal/toc"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is one loaded HTML document.
type Page struct {
	doc   *html.Node
	built bool
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Page{doc: doc}, nil
}

// Root returns the document node.
func (p *Page) Root() *html.Node {
	return p.doc
}

// Render writes the page back out as HTML.
func (p *Page) Render(w io.Writer) error {
	return html.Render(w, p.doc)
}

// Title returns the text of the <title> element, if any.
func (p *Page) Title() string {
	if n := cascadia.Query(p.doc, titleSel); n != nil {
		return TextContent(n)
	}
	return ""
}

var titleSel = cascadia.MustCompile("title")

// HasTOC reports whether the page already carries a TOC container.
func (p *Page) HasTOC() bool {
	return findByID(p.doc, toc.ContainerID) != nil
}

// ContentRegion returns the first element matching sel, or nil.
func (p *Page) ContentRegion(sel cascadia.Selector) *html.Node {
	return sel.MatchFirst(p.doc)
}

// Headings scans region for h1-h6 in document order, keeping only the given
// levels (all levels when levels is empty).
func Headings(region *html.Node, levels []int) []doctree.Heading {
	if region == nil {
		return nil
	}
	allowed := levelSet(levels)
	var out []doctree.Heading
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := HeadingLevel(n.DataAtom); level > 0 {
				if allowed[level] {
					out = append(out, doctree.Heading{
						Level: level,
						ID:    attr(n, "id"),
						Text:  TextContent(n),
					})
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(region)
	return out
}

// AssignIDs gives every heading element in region without an id a unique
// slug, written back to the element.
func AssignIDs(region *html.Node, levels []int) int {
	if region == nil {
		return 0
	}
	allowed := levelSet(levels)
	a := anchor.NewAssigner()
	eachElement(rootOf(region), func(n *html.Node) {
		a.Reserve(attr(n, "id"))
	})

	var targets []*html.Node
	eachElement(region, func(n *html.Node) {
		if level := HeadingLevel(n.DataAtom); level > 0 && allowed[level] && attr(n, "id") == "" {
			targets = append(targets, n)
		}
	})

	for _, n := range targets {
		n.Attr = append(n.Attr, html.Attribute{Key: "id", Val: a.Next(TextContent(n))})
	}
	return len(targets)
}

// ActiveItem finds the first element matching active and returns its closest
// ancestor-or-self matching item, or nil.
func (p *Page) ActiveItem(active, item cascadia.Selector) *html.Node {
	entry := active.MatchFirst(p.doc)
	if entry == nil {
		return nil
	}
	return Closest(entry, item)
}

// Closest walks from n up through its ancestors and returns the first node
// matching sel.
func Closest(n *html.Node, sel cascadia.Selector) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && sel.Match(n) {
			return n
		}
	}
	return nil
}

// Remove detaches every element matching sel.
func (p *Page) Remove(sel cascadia.Selector) int {
	nodes := sel.MatchAll(p.doc)
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return len(nodes)
}

// HeadingLevel returns 1-6 for heading elements, 0 otherwise.
func HeadingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

// TextContent returns the concatenated, whitespace-collapsed text under n.
func TextContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func levelSet(levels []int) map[int]bool {
	set := make(map[int]bool, 6)
	for _, l := range levels {
		set[l] = true
	}
	if len(set) == 0 {
		for l := 1; l <= 6; l++ {
			set[l] = true
		}
	}
	return set
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findByID(c, id); f != nil {
			return f
		}
	}
	return nil
}

func eachElement(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		eachElement(c, fn)
	}
}

func rootOf(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}
