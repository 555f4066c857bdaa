package toc

import (
	"strconv"

	"github.com/dgallion1/pagetoc/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fixed identifiers of the rendered container.
const (
	ContainerID = "page-toc-nav-container"
	NavID       = "page-toc-nav"
)

// Options controls rendering.
type Options struct {
	Title   string // Optional static label above the list
	ListTag string // "ul" (default) or "ol"
}

// Render builds the container subtree for the outline. It returns nil when the
// outline is empty.
func Render(outline *doctree.Outline, opts Options) *html.Node {
	if outline.Empty() {
		return nil
	}
	listAtom := atom.Ul
	if opts.ListTag == "ol" {
		listAtom = atom.Ol
	}

	container := element(atom.Div, "page-toc-container")
	setAttr(container, "id", ContainerID)

	if opts.Title != "" {
		h := element(atom.H3, "text-delta")
		h.AppendChild(&html.Node{Type: html.TextNode, Data: opts.Title})
		container.AppendChild(h)
	}

	nav := element(atom.Nav, "")
	setAttr(nav, "id", NavID)
	setAttr(nav, "aria-label", "On this page")
	container.AppendChild(nav)

	rootList := element(listAtom, "nav-list page-toc-root")
	nav.AppendChild(rootList)
	renderItems(rootList, outline.Items, listAtom, true)

	return container
}

func renderItems(list *html.Node, nodes []*doctree.Node, listAtom atom.Atom, top bool) {
	placement := "nav-list-item-nested"
	if top {
		placement = "nav-list-item-top"
	}
	for _, n := range nodes {
		var li *html.Node
		if n.Synthetic {
			li = element(atom.Li, "nav-list-item nav-list-item-synthetic "+placement)
		} else {
			li = element(atom.Li, "nav-list-item nav-list-item-level-"+strconv.Itoa(n.Level)+" "+placement)
			a := element(atom.A, "nav-list-link")
			setAttr(a, "href", "#"+n.ID)
			a.AppendChild(&html.Node{Type: html.TextNode, Data: n.Text})
			li.AppendChild(a)
		}
		if len(n.Children) > 0 {
			child := element(listAtom, "nav-list nav-list-child-list nav-list-level-"+strconv.Itoa(n.Children[0].Level))
			renderItems(child, n.Children, listAtom, false)
			li.AppendChild(child)
		}
		list.AppendChild(li)
	}
}

func element(a atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if class != "" {
		setAttr(n, "class", class)
	}
	return n
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
