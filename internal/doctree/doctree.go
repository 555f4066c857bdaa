package doctree

// Heading is a single heading found in a document, in document order.
type Heading struct {
	Level int    // 1-6
	ID    string // Anchor identifier (empty when the heading is not linkable)
	Text  string
}

// Linkable reports whether the heading can be targeted by a link.
func (h Heading) Linkable() bool {
	return h.ID != ""
}

// Document is the heading view of a source file.
type Document struct {
	Title    string    // Document title (from metadata or filename)
	Headings []Heading // Headings in document order
}

// Node is one entry of an outline.
type Node struct {
	Level     int     `json:"level" yaml:"level"`
	ID        string  `json:"id,omitempty" yaml:"id,omitempty"`
	Text      string  `json:"text,omitempty" yaml:"text,omitempty"`
	Synthetic bool    `json:"synthetic,omitempty" yaml:"synthetic,omitempty"` // Intermediate level with no link
	Children  []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// Outline is the nested tree built from a heading sequence.
type Outline struct {
	Items []*Node `json:"items" yaml:"items"`
}

// Empty reports whether the outline has no items.
func (o *Outline) Empty() bool {
	return o == nil || len(o.Items) == 0
}

// Links counts the linkable nodes in the outline.
func (o *Outline) Links() int {
	if o == nil {
		return 0
	}
	return countLinks(o.Items)
}

func countLinks(nodes []*Node) int {
	n := 0
	for _, node := range nodes {
		if !node.Synthetic {
			n++
		}
		n += countLinks(node.Children)
	}
	return n
}

// Walk visits every node depth-first in document order. depth is 0 for
// top-level items.
func (o *Outline) Walk(fn func(n *Node, depth int)) {
	if o == nil {
		return
	}
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(o.Items, 0)
}
