package toc

import (
	"strings"
	"testing"

	"github.com/dgallion1/pagetoc/internal/doctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func sidebar(t *testing.T) (*html.Node, *html.Node) {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(
		`<ul id="nav"><li id="first"><a>One</a></li><li id="second"><a>Two</a></li></ul>`))
	require.NoError(t, err)

	var find func(n *html.Node, id string) *html.Node
	find = func(n *html.Node, id string) *html.Node {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if f := find(c, id); f != nil {
				return f
			}
		}
		return nil
	}
	return doc, find(doc, "first")
}

func TestPrepare_InsertsAfterActiveItem(t *testing.T) {
	doc, first := sidebar(t)
	plan := Prepare([]doctree.Heading{h(2, "A", "a")}, LocatorFunc(func() *html.Node { return first }), Options{})

	require.NotNil(t, plan.Container)
	require.True(t, plan.Attachable())
	require.True(t, plan.Apply())

	assert.Same(t, plan.Container, first.NextSibling)
	assert.Equal(t, "li", plan.Container.NextSibling.Data)
	got := renderString(t, doc)
	assert.Less(t, strings.Index(got, ContainerID), strings.Index(got, `id="second"`))

	// A plan applies at most once.
	assert.False(t, plan.Apply())
	assert.Equal(t, 1, strings.Count(renderString(t, doc), ContainerID))
}

func TestPrepare_NoActiveEntryLeavesContainerUnattached(t *testing.T) {
	doc, _ := sidebar(t)
	before := renderString(t, doc)

	plan := Prepare([]doctree.Heading{h(2, "A", "a")}, LocatorFunc(func() *html.Node { return nil }), Options{})
	require.NotNil(t, plan.Container)
	assert.False(t, plan.Attachable())
	assert.False(t, plan.Apply())
	assert.Nil(t, plan.Container.Parent)
	assert.Equal(t, before, renderString(t, doc))
}

func TestPrepare_NilLocator(t *testing.T) {
	plan := Prepare([]doctree.Heading{h(2, "A", "a")}, nil, Options{})
	assert.NotNil(t, plan.Container)
	assert.Nil(t, plan.Anchor)
}

func TestPrepare_EmptyOutlineSkipsLocator(t *testing.T) {
	called := false
	plan := Prepare([]doctree.Heading{h(2, "A", "")}, LocatorFunc(func() *html.Node {
		called = true
		return nil
	}), Options{})

	assert.False(t, called)
	assert.True(t, plan.Outline.Empty())
	assert.Nil(t, plan.Container)
	assert.False(t, plan.Apply())
}
