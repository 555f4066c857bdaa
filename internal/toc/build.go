// Package toc turns a flat heading sequence into a nested outline and renders
// it as the page's table of contents.
package toc

import (
	"github.com/dgallion1/pagetoc/internal/doctree"
)

const (
	minLevel = 1
	maxLevel = 6
)

// Build converts headings into an outline in a single pass.
//
// The stack holds the owners of the currently open lists; the owner of the
// root list is a sentinel node whose children become the outline items.
// After a heading at level L is appended the stack length is L.
func Build(headings []doctree.Heading) *doctree.Outline {
	root := &doctree.Node{}
	stack := []*doctree.Node{root}

	for _, h := range headings {
		if !h.Linkable() {
			continue
		}
		level := clampLevel(h.Level)

		for len(stack) > level {
			stack = stack[:len(stack)-1]
		}

		for len(stack) < level {
			top := stack[len(stack)-1]
			switch {
			case len(top.Children) > 0:
				stack = append(stack, top.Children[len(top.Children)-1])
			case top == root:
				// Skipped levels before any heading flatten under the root.
				stack = append(stack, root)
			default:
				synth := &doctree.Node{Level: len(stack), Synthetic: true}
				top.Children = append(top.Children, synth)
				stack = append(stack, synth)
			}
		}

		top := stack[len(stack)-1]
		top.Children = append(top.Children, &doctree.Node{
			Level: level,
			ID:    h.ID,
			Text:  h.Text,
		})
	}

	return &doctree.Outline{Items: root.Children}
}

func clampLevel(level int) int {
	if level < minLevel {
		return minLevel
	}
	if level > maxLevel {
		return maxLevel
	}
	return level
}
