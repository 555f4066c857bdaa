// Package anchor assigns identifiers to headings that have none.
package anchor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/pagetoc/internal/doctree"
)

const fallbackSlug = "section"

var (
	nonSlug    = regexp.MustCompile(`[^a-z0-9_-]+`)
	repeatDash = regexp.MustCompile(`-+`)
)

// Slugify converts heading text to an anchor-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlug.ReplaceAllString(s, "-")
	s = repeatDash.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 64 {
		s = strings.TrimRight(s[:64], "-")
	}
	return s
}

// Assigner hands out unique identifiers within one document.
type Assigner struct {
	used map[string]bool
}

func NewAssigner() *Assigner {
	return &Assigner{used: make(map[string]bool)}
}

// Reserve marks an existing identifier as taken.
func (a *Assigner) Reserve(id string) {
	if id != "" {
		a.used[id] = true
	}
}

// Next returns a unique identifier derived from text.
func (a *Assigner) Next(text string) string {
	base := Slugify(text)
	if base == "" {
		base = fallbackSlug
	}
	id := base
	for i := 1; a.used[id]; i++ {
		id = base + "-" + strconv.Itoa(i)
	}
	a.used[id] = true
	return id
}

// Assign fills in missing identifiers in place. Identifiers already present
// are kept and never handed out again.
func Assign(headings []doctree.Heading) {
	a := NewAssigner()
	for _, h := range headings {
		a.Reserve(h.ID)
	}
	for i := range headings {
		if headings[i].ID == "" {
			headings[i].ID = a.Next(headings[i].Text)
		}
	}
}
