package page

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"github.com/dgallion1/pagetoc/internal/doctree"
	"github.com/dgallion1/pagetoc/internal/toc"
	"golang.org/x/net/html"
)

// Status describes what Build did to a page.
type Status string

const (
	StatusInserted   Status = "inserted"   // TOC placed after the active sidebar item
	StatusUnattached Status = "unattached" // TOC built, no active sidebar item to attach to
	StatusEmpty      Status = "empty"      // no linkable headings
	StatusNoContent  Status = "no-content" // content region not found
	StatusSkipped    Status = "skipped"    // page already has a TOC
)

// Options configures a Builder.
type Options struct {
	ContentSelector string // Region scanned for headings
	ActiveSelector  string // Active entry in the sidebar
	ItemSelector    string // Enclosing list item of the active entry
	HostSelector    string // Optional region removed when there is nothing to show
	Levels          []int  // Heading levels to include; empty means 1-6
	AssignIDs       bool   // Slug headings that have no id before scanning
	Render          toc.Options
}

// Builder runs the scan-build-apply sequence on pages.
type Builder struct {
	content cascadia.Selector
	active  cascadia.Selector
	item    cascadia.Selector
	host    cascadia.Selector

	levels    []int
	assignIDs bool
	render    toc.Options
}

// Result is the outcome of Build.
type Result struct {
	Status   Status           `json:"status"`
	Links    int              `json:"links"`
	Outline  *doctree.Outline `json:"outline,omitempty"`
	Modified bool             `json:"modified"` // page tree changed and should be written back
}

// NewBuilder compiles the selectors in opts.
func NewBuilder(opts Options) (*Builder, error) {
	b := &Builder{
		levels:    opts.Levels,
		assignIDs: opts.AssignIDs,
		render:    opts.Render,
	}
	var err error
	if b.content, err = compile("content", opts.ContentSelector); err != nil {
		return nil, err
	}
	if b.active, err = compile("active", opts.ActiveSelector); err != nil {
		return nil, err
	}
	if b.item, err = compile("item", opts.ItemSelector); err != nil {
		return nil, err
	}
	if opts.HostSelector != "" {
		if b.host, err = compile("host", opts.HostSelector); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func compile(name, sel string) (cascadia.Selector, error) {
	if sel == "" {
		return nil, fmt.Errorf("%s selector is required", name)
	}
	s, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("compile %s selector %q: %w", name, sel, err)
	}
	return s, nil
}

// Scan returns the headings of the page's content region without touching
// the page. It returns nil when the region is missing.
func (b *Builder) Scan(p *Page) []doctree.Heading {
	return Headings(p.ContentRegion(b.content), b.levels)
}

// Build adds the TOC to the page once. Later calls on the same page, or on a
// page that already contains a TOC container, are no-ops.
func (b *Builder) Build(p *Page) Result {
	if p.built || p.HasTOC() {
		p.built = true
		return Result{Status: StatusSkipped}
	}
	p.built = true

	region := p.ContentRegion(b.content)
	if region == nil {
		return Result{Status: StatusNoContent}
	}
	assigned := 0
	if b.assignIDs {
		assigned = AssignIDs(region, b.levels)
	}

	locate := toc.LocatorFunc(func() *html.Node {
		return p.ActiveItem(b.active, b.item)
	})
	plan := toc.Prepare(Headings(region, b.levels), locate, b.render)

	if plan.Outline.Empty() {
		removed := 0
		if b.host != nil {
			removed = p.Remove(b.host)
		}
		return Result{Status: StatusEmpty, Outline: plan.Outline, Modified: assigned+removed > 0}
	}

	res := Result{Links: plan.Outline.Links(), Outline: plan.Outline, Modified: assigned > 0}
	if plan.Apply() {
		res.Status = StatusInserted
		res.Modified = true
	} else {
		res.Status = StatusUnattached
	}
	return res
}
