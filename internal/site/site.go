// Package site adds tables of contents to the HTML pages of a generated site
// on disk.
package site

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dgallion1/pagetoc/internal/page"
)

// DefaultPatterns selects every HTML page under the root.
var DefaultPatterns = []string{"**/*.html", "**/*.htm"}

// Injector rewrites the pages under Root. With Out set, pages are written to
// the same relative path under Out instead of in place.
type Injector struct {
	Builder *page.Builder
	Root    string
	Out     string
	Exclude []string
	DryRun  bool
	Log     *slog.Logger

	// OnFile, when set, is called after each page is handled.
	OnFile func(FileResult)
}

// FileResult is the outcome for one page.
type FileResult struct {
	Path    string      `json:"path"`
	Status  page.Status `json:"status,omitempty"`
	Links   int         `json:"links"`
	Written bool        `json:"written"`
	Error   string      `json:"error,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	Files    []FileResult        `json:"files"`
	ByStatus map[page.Status]int `json:"by_status"`
	Written  int                 `json:"written"`
	Failed   int                 `json:"failed"`
}

// Match expands patterns relative to Root and drops excluded paths. The
// result is sorted and free of duplicates.
func (in *Injector) Match(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	fsys := os.DirFS(in.Root)
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || in.excluded(m) {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (in *Injector) excluded(rel string) bool {
	for _, pattern := range in.Exclude {
		if ok, err := doublestar.Match(filepath.ToSlash(pattern), rel); err == nil && ok {
			return true
		}
	}
	return false
}

// Run processes every page matched by patterns. Per-file failures are
// recorded in the summary; only a bad pattern aborts the run.
func (in *Injector) Run(patterns []string) (*Summary, error) {
	files, err := in.Match(patterns)
	if err != nil {
		return nil, err
	}
	return in.Process(files), nil
}

// Process handles the given root-relative page paths in order.
func (in *Injector) Process(files []string) *Summary {
	sum := &Summary{ByStatus: make(map[page.Status]int)}
	for _, rel := range files {
		res := in.processFile(rel)
		if res.Error != "" {
			sum.Failed++
			in.logger().Warn("page failed", "path", rel, "error", res.Error)
		} else {
			sum.ByStatus[res.Status]++
			in.logger().Debug("page processed", "path", rel, "status", res.Status, "links", res.Links)
		}
		if res.Written {
			sum.Written++
		}
		sum.Files = append(sum.Files, res)
		if in.OnFile != nil {
			in.OnFile(res)
		}
	}
	return sum
}

func (in *Injector) processFile(rel string) FileResult {
	res := FileResult{Path: rel}
	src := filepath.Join(in.Root, filepath.FromSlash(rel))

	data, err := os.ReadFile(src)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	p, err := page.Parse(bytes.NewReader(data))
	if err != nil {
		res.Error = err.Error()
		return res
	}

	built := in.Builder.Build(p)
	res.Status = built.Status
	res.Links = built.Links

	dst := src
	if in.Out != "" {
		dst = filepath.Join(in.Out, filepath.FromSlash(rel))
	} else if !built.Modified {
		return res
	}
	if in.DryRun {
		return res
	}

	var buf bytes.Buffer
	if built.Modified {
		if err := p.Render(&buf); err != nil {
			res.Error = fmt.Sprintf("render: %s", err)
			return res
		}
	} else {
		buf.Write(data)
	}
	if err := writeFile(dst, buf.Bytes()); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Written = true
	return res
}

func (in *Injector) logger() *slog.Logger {
	if in.Log == nil {
		return slog.Default()
	}
	return in.Log
}

// writeFile replaces path atomically, creating parent directories as needed.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pagetoc-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
