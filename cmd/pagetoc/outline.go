package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/pagetoc/internal/doctree"
	"github.com/dgallion1/pagetoc/internal/parser"
	"github.com/dgallion1/pagetoc/internal/toc"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var outlineCmd = &cobra.Command{
	Use:   "outline <file>",
	Short: "Print the heading outline of a document",
	Long: `Reads headings from an HTML, Markdown, DOCX or PDF file and prints the
outline the table of contents would be built from. HTML is read only inside
the configured content region; every format honours the configured levels.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runOutline,
}

func init() {
	outlineCmd.Flags().StringP("format", "f", "tree", "output format: tree, json or yaml")
	rootCmd.AddCommand(outlineCmd)
}

func runOutline(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	path := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := cfg.ParserOptions()
	if err != nil {
		return err
	}
	p, err := parser.ForFileWith(path, opts)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := p.Parse(f, path)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return writeOutline(cmd.OutOrStdout(), doc.Title, toc.Build(doc.Headings), format)
}

type outlineReport struct {
	Title   string           `json:"title" yaml:"title"`
	Links   int              `json:"links" yaml:"links"`
	Outline *doctree.Outline `json:"outline" yaml:"outline"`
}

func writeOutline(w io.Writer, title string, outline *doctree.Outline, format string) error {
	switch format {
	case "tree":
		fmt.Fprintln(w, title)
		outline.Walk(func(n *doctree.Node, depth int) {
			indent := strings.Repeat("  ", depth+1)
			switch {
			case n.Synthetic:
				fmt.Fprintf(w, "%s-\n", indent)
			default:
				fmt.Fprintf(w, "%s%s (#%s)\n", indent, n.Text, n.ID)
			}
		})
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outlineReport{Title: title, Links: outline.Links(), Outline: outline})
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(outlineReport{Title: title, Links: outline.Links(), Outline: outline}); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q: must be tree, json or yaml", format)
	}
}
