package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/dgallion1/pagetoc/internal/page"
	"github.com/dgallion1/pagetoc/internal/site"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var injectCmd = &cobra.Command{
	Use:   "inject [patterns...]",
	Short: "Insert a table of contents into site pages",
	Long: `Rewrites every page matched by the glob patterns (default **/*.html and
**/*.htm, relative to --root). Patterns support ** for any number of
directories. Pages that already carry a table of contents are left alone.`,
	RunE: runInject,
}

func init() {
	injectCmd.Flags().String("root", ".", "site root the patterns are relative to")
	injectCmd.Flags().String("out", "", "write pages under this directory instead of in place")
	injectCmd.Flags().StringSlice("exclude", nil, "glob patterns to skip")
	injectCmd.Flags().Bool("dry-run", false, "report what would change without writing")
	rootCmd.AddCommand(injectCmd)
}

func runInject(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	builder, err := cfg.NewBuilder()
	if err != nil {
		return err
	}

	root, _ := cmd.Flags().GetString("root")
	out, _ := cmd.Flags().GetString("out")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	in := &site.Injector{
		Builder: builder,
		Root:    root,
		Out:     out,
		Exclude: exclude,
		DryRun:  dryRun,
		Log:     newLogger(),
	}
	files, err := in.Match(args)
	if err != nil {
		return err
	}

	// The bar would interleave with debug logs.
	var bar *progressbar.ProgressBar
	if !verbose && os.Getenv("CI") == "" && len(files) > 1 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Injecting"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		in.OnFile = func(site.FileResult) { _ = bar.Add(1) }
	}

	sum := in.Process(files)
	if bar != nil {
		_ = bar.Finish()
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%d pages, %d written, %d failed\n", len(sum.Files), sum.Written, sum.Failed)
	statuses := make([]string, 0, len(sum.ByStatus))
	for s := range sum.ByStatus {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(w, "  %-12s %d\n", s, sum.ByStatus[page.Status(s)])
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d pages failed", sum.Failed)
	}
	return nil
}
