package main

import (
	"log/slog"
	"os"

	"github.com/dgallion1/pagetoc/internal/config"
	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pagetoc",
	Short: "Add per-page tables of contents to generated documentation sites",
	Long: `pagetoc scans the headings of each page's main content, builds a nested
outline from them and inserts it into the sidebar right after the entry for
the current page.`,
	Version:      Version,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultConfig := os.Getenv("PAGETOC_CONFIG")
	if defaultConfig == "" {
		defaultConfig = ".pagetoc.yml"
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfig, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
