package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/dgallion1/pagetoc/internal/page"
	"github.com/dgallion1/pagetoc/internal/parser"
	"github.com/dgallion1/pagetoc/internal/toc"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides (PAGETOC_PORT -> port).
const EnvPrefix = "PAGETOC_"

type Config struct {
	Port        string   `koanf:"port"`
	APIKey      string   `koanf:"api_key"`
	CORSOrigins []string `koanf:"cors_origins"` // empty disables CORS headers

	// Where the TOC comes from and where it goes.
	ContentSelector string `koanf:"content_selector"`
	ActiveSelector  string `koanf:"active_selector"`
	ItemSelector    string `koanf:"item_selector"`
	HostSelector    string `koanf:"host_selector"`
	Levels          []int  `koanf:"levels"` // empty means 1-6
	AssignIDs       bool   `koanf:"assign_ids"`

	// Rendering
	Title   string `koanf:"title"`
	ListTag string `koanf:"list_tag"`

	// Worker pool
	WorkerCount        int `koanf:"worker_count"`
	MaxQueueSize       int `koanf:"max_queue_size"`
	MaxConcurrentPages int `koanf:"max_concurrent_pages"`

	// Upload limits
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `koanf:"job_ttl"`

	StatsWindow time.Duration `koanf:"stats_window"`
}

func DefaultConfig() *Config {
	return &Config{
		Port:               "8090",
		ContentSelector:    ".main-content",
		ActiveSelector:     ".side-bar .nav-list-link.active",
		ItemSelector:       ".nav-list-item",
		ListTag:            "ul",
		WorkerCount:        4,
		MaxQueueSize:       100,
		MaxConcurrentPages: 8,
		MaxUploadBytes:     10 << 20, // 10MB
		JobTTL:             time.Hour,
		StatsWindow:        time.Hour,
	}
}

// Load starts from defaults, reads the YAML file at path if it exists, then
// overlays PAGETOC_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentPages <= 0 {
		cfg.MaxConcurrentPages = 8
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = time.Hour
	}

	return cfg, nil
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	for _, l := range c.Levels {
		if l < 1 || l > 6 {
			return fmt.Errorf("invalid heading level %d: must be 1-6", l)
		}
	}
	if c.ListTag != "ul" && c.ListTag != "ol" {
		return fmt.Errorf("invalid list_tag %q: must be ul or ol", c.ListTag)
	}
	if _, err := page.NewBuilder(c.BuilderOptions()); err != nil {
		return err
	}
	return nil
}

// BuilderOptions maps the config onto page builder options.
func (c *Config) BuilderOptions() page.Options {
	return page.Options{
		ContentSelector: c.ContentSelector,
		ActiveSelector:  c.ActiveSelector,
		ItemSelector:    c.ItemSelector,
		HostSelector:    c.HostSelector,
		Levels:          c.Levels,
		AssignIDs:       c.AssignIDs,
		Render: toc.Options{
			Title:   c.Title,
			ListTag: c.ListTag,
		},
	}
}

// NewBuilder returns a page builder for this config.
func (c *Config) NewBuilder() (*page.Builder, error) {
	return page.NewBuilder(c.BuilderOptions())
}

// ParserOptions restricts heading sources to the content region and levels
// the builder scans, so outlines match the injected TOC.
func (c *Config) ParserOptions() (parser.Options, error) {
	region, err := cascadia.Compile(c.ContentSelector)
	if err != nil {
		return parser.Options{}, fmt.Errorf("compile content selector %q: %w", c.ContentSelector, err)
	}
	return parser.Options{Region: region, Levels: c.Levels}, nil
}
