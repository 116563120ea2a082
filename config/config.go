package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Collection modes.
const (
	ModeSequential = "sequential"
	ModeConcurrent = "concurrent"
)

// UnstableConcurrency is the width above which the shared browser session
// becomes contended.
const UnstableConcurrency = 5

// Config holds collector configuration.
type Config struct {
	SourceURL     string `yaml:"source_url"`
	MaxItems      int    `yaml:"max_items"`
	UseVision     bool   `yaml:"use_vision"`
	Mode          string `yaml:"mode"` // sequential or concurrent
	MaxConcurrent int    `yaml:"max_concurrent"`
	OutputDir     string `yaml:"output_dir"`
	ExportCSV     bool   `yaml:"export_csv"`

	DetailAttempts int           `yaml:"detail_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	ItemPause      time.Duration `yaml:"item_pause"`
	SettleDelay    time.Duration `yaml:"settle_delay"`

	// InvocationTimeout bounds one agent call. Zero means unbounded.
	InvocationTimeout time.Duration `yaml:"invocation_timeout"`

	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	APIKey      string  `yaml:"-"`

	Headless          bool          `yaml:"headless"`
	BrowserBin        string        `yaml:"browser_bin"`
	BrowserFlags      []string      `yaml:"browser_flags"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	MaxPageChars      int           `yaml:"max_page_chars"`
	OverlaySelector   string        `yaml:"overlay_selector"`

	ProbeLinks     bool          `yaml:"probe_links"`
	LinkPattern    string        `yaml:"link_pattern"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	ProbeCacheSize int           `yaml:"probe_cache_size"`
	ProbeCacheTTL  time.Duration `yaml:"probe_cache_ttl"`
	UserAgent      string        `yaml:"user_agent"`

	MetricsAddr string `yaml:"metrics_addr"`
	Verbose     bool   `yaml:"verbose"`
}

// DefaultBrowserFlags trims Chromium background work while keeping a visible window usable.
var DefaultBrowserFlags = []string{
	"--disable-gpu",
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-background-timer-throttling",
	"--disable-backgrounding-occluded-windows",
	"--disable-renderer-backgrounding",
	"--disable-features=TranslateUI",
	"--no-first-run",
	"--no-default-browser-check",
}

// DefaultConfig returns conservative defaults for the explore feed.
func DefaultConfig() *Config {
	browserFlags := make([]string, len(DefaultBrowserFlags))
	copy(browserFlags, DefaultBrowserFlags)

	return &Config{
		SourceURL:         "https://www.xiaohongshu.com/explore",
		MaxItems:          3,
		UseVision:         false,
		Mode:              ModeSequential,
		MaxConcurrent:     2,
		OutputDir:         "collected_posts",
		ExportCSV:         false,
		DetailAttempts:    3,
		RetryDelay:        2 * time.Second,
		ItemPause:         1 * time.Second,
		SettleDelay:       1 * time.Second,
		InvocationTimeout: 5 * time.Minute,
		Model:             "gemini-flash-latest",
		Temperature:       0.7,
		Headless:          false,
		BrowserFlags:      browserFlags,
		NavigationTimeout: 30 * time.Second,
		MaxPageChars:      20000,
		OverlaySelector:   ".login-container, .reds-mask",
		ProbeLinks:        false,
		LinkPattern:       `/explore/[0-9a-f]+`,
		ProbeTimeout:      10 * time.Second,
		ProbeCacheSize:    64,
		ProbeCacheTTL:     10 * time.Minute,
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:           false,
	}
}

// LoadFile overlays the YAML document at path onto cfg.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return nil
}

// Concurrent reports whether details are collected with the bounded pool.
func (c *Config) Concurrent() bool {
	return c.Mode == ModeConcurrent
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.SourceURL == "" {
		return fmt.Errorf("source URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.SourceURL)
	if err != nil {
		return fmt.Errorf("invalid source URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("source URL must include a host")
	}

	if c.MaxItems < 0 {
		return fmt.Errorf("max items cannot be negative")
	}
	if c.Mode != ModeSequential && c.Mode != ModeConcurrent {
		return fmt.Errorf("mode must be sequential or concurrent")
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max concurrent must be positive")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.DetailAttempts <= 0 {
		return fmt.Errorf("detail attempts must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.ItemPause < 0 {
		return fmt.Errorf("item pause cannot be negative")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}
	if c.InvocationTimeout < 0 {
		return fmt.Errorf("invocation timeout cannot be negative")
	}
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.MaxPageChars <= 0 {
		return fmt.Errorf("max page chars must be positive")
	}
	if c.ProbeLinks {
		if _, err := regexp.Compile(c.LinkPattern); err != nil {
			return fmt.Errorf("invalid link pattern: %w", err)
		}
		if c.ProbeTimeout <= 0 {
			return fmt.Errorf("probe timeout must be positive")
		}
		if c.ProbeCacheSize <= 0 {
			return fmt.Errorf("probe cache size must be positive")
		}
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
