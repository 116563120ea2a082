package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero max concurrent",
			mutate: func(cfg *Config) {
				cfg.MaxConcurrent = 0
			},
			wantErr: "max concurrent",
		},
		{
			name: "negative max items",
			mutate: func(cfg *Config) {
				cfg.MaxItems = -1
			},
			wantErr: "max items",
		},
		{
			name: "empty source url",
			mutate: func(cfg *Config) {
				cfg.SourceURL = ""
			},
			wantErr: "source URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.SourceURL = "http://"
			},
			wantErr: "source URL",
		},
		{
			name: "unknown mode",
			mutate: func(cfg *Config) {
				cfg.Mode = "parallel"
			},
			wantErr: "mode",
		},
		{
			name: "no detail attempts",
			mutate: func(cfg *Config) {
				cfg.DetailAttempts = 0
			},
			wantErr: "detail attempts",
		},
		{
			name: "negative retry delay",
			mutate: func(cfg *Config) {
				cfg.RetryDelay = -1 * time.Second
			},
			wantErr: "retry delay",
		},
		{
			name: "negative invocation timeout",
			mutate: func(cfg *Config) {
				cfg.InvocationTimeout = -time.Minute
			},
			wantErr: "invocation timeout",
		},
		{
			name: "bad link pattern",
			mutate: func(cfg *Config) {
				cfg.ProbeLinks = true
				cfg.LinkPattern = "("
			},
			wantErr: "link pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.DetailAttempts != 3 {
		t.Fatalf("detail attempts = %d, want 3", cfg.DetailAttempts)
	}
	if cfg.Concurrent() {
		t.Fatalf("default mode should be sequential")
	}
}

func TestDefaultConfigFlagsAreCopied(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BrowserFlags[0] = "--changed"
	if DefaultBrowserFlags[0] != "--disable-gpu" {
		t.Fatalf("default flags mutated through config: %v", DefaultBrowserFlags)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector.yaml")
	doc := "source_url: https://example.test/feed\nmax_items: 7\nmode: concurrent\nmax_concurrent: 3\nretry_delay: 500ms\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(cfg, path); err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.SourceURL != "https://example.test/feed" || cfg.MaxItems != 7 {
		t.Fatalf("unexpected config: url=%q items=%d", cfg.SourceURL, cfg.MaxItems)
	}
	if !cfg.Concurrent() || cfg.MaxConcurrent != 3 {
		t.Fatalf("mode=%q width=%d, want concurrent/3", cfg.Mode, cfg.MaxConcurrent)
	}
	if cfg.RetryDelay != 500*time.Millisecond {
		t.Fatalf("retry delay = %v, want 500ms", cfg.RetryDelay)
	}
	if cfg.Model != "gemini-flash-latest" {
		t.Fatalf("unset keys should keep defaults, model=%q", cfg.Model)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("COLLECTOR_MAX_POSTS", "9")
	t.Setenv("COLLECTOR_MODE", "CONCURRENT")
	t.Setenv("COLLECTOR_USE_VISION", "true")
	t.Setenv("GEMINI_API_KEY", "secret")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.MaxItems != 9 || cfg.Mode != ModeConcurrent || !cfg.UseVision || cfg.APIKey != "secret" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestApplyEnvInvalidInt(t *testing.T) {
	t.Setenv("COLLECTOR_MAX_CONCURRENT", "many")

	if err := ApplyEnv(DefaultConfig()); err == nil || !strings.Contains(err.Error(), "COLLECTOR_MAX_CONCURRENT") {
		t.Fatalf("expected COLLECTOR_MAX_CONCURRENT error, got %v", err)
	}
}
