package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key as a boolean.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key as a Go duration string.
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// ApplyEnv overlays COLLECTOR_* variables and GEMINI_API_KEY onto cfg.
func ApplyEnv(cfg *Config) error {
	if value, ok := EnvString("COLLECTOR_URL"); ok {
		cfg.SourceURL = value
	}
	if value, ok, err := EnvInt("COLLECTOR_MAX_POSTS"); err != nil {
		return err
	} else if ok {
		cfg.MaxItems = value
	}
	if value, ok := EnvString("COLLECTOR_MODE"); ok {
		cfg.Mode = strings.ToLower(value)
	}
	if value, ok, err := EnvInt("COLLECTOR_MAX_CONCURRENT"); err != nil {
		return err
	} else if ok {
		cfg.MaxConcurrent = value
	}
	if value, ok, err := EnvBool("COLLECTOR_USE_VISION"); err != nil {
		return err
	} else if ok {
		cfg.UseVision = value
	}
	if value, ok, err := EnvBool("COLLECTOR_HEADLESS"); err != nil {
		return err
	} else if ok {
		cfg.Headless = value
	}
	if value, ok := EnvString("COLLECTOR_OUTPUT_DIR"); ok {
		cfg.OutputDir = value
	}
	if value, ok, err := EnvDuration("COLLECTOR_RETRY_DELAY"); err != nil {
		return err
	} else if ok {
		cfg.RetryDelay = value
	}
	if value, ok := EnvString("COLLECTOR_MODEL"); ok {
		cfg.Model = value
	}
	if value, ok := EnvString("COLLECTOR_BROWSER_BIN"); ok {
		cfg.BrowserBin = value
	}
	if value, ok := EnvString("COLLECTOR_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok := EnvString("GEMINI_API_KEY"); ok {
		cfg.APIKey = value
	}
	return nil
}
