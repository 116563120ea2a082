package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
)

func TestApplyFlags(t *testing.T) {
	l := launcher.New()
	applyFlags(l, []string{"--no-sandbox", "--disable-features=TranslateUI", "", "--"})

	if !l.Has(flags.Flag("no-sandbox")) {
		t.Fatalf("no-sandbox flag missing")
	}
	if got := l.Get(flags.Flag("disable-features")); got != "TranslateUI" {
		t.Fatalf("disable-features = %q, want TranslateUI", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		limit    int
		expected string
	}{
		{name: "no limit", text: "hello", limit: 0, expected: "hello"},
		{name: "shorter", text: "hello", limit: 10, expected: "hello"},
		{name: "ascii", text: "hello", limit: 3, expected: "hel"},
		{name: "multibyte", text: "小红书笔记", limit: 3, expected: "小红书"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateRunes(tt.text, tt.limit); got != tt.expected {
				t.Fatalf("truncateRunes(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.expected)
			}
		})
	}
}
