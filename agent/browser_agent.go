package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/go-collect-posts/browser"
	"github.com/aluiziolira/go-collect-posts/config"
)

// Page is the browser surface the agent acts on.
type Page interface {
	Capture(ctx context.Context, target string, dismissOverlay, screenshot bool) (browser.Snapshot, error)
	Close() error
}

// BrowserAgent reads the shared page and lets a language model answer the instruction.
type BrowserAgent struct {
	page      Page
	llm       Completer
	useVision bool
	logger    *slog.Logger
}

// NewBrowserAgent binds a completer to a page.
func NewBrowserAgent(page Page, llm Completer, useVision bool, logger *slog.Logger) *BrowserAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserAgent{
		page:      page,
		llm:       llm,
		useVision: useVision,
		logger:    logger,
	}
}

// Invoke captures the page for the task and asks the model to carry it out.
func (a *BrowserAgent) Invoke(ctx context.Context, task Task) (string, error) {
	start := time.Now()
	snap, err := a.page.Capture(ctx, task.URL, task.DismissOverlay, a.useVision)
	if err != nil {
		return "", &InvocationError{Stage: "browse", Err: err}
	}

	answer, err := a.llm.Complete(ctx, BuildPrompt(task, snap), snap.Screenshot)
	if err != nil {
		return "", &InvocationError{Stage: "reason", Err: err}
	}

	a.logger.Debug("agent task finished",
		slog.String("url", snap.URL),
		slog.Int("answer_chars", len(answer)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return answer, nil
}

// Close releases the page.
func (a *BrowserAgent) Close() error {
	return a.page.Close()
}

// BuildPrompt renders the instruction together with the captured page.
func BuildPrompt(task Task, snap browser.Snapshot) string {
	var b strings.Builder
	b.WriteString("## Instruction\n")
	b.WriteString(strings.TrimSpace(task.Instruction))
	b.WriteString("\n\n## Current page\n")
	fmt.Fprintf(&b, "URL: %s\n", snap.URL)
	fmt.Fprintf(&b, "Title: %s\n", snap.Title)
	if len(snap.Screenshot) > 0 {
		b.WriteString("A screenshot of the viewport is attached.\n")
	}
	b.WriteString("\n## Visible text\n")
	b.WriteString(snap.Text)
	b.WriteString("\n")
	return b.String()
}

// NewLauncher returns a Launcher that starts Chromium and a Gemini client for each run.
func NewLauncher(cfg *config.Config, logger *slog.Logger) Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, opts LaunchOptions) (Session, error) {
		llm, err := NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.Temperature)
		if err != nil {
			return nil, err
		}

		page, err := browser.Launch(ctx, browser.Config{
			Bin:               cfg.BrowserBin,
			Flags:             cfg.BrowserFlags,
			Headless:          cfg.Headless,
			NavigationTimeout: cfg.NavigationTimeout,
			MaxTextChars:      cfg.MaxPageChars,
			OverlaySelector:   cfg.OverlaySelector,
		}, logger)
		if err != nil {
			return nil, err
		}

		return NewBrowserAgent(page, llm, opts.UseVision, logger), nil
	}
}
