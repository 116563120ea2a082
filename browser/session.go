// Package browser owns the Chromium instance a run browses with.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// Config holds browser launch and navigation settings.
type Config struct {
	Bin               string
	Flags             []string
	Headless          bool
	NavigationTimeout time.Duration
	MaxTextChars      int
	OverlaySelector   string
}

// closeSelectors are tried in order when an overlay blocks the page.
var closeSelectors = []string{
	".close-button",
	".login-container .close",
	"[aria-label='close']",
	"[aria-label='关闭']",
	".reds-mask + * .close",
}

// Snapshot is what the agent sees of the page.
type Snapshot struct {
	URL        string
	Title      string
	Text       string
	Screenshot []byte
}

// Session is one browser page shared by every task of a run. Navigation and capture are
// serialised; callers may reason over snapshots concurrently.
type Session struct {
	cfg      Config
	logger   *slog.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	nav sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// Launch starts Chromium with the configured flags and opens a blank page.
func Launch(ctx context.Context, cfg Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	l := launcher.New().Headless(cfg.Headless)
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	applyFlags(l, cfg.Flags)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("create page: %w", err)
	}

	logger.Debug("browser launched",
		slog.Bool("headless", cfg.Headless),
		slog.Int("flags", len(cfg.Flags)),
	)

	return &Session{
		cfg:      cfg,
		logger:   logger,
		launcher: l,
		browser:  b,
		page:     page,
	}, nil
}

// Capture opens target (when it differs from the current page), clears the login overlay
// if asked to and returns the visible page state.
func (s *Session) Capture(ctx context.Context, target string, dismissOverlay, screenshot bool) (Snapshot, error) {
	s.nav.Lock()
	defer s.nav.Unlock()

	page := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout)

	if target != "" {
		info, err := page.Info()
		if err != nil || info.URL != target {
			if err := page.Navigate(target); err != nil {
				return Snapshot{}, fmt.Errorf("navigate %s: %w", target, err)
			}
			if err := page.WaitLoad(); err != nil {
				return Snapshot{}, fmt.Errorf("wait load %s: %w", target, err)
			}
		}
	}

	if dismissOverlay {
		s.dismissOverlay(page)
	}

	info, err := page.Info()
	if err != nil {
		return Snapshot{}, fmt.Errorf("page info: %w", err)
	}

	res, err := page.Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read page text: %w", err)
	}
	text := res.Value.Str()
	text = truncateRunes(text, s.cfg.MaxTextChars)

	snap := Snapshot{URL: info.URL, Title: info.Title, Text: text}
	if screenshot {
		img, err := page.Screenshot(false, nil)
		if err != nil {
			s.logger.Warn("screenshot failed", slog.String("url", info.URL), slog.Any("error", err))
		} else {
			snap.Screenshot = img
		}
	}
	return snap, nil
}

// dismissOverlay tries a close affordance, then a click outside the dialog, then Escape.
func (s *Session) dismissOverlay(page *rod.Page) {
	if s.cfg.OverlaySelector == "" || !overlayVisible(page, s.cfg.OverlaySelector) {
		return
	}

	for _, selector := range closeSelectors {
		has, el, err := page.Has(selector)
		if err != nil || !has {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
			if !overlayVisible(page, s.cfg.OverlaySelector) {
				s.logger.Debug("overlay closed", slog.String("via", selector))
				return
			}
		}
	}

	if err := page.Mouse.MoveTo(proto.Point{X: 5, Y: 5}); err == nil {
		if err := page.Mouse.Click(proto.InputMouseButtonLeft, 1); err == nil && !overlayVisible(page, s.cfg.OverlaySelector) {
			s.logger.Debug("overlay closed", slog.String("via", "outside click"))
			return
		}
	}

	if err := page.KeyActions().Press(input.Escape).Do(); err != nil {
		s.logger.Warn("escape key failed", slog.Any("error", err))
	}
	if overlayVisible(page, s.cfg.OverlaySelector) {
		s.logger.Warn("overlay still visible after fallbacks")
	}
}

// applyFlags sets command-line switches given as "--name" or "--name=value".
func applyFlags(l *launcher.Launcher, raw []string) {
	for _, rawFlag := range raw {
		name, val, hasVal := strings.Cut(strings.TrimLeft(rawFlag, "-"), "=")
		if name == "" {
			continue
		}
		if hasVal {
			l.Set(flags.Flag(name), val)
		} else {
			l.Set(flags.Flag(name))
		}
	}
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	if runes := []rune(text); len(runes) > limit {
		return string(runes[:limit])
	}
	return text
}

func overlayVisible(page *rod.Page, selector string) bool {
	has, _, err := page.Has(selector)
	return err == nil && has
}

// Close releases the page, the browser and the launched process. Only the first call
// does any work; later calls return the same result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close page: %w", err))
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
