// Package probe fetches the source page without a browser and lists item links in page
// order. The list backfills links the agent did not report, which lets detail tasks
// navigate to an item directly.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/aluiziolira/go-collect-posts/models"
	"github.com/gocolly/colly/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Config holds prober settings.
type Config struct {
	LinkPattern string
	UserAgent   string
	Timeout     time.Duration
	CacheSize   int
	CacheTTL    time.Duration
}

// Prober lists item links of a page. Results are cached per source URL.
type Prober struct {
	pattern   *regexp.Regexp
	userAgent string
	timeout   time.Duration
	transport http.RoundTripper
	cache     *expirable.LRU[string, []string]
	logger    *slog.Logger

	mu       sync.Mutex
	requests int
}

// Option customises a Prober.
type Option func(*Prober)

// WithTransport replaces the HTTP transport used by the collector.
func WithTransport(rt http.RoundTripper) Option {
	return func(p *Prober) {
		p.transport = rt
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New builds a Prober.
func New(cfg Config, opts ...Option) (*Prober, error) {
	pattern, err := regexp.Compile(cfg.LinkPattern)
	if err != nil {
		return nil, fmt.Errorf("compile link pattern: %w", err)
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 1
	}

	p := &Prober{
		pattern:   pattern,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		cache:     expirable.NewLRU[string, []string](size, nil, cfg.CacheTTL),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Links returns the distinct absolute links on sourceURL that match the item pattern,
// in document order.
func (p *Prober) Links(ctx context.Context, sourceURL string) ([]string, error) {
	if links, ok := p.cache.Get(sourceURL); ok {
		return links, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(colly.UserAgent(p.userAgent))
	if p.timeout > 0 {
		c.SetRequestTimeout(p.timeout)
	}
	if p.transport != nil {
		c.WithTransport(p.transport)
	}

	seen := make(map[string]struct{})
	links := make([]string, 0)
	var visitErr error

	c.OnRequest(func(r *colly.Request) {
		p.mu.Lock()
		p.requests++
		p.mu.Unlock()
	})
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" || !p.pattern.MatchString(link) {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	c.OnError(func(r *colly.Response, err error) {
		visitErr = err
	})

	if err := c.Visit(sourceURL); err != nil {
		return nil, fmt.Errorf("probe %s: %w", sourceURL, err)
	}
	c.Wait()
	if visitErr != nil {
		return nil, fmt.Errorf("probe %s: %w", sourceURL, visitErr)
	}

	p.logger.Debug("probe finished",
		slog.String("url", sourceURL),
		slog.Int("links", len(links)),
	)
	p.cache.Add(sourceURL, links)
	return links, nil
}

// Requests returns how many HTTP requests the prober issued.
func (p *Prober) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

// Backfill sets the link of every summary that has none from links[position-1] and
// returns how many summaries were filled.
func Backfill(summaries []models.ItemSummary, links []string) int {
	filled := 0
	for i := range summaries {
		if summaries[i].URL != "" {
			continue
		}
		idx := summaries[i].Position - 1
		if idx < 0 || idx >= len(links) {
			continue
		}
		summaries[i].URL = links[idx]
		filled++
	}
	return filled
}
