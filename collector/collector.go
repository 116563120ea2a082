// Package collector drives one collection run end to end: it scouts the source page, lists
// its posts, extracts every post's detail with retries and writes each artifact as it goes.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-collect-posts/agent"
	"github.com/aluiziolira/go-collect-posts/config"
	"github.com/aluiziolira/go-collect-posts/models"
	"github.com/aluiziolira/go-collect-posts/store"
)

// LinkProber lists item links of a page without the agent.
type LinkProber interface {
	Links(ctx context.Context, sourceURL string) ([]string, error)
}

// Collector runs collections against one configuration. It is safe to call Collect
// repeatedly; every call owns its own session and output directory.
type Collector struct {
	cfg      *config.Config
	launch   agent.Launcher
	store    *store.Store
	logger   *slog.Logger
	metrics  *Metrics
	prober   LinkProber
	now      func() time.Time
	observer func(State)
}

// Option customises a Collector.
type Option func(*Collector)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records run metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// WithProber enables link backfill for listed posts.
func WithProber(p LinkProber) Option {
	return func(c *Collector) {
		c.prober = p
	}
}

// WithClock replaces the wall clock used for run ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// WithObserver registers a callback invoked on every state change.
func WithObserver(fn func(State)) Option {
	return func(c *Collector) {
		c.observer = fn
	}
}

// New builds a Collector.
func New(cfg *config.Config, launch agent.Launcher, opts ...Option) (*Collector, error) {
	if cfg == nil {
		return nil, errors.New("collector: nil config")
	}
	if launch == nil {
		return nil, errors.New("collector: nil launcher")
	}
	c := &Collector{
		cfg:    cfg,
		launch: launch,
		store:  store.New(cfg.OutputDir),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Metrics returns the metrics the collector records, or nil.
func (c *Collector) Metrics() *Metrics {
	return c.metrics
}

// Request parameterises one run.
type Request struct {
	SourceURL     string
	MaxItems      int
	UseVision     bool
	Mode          string
	MaxConcurrent int
}

// DefaultRequest returns the request described by the configuration.
func (c *Collector) DefaultRequest() Request {
	return Request{
		SourceURL:     c.cfg.SourceURL,
		MaxItems:      c.cfg.MaxItems,
		UseVision:     c.cfg.UseVision,
		Mode:          c.cfg.Mode,
		MaxConcurrent: c.cfg.MaxConcurrent,
	}
}

func (c *Collector) normalize(req Request) Request {
	req.SourceURL = strings.TrimSpace(req.SourceURL)
	req.Mode = strings.ToLower(strings.TrimSpace(req.Mode))
	if req.Mode == "" {
		req.Mode = config.ModeSequential
	}
	if req.MaxConcurrent <= 0 {
		req.MaxConcurrent = c.cfg.MaxConcurrent
	}
	return req
}

func (r Request) validate() error {
	if r.SourceURL == "" {
		return errors.New("source URL cannot be empty")
	}
	if r.MaxItems < 0 {
		return errors.New("max items cannot be negative")
	}
	if r.Mode != config.ModeSequential && r.Mode != config.ModeConcurrent {
		return fmt.Errorf("unknown mode %q", r.Mode)
	}
	if r.MaxConcurrent <= 0 {
		return errors.New("max concurrent must be positive")
	}
	return nil
}

func (c *Collector) policy() RetryPolicy {
	return RetryPolicy{MaxAttempts: c.cfg.DetailAttempts, Delay: c.cfg.RetryDelay}
}

// Collect runs one collection. Per-post failures are recorded in the post artifacts and the
// returned summary; an error is returned only when the run itself fails, as a *RunError.
// Cancelling ctx stops new work from being dispatched, waits for dispatched work and fails
// the run.
func (c *Collector) Collect(ctx context.Context, req Request) (*models.RunSummary, error) {
	req = c.normalize(req)
	r := &run{
		c:       c,
		req:     req,
		logger:  c.logger,
		started: c.now(),
	}
	c.notify(StateInitializing)

	if err := req.validate(); err != nil {
		return nil, r.fail(StateInitializing, ErrInitialization{Err: err})
	}

	summary, err := r.execute(ctx)
	if err != nil {
		return nil, r.fail(r.state, err)
	}

	r.transition(StateClosed)
	r.logger.Info("collection finished",
		slog.Int("listed", summary.Listed),
		slog.Int("collected", summary.Collected),
		slog.Int("failed", summary.Failed),
		slog.String("output_dir", summary.OutputDir),
		slog.Duration("elapsed", time.Since(r.started)),
	)
	return summary, nil
}

func (c *Collector) notify(s State) {
	if c.observer != nil {
		c.observer(s)
	}
}

// run is the mutable state of one Collect call.
type run struct {
	c       *Collector
	req     Request
	info    models.CollectionRun
	batch   *store.Batch
	session agent.Session
	logger  *slog.Logger
	started time.Time
	state   State
	// parsed counts valid list rows before the MaxItems cap.
	parsed  int

	teardownOnce sync.Once
}

func (r *run) transition(to State) {
	if !canTransition(r.state, to) {
		r.logger.Error("invalid state transition",
			slog.String("from", r.state.String()),
			slog.String("to", to.String()),
		)
		return
	}
	r.logger.Debug("state changed",
		slog.String("from", r.state.String()),
		slog.String("to", to.String()),
	)
	r.state = to
	r.c.notify(to)
}

func (r *run) fail(at State, err error) error {
	r.c.metrics.IncError(errorTypeLabel(err))
	r.logger.Error("collection failed",
		slog.String("state", at.String()),
		slog.String("error", err.Error()),
	)
	r.transition(StateFailed)
	return &RunError{RunID: r.info.ID, State: at, Err: err}
}

// execute drives the phases. Teardown runs on every exit path, including panics.
func (r *run) execute(ctx context.Context) (*models.RunSummary, error) {
	defer r.teardown()

	if err := r.initialize(); err != nil {
		return nil, err
	}

	r.transition(StateScouting)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.openSession(ctx); err != nil {
		return nil, err
	}
	if err := r.scout(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.transition(StateListing)
	summaries, err := r.list(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.transition(StateCollectingDetails)
	n := min(r.info.MaxItems, len(summaries))
	ctrl := controller{
		concurrent: r.info.Mode == config.ModeConcurrent,
		width:      r.info.MaxConcurrent,
		pause:      r.c.cfg.ItemPause,
	}
	outcomes := ctrl.run(ctx, summaries[:n], r.detail)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w after %d of %d posts", err, len(outcomes), n)
	}

	r.transition(StateFinalizing)
	return r.finalize(summaries, outcomes)
}

func (r *run) initialize() error {
	batch, err := r.c.store.CreateBatch(r.started)
	if err != nil {
		return ErrInitialization{Err: err}
	}
	r.batch = batch
	r.info = models.CollectionRun{
		ID:            batch.ID(),
		SourceURL:     r.req.SourceURL,
		MaxItems:      r.req.MaxItems,
		Mode:          r.req.Mode,
		MaxConcurrent: r.req.MaxConcurrent,
		UseVision:     r.req.UseVision,
		Headless:      r.c.cfg.Headless,
		OutputDir:     batch.Dir(),
		StartedAt:     r.started,
	}
	r.logger = r.c.logger.With(slog.String("run_id", r.info.ID))

	r.logger.Info("collection started",
		slog.String("url", r.info.SourceURL),
		slog.Int("max_items", r.info.MaxItems),
		slog.String("output_dir", r.info.OutputDir),
		slog.String("mode", r.info.Mode),
		slog.Int("max_concurrent", r.info.MaxConcurrent),
		slog.Bool("use_vision", r.info.UseVision),
		slog.Bool("headless", r.info.Headless),
	)
	if r.info.Mode == config.ModeConcurrent && r.info.MaxConcurrent > config.UnstableConcurrency {
		r.logger.Warn("high concurrency contends for the shared browser session",
			slog.Int("max_concurrent", r.info.MaxConcurrent),
			slog.Int("recommended_max", config.UnstableConcurrency),
		)
	}
	return nil
}

// openSession allocates the shared session. The session outlives ctx's cancellation so
// dispatched work can settle; teardown releases it.
func (r *run) openSession(ctx context.Context) error {
	session, err := r.c.launch(context.WithoutCancel(ctx), agent.LaunchOptions{UseVision: r.info.UseVision})
	if err != nil {
		return ErrInitialization{Err: fmt.Errorf("launch session: %w", err)}
	}
	if session == nil {
		return ErrInitialization{Err: errors.New("launch session: no session returned")}
	}
	r.session = session
	return nil
}

func (r *run) finalize(summaries []models.ItemSummary, outcomes []models.DetailOutcome) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		Timestamp:  r.c.now().Format(models.TimestampLayout),
		URL:        r.info.SourceURL,
		TotalPosts: r.info.MaxItems,
		OutputDir:  r.info.OutputDir,
		Mode:       r.info.Mode,
		UseVision:  r.info.UseVision,
		Headless:   r.info.Headless,
		RunID:      r.info.ID,
		Listed:     len(summaries),
		ListEmpty:  r.parsed == 0,
		Details:    outcomes,
	}
	for _, outcome := range outcomes {
		if outcome.Failed() {
			summary.Failed++
		} else {
			summary.Collected++
		}
	}

	if err := r.batch.WriteSummary(*summary); err != nil {
		return nil, err
	}
	if r.c.cfg.ExportCSV {
		if err := r.batch.WriteCSV(outcomes); err != nil {
			r.c.metrics.IncError(errorTypeLabel(err))
			r.logger.Warn("csv export failed", slog.String("error", err.Error()))
		}
	}
	return summary, nil
}

// teardown releases the session once. Failures are logged and never returned.
func (r *run) teardown() {
	r.teardownOnce.Do(func() {
		if r.session != nil {
			if err := r.session.Close(); err != nil {
				err = ErrTeardown{Err: err}
				r.c.metrics.IncError(errorTypeLabel(err))
				r.logger.Warn("session teardown failed", slog.String("error", err.Error()))
			} else {
				r.logger.Debug("session closed")
			}
		}
		if d := r.c.cfg.SettleDelay; d > 0 {
			time.Sleep(d)
		}
	})
}
