package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-collect-posts/agent"
	"github.com/aluiziolira/go-collect-posts/models"
	"github.com/aluiziolira/go-collect-posts/parser"
	"github.com/aluiziolira/go-collect-posts/probe"
)

// Phase labels used in logs and metrics.
const (
	phaseScout  = "scout"
	phaseList   = "list"
	phaseDetail = "detail"
)

const scoutExcerptRunes = 200

// invoke runs one agent call. The call is detached from ctx's cancellation and bounded only
// by the configured invocation timeout.
func (r *run) invoke(ctx context.Context, phase string, task agent.Task) (string, error) {
	ctx = context.WithoutCancel(ctx)
	if timeout := r.c.cfg.InvocationTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r.c.metrics.IncInvocation(phase)
	start := time.Now()
	text, err := r.session.Invoke(ctx, task)
	r.c.metrics.ObserveDuration(phase, time.Since(start))
	return text, err
}

// scout asks the agent to describe the page. A failed invocation degrades to an empty report.
func (r *run) scout(ctx context.Context) error {
	text, err := r.invoke(ctx, phaseScout, agent.Task{
		Instruction:    scoutInstruction(r.info.SourceURL),
		URL:            r.info.SourceURL,
		DismissOverlay: true,
	})
	if err != nil {
		err = ErrInvocation{Err: err}
		r.c.metrics.IncError(errorTypeLabel(err))
		r.logger.Warn("scout failed, continuing with empty report", slog.String("error", err.Error()))
		text = ""
	}

	report := models.ScoutReport{
		Report:    text,
		Timestamp: r.c.now().Format(models.ScoutTimestampLayout),
	}
	if err := r.batch.WriteScout(report); err != nil {
		return err
	}

	r.logger.Info("scout finished", slog.String("excerpt", excerpt(text, scoutExcerptRunes)))
	return nil
}

// list enumerates the feed and records how many rows were parsed before the MaxItems cap.
// An invocation error is fatal; an answer without a parseable array yields an empty list.
func (r *run) list(ctx context.Context) ([]models.ItemSummary, error) {
	text, err := r.invoke(ctx, phaseList, agent.Task{
		Instruction: listInstruction(r.info.SourceURL, r.info.MaxItems),
		URL:         r.info.SourceURL,
	})
	if err != nil {
		return nil, ErrInvocation{Err: err}
	}

	summaries := make([]models.ItemSummary, 0)
	if raw, ok := parser.Extract(text, true); ok {
		decoded, parsed, dropped, err := parser.DecodeSummaries(raw, r.info.MaxItems)
		if err != nil {
			r.c.metrics.IncError(errorTypeLabel(ErrExtraction{Err: err}))
			r.logger.Warn("post list could not be decoded", slog.String("error", err.Error()))
		} else {
			summaries = decoded
			r.parsed = parsed
			if dropped > 0 {
				r.logger.Debug("dropped post list rows", slog.Int("dropped", dropped))
			}
		}
	}

	if len(summaries) > 0 && r.c.prober != nil {
		r.backfillLinks(ctx, summaries)
	}

	if err := r.batch.WriteList(models.PostList{
		Timestamp: r.c.now().Format(models.TimestampLayout),
		Total:     len(summaries),
		Posts:     summaries,
	}); err != nil {
		return nil, err
	}

	if r.parsed == 0 {
		r.logger.Warn("post list is empty", slog.String("url", r.info.SourceURL))
	} else {
		r.logger.Info("post list collected", slog.Int("posts", len(summaries)), slog.Int("parsed", r.parsed))
	}
	return summaries, nil
}

func (r *run) backfillLinks(ctx context.Context, summaries []models.ItemSummary) {
	links, err := r.c.prober.Links(ctx, r.info.SourceURL)
	if err != nil {
		r.logger.Warn("link lookup failed", slog.String("error", err.Error()))
		return
	}
	if filled := probe.Backfill(summaries, links); filled > 0 {
		r.logger.Debug("backfilled post links", slog.Int("filled", filled))
	}
}

// detail extracts one post with retries. Every failed attempt leaves a placeholder artifact
// that the terminal record replaces.
func (r *run) detail(ctx context.Context, item models.ItemSummary) models.DetailOutcome {
	r.c.metrics.DetailStarted()
	defer r.c.metrics.DetailFinished()

	position := item.Position
	logger := r.logger.With(slog.Int("position", position))
	task := agent.Task{
		Instruction: detailInstruction(r.info.SourceURL, item),
		URL:         item.URL,
	}
	if task.URL == "" {
		task.URL = r.info.SourceURL
	}

	type payload struct {
		detail *models.ItemDetail
		raw    []byte
	}

	result := RunWithRetry(ctx, r.c.policy(),
		func(ctx context.Context) (string, error) {
			return r.invoke(ctx, phaseDetail, task)
		},
		func(text string) (payload, error) {
			detail, raw, err := parser.ExtractDetail(text)
			if err != nil {
				return payload{}, err
			}
			return payload{detail: detail, raw: raw}, nil
		},
		func(rec AttemptRecord) {
			if rec.Outcome == OutcomeSuccess {
				return
			}
			r.c.metrics.IncError(errorTypeLabel(rec.Err))
			logger.Warn("detail attempt failed",
				slog.Int("attempt", rec.Attempt+1),
				slog.String("outcome", string(rec.Outcome)),
				slog.String("error", rec.Err.Error()),
			)
			if rec.Retrying {
				r.c.metrics.IncRetries()
			}
			r.writeDetail(logger, models.DetailOutcome{
				Position: position,
				Err:      fmt.Sprintf("attempt %d failed: %s", rec.Attempt+1, failureReason(rec.Err)),
				Attempts: rec.Attempt + 1,
			})
		},
	)

	outcome := models.DetailOutcome{
		Position: position,
		Attempts: result.Attempts,
	}
	if result.Failed() {
		outcome.Err = failureReason(result.Err)
		r.c.metrics.IncError(errorTypeLabel(result.Err))
		r.c.metrics.IncFailed()
		logger.Error("detail failed", slog.Int("attempts", result.Attempts), slog.String("error", result.Err.Error()))
	} else {
		outcome.Detail = result.Value.detail
		outcome.Raw = result.Value.raw
		r.c.metrics.IncCollected()
		logger.Info("detail collected", slog.Int("attempts", result.Attempts), slog.String("title", outcome.Detail.Title))
	}
	r.writeDetail(logger, outcome)
	return outcome
}

func (r *run) writeDetail(logger *slog.Logger, outcome models.DetailOutcome) {
	if err := r.batch.WriteDetail(outcome.Record(r.c.now())); err != nil {
		r.c.metrics.IncError(errorTypeLabel(err))
		logger.Error("write detail artifact", slog.String("error", err.Error()))
	}
}

func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
