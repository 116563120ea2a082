package collector

import (
	"context"
	"time"

	"github.com/aluiziolira/go-collect-posts/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

type detailFunc func(context.Context, models.ItemSummary) models.DetailOutcome

// controller schedules detail extraction over a list of posts.
type controller struct {
	concurrent bool
	width      int
	pause      time.Duration
}

// run returns the outcome of every dispatched post in list order. Cancelling ctx stops
// dispatch; posts already dispatched still run to completion.
func (c controller) run(ctx context.Context, items []models.ItemSummary, detail detailFunc) []models.DetailOutcome {
	if c.concurrent {
		return c.runConcurrent(ctx, items, detail)
	}
	return c.runSequential(ctx, items, detail)
}

func (c controller) runSequential(ctx context.Context, items []models.ItemSummary, detail detailFunc) []models.DetailOutcome {
	outcomes := make([]models.DetailOutcome, 0, len(items))
	for i, item := range items {
		if i > 0 {
			if err := sleepContext(ctx, c.pause); err != nil {
				break
			}
		} else if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, detail(ctx, item))
	}
	return outcomes
}

func (c controller) runConcurrent(ctx context.Context, items []models.ItemSummary, detail detailFunc) []models.DetailOutcome {
	width := c.width
	if width <= 0 {
		width = 1
	}
	sem := semaphore.NewWeighted(int64(width))
	slots := make([]*models.DetailOutcome, len(items))

	var g errgroup.Group
	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			outcome := detail(ctx, item)
			slots[i] = &outcome
			return nil
		})
	}
	_ = g.Wait()

	outcomes := make([]models.DetailOutcome, 0, len(items))
	for _, slot := range slots {
		if slot != nil {
			outcomes = append(outcomes, *slot)
		}
	}
	return outcomes
}
