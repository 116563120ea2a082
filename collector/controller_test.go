package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aluiziolira/go-collect-posts/models"
)

func summariesN(n int) []models.ItemSummary {
	items := make([]models.ItemSummary, n)
	for i := range items {
		items[i] = models.ItemSummary{Position: i + 1}
	}
	return items
}

// gauge tracks the peak number of concurrent callers.
type gauge struct {
	current atomic.Int32
	peak    atomic.Int32
}

func (g *gauge) enter() {
	n := g.current.Add(1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (g *gauge) leave() {
	g.current.Add(-1)
}

func TestControllerKeepsPositionOrder(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		ctrl := controller{concurrent: concurrent, width: 3}
		// Later positions finish first.
		outcomes := ctrl.run(context.Background(), summariesN(6), func(_ context.Context, item models.ItemSummary) models.DetailOutcome {
			time.Sleep(time.Duration(7-item.Position) * time.Millisecond)
			return models.DetailOutcome{Position: item.Position, Attempts: 1}
		})

		if len(outcomes) != 6 {
			t.Fatalf("concurrent=%v: outcomes = %d, want 6", concurrent, len(outcomes))
		}
		for i, outcome := range outcomes {
			if outcome.Position != i+1 {
				t.Fatalf("concurrent=%v: outcomes[%d].Position = %d", concurrent, i, outcome.Position)
			}
		}
	}
}

func TestControllerBoundsInFlight(t *testing.T) {
	for _, width := range []int{1, 2, 3, 5} {
		var g gauge
		ctrl := controller{concurrent: true, width: width}

		outcomes := ctrl.run(context.Background(), summariesN(12), func(_ context.Context, item models.ItemSummary) models.DetailOutcome {
			g.enter()
			defer g.leave()
			time.Sleep(5 * time.Millisecond)
			return models.DetailOutcome{Position: item.Position}
		})

		if len(outcomes) != 12 {
			t.Fatalf("width %d: outcomes = %d, want 12", width, len(outcomes))
		}
		if peak := int(g.peak.Load()); peak > width {
			t.Fatalf("width %d: peak in flight = %d", width, peak)
		}
	}
}

func TestControllerSequentialRunsOneAtATime(t *testing.T) {
	var g gauge
	ctrl := controller{pause: time.Millisecond}

	outcomes := ctrl.run(context.Background(), summariesN(4), func(_ context.Context, item models.ItemSummary) models.DetailOutcome {
		g.enter()
		defer g.leave()
		return models.DetailOutcome{Position: item.Position}
	})

	if len(outcomes) != 4 {
		t.Fatalf("outcomes = %d, want 4", len(outcomes))
	}
	if peak := g.peak.Load(); peak != 1 {
		t.Fatalf("peak in flight = %d, want 1", peak)
	}
}

func TestControllerCancellationStopsDispatch(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		ctx, cancel := context.WithCancel(context.Background())
		var mu sync.Mutex
		started := make([]int, 0)

		ctrl := controller{concurrent: concurrent, width: 1}
		outcomes := ctrl.run(ctx, summariesN(5), func(_ context.Context, item models.ItemSummary) models.DetailOutcome {
			mu.Lock()
			started = append(started, item.Position)
			mu.Unlock()
			if item.Position == 2 {
				cancel()
			}
			return models.DetailOutcome{Position: item.Position}
		})
		cancel()

		if len(outcomes) != 2 {
			t.Fatalf("concurrent=%v: outcomes = %d, want 2 (started %v)", concurrent, len(outcomes), started)
		}
		if len(started) != 2 {
			t.Fatalf("concurrent=%v: started = %v, want [1 2]", concurrent, started)
		}
	}
}

func TestControllerEmpty(t *testing.T) {
	ctrl := controller{concurrent: true, width: 2}
	outcomes := ctrl.run(context.Background(), nil, func(context.Context, models.ItemSummary) models.DetailOutcome {
		t.Fatalf("no detail expected")
		return models.DetailOutcome{}
	})
	if len(outcomes) != 0 {
		t.Fatalf("outcomes = %d, want 0", len(outcomes))
	}
}
