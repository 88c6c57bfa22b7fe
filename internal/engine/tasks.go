package engine

import (
	"context"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Tasks supervises the detached work the engine spawns per event (stake
// submission, settlement reconciliation). Concurrency is bounded and
// completion is observable through Wait, so tests can await every side
// effect instead of sleeping.
type Tasks struct {
	group  *errgroup.Group
	ctx    context.Context
	logger *log.Logger
}

// NewTasks creates a runner. limit <= 0 means a small default bound; the
// point is to never run unbounded goroutines for network work.
func NewTasks(ctx context.Context, logger *log.Logger, limit int) *Tasks {
	if limit <= 0 {
		limit = 8
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	return &Tasks{group: g, ctx: gctx, logger: logger.WithPrefix("tasks")}
}

// Go schedules fn. Errors are logged, not propagated: a failed submission or
// reconciliation must never tear down the other workers.
func (t *Tasks) Go(name string, fn func(ctx context.Context) error) {
	t.group.Go(func() error {
		if err := fn(t.ctx); err != nil && t.ctx.Err() == nil {
			t.logger.Error("task failed", "task", name, "error", err)
		}
		return nil
	})
}

// Wait blocks until every scheduled task has completed.
func (t *Tasks) Wait() {
	_ = t.group.Wait()
}
