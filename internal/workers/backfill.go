package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/queue"
	"go.uber.org/zap"
)

const (
	backfillWindow = 24 * time.Hour
	backfillBatch  = 500
)

// PendingTaskLister finds tasks whose enrichment never landed
type PendingTaskLister interface {
	ListAwaitingEnrichment(ctx context.Context, from, to time.Time, limit int) ([]*models.Task, error)
}

// Backfill re-enqueues enrich jobs for recent tasks that still carry defaults,
// e.g. because the broker was down when they were created.
type Backfill struct {
	tasks    PendingTaskLister
	jobQueue Enqueuer
	minAge   time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewBackfill creates a backfill. Tasks younger than minAge are left to the
// normal enrich path.
func NewBackfill(tasks PendingTaskLister, jobQueue Enqueuer, minAge time.Duration, logger *zap.Logger) *Backfill {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backfill{
		tasks:    tasks,
		jobQueue: jobQueue,
		minAge:   minAge,
		logger:   logger,
		now:      time.Now,
	}
}

// NextRun returns the next 08:00 or 20:00 after now, in now's location.
func NextRun(now time.Time) time.Time {
	morning := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, now.Location())
	evening := time.Date(now.Year(), now.Month(), now.Day(), 20, 0, 0, 0, now.Location())
	switch {
	case now.Before(morning):
		return morning
	case now.Before(evening):
		return evening
	}
	return morning.AddDate(0, 0, 1)
}

// ScheduleEnrichment enqueues one enrich job per task created in the last day
// that was never enriched. It returns how many jobs were enqueued.
func (b *Backfill) ScheduleEnrichment(ctx context.Context) (int, error) {
	now := b.now()
	to := now.Add(-b.minAge)
	tasks, err := b.tasks.ListAwaitingEnrichment(ctx, to.Add(-backfillWindow), to, backfillBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list tasks awaiting enrichment: %w", err)
	}

	scheduled := 0
	for _, task := range tasks {
		job := queue.NewEnrichTaskJob(task.OwnerID, task.ID)
		// expire with the next run so jobs do not pile up behind an outage
		notAfter := NextRun(now)
		job.NotAfter = &notAfter
		if err := b.jobQueue.Enqueue(ctx, job); err != nil {
			b.logger.Warn("backfill_enqueue_failed",
				zap.String("task_id", task.ID.String()),
				zap.Error(err),
			)
			continue
		}
		scheduled++
	}

	b.logger.Info("backfill_scheduled",
		zap.Int("candidates", len(tasks)),
		zap.Int("scheduled", scheduled),
	)
	return scheduled, nil
}

// Start runs ScheduleEnrichment at every NextRun until ctx is canceled.
func (b *Backfill) Start(ctx context.Context) error {
	for {
		wait := NextRun(b.now()).Sub(b.now())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			if _, err := b.ScheduleEnrichment(ctx); err != nil {
				b.logger.Error("backfill_failed", zap.Error(err))
			}
		}
	}
}
