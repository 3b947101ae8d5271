package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/focus-quest/internal/database"
	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/queue"
	"github.com/benvon/focus-quest/internal/services/ai"
	"github.com/benvon/focus-quest/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// errInvalidJob marks jobs that can never succeed; they go straight to the DLQ.
var errInvalidJob = errors.New("invalid job")

// TaskStore is the task storage the enricher needs
type TaskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	UpdateEnrichment(ctx context.Context, id uuid.UUID, category string, difficulty models.Difficulty, estimate int, subTasks []string) (bool, error)
}

// Enricher derives task metadata and reports provider throttling.
type Enricher interface {
	EnrichErr(ctx context.Context, title string) (ai.Enrichment, error)
}

// Enqueuer re-publishes jobs for delayed retry
type Enqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// TaskEnricher processes enrich_task jobs
type TaskEnricher struct {
	enricher Enricher
	tasks    TaskStore
	jobQueue Enqueuer
	logger   *zap.Logger
	now      func() time.Time
}

// NewTaskEnricher creates a new task enricher. jobQueue may be nil, in which case
// retries fall back to requeueing the delivery.
func NewTaskEnricher(enricher Enricher, tasks TaskStore, jobQueue Enqueuer, logger *zap.Logger) *TaskEnricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskEnricher{
		enricher: enricher,
		tasks:    tasks,
		jobQueue: jobQueue,
		logger:   logger,
		now:      time.Now,
	}
}

// ProcessJob processes a job based on its type and settles the message.
func (w *TaskEnricher) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.IsExpired() {
		w.logger.Info("job_expired", zap.String("job_id", job.ID.String()))
		if nackErr := msg.Nack(false); nackErr != nil {
			return fmt.Errorf("failed to nack expired job: %w", nackErr)
		}
		return nil
	}
	if !job.ShouldProcess() {
		if nackErr := msg.Nack(true); nackErr != nil {
			return fmt.Errorf("failed to requeue early job: %w", nackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeEnrichTask:
		spanCtx, span := telemetry.StartSpan(ctx, "enrich_task", trace.WithAttributes(
			attribute.String("job.id", job.ID.String()),
			attribute.Int("job.retry_count", job.RetryCount),
		))
		err := w.ProcessEnrichTaskJob(spanCtx, job)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if err != nil {
			return w.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("job_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// ProcessEnrichTaskJob fills the AI metadata of the job's task. Tasks that are gone,
// closed or changed hands are skipped without error.
func (w *TaskEnricher) ProcessEnrichTaskJob(ctx context.Context, job *queue.Job) error {
	if job.TaskID == nil {
		return fmt.Errorf("%w: task_id is required", errInvalidJob)
	}

	task, err := w.tasks.GetByID(ctx, *job.TaskID)
	if errors.Is(err, database.ErrNotFound) {
		w.logger.Info("enrich_skipped_task_missing", zap.String("task_id", job.TaskID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}
	if task.OwnerID != job.UserID {
		return fmt.Errorf("%w: task does not belong to user", errInvalidJob)
	}
	if !task.IsOpen() {
		w.logger.Info("enrich_skipped_task_closed",
			zap.String("task_id", task.ID.String()),
			zap.String("status", string(task.Status)),
		)
		return nil
	}

	e, err := w.enricher.EnrichErr(ctx, task.Title)
	if err != nil {
		return err
	}
	e.Apply(task)

	ok, err := w.tasks.UpdateEnrichment(ctx, task.ID, task.Category, task.Difficulty, task.TimeEstimateMinutes, task.SubTasks)
	if err != nil {
		return fmt.Errorf("failed to store enrichment: %w", err)
	}
	if !ok {
		w.logger.Info("enrich_skipped_task_closed", zap.String("task_id", task.ID.String()))
		return nil
	}

	w.logger.Info("task_enriched",
		zap.String("task_id", task.ID.String()),
		zap.String("category", task.Category),
		zap.String("difficulty", string(task.Difficulty)),
		zap.Int("time_estimate_minutes", task.TimeEstimateMinutes),
		zap.Int("sub_tasks", len(task.SubTasks)),
	)
	return nil
}

// handleJobError settles a failed job. Invalid jobs are dead-lettered. Provider throttling
// is retried after GetRetryDelay and, once the budget is spent, the task keeps its
// defaults. Other failures are retried and finally dead-lettered.
func (w *TaskEnricher) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	if errors.Is(err, errInvalidJob) {
		w.logger.Warn("job_invalid", zap.String("job_id", job.ID.String()), zap.Error(err))
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("job_nack_failed", zap.Error(nackErr))
		}
		return err
	}

	throttled := ai.IsRateLimitError(err) || ai.IsQuotaError(err)
	if !job.CanRetry() {
		if throttled {
			w.logger.Warn("enrich_gave_up_keeping_defaults",
				zap.String("job_id", job.ID.String()),
				zap.Int("retry_count", job.RetryCount),
				zap.Error(err),
			)
			if ackErr := msg.Ack(); ackErr != nil {
				return fmt.Errorf("failed to ack throttled job: %w", ackErr)
			}
			return nil
		}
		w.logger.Error("job_failed_sending_to_dlq",
			zap.String("job_id", job.ID.String()),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("job_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (max retries): %w", err)
	}

	delay := ai.GetRetryDelay(err, job.RetryCount)
	if w.jobQueue != nil {
		retry := w.retryJob(job, delay)
		enqueueErr := w.jobQueue.Enqueue(ctx, retry)
		if enqueueErr == nil {
			w.logger.Info("job_retry_scheduled",
				zap.String("job_id", job.ID.String()),
				zap.Int("attempt", retry.RetryCount),
				zap.Duration("delay", delay),
				zap.Bool("throttled", throttled),
			)
			if ackErr := msg.Ack(); ackErr != nil {
				w.logger.Warn("job_ack_failed", zap.Error(ackErr))
			}
			return fmt.Errorf("job failed (retry scheduled): %w", err)
		}
		w.logger.Warn("job_retry_enqueue_failed", zap.String("job_id", job.ID.String()), zap.Error(enqueueErr))
	}

	if nackErr := msg.Nack(true); nackErr != nil {
		w.logger.Warn("job_nack_failed", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (requeued): %w", err)
}

// retryJob copies job with one more retry and a NotBefore delay from now.
func (w *TaskEnricher) retryJob(job *queue.Job, delay time.Duration) *queue.Job {
	notBefore := w.now().Add(delay)
	retry := *job
	retry.NotBefore = &notBefore
	retry.RetryCount = job.RetryCount + 1
	return &retry
}
