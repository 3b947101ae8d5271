package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const taskColumns = `id, owner_id, title, status, category, difficulty, time_estimate_minutes, sub_tasks,
	memo, important, team_id, assignee_id, study_plan_id, scheduled_date, snoozed_until,
	timer_started_at, timer_remaining_seconds, created_at, updated_at, completed_at`

// TaskRepository handles task database operations
type TaskRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db, logger: zap.NewNop()}
}

// SetLogger sets the logger used for activation diagnostics.
func (r *TaskRepository) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Create inserts a new task. A zero CreatedAt is set to the current time.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	subTasks, err := marshalSubTasks(task.SubTasks)
	if err != nil {
		return err
	}

	ts := now()
	created := ts
	if !task.CreatedAt.IsZero() {
		created = task.CreatedAt.UTC().Truncate(time.Microsecond)
	}
	query := `
		INSERT INTO tasks (id, owner_id, title, status, category, difficulty, time_estimate_minutes, sub_tasks,
			memo, important, team_id, assignee_id, study_plan_id, scheduled_date, snoozed_until,
			timer_started_at, timer_remaining_seconds, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = r.db.conn(ctx).ExecContext(ctx, query,
		task.ID,
		task.OwnerID,
		task.Title,
		task.Status,
		task.Category,
		task.Difficulty,
		task.TimeEstimateMinutes,
		subTasks,
		task.Memo,
		task.Important,
		nullUUIDArg(task.TeamID),
		nullUUIDArg(task.AssigneeID),
		nullUUIDArg(task.StudyPlanID),
		dateArg(task.ScheduledDate),
		timeArg(task.SnoozedUntil),
		timeArg(task.TimerStartedAt),
		intArg(task.TimerRemainingSecs),
		created,
		ts,
		timeArg(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", translateError(err))
	}
	task.CreatedAt = created
	task.UpdatedAt = ts
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(r.db.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// Update writes every mutable field of task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	subTasks, err := marshalSubTasks(task.SubTasks)
	if err != nil {
		return err
	}
	if task.Status == models.TaskStatusCompleted && task.CompletedAt == nil {
		return errors.New("completed task requires a completion timestamp")
	}
	if task.Status != models.TaskStatusCompleted {
		task.CompletedAt = nil
	}

	ts := now()
	query := `
		UPDATE tasks
		SET title = $2, status = $3, category = $4, difficulty = $5, time_estimate_minutes = $6,
			sub_tasks = $7, memo = $8, important = $9, assignee_id = $10, scheduled_date = $11,
			snoozed_until = $12, timer_started_at = $13, timer_remaining_seconds = $14,
			updated_at = $15, completed_at = $16
		WHERE id = $1
	`
	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Status,
		task.Category,
		task.Difficulty,
		task.TimeEstimateMinutes,
		subTasks,
		task.Memo,
		task.Important,
		nullUUIDArg(task.AssigneeID),
		dateArg(task.ScheduledDate),
		timeArg(task.SnoozedUntil),
		timeArg(task.TimerStartedAt),
		intArg(task.TimerRemainingSecs),
		ts,
		timeArg(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", translateError(err))
	}
	if err := expectOneRow(result, "task"); err != nil {
		return err
	}
	task.UpdatedAt = ts
	return nil
}

// Complete moves an open task to COMPLETED at completedAt, setting assigneeID when the
// task has none. The status check and the write are one statement, so of two concurrent
// completions only one changes the row. It reports whether the task was completed.
func (r *TaskRepository) Complete(ctx context.Context, id uuid.UUID, completedAt time.Time, assigneeID *uuid.UUID) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'COMPLETED', completed_at = $2, updated_at = $3,
			assignee_id = COALESCE(assignee_id, $4)
		WHERE id = $1 AND status IN ('INBOX', 'ACTIVE')
	`
	result, err := r.db.conn(ctx).ExecContext(ctx, query, id, completedAt.UTC(), now(), nullUUIDArg(assigneeID))
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", translateError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// UpdateEnrichment writes AI-derived fields of a task that is still open. It reports
// whether a row was changed.
func (r *TaskRepository) UpdateEnrichment(ctx context.Context, id uuid.UUID, category string, difficulty models.Difficulty, estimate int, subTasks []string) (bool, error) {
	encoded, err := marshalSubTasks(subTasks)
	if err != nil {
		return false, err
	}
	query := `
		UPDATE tasks
		SET category = $2, difficulty = $3, time_estimate_minutes = $4, sub_tasks = $5, updated_at = $6
		WHERE id = $1 AND status IN ('INBOX', 'ACTIVE')
	`
	result, err := r.db.conn(ctx).ExecContext(ctx, query, id, category, string(difficulty), estimate, encoded, now())
	if err != nil {
		return false, fmt.Errorf("failed to update task enrichment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// ListAwaitingEnrichment returns open tasks created in [from, to) that still carry the
// default category and no sub-tasks, oldest first.
func (r *TaskRepository) ListAwaitingEnrichment(ctx context.Context, from, to time.Time, limit int) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE status IN ('INBOX', 'ACTIVE') AND category = $1 AND sub_tasks = '[]'
			AND created_at >= $2 AND created_at < $3
		ORDER BY created_at LIMIT $4`
	return r.list(ctx, query, models.DefaultCategory, from.UTC(), to.UTC(), limit)
}

// Delete removes a task by ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return expectOneRow(result, "task")
}

// Activate moves an INBOX task to ACTIVE only when its owner (personal tasks) or its
// assignee within the team (team tasks) has no other ACTIVE task. The check and the
// write are one statement; a concurrent winner surfaces as ErrUniqueViolation from the
// partial unique indexes. It reports whether the task was activated.
func (r *TaskRepository) Activate(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE tasks SET status = 'ACTIVE', updated_at = $2
		WHERE id = $1 AND status = 'INBOX'
		AND NOT EXISTS (
			SELECT 1 FROM tasks other
			WHERE other.status = 'ACTIVE' AND other.id <> tasks.id
			AND (
				(tasks.team_id IS NULL AND other.team_id IS NULL AND other.owner_id = tasks.owner_id)
				OR (tasks.team_id IS NOT NULL AND other.team_id = tasks.team_id AND other.assignee_id = tasks.assignee_id)
			)
		)
	`
	result, err := r.db.conn(ctx).ExecContext(ctx, query, id, now())
	if err != nil {
		err = translateError(err)
		if errors.Is(err, ErrUniqueViolation) {
			r.logger.Debug("task_activation_lost_race", zap.String("task_id", id.String()))
		}
		return false, fmt.Errorf("failed to activate task: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// GetActivePersonal returns the owner's ACTIVE personal task, or ErrNotFound.
func (r *TaskRepository) GetActivePersonal(ctx context.Context, ownerID uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE owner_id = $1 AND team_id IS NULL AND status = 'ACTIVE'
		ORDER BY created_at LIMIT 1`
	task, err := scanTask(r.db.conn(ctx).QueryRowContext(ctx, query, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active task not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active task: %w", err)
	}
	return task, nil
}

// ListDashboard returns the open tasks a user works on, oldest first: personal tasks
// they own (study plan tasks included), team tasks assigned to them, and tasks of planID
// scheduled for today or equal to lookAheadID.
func (r *TaskRepository) ListDashboard(ctx context.Context, userID uuid.UUID, planID *uuid.UUID, today models.Date, lookAheadID *uuid.UUID) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE status IN ('INBOX', 'ACTIVE') AND (
			(owner_id = $1 AND team_id IS NULL)
			OR (assignee_id = $1 AND team_id IS NOT NULL)
			OR (study_plan_id = $2 AND (scheduled_date = $3 OR id = $4))
		)
		ORDER BY created_at, id`
	return r.list(ctx, query, userID, nullUUIDArg(planID), today.String(), nullUUIDArg(lookAheadID))
}

// NextScheduledPlanTask returns the earliest open task of a plan scheduled on or after from.
func (r *TaskRepository) NextScheduledPlanTask(ctx context.Context, planID uuid.UUID, from models.Date) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE study_plan_id = $1 AND status IN ('INBOX', 'ACTIVE') AND scheduled_date >= $2
		ORDER BY scheduled_date, created_at LIMIT 1`
	return r.first(ctx, query, planID, from.String())
}

// NextInboxPlanTask returns the plan's INBOX task with the earliest schedule, then creation time.
func (r *TaskRepository) NextInboxPlanTask(ctx context.Context, planID uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE study_plan_id = $1 AND status = 'INBOX'
		ORDER BY scheduled_date, created_at LIMIT 1`
	return r.first(ctx, query, planID)
}

// OldestInbox returns the owner's oldest INBOX personal task, optionally of one difficulty.
func (r *TaskRepository) OldestInbox(ctx context.Context, ownerID uuid.UUID, difficulty *models.Difficulty) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE owner_id = $1 AND team_id IS NULL AND status = 'INBOX'`
	args := []any{ownerID}
	if difficulty != nil {
		query += ` AND difficulty = $2`
		args = append(args, string(*difficulty))
	}
	query += ` ORDER BY created_at LIMIT 1`
	return r.first(ctx, query, args...)
}

// ListCompleted returns the owner's completed personal tasks, most recent first.
func (r *TaskRepository) ListCompleted(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE owner_id = $1 AND team_id IS NULL AND status = 'COMPLETED'
		ORDER BY completed_at DESC`
	return r.list(ctx, query, ownerID)
}

// DeleteCompleted removes the owner's completed personal tasks and returns how many were removed.
func (r *TaskRepository) DeleteCompleted(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	result, err := r.db.conn(ctx).ExecContext(ctx,
		`DELETE FROM tasks WHERE owner_id = $1 AND team_id IS NULL AND status = 'COMPLETED'`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete completed tasks: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// completedBy matches tasks credited to a user: personal tasks they own and team tasks
// assigned to them.
const completedBy = `status = 'COMPLETED' AND ((team_id IS NULL AND owner_id = $1) OR (team_id IS NOT NULL AND assignee_id = $1))`

// CountCompletedByDifficulty counts tasks of a difficulty completed by the user.
func (r *TaskRepository) CountCompletedByDifficulty(ctx context.Context, userID uuid.UUID, difficulty models.Difficulty) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM tasks WHERE `+completedBy+` AND difficulty = $2`, userID, string(difficulty))
}

// CountCompletedBetween counts tasks completed by the user in [from, to).
func (r *TaskRepository) CountCompletedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM tasks WHERE `+completedBy+` AND completed_at >= $2 AND completed_at < $3`,
		userID, from.UTC(), to.UTC())
}

// ListOpenByTeam returns a team's INBOX and ACTIVE tasks, oldest first.
func (r *TaskRepository) ListOpenByTeam(ctx context.Context, teamID uuid.UUID) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE team_id = $1 AND status IN ('INBOX', 'ACTIVE')
		ORDER BY created_at, id`
	return r.list(ctx, query, teamID)
}

// ListCompletedByTeamBetween returns a team's tasks completed in [from, to), most recent first.
func (r *TaskRepository) ListCompletedByTeamBetween(ctx context.Context, teamID uuid.UUID, from, to time.Time) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE team_id = $1 AND status = 'COMPLETED' AND completed_at >= $2 AND completed_at < $3
		ORDER BY completed_at DESC`
	return r.list(ctx, query, teamID, from.UTC(), to.UTC())
}

// ListByPlan returns every task of a plan ordered by schedule.
func (r *TaskRepository) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE study_plan_id = $1
		ORDER BY scheduled_date, created_at`
	return r.list(ctx, query, planID)
}

func (r *TaskRepository) first(ctx context.Context, query string, args ...any) (*models.Task, error) {
	task, err := scanTask(r.db.conn(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var (
		subTasks       []byte
		teamID         uuid.NullUUID
		assigneeID     uuid.NullUUID
		studyPlanID    uuid.NullUUID
		scheduled      nullDate
		snoozedUntil   sql.NullTime
		timerStartedAt sql.NullTime
		timerRemaining sql.NullInt64
		completedAt    sql.NullTime
	)
	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Status,
		&task.Category,
		&task.Difficulty,
		&task.TimeEstimateMinutes,
		&subTasks,
		&task.Memo,
		&task.Important,
		&teamID,
		&assigneeID,
		&studyPlanID,
		&scheduled,
		&snoozedUntil,
		&timerStartedAt,
		&timerRemaining,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	task.SubTasks = []string{}
	if len(subTasks) > 0 {
		if err := json.Unmarshal(subTasks, &task.SubTasks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sub tasks: %w", err)
		}
	}
	task.TeamID = uuidPtr(teamID)
	task.AssigneeID = uuidPtr(assigneeID)
	task.StudyPlanID = uuidPtr(studyPlanID)
	task.ScheduledDate = scheduled.ptr()
	task.SnoozedUntil = timePtr(snoozedUntil)
	task.TimerStartedAt = timePtr(timerStartedAt)
	task.TimerRemainingSecs = intPtr(timerRemaining)
	task.CompletedAt = timePtr(completedAt)
	return task, nil
}

func marshalSubTasks(subTasks []string) (string, error) {
	if subTasks == nil {
		subTasks = []string{}
	}
	b, err := json.Marshal(subTasks)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sub tasks: %w", err)
	}
	return string(b), nil
}

func expectOneRow(result sql.Result, entity string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s not found: %w", entity, ErrNotFound)
	}
	return nil
}
