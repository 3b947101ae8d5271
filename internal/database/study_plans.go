package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
)

const planColumns = `id, user_id, subject, goal, duration_days, generated_plan, start_date, end_date,
	is_active, is_completed, created_at`

// StudyPlanRepository handles study plan persistence
type StudyPlanRepository struct {
	db *DB
}

// NewStudyPlanRepository creates a new study plan repository
func NewStudyPlanRepository(db *DB) *StudyPlanRepository {
	return &StudyPlanRepository{db: db}
}

// Create inserts a plan. Callers making it active must demote the user's other plans
// first in the same transaction.
func (r *StudyPlanRepository) Create(ctx context.Context, plan *models.StudyPlan) error {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	plan.ComputeEndDate()
	ts := now()
	_, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO study_plans (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		plan.ID,
		plan.UserID,
		plan.Subject,
		plan.Goal,
		plan.DurationDays,
		plan.GeneratedPlan,
		plan.StartDate.String(),
		plan.EndDate.String(),
		plan.IsActive,
		plan.IsCompleted,
		ts,
	)
	if err != nil {
		return fmt.Errorf("failed to create study plan: %w", translateError(err))
	}
	plan.CreatedAt = ts
	return nil
}

// GetByID retrieves a plan owned by userID
func (r *StudyPlanRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.StudyPlan, error) {
	return r.first(ctx, `SELECT `+planColumns+` FROM study_plans WHERE id = $1 AND user_id = $2`, id, userID)
}

// GetActive returns the user's active plan, or ErrNotFound.
func (r *StudyPlanRepository) GetActive(ctx context.Context, userID uuid.UUID) (*models.StudyPlan, error) {
	return r.first(ctx, `SELECT `+planColumns+` FROM study_plans WHERE user_id = $1 AND is_active = TRUE`, userID)
}

// ListByUser returns the user's plans, newest first.
func (r *StudyPlanRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StudyPlan, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx,
		`SELECT `+planColumns+` FROM study_plans WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list study plans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var plans []*models.StudyPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan study plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating study plans: %w", err)
	}
	return plans, nil
}

// DemoteActive clears the active flag on every plan of the user.
func (r *StudyPlanRepository) DemoteActive(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.conn(ctx).ExecContext(ctx,
		`UPDATE study_plans SET is_active = FALSE WHERE user_id = $1 AND is_active = TRUE`, userID)
	if err != nil {
		return fmt.Errorf("failed to demote study plans: %w", err)
	}
	return nil
}

// SetActive marks one plan of the user active.
func (r *StudyPlanRepository) SetActive(ctx context.Context, id, userID uuid.UUID) error {
	result, err := r.db.conn(ctx).ExecContext(ctx,
		`UPDATE study_plans SET is_active = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to activate study plan: %w", translateError(err))
	}
	return expectOneRow(result, "study plan")
}

// MarkCompleted sets the completion flag of a plan.
func (r *StudyPlanRepository) MarkCompleted(ctx context.Context, id, userID uuid.UUID) error {
	result, err := r.db.conn(ctx).ExecContext(ctx,
		`UPDATE study_plans SET is_completed = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to complete study plan: %w", err)
	}
	return expectOneRow(result, "study plan")
}

// Delete removes a plan and its tasks.
func (r *StudyPlanRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return r.db.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := r.db.conn(ctx).ExecContext(ctx, `
			DELETE FROM tasks WHERE study_plan_id IN (SELECT id FROM study_plans WHERE id = $1 AND user_id = $2)
		`, id, userID); err != nil {
			return fmt.Errorf("failed to delete study plan tasks: %w", err)
		}
		result, err := r.db.conn(ctx).ExecContext(ctx,
			`DELETE FROM study_plans WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("failed to delete study plan: %w", err)
		}
		return expectOneRow(result, "study plan")
	})
}

// DeleteCompleted removes the user's completed plans and their tasks, returning the
// number of plans removed.
func (r *StudyPlanRepository) DeleteCompleted(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := r.db.conn(ctx).ExecContext(ctx, `
			DELETE FROM tasks WHERE study_plan_id IN (SELECT id FROM study_plans WHERE user_id = $1 AND is_completed = TRUE)
		`, userID); err != nil {
			return fmt.Errorf("failed to delete completed plan tasks: %w", err)
		}
		result, err := r.db.conn(ctx).ExecContext(ctx,
			`DELETE FROM study_plans WHERE user_id = $1 AND is_completed = TRUE`, userID)
		if err != nil {
			return fmt.Errorf("failed to delete completed plans: %w", err)
		}
		n, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		return nil
	})
	return n, err
}

func (r *StudyPlanRepository) first(ctx context.Context, query string, args ...any) (*models.StudyPlan, error) {
	plan, err := scanPlan(r.db.conn(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("study plan not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get study plan: %w", err)
	}
	return plan, nil
}

func scanPlan(row rowScanner) (*models.StudyPlan, error) {
	plan := &models.StudyPlan{}
	err := row.Scan(
		&plan.ID,
		&plan.UserID,
		&plan.Subject,
		&plan.Goal,
		&plan.DurationDays,
		&plan.GeneratedPlan,
		&plan.StartDate,
		&plan.EndDate,
		&plan.IsActive,
		&plan.IsCompleted,
		&plan.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return plan, nil
}
