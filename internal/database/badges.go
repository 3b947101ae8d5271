package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
)

// BadgeRepository handles badge definitions and awards
type BadgeRepository struct {
	db *DB
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// GetOrCreate returns the badge named name, creating it if it does not exist.
func (r *BadgeRepository) GetOrCreate(ctx context.Context, name, description, icon string) (*models.Badge, error) {
	_, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO badges (id, name, description, icon, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO NOTHING
	`, uuid.New(), name, description, icon, now())
	if err != nil {
		return nil, fmt.Errorf("failed to create badge: %w", err)
	}

	b := &models.Badge{}
	err = r.db.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, description, icon, created_at FROM badges WHERE name = $1
	`, name).Scan(&b.ID, &b.Name, &b.Description, &b.Icon, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("badge not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get badge: %w", err)
	}
	return b, nil
}

// Award records that the user earned the badge. It reports false when the award
// already existed.
func (r *BadgeRepository) Award(ctx context.Context, userID, badgeID uuid.UUID, at time.Time) (bool, error) {
	result, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO user_badges (id, user_id, badge_id, awarded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`, uuid.New(), userID, badgeID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to award badge: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// List returns every badge definition by creation time.
func (r *BadgeRepository) List(ctx context.Context) ([]*models.Badge, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `
		SELECT id, name, description, icon, created_at FROM badges ORDER BY created_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var badges []*models.Badge
	for rows.Next() {
		b := &models.Badge{}
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Icon, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating badges: %w", err)
	}
	return badges, nil
}

// ListAwards returns the user's awards, most recent first.
func (r *BadgeRepository) ListAwards(ctx context.Context, userID uuid.UUID) ([]*models.UserBadge, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `
		SELECT id, user_id, badge_id, awarded_at FROM user_badges
		WHERE user_id = $1 ORDER BY awarded_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list awards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var awards []*models.UserBadge
	for rows.Next() {
		ub := &models.UserBadge{}
		if err := rows.Scan(&ub.ID, &ub.UserID, &ub.BadgeID, &ub.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan award: %w", err)
		}
		awards = append(awards, ub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating awards: %w", err)
	}
	return awards, nil
}
