package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
)

// ProfileRepository handles gamification profile persistence
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetOrCreate returns the user's profile, inserting a level 1 profile on first access.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	fresh := models.NewProfile(userID)
	_, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO profiles (user_id, xp, level, mood, early_bird_streak, night_owl_streak, version, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, 1, $5)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, fresh.XP, fresh.Level, fresh.Mood, now())
	if err != nil {
		return nil, fmt.Errorf("failed to provision profile: %w", err)
	}
	return r.GetByUserID(ctx, userID)
}

// GetByUserID retrieves a profile
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p := &models.Profile{}
	var earlyBird, nightOwl nullDate
	err := r.db.conn(ctx).QueryRowContext(ctx, `
		SELECT user_id, xp, level, mood, early_bird_streak, last_early_bird_date,
			night_owl_streak, last_night_owl_date, version, updated_at
		FROM profiles WHERE user_id = $1
	`, userID).Scan(
		&p.UserID,
		&p.XP,
		&p.Level,
		&p.Mood,
		&p.EarlyBirdStreak,
		&earlyBird,
		&p.NightOwlStreak,
		&nightOwl,
		&p.Version,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.LastEarlyBirdDate = earlyBird.ptr()
	p.LastNightOwlDate = nightOwl.ptr()
	return p, nil
}

// Update saves the profile if its version is unchanged since it was read, and bumps
// the version. A stale version returns ErrOptimisticLock.
func (r *ProfileRepository) Update(ctx context.Context, p *models.Profile) error {
	ts := now()
	result, err := r.db.conn(ctx).ExecContext(ctx, `
		UPDATE profiles
		SET xp = $2, level = $3, mood = $4, early_bird_streak = $5, last_early_bird_date = $6,
			night_owl_streak = $7, last_night_owl_date = $8, version = version + 1, updated_at = $9
		WHERE user_id = $1 AND version = $10
	`,
		p.UserID,
		p.XP,
		p.Level,
		p.Mood,
		p.EarlyBirdStreak,
		dateArg(p.LastEarlyBirdDate),
		p.NightOwlStreak,
		dateArg(p.LastNightOwlDate),
		ts,
		p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrOptimisticLock
	}
	p.Version++
	p.UpdatedAt = ts
	return nil
}
