// Package gamification awards experience, levels and badges for completed tasks.
package gamification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/focus-quest/internal/database"
	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxProfileRetries = 3

// CompletionCounter counts a user's completed tasks.
type CompletionCounter interface {
	CountCompletedByDifficulty(ctx context.Context, userID uuid.UUID, difficulty models.Difficulty) (int, error)
	CountCompletedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)
}

// Engine applies xp and badge rules
type Engine struct {
	profiles database.ProfileRepositoryInterface
	badges   database.BadgeRepositoryInterface
	counter  CompletionCounter
	location *time.Location
	logger   *zap.Logger
}

// NewEngine creates a gamification engine. Calendar rules use loc.
func NewEngine(profiles database.ProfileRepositoryInterface, badges database.BadgeRepositoryInterface, counter CompletionCounter, loc *time.Location, logger *zap.Logger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		profiles: profiles,
		badges:   badges,
		counter:  counter,
		location: loc,
		logger:   logger,
	}
}

// CompletionResult summarizes the gamification effects of one completion.
type CompletionResult struct {
	XPAwarded    int             `json:"xp_awarded"`
	LevelsGained int             `json:"levels_gained"`
	NewBadges    []string        `json:"new_badges"`
	Profile      *models.Profile `json:"profile"`
}

// OnTaskCompleted awards xp for the task and then evaluates badges. Call it with the
// task already marked COMPLETED, inside the same unit of work.
func (e *Engine) OnTaskCompleted(ctx context.Context, userID uuid.UUID, task *models.Task) (*CompletionResult, error) {
	profile, gained, err := e.AwardXP(ctx, userID, task.Difficulty)
	if err != nil {
		return nil, err
	}
	awarded, profile, err := e.evaluate(ctx, userID, task, profile)
	if err != nil {
		return nil, err
	}
	return &CompletionResult{
		XPAwarded:    XPForDifficulty(task.Difficulty),
		LevelsGained: gained,
		NewBadges:    awarded,
		Profile:      profile,
	}, nil
}

// AwardXP adds the difficulty's xp to the user's profile, creating the profile if needed.
func (e *Engine) AwardXP(ctx context.Context, userID uuid.UUID, difficulty models.Difficulty) (*models.Profile, int, error) {
	amount := XPForDifficulty(difficulty)
	var gained int
	profile, err := e.updateProfile(ctx, userID, func(p *models.Profile) {
		gained = ApplyXP(p, amount)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to award xp: %w", err)
	}
	if gained > 0 {
		e.logger.Info("level_up",
			zap.String("user_id", userID.String()),
			zap.Int("level", profile.Level),
			zap.Int("levels_gained", gained),
		)
	}
	return profile, gained, nil
}

// EvaluateBadges runs every badge rule for a completed task and returns the names of
// badges awarded by this call. Running it again for the same task awards nothing new.
func (e *Engine) EvaluateBadges(ctx context.Context, userID uuid.UUID, task *models.Task) ([]string, error) {
	awarded, _, err := e.evaluate(ctx, userID, task, nil)
	return awarded, err
}

func (e *Engine) evaluate(ctx context.Context, userID uuid.UUID, task *models.Task, profile *models.Profile) ([]string, *models.Profile, error) {
	if task.CompletedAt == nil {
		return nil, profile, errors.New("badge evaluation requires a completed task")
	}
	completed := task.CompletedAt.In(e.location)
	var earned []string

	if task.Difficulty == models.DifficultyHard {
		n, err := e.counter.CountCompletedByDifficulty(ctx, userID, models.DifficultyHard)
		if err != nil {
			return nil, nil, err
		}
		if n >= 5 {
			earned = append(earned, models.BadgeGiantSlayer)
		}
	}

	if daysBetween(task.CreatedAt, completed, e.location) >= 3 {
		earned = append(earned, models.BadgePhoenix)
	}

	if isWeekend(completed) {
		from, to := dayBounds(completed, e.location)
		n, err := e.counter.CountCompletedBetween(ctx, userID, from, to)
		if err != nil {
			return nil, nil, err
		}
		if n >= 3 {
			earned = append(earned, models.BadgeWeekendWarrior)
		}
	}

	if window := windowFor(completed); window != windowNone {
		today := models.DateOf(completed)
		var streak int
		updated, err := e.updateProfile(ctx, userID, func(p *models.Profile) {
			streak = applyStreak(p, window, today)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to update streak: %w", err)
		}
		profile = updated
		if streak >= streakTarget {
			if window == windowEarlyBird {
				earned = append(earned, models.BadgeEarlyBird)
			} else {
				earned = append(earned, models.BadgeNightOwl)
			}
		}
	}

	var awarded []string
	for _, name := range earned {
		created, err := e.award(ctx, userID, name, *task.CompletedAt)
		if err != nil {
			return nil, nil, err
		}
		if created {
			awarded = append(awarded, name)
		}
	}
	return awarded, profile, nil
}

func (e *Engine) award(ctx context.Context, userID uuid.UUID, name string, at time.Time) (bool, error) {
	badge, err := e.badges.GetOrCreate(ctx, name, models.BadgeDescriptions[name], models.DefaultBadgeIcon)
	if err != nil {
		return false, fmt.Errorf("failed to get badge %s: %w", name, err)
	}
	created, err := e.badges.Award(ctx, userID, badge.ID, at)
	if err != nil {
		return false, fmt.Errorf("failed to award badge %s: %w", name, err)
	}
	if created {
		e.logger.Info("badge_awarded",
			zap.String("user_id", userID.String()),
			zap.String("badge", name),
		)
	}
	return created, nil
}

// updateProfile applies mutate to a fresh copy of the profile and saves it, retrying
// when a concurrent writer bumped the version.
func (e *Engine) updateProfile(ctx context.Context, userID uuid.UUID, mutate func(p *models.Profile)) (*models.Profile, error) {
	var lastErr error
	for attempt := 0; attempt < maxProfileRetries; attempt++ {
		p, err := e.profiles.GetOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}
		mutate(p)
		err = e.profiles.Update(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, database.ErrOptimisticLock) {
			return nil, err
		}
		lastErr = err
		e.logger.Debug("profile_update_conflict",
			zap.String("user_id", userID.String()),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, lastErr
}

// SetMood stores the user's mood.
func (e *Engine) SetMood(ctx context.Context, userID uuid.UUID, mood models.Mood) (*models.Profile, error) {
	return e.updateProfile(ctx, userID, func(p *models.Profile) {
		p.Mood = mood
	})
}

// Profile returns the user's profile, creating it on first access.
func (e *Engine) Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return e.profiles.GetOrCreate(ctx, userID)
}

// ProfileView is the profile page: level, title and badges.
type ProfileView struct {
	Profile        *models.Profile `json:"profile"`
	Title          string          `json:"title"`
	XPForNextLevel int             `json:"xp_for_next_level"`
	Badges         []*models.Badge `json:"all_badges"`
	EarnedBadgeIDs []uuid.UUID     `json:"earned_badge_ids"`
}

// GetProfileView assembles the profile page for a user.
func (e *Engine) GetProfileView(ctx context.Context, userID uuid.UUID) (*ProfileView, error) {
	profile, err := e.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := e.badges.List(ctx)
	if err != nil {
		return nil, err
	}
	awards, err := e.badges.ListAwards(ctx, userID)
	if err != nil {
		return nil, err
	}
	earned := make([]uuid.UUID, 0, len(awards))
	for _, a := range awards {
		earned = append(earned, a.BadgeID)
	}
	if badges == nil {
		badges = []*models.Badge{}
	}
	return &ProfileView{
		Profile:        profile,
		Title:          profile.Title(),
		XPForNextLevel: profile.XPForNextLevel(),
		Badges:         badges,
		EarnedBadgeIDs: earned,
	}, nil
}
