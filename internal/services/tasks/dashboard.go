package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/focus-quest/internal/database"
	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dashboard is the personal work view
type Dashboard struct {
	ActiveTask     *models.Task      `json:"active_task"`
	PendingTasks   []*models.Task    `json:"pending_tasks"`
	ActivePlan     *models.StudyPlan `json:"active_plan,omitempty"`
	Profile        *models.Profile   `json:"profile"`
	Title          string            `json:"title"`
	XPForNextLevel int               `json:"xp_for_next_level"`
	ShowMood       bool              `json:"show_mood"`
}

// Dashboard assembles the actor's tasks and auto-activates one when nothing is active,
// unless suppress is set or a one-shot flag asks to hold off.
//
// The task set is the actor's open personal tasks, plan tasks included, open team tasks
// assigned to them, and tasks of the active study plan scheduled for today plus the next
// upcoming one.
func (s *Service) Dashboard(ctx context.Context, actor uuid.UUID, suppress bool) (*Dashboard, error) {
	showMood := s.popFlag(ctx, actor, session.FlagShowMoodPrompt)
	if s.popFlag(ctx, actor, session.FlagSuppressAutoActivate) {
		suppress = true
	}

	plan, err := s.activePlan(ctx, actor)
	if err != nil {
		return nil, err
	}
	today := models.DateOf(s.now().In(s.location))

	var planID, lookAhead *uuid.UUID
	if plan != nil {
		planID = &plan.ID
		next, err := s.tasks.NextScheduledPlanTask(ctx, plan.ID, today)
		switch {
		case err == nil:
			lookAhead = &next.ID
		case !errors.Is(err, database.ErrNotFound):
			return nil, fmt.Errorf("failed to find upcoming plan task: %w", err)
		}
	}

	set, err := s.tasks.ListDashboard(ctx, actor, planID, today, lookAhead)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboard tasks: %w", err)
	}

	active := firstWithStatus(set, models.TaskStatusActive)
	if active == nil && !showMood && !suppress {
		active, err = s.selectAndActivate(ctx, actor, plan, set)
		if err != nil {
			return nil, err
		}
	}

	pending := make([]*models.Task, 0, len(set))
	for _, task := range set {
		if task.Status == models.TaskStatusInbox && (active == nil || task.ID != active.ID) {
			pending = append(pending, task)
		}
	}

	profile, err := s.gamifier.Profile(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	return &Dashboard{
		ActiveTask:     active,
		PendingTasks:   pending,
		ActivePlan:     plan,
		Profile:        profile,
		Title:          profile.Title(),
		XPForNextLevel: profile.XPForNextLevel(),
		ShowMood:       showMood,
	}, nil
}

func (s *Service) activePlan(ctx context.Context, actor uuid.UUID) (*models.StudyPlan, error) {
	if s.plans == nil {
		return nil, nil
	}
	plan, err := s.plans.GetActive(ctx, actor)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active plan: %w", err)
	}
	return plan, nil
}

// selectAndActivate picks the next INBOX task of the active plan, else the oldest INBOX
// task of the set, and activates it. When a concurrent request won the activation the
// winner is returned instead.
func (s *Service) selectAndActivate(ctx context.Context, actor uuid.UUID, plan *models.StudyPlan, set []*models.Task) (*models.Task, error) {
	var candidate *models.Task
	if plan != nil {
		next, err := s.tasks.NextInboxPlanTask(ctx, plan.ID)
		switch {
		case err == nil:
			candidate = next
		case !errors.Is(err, database.ErrNotFound):
			return nil, fmt.Errorf("failed to find next plan task: %w", err)
		}
	}
	if candidate == nil {
		candidate = firstWithStatus(set, models.TaskStatusInbox)
	}
	if candidate == nil {
		return nil, nil
	}

	ok, err := s.tryActivate(ctx, candidate.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		candidate.Status = models.TaskStatusActive
		s.logger.Info("task_auto_activated",
			zap.String("user_id", actor.String()),
			zap.String("task_id", candidate.ID.String()),
		)
		return candidate, nil
	}

	winner, err := s.tasks.GetActivePersonal(ctx, actor)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active task: %w", err)
	}
	return winner, nil
}

func firstWithStatus(set []*models.Task, status models.TaskStatus) *models.Task {
	for _, task := range set {
		if task.Status == status {
			return task
		}
	}
	return nil
}
