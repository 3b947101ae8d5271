package plans

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/planparser"
	"github.com/benvon/focus-quest/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpandResult reports how many tasks a plan day produced. Reason explains a zero.
type ExpandResult struct {
	Added  int    `json:"added"`
	Reason string `json:"reason,omitempty"`
}

// ExpandDay turns the plan day named by day ("3", "day-3") into INBOX tasks scheduled
// on that day of the plan. A day that is missing or has no task lines adds nothing.
func (s *Service) ExpandDay(ctx context.Context, actor, planID uuid.UUID, day string) (*ExpandResult, error) {
	n, ok := planparser.DayOrdinal(day)
	if !ok {
		return nil, models.NewValidationError("Invalid day format.")
	}
	plan, err := s.Get(ctx, actor, planID)
	if err != nil {
		return nil, err
	}

	tasks := DayTasks(plan, n)
	if len(tasks) == 0 {
		s.logger.Info("study_plan_day_not_found",
			zap.String("plan_id", plan.ID.String()),
			zap.Int("day", n),
		)
		return &ExpandResult{Reason: fmt.Sprintf("could not find tasks for day %d", n)}, nil
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, task := range tasks {
			if err := s.tasks.Create(ctx, task); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add plan day tasks: %w", err)
	}

	if err := s.flags.Set(ctx, actor, session.FlagSuppressAutoActivate); err != nil {
		s.logger.Warn("session_flag_set_failed",
			zap.String("flag", string(session.FlagSuppressAutoActivate)),
			zap.Error(err),
		)
	}
	s.logger.Info("study_plan_day_expanded",
		zap.String("user_id", actor.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.Int("day", n),
		zap.Int("added", len(tasks)),
	)
	return &ExpandResult{Added: len(tasks)}, nil
}

// DayTasks builds the unsaved tasks for day n of plan.
func DayTasks(plan *models.StudyPlan, n int) []*models.Task {
	day, ok := planparser.FindDay(planparser.ExtractDays(plan.GeneratedPlan), n)
	if !ok {
		return nil
	}
	scheduled := plan.DayDate(n)
	var tasks []*models.Task
	for _, line := range planparser.ExtractDayTasks(planparser.StripTags(day.Content)) {
		clean := strings.TrimSpace(planparser.StripTags(planparser.RenderEmphasis(line)))
		if clean == "" {
			continue
		}
		task := models.NewTask(plan.UserID, fmt.Sprintf("%s (Day %d): %s", plan.Subject, n, clean))
		task.StudyPlanID = &plan.ID
		date := scheduled
		task.ScheduledDate = &date
		tasks = append(tasks, task)
	}
	return tasks
}
