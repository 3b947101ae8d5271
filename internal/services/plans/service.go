// Package plans manages AI-generated study plans and expands plan days into tasks.
package plans

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/focus-quest/internal/database"
	"github.com/benvon/focus-quest/internal/logger"
	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/planparser"
	"github.com/benvon/focus-quest/internal/services/ai"
	"github.com/benvon/focus-quest/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// generationFailureMarker is the text providers return instead of a plan on refusal.
const generationFailureMarker = "could not generate"

// TextGenerator produces plan text, returning "" when nothing usable came back.
type TextGenerator interface {
	Text(ctx context.Context, prompt string) string
}

// TaskCreator stores expanded plan tasks.
type TaskCreator interface {
	Create(ctx context.Context, task *models.Task) error
}

// Service runs study plan operations
type Service struct {
	tx       database.TxRunner
	plans    database.StudyPlanRepositoryInterface
	tasks    TaskCreator
	gen      TextGenerator
	flags    session.FlagStore
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a study plan service. A nil logger disables logging.
func NewService(tx database.TxRunner, plans database.StudyPlanRepositoryInterface, tasks TaskCreator, gen TextGenerator, flags session.FlagStore, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	if flags == nil {
		flags = session.NewMemoryFlagStore(session.DefaultTTL)
	}
	return &Service{
		tx:       tx,
		plans:    plans,
		tasks:    tasks,
		gen:      gen,
		flags:    flags,
		location: loc,
		logger:   log,
		now:      time.Now,
	}
}

// CreateRequest holds the inputs of a new plan
type CreateRequest struct {
	Subject      string
	Goal         string
	DurationDays int
}

// Validate trims the request and checks its bounds.
func (r *CreateRequest) Validate() error {
	r.Subject = strings.TrimSpace(r.Subject)
	r.Goal = strings.TrimSpace(r.Goal)
	if r.Subject == "" || r.Goal == "" {
		return models.NewValidationError("Please fill in all fields.")
	}
	if r.DurationDays < models.MinPlanDurationDays || r.DurationDays > models.MaxPlanDurationDays {
		return models.NewValidationError("Duration must be between 1 and 90 days.")
	}
	return nil
}

// Create generates a plan and stores it as the actor's only active plan, starting today.
// Nothing is stored when generation yields no usable text.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, req CreateRequest) (*models.StudyPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var text string
	if s.gen != nil {
		text = s.gen.Text(ctx, ai.StudyPlanPrompt(req.Subject, req.Goal, req.DurationDays))
	}
	if text == "" || strings.Contains(strings.ToLower(text), generationFailureMarker) {
		s.logger.Warn("study_plan_generation_failed",
			zap.String("user_id", actor.String()),
			zap.String("subject", logger.SanitizeString(req.Subject, 200)),
		)
		return nil, models.ErrPlanGenerationFailed
	}

	plan := &models.StudyPlan{
		ID:            uuid.New(),
		UserID:        actor,
		Subject:       req.Subject,
		Goal:          req.Goal,
		DurationDays:  req.DurationDays,
		GeneratedPlan: text,
		StartDate:     models.DateOf(s.now().In(s.location)),
		IsActive:      true,
	}
	plan.ComputeEndDate()

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.plans.DemoteActive(ctx, actor); err != nil {
			return err
		}
		return s.plans.Create(ctx, plan)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store study plan: %w", err)
	}

	s.logger.Info("study_plan_created",
		zap.String("user_id", actor.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.Int("duration_days", plan.DurationDays),
		zap.Int("parsed_days", len(planparser.ExtractDays(text))),
	)
	return plan, nil
}

// View is a plan with its display structure
type View struct {
	Plan *models.StudyPlan `json:"plan"`
	Days []models.PlanDay  `json:"days"`
}

// Get returns one of the actor's plans.
func (s *Service) Get(ctx context.Context, actor, id uuid.UUID) (*models.StudyPlan, error) {
	plan, err := s.plans.GetByID(ctx, id, actor)
	if errors.Is(err, database.ErrNotFound) {
		return nil, models.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// View returns the plan and its days with emphasis rendered. Days without
// task lines are left out.
func (s *Service) View(ctx context.Context, actor, id uuid.UUID) (*View, error) {
	plan, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &View{Plan: plan, Days: Structure(plan.GeneratedPlan)}, nil
}

// Structure parses plan text into displayable days.
func Structure(text string) []models.PlanDay {
	days := []models.PlanDay{}
	for _, d := range planparser.ExtractDays(text) {
		lines := planparser.BulletLines(d.Content)
		if len(lines) == 0 {
			continue
		}
		tasks := make([]string, len(lines))
		for i, line := range lines {
			tasks[i] = planparser.RenderEmphasis(line)
		}
		days = append(days, models.PlanDay{
			Number: d.Number,
			Title:  strings.TrimSpace(fmt.Sprintf("Day %d %s", d.Number, d.Title)),
			Tasks:  tasks,
		})
	}
	return days
}

// List returns the actor's plans, newest first.
func (s *Service) List(ctx context.Context, actor uuid.UUID) ([]*models.StudyPlan, error) {
	plans, err := s.plans.ListByUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []*models.StudyPlan{}
	}
	return plans, nil
}

// Activate makes the plan the actor's only active plan.
func (s *Service) Activate(ctx context.Context, actor, id uuid.UUID) (*models.StudyPlan, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.Get(ctx, actor, id); err != nil {
			return err
		}
		if err := s.plans.DemoteActive(ctx, actor); err != nil {
			return err
		}
		return s.plans.SetActive(ctx, id, actor)
	})
	if err != nil {
		return nil, s.translate(err)
	}
	return s.Get(ctx, actor, id)
}

// Complete marks the plan completed.
func (s *Service) Complete(ctx context.Context, actor, id uuid.UUID) (*models.StudyPlan, error) {
	if err := s.plans.MarkCompleted(ctx, id, actor); err != nil {
		return nil, s.translate(err)
	}
	s.logger.Info("study_plan_completed",
		zap.String("user_id", actor.String()),
		zap.String("plan_id", id.String()),
	)
	return s.Get(ctx, actor, id)
}

// Delete removes the plan and its tasks.
func (s *Service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if err := s.plans.Delete(ctx, id, actor); err != nil {
		return s.translate(err)
	}
	s.logger.Info("study_plan_deleted",
		zap.String("user_id", actor.String()),
		zap.String("plan_id", id.String()),
	)
	return nil
}

// DeleteCompleted removes the actor's completed plans and their tasks.
func (s *Service) DeleteCompleted(ctx context.Context, actor uuid.UUID) (int64, error) {
	n, err := s.plans.DeleteCompleted(ctx, actor)
	if err != nil {
		return 0, err
	}
	s.logger.Info("completed_study_plans_deleted",
		zap.String("user_id", actor.String()),
		zap.Int64("deleted", n),
	)
	return n, nil
}

func (s *Service) translate(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return models.ErrPlanNotFound
	}
	return err
}
