// Package tasks implements the task lifecycle: creation, activation under the
// single-active-task rule, completion with gamification, snooze, timers and the dashboard.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/benvon/focus-quest/internal/database"
	"github.com/benvon/focus-quest/internal/logger"
	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/queue"
	"github.com/benvon/focus-quest/internal/services/ai"
	"github.com/benvon/focus-quest/internal/services/gamification"
	"github.com/benvon/focus-quest/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxTitleLength bounds task titles in characters.
const MaxTitleLength = 200

// Gamifier receives completions and serves profiles.
type Gamifier interface {
	OnTaskCompleted(ctx context.Context, userID uuid.UUID, task *models.Task) (*gamification.CompletionResult, error)
	Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// Enricher derives task metadata from a title.
type Enricher interface {
	Enrich(ctx context.Context, title string) ai.Enrichment
}

// Enqueuer publishes background jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// PlanFinder looks up a user's active study plan.
type PlanFinder interface {
	GetActive(ctx context.Context, userID uuid.UUID) (*models.StudyPlan, error)
}

// TeamFinder looks up teams.
type TeamFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error)
}

// Deps are the collaborators of a Service. Enricher and Queue are optional.
type Deps struct {
	Tx       database.TxRunner
	Tasks    database.TaskRepositoryInterface
	Plans    PlanFinder
	Teams    TeamFinder
	Gamifier Gamifier
	Flags    session.FlagStore
	Enricher Enricher
	Queue    Enqueuer
	Location *time.Location
	Logger   *zap.Logger
}

// Service runs task operations
type Service struct {
	tx       database.TxRunner
	tasks    database.TaskRepositoryInterface
	plans    PlanFinder
	teams    TeamFinder
	gamifier Gamifier
	flags    session.FlagStore
	enricher Enricher
	queue    Enqueuer
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a task service.
func NewService(d Deps) *Service {
	s := &Service{
		tx:       d.Tx,
		tasks:    d.Tasks,
		plans:    d.Plans,
		teams:    d.Teams,
		gamifier: d.Gamifier,
		flags:    d.Flags,
		enricher: d.Enricher,
		queue:    d.Queue,
		location: d.Location,
		logger:   d.Logger,
		now:      time.Now,
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.flags == nil {
		s.flags = session.NewMemoryFlagStore(session.DefaultTTL)
	}
	return s
}

// ValidateTitle trims title and checks it is present and at most MaxTitleLength characters.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", models.NewValidationError("Task title cannot be empty.")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", models.NewValidationError(fmt.Sprintf("Task title must be at most %d characters.", MaxTitleLength))
	}
	return title, nil
}

// CreateManual adds an INBOX task with default metadata and activates it when the
// actor has no active task.
func (s *Service) CreateManual(ctx context.Context, actor uuid.UUID, title string) (*models.Task, error) {
	title, err := ValidateTitle(title)
	if err != nil {
		return nil, err
	}
	task := models.NewTask(actor, title)
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	s.logger.Info("task_created",
		zap.String("user_id", actor.String()),
		zap.String("task_id", task.ID.String()),
		zap.String("source", "manual"),
	)
	return s.autoActivateNew(ctx, task)
}

// CreateAI adds a task whose metadata is derived from text by the AI collaborator.
// With a queue the task is stored first and enriched by the worker.
func (s *Service) CreateAI(ctx context.Context, actor uuid.UUID, text string) (*models.Task, error) {
	title, err := ValidateTitle(text)
	if err != nil {
		return nil, err
	}
	task := models.NewTask(actor, title)

	if s.queue == nil {
		s.enrich(ctx, task)
		if err := s.tasks.Create(ctx, task); err != nil {
			return nil, fmt.Errorf("failed to create task: %w", err)
		}
	} else {
		if err := s.tasks.Create(ctx, task); err != nil {
			return nil, fmt.Errorf("failed to create task: %w", err)
		}
		if err := s.queue.Enqueue(ctx, queue.NewEnrichTaskJob(actor, task.ID)); err != nil {
			s.logger.Warn("enrich_job_enqueue_failed_enriching_inline",
				zap.String("task_id", task.ID.String()),
				zap.Error(err),
			)
			s.enrich(ctx, task)
			if _, err := s.tasks.UpdateEnrichment(ctx, task.ID, task.Category, task.Difficulty, task.TimeEstimateMinutes, task.SubTasks); err != nil {
				return nil, fmt.Errorf("failed to store task enrichment: %w", err)
			}
		}
	}
	s.logger.Info("task_created",
		zap.String("user_id", actor.String()),
		zap.String("task_id", task.ID.String()),
		zap.String("source", "ai"),
		zap.Bool("queued", s.queue != nil),
	)
	return s.autoActivateNew(ctx, task)
}

func (s *Service) enrich(ctx context.Context, task *models.Task) {
	if s.enricher == nil {
		return
	}
	s.enricher.Enrich(ctx, task.Title).Apply(task)
}

func (s *Service) autoActivateNew(ctx context.Context, task *models.Task) (*models.Task, error) {
	ok, err := s.tryActivate(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		task.Status = models.TaskStatusActive
	}
	return task, nil
}

// tryActivate runs the guarded activation. A lost race is reported as false.
func (s *Service) tryActivate(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.tasks.Activate(ctx, id)
	if errors.Is(err, database.ErrUniqueViolation) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.Info("task_activated", zap.String("task_id", id.String()))
	}
	return ok, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, models.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// authorize loads the team owner when needed and applies Authorize.
func (s *Service) authorize(ctx context.Context, actor uuid.UUID, task *models.Task, action Action) error {
	var teamOwner uuid.UUID
	if task.TeamID != nil && s.teams != nil {
		team, err := s.teams.GetByID(ctx, *task.TeamID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}
		if team != nil {
			teamOwner = team.OwnerID
		}
	}
	if err := Authorize(actor, task, teamOwner, action); err != nil {
		s.logger.Info("task_permission_denied",
			zap.String("user_id", actor.String()),
			zap.String("task_id", task.ID.String()),
			zap.String("action", string(action)),
		)
		return err
	}
	return nil
}

// loadAuthorized loads a task and checks that actor may perform action on it.
func (s *Service) loadAuthorized(ctx context.Context, actor, id uuid.UUID, action Action) (*models.Task, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, task, action); err != nil {
		return nil, err
	}
	return task, nil
}

// Get returns a task the actor may edit.
func (s *Service) Get(ctx context.Context, actor, id uuid.UUID) (*models.Task, error) {
	return s.loadAuthorized(ctx, actor, id, ActionEdit)
}

// Activate moves an INBOX task to ACTIVE when the actor has no other active task.
func (s *Service) Activate(ctx context.Context, actor, id uuid.UUID) (*models.Task, error) {
	task, err := s.loadAuthorized(ctx, actor, id, ActionActivate)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusInbox {
		return nil, models.ErrTaskNotInbox
	}
	ok, err := s.tryActivate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrActiveTaskExists
	}
	return s.load(ctx, id)
}

// CompleteResult is a completed task with its gamification effects
type CompleteResult struct {
	Task         *models.Task                   `json:"task"`
	Gamification *gamification.CompletionResult `json:"gamification"`
}

// Complete marks an open task COMPLETED and awards xp and badges to the actor in the
// same transaction. An unassigned team task becomes assigned to the actor.
func (s *Service) Complete(ctx context.Context, actor, id uuid.UUID) (*CompleteResult, error) {
	var result *CompleteResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		task, err := s.loadAuthorized(ctx, actor, id, ActionComplete)
		if err != nil {
			return err
		}
		if !task.IsOpen() {
			return models.ErrTaskNotOpen
		}
		now := s.now().UTC()
		var assignee *uuid.UUID
		if !task.IsPersonal() && task.AssigneeID == nil {
			assignee = &actor
		}
		done, err := s.tasks.Complete(ctx, task.ID, now, assignee)
		if err != nil {
			return fmt.Errorf("failed to complete task: %w", err)
		}
		if !done {
			return models.ErrTaskNotOpen
		}
		task.Status = models.TaskStatusCompleted
		task.CompletedAt = &now
		if assignee != nil {
			task.AssigneeID = assignee
		}
		gained, err := s.gamifier.OnTaskCompleted(ctx, actor, task)
		if err != nil {
			return err
		}
		result = &CompleteResult{Task: task, Gamification: gained}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("task_completed",
		zap.String("user_id", actor.String()),
		zap.String("task_id", id.String()),
		zap.Int("xp_awarded", result.Gamification.XPAwarded),
		zap.Strings("new_badges", result.Gamification.NewBadges),
	)
	s.setFlag(ctx, actor, session.FlagShowMoodPrompt)
	return result, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	task, err := s.loadAuthorized(ctx, actor, id, ActionDelete)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	s.logger.Info("task_deleted",
		zap.String("user_id", actor.String()),
		zap.String("task_id", id.String()),
	)
	s.setFlag(ctx, actor, session.FlagShowMoodPrompt)
	return nil
}

// Snooze returns an open task to the INBOX and stamps snoozed_until one hour ahead.
func (s *Service) Snooze(ctx context.Context, actor, id uuid.UUID) (*models.Task, error) {
	task, err := s.loadAuthorized(ctx, actor, id, ActionSnooze)
	if err != nil {
		return nil, err
	}
	if !task.IsOpen() {
		return nil, models.ErrTaskNotOpen
	}
	until := s.now().UTC().Add(models.SnoozeDuration)
	task.Status = models.TaskStatusInbox
	task.SnoozedUntil = &until
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to snooze task: %w", err)
	}
	s.logger.Info("task_snoozed",
		zap.String("user_id", actor.String()),
		zap.String("task_id", id.String()),
		zap.Time("snoozed_until", until),
	)
	s.setFlag(ctx, actor, session.FlagShowMoodPrompt)
	return task, nil
}

// StartTimer records the start instant and seeds the countdown from the estimate.
func (s *Service) StartTimer(ctx context.Context, actor, id uuid.UUID) (*models.Task, error) {
	task, err := s.loadAuthorized(ctx, actor, id, ActionTimer)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	remaining := task.TimeEstimateMinutes * 60
	task.TimerStartedAt = &now
	task.TimerRemainingSecs = &remaining
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to start timer: %w", err)
	}
	return task, nil
}

// ExtendTimer adds five minutes to a started countdown.
func (s *Service) ExtendTimer(ctx context.Context, actor, id uuid.UUID) (*models.Task, error) {
	task, err := s.loadAuthorized(ctx, actor, id, ActionTimer)
	if err != nil {
		return nil, err
	}
	if task.TimerRemainingSecs == nil {
		return nil, models.ErrTimerNotStarted
	}
	remaining := *task.TimerRemainingSecs + models.TimerExtensionSeconds
	task.TimerRemainingSecs = &remaining
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to extend timer: %w", err)
	}
	return task, nil
}

// DetailsUpdate holds optional memo and importance edits
type DetailsUpdate struct {
	Memo      *string
	Important *bool
}

// UpdateDetails edits the memo and importance flag of a task.
func (s *Service) UpdateDetails(ctx context.Context, actor, id uuid.UUID, upd DetailsUpdate) (*models.Task, error) {
	task, err := s.loadAuthorized(ctx, actor, id, ActionEdit)
	if err != nil {
		return nil, err
	}
	if upd.Memo != nil {
		task.Memo = *upd.Memo
	}
	if upd.Important != nil {
		task.Important = *upd.Important
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

// SuggestByDifficulty activates the oldest INBOX task of difficulty, or the oldest INBOX
// task when none has that difficulty.
func (s *Service) SuggestByDifficulty(ctx context.Context, actor uuid.UUID, difficulty models.Difficulty) (*models.Task, error) {
	task, err := s.tasks.OldestInbox(ctx, actor, &difficulty)
	if errors.Is(err, database.ErrNotFound) {
		task, err = s.tasks.OldestInbox(ctx, actor, nil)
	}
	if errors.Is(err, database.ErrNotFound) {
		return nil, models.ErrNoPendingTasks
	}
	if err != nil {
		return nil, err
	}
	ok, err := s.tryActivate(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrActiveTaskExists
	}
	task.Status = models.TaskStatusActive
	return task, nil
}

// HistoryDay groups the tasks completed on one local date
type HistoryDay struct {
	Date  models.Date    `json:"date"`
	Tasks []*models.Task `json:"tasks"`
}

// History returns the actor's completed personal tasks grouped by local completion date,
// newest first.
func (s *Service) History(ctx context.Context, actor uuid.UUID) ([]HistoryDay, error) {
	completed, err := s.tasks.ListCompleted(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	days := []HistoryDay{}
	for _, task := range completed {
		if task.CompletedAt == nil {
			continue
		}
		date := models.DateOf(task.CompletedAt.In(s.location))
		if n := len(days); n > 0 && days[n-1].Date == date {
			days[n-1].Tasks = append(days[n-1].Tasks, task)
			continue
		}
		days = append(days, HistoryDay{Date: date, Tasks: []*models.Task{task}})
	}
	return days, nil
}

// ResetHistory deletes the actor's completed personal tasks.
func (s *Service) ResetHistory(ctx context.Context, actor uuid.UUID) (int64, error) {
	n, err := s.tasks.DeleteCompleted(ctx, actor)
	if err != nil {
		return 0, fmt.Errorf("failed to reset history: %w", err)
	}
	s.logger.Info("history_reset",
		zap.String("user_id", logger.SanitizeUserID(actor.String())),
		zap.Int64("deleted", n),
	)
	return n, nil
}

func (s *Service) setFlag(ctx context.Context, userID uuid.UUID, flag session.Flag) {
	if err := s.flags.Set(ctx, userID, flag); err != nil {
		s.logger.Warn("session_flag_set_failed",
			zap.String("flag", string(flag)),
			zap.Error(err),
		)
	}
}

func (s *Service) popFlag(ctx context.Context, userID uuid.UUID, flag session.Flag) bool {
	set, err := s.flags.Pop(ctx, userID, flag)
	if err != nil {
		s.logger.Warn("session_flag_pop_failed",
			zap.String("flag", string(flag)),
			zap.Error(err),
		)
	}
	return set
}
