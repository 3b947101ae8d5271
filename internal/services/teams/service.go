// Package teams implements teams, membership and shared team tasks.
package teams

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
	"github.com/benvon/focus-quest/internal/services/tasks"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxNameLength bounds team names in characters.
const MaxNameLength = 100

// TaskStore is the task storage a team needs
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	ListOpenByTeam(ctx context.Context, teamID uuid.UUID) ([]*models.Task, error)
	ListCompletedByTeamBetween(ctx context.Context, teamID uuid.UUID, from, to time.Time) ([]*models.Task, error)
}

// UserFinder resolves invitees by email.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service runs team operations
type Service struct {
	tx       database.TxRunner
	teams    database.TeamRepositoryInterface
	users    UserFinder
	tasks    TaskStore
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a team service.
func NewService(tx database.TxRunner, teams database.TeamRepositoryInterface, users UserFinder, taskStore TaskStore, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		tx:       tx,
		teams:    teams,
		users:    users,
		tasks:    taskStore,
		location: loc,
		logger:   log,
		now:      time.Now,
	}
}

// Create makes a team owned by the actor, who becomes its first member.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Team name cannot be empty.")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, models.NewValidationError(fmt.Sprintf("Team name must be at most %d characters.", MaxNameLength))
	}
	team := &models.Team{ID: uuid.New(), Name: name, OwnerID: actor}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	s.logger.Info("team_created",
		zap.String("user_id", actor.String()),
		zap.String("team_id", team.ID.String()),
	)
	return team, nil
}

// List returns the teams the actor belongs to.
func (s *Service) List(ctx context.Context, actor uuid.UUID) ([]*models.Team, error) {
	teams, err := s.teams.ListForUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	if teams == nil {
		teams = []*models.Team{}
	}
	return teams, nil
}

// Dashboard is the shared view of a team
type Dashboard struct {
	Team            *models.Team         `json:"team"`
	MyAssignedTasks []*models.Task       `json:"my_assigned_tasks"`
	OtherTeamTasks  []*models.Task       `json:"other_team_tasks"`
	CompletedToday  []*models.Task       `json:"completed_today"`
	Members         []*models.TeamMember `json:"members"`
	IsOwner         bool                 `json:"is_owner"`
}

// Dashboard returns the team's open tasks split by assignee, what was completed today
// and the member list. Only members may see it.
func (s *Service) Dashboard(ctx context.Context, actor, teamID uuid.UUID) (*Dashboard, error) {
	team, err := s.memberTeam(ctx, actor, teamID)
	if err != nil {
		return nil, err
	}

	open, err := s.tasks.ListOpenByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team tasks: %w", err)
	}
	dash := &Dashboard{
		Team:            team,
		MyAssignedTasks: []*models.Task{},
		OtherTeamTasks:  []*models.Task{},
		IsOwner:         team.OwnerID == actor,
	}
	for _, task := range open {
		if task.AssigneeID != nil && *task.AssigneeID == actor {
			dash.MyAssignedTasks = append(dash.MyAssignedTasks, task)
		} else {
			dash.OtherTeamTasks = append(dash.OtherTeamTasks, task)
		}
	}

	y, m, d := s.now().In(s.location).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.location)
	if dash.CompletedToday, err = s.tasks.ListCompletedByTeamBetween(ctx, teamID, start, start.AddDate(0, 0, 1)); err != nil {
		return nil, fmt.Errorf("failed to list completed team tasks: %w", err)
	}
	if dash.CompletedToday == nil {
		dash.CompletedToday = []*models.Task{}
	}
	if dash.Members, err = s.teams.ListMembers(ctx, teamID); err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return dash, nil
}

// Invite adds the user with email to the team. Only the owner may invite.
func (s *Service) Invite(ctx context.Context, actor, teamID uuid.UUID, email string) (*models.User, error) {
	team, err := s.team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.OwnerID != actor {
		return nil, models.ErrPermissionDenied
	}
	user, err := s.users.GetByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, database.ErrNotFound) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.teams.AddMember(ctx, teamID, user.ID); err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			return nil, models.ErrAlreadyMember
		}
		return nil, err
	}
	s.logger.Info("team_member_added",
		zap.String("team_id", teamID.String()),
		zap.String("user_id", logger.SanitizeUserID(user.ID.String())),
	)
	return user, nil
}

// AddTask creates a team task. assignee is models.AssignAll for one task per member,
// a member's id, or anything else for an unassigned task.
func (s *Service) AddTask(ctx context.Context, actor, teamID uuid.UUID, title, assignee string) ([]*models.Task, error) {
	title, err := tasks.ValidateTitle(title)
	if err != nil {
		return nil, err
	}
	if _, err := s.memberTeam(ctx, actor, teamID); err != nil {
		return nil, err
	}

	var assignees []*uuid.UUID
	switch assignee = strings.TrimSpace(assignee); {
	case assignee == models.AssignAll:
		members, err := s.teams.ListMembers(ctx, teamID)
		if err != nil {
			return nil, fmt.Errorf("failed to list team members: %w", err)
		}
		for _, m := range members {
			id := m.UserID
			assignees = append(assignees, &id)
		}
	default:
		assignees = []*uuid.UUID{s.memberID(ctx, teamID, assignee)}
	}

	created := make([]*models.Task, 0, len(assignees))
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, a := range assignees {
			task := models.NewTask(actor, title)
			task.TeamID = &teamID
			task.AssigneeID = a
			if err := s.tasks.Create(ctx, task); err != nil {
				return err
			}
			created = append(created, task)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add team task: %w", err)
	}
	s.logger.Info("team_task_added",
		zap.String("team_id", teamID.String()),
		zap.String("user_id", actor.String()),
		zap.Int("count", len(created)),
	)
	return created, nil
}

// memberID returns the parsed id when it names a member, else nil.
func (s *Service) memberID(ctx context.Context, teamID uuid.UUID, raw string) *uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	ok, err := s.teams.IsMember(ctx, teamID, id)
	if err != nil || !ok {
		return nil
	}
	return &id
}

func (s *Service) team(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, models.ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (s *Service) memberTeam(ctx context.Context, actor, teamID uuid.UUID) (*models.Team, error) {
	team, err := s.team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	ok, err := s.teams.IsMember(ctx, teamID, actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrPermissionDenied
	}
	return team, nil
}
