package database

import (
	"context"
	"time"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
)

// TxRunner runs a function inside a transaction carried by its context.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TaskRepositoryInterface defines the interface for task repository operations
// This interface enables better testability by allowing mock implementations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Complete(ctx context.Context, id uuid.UUID, completedAt time.Time, assigneeID *uuid.UUID) (bool, error)
	UpdateEnrichment(ctx context.Context, id uuid.UUID, category string, difficulty models.Difficulty, estimate int, subTasks []string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) (bool, error)
	GetActivePersonal(ctx context.Context, ownerID uuid.UUID) (*models.Task, error)
	ListDashboard(ctx context.Context, userID uuid.UUID, planID *uuid.UUID, today models.Date, lookAheadID *uuid.UUID) ([]*models.Task, error)
	NextScheduledPlanTask(ctx context.Context, planID uuid.UUID, from models.Date) (*models.Task, error)
	NextInboxPlanTask(ctx context.Context, planID uuid.UUID) (*models.Task, error)
	OldestInbox(ctx context.Context, ownerID uuid.UUID, difficulty *models.Difficulty) (*models.Task, error)
	ListCompleted(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error)
	DeleteCompleted(ctx context.Context, ownerID uuid.UUID) (int64, error)
	CountCompletedByDifficulty(ctx context.Context, userID uuid.UUID, difficulty models.Difficulty) (int, error)
	CountCompletedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)
	ListOpenByTeam(ctx context.Context, teamID uuid.UUID) ([]*models.Task, error)
	ListCompletedByTeamBetween(ctx context.Context, teamID uuid.UUID, from, to time.Time) ([]*models.Task, error)
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*models.Task, error)
	ListAwaitingEnrichment(ctx context.Context, from, to time.Time, limit int) ([]*models.Task, error)
}

// ProfileRepositoryInterface defines the interface for profile repository operations
type ProfileRepositoryInterface interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
}

// BadgeRepositoryInterface defines the interface for badge repository operations
type BadgeRepositoryInterface interface {
	GetOrCreate(ctx context.Context, name, description, icon string) (*models.Badge, error)
	Award(ctx context.Context, userID, badgeID uuid.UUID, at time.Time) (bool, error)
	List(ctx context.Context) ([]*models.Badge, error)
	ListAwards(ctx context.Context, userID uuid.UUID) ([]*models.UserBadge, error)
}

// StudyPlanRepositoryInterface defines the interface for study plan repository operations
type StudyPlanRepositoryInterface interface {
	Create(ctx context.Context, plan *models.StudyPlan) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.StudyPlan, error)
	GetActive(ctx context.Context, userID uuid.UUID) (*models.StudyPlan, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StudyPlan, error)
	DemoteActive(ctx context.Context, userID uuid.UUID) error
	SetActive(ctx context.Context, id, userID uuid.UUID) error
	MarkCompleted(ctx context.Context, id, userID uuid.UUID) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	DeleteCompleted(ctx context.Context, userID uuid.UUID) (int64, error)
}

// TeamRepositoryInterface defines the interface for team repository operations
type TeamRepositoryInterface interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Team, error)
	AddMember(ctx context.Context, teamID, userID uuid.UUID) error
	IsMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]*models.TeamMember, error)
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// RatelimitConfigRepositoryInterface defines the interface for rate limit configuration
type RatelimitConfigRepositoryInterface interface {
	Get(ctx context.Context) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// Ensure concrete types implement the interfaces
var (
	_ TxRunner                           = (*DB)(nil)
	_ TaskRepositoryInterface            = (*TaskRepository)(nil)
	_ ProfileRepositoryInterface         = (*ProfileRepository)(nil)
	_ BadgeRepositoryInterface           = (*BadgeRepository)(nil)
	_ StudyPlanRepositoryInterface       = (*StudyPlanRepository)(nil)
	_ TeamRepositoryInterface            = (*TeamRepository)(nil)
	_ UserRepositoryInterface            = (*UserRepository)(nil)
	_ RatelimitConfigRepositoryInterface = (*RatelimitConfigRepository)(nil)
)
