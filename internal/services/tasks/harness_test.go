package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/benvon/focus-quest/internal/database"
	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/services/gamification"
	"github.com/benvon/focus-quest/internal/session"
	"github.com/google/uuid"
)

// harness wires a Service to an in-memory SQLite database.
type harness struct {
	svc      *Service
	db       *database.DB
	tasks    *database.TaskRepository
	users    *database.UserRepository
	teams    *database.TeamRepository
	plans    *database.StudyPlanRepository
	profiles *database.ProfileRepository
	flags    *session.MemoryFlagStore
	clock    time.Time
}

func newHarness(t *testing.T, opts ...func(*Deps)) *harness {
	t.Helper()
	db, err := database.New("sqlite::memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	h := &harness{
		db:       db,
		tasks:    database.NewTaskRepository(db),
		users:    database.NewUserRepository(db),
		teams:    database.NewTeamRepository(db),
		plans:    database.NewStudyPlanRepository(db),
		profiles: database.NewProfileRepository(db),
		flags:    session.NewMemoryFlagStore(time.Hour),
		// a Wednesday afternoon, outside both streak windows
		clock: time.Date(2026, 10, 14, 14, 0, 0, 0, time.UTC),
	}
	engine := gamification.NewEngine(h.profiles, database.NewBadgeRepository(db), h.tasks, time.UTC, nil)
	deps := Deps{
		Tx:       db,
		Tasks:    h.tasks,
		Plans:    h.plans,
		Teams:    h.teams,
		Gamifier: engine,
		Flags:    h.flags,
		Location: time.UTC,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.svc = NewService(deps)
	h.svc.now = func() time.Time { return h.clock }
	return h
}

func (h *harness) user(t *testing.T, email string) uuid.UUID {
	t.Helper()
	u := &models.User{ID: uuid.New(), Email: email}
	if err := h.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

// task inserts an INBOX task created minutesAgo before the harness clock.
func (h *harness) task(t *testing.T, owner uuid.UUID, title string, minutesAgo int, mutate ...func(*models.Task)) *models.Task {
	t.Helper()
	task := models.NewTask(owner, title)
	task.CreatedAt = h.clock.Add(-time.Duration(minutesAgo) * time.Minute)
	for _, m := range mutate {
		m(task)
	}
	if err := h.tasks.Create(context.Background(), task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func (h *harness) reload(t *testing.T, id uuid.UUID) *models.Task {
	t.Helper()
	task, err := h.tasks.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	return task
}

func (h *harness) team(t *testing.T, owner uuid.UUID, members ...uuid.UUID) *models.Team {
	t.Helper()
	ctx := context.Background()
	team := &models.Team{Name: "crew", OwnerID: owner}
	if err := h.teams.Create(ctx, team); err != nil {
		t.Fatalf("create team: %v", err)
	}
	for _, m := range members {
		if err := h.teams.AddMember(ctx, team.ID, m); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	return team
}

func inTeam(team *models.Team, assignee *uuid.UUID) func(*models.Task) {
	return func(task *models.Task) {
		task.TeamID = &team.ID
		task.AssigneeID = assignee
	}
}

func activeCount(t *testing.T, h *harness, owner uuid.UUID) int {
	t.Helper()
	n := 0
	if _, err := h.tasks.GetActivePersonal(context.Background(), owner); err == nil {
		n++
	}
	return n
}
