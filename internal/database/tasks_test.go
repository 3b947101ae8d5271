package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
)

func TestTaskRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	owner := createTestUser(t, db, "owner@example.com")

	remaining := 600
	scheduled := models.Date{Year: 2025, Month: time.March, Day: 3}
	snoozed := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	task := models.NewTask(owner.ID, "Learn Go (Day 1): read the tour")
	task.SubTasks = []string{"install", "read"}
	task.Difficulty = models.DifficultyHard
	task.Important = true
	task.ScheduledDate = &scheduled
	task.SnoozedUntil = &snoozed
	task.TimerRemainingSecs = &remaining
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != task.Title || got.Status != models.TaskStatusInbox || got.Difficulty != models.DifficultyHard {
		t.Errorf("unexpected task %+v", got)
	}
	if len(got.SubTasks) != 2 || got.SubTasks[1] != "read" {
		t.Errorf("SubTasks = %q", got.SubTasks)
	}
	if !got.Important {
		t.Error("Important flag lost")
	}
	if got.ScheduledDate == nil || *got.ScheduledDate != scheduled {
		t.Errorf("ScheduledDate = %v", got.ScheduledDate)
	}
	if got.SnoozedUntil == nil || !got.SnoozedUntil.Equal(snoozed) {
		t.Errorf("SnoozedUntil = %v", got.SnoozedUntil)
	}
	if got.TimerRemainingSecs == nil || *got.TimerRemainingSecs != 600 {
		t.Errorf("TimerRemainingSecs = %v", got.TimerRemainingSecs)
	}
	if got.TeamID != nil || got.AssigneeID != nil || got.CompletedAt != nil {
		t.Error("expected nil optional references")
	}

	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskRepository_UpdateRequiresCompletionTimestamp(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	owner := createTestUser(t, db, "u@example.com")
	task := createTestTask(t, repo, owner.ID, "finish")

	task.Status = models.TaskStatusCompleted
	if err := repo.Update(ctx, task); err == nil {
		t.Fatal("expected error when completing without timestamp")
	}

	done := time.Now().UTC()
	task.CompletedAt = &done
	if err := repo.Update(ctx, task); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	task.Status = models.TaskStatusInbox
	if err := repo.Update(ctx, task); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, err := repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CompletedAt != nil {
		t.Error("completion timestamp must be cleared when not COMPLETED")
	}
}

func TestTaskRepository_CompleteOnlyOnce(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	owner := createTestUser(t, db, "once@example.com")
	other := createTestUser(t, db, "other@example.com")
	task := createTestTask(t, repo, owner.ID, "finish once")

	at := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	done, err := repo.Complete(ctx, task.ID, at, &owner.ID)
	if err != nil || !done {
		t.Fatalf("Complete() = %v, %v; want true", done, err)
	}
	done, err = repo.Complete(ctx, task.ID, at.Add(time.Hour), &other.ID)
	if err != nil {
		t.Fatalf("second Complete() error = %v", err)
	}
	if done {
		t.Error("second Complete() changed an already completed task")
	}

	got, err := repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.TaskStatusCompleted || got.CompletedAt == nil || !got.CompletedAt.Equal(at) {
		t.Errorf("stored task = %+v", got)
	}
	if got.AssigneeID == nil || *got.AssigneeID != owner.ID {
		t.Errorf("assignee = %v, want the first completer", got.AssigneeID)
	}

	if done, err := repo.Complete(ctx, uuid.New(), at, nil); err != nil || done {
		t.Errorf("Complete(missing) = %v, %v", done, err)
	}
}

func TestTaskRepository_ActivateSingleActive(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	owner := createTestUser(t, db, "solo@example.com")
	first := createTestTask(t, repo, owner.ID, "first")
	second := createTestTask(t, repo, owner.ID, "second")

	ok, err := repo.Activate(ctx, first.ID)
	if err != nil || !ok {
		t.Fatalf("Activate(first) = %v, %v", ok, err)
	}
	ok, err = repo.Activate(ctx, second.ID)
	if err != nil {
		t.Fatalf("Activate(second) error = %v", err)
	}
	if ok {
		t.Fatal("second activation must be refused while first is ACTIVE")
	}

	active, err := repo.GetActivePersonal(ctx, owner.ID)
	if err != nil {
		t.Fatal(err)
	}
	if active.ID != first.ID {
		t.Errorf("active task = %s, want %s", active.ID, first.ID)
	}

	ok, err = repo.Activate(ctx, first.ID)
	if err != nil || ok {
		t.Errorf("re-activating an ACTIVE task = %v, %v; want false, nil", ok, err)
	}
}

func TestTaskRepository_ActivateConcurrent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	owner := createTestUser(t, db, "race@example.com")
	tasks := []*models.Task{
		createTestTask(t, repo, owner.ID, "a"),
		createTestTask(t, repo, owner.ID, "b"),
	}

	var wg sync.WaitGroup
	results := make([]bool, len(tasks))
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			ok, err := repo.Activate(ctx, id)
			if err != nil && !errors.Is(err, ErrUniqueViolation) {
				t.Errorf("Activate() error = %v", err)
			}
			results[i] = ok
		}(i, task.ID)
	}
	wg.Wait()

	activated := 0
	for _, ok := range results {
		if ok {
			activated++
		}
	}
	if activated != 1 {
		t.Fatalf("expected exactly one activation, got %d", activated)
	}

	open, err := repo.ListDashboard(ctx, owner.ID, nil, models.DateOf(time.Now()), nil)
	if err != nil {
		t.Fatal(err)
	}
	active := 0
	for _, task := range open {
		if task.Status == models.TaskStatusActive {
			active++
		}
	}
	if active != 1 {
		t.Errorf("expected one ACTIVE task in storage, got %d", active)
	}
}

func TestTaskRepository_TeamActivationIsPerAssignee(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	owner := createTestUser(t, db, "lead@example.com")
	member := createTestUser(t, db, "member@example.com")
	team := &models.Team{Name: "Squad", OwnerID: owner.ID}
	if err := NewTeamRepository(db).Create(ctx, team); err != nil {
		t.Fatal(err)
	}

	personal := createTestTask(t, repo, member.ID, "personal")
	if ok, err := repo.Activate(ctx, personal.ID); err != nil || !ok {
		t.Fatalf("Activate(personal) = %v, %v", ok, err)
	}

	newTeamTask := func(title string) *models.Task {
		task := models.NewTask(owner.ID, title)
		task.TeamID = &team.ID
		task.AssigneeID = &member.ID
		if err := repo.Create(ctx, task); err != nil {
			t.Fatal(err)
		}
		return task
	}
	teamA := newTeamTask("team a")
	teamB := newTeamTask("team b")

	if ok, err := repo.Activate(ctx, teamA.ID); err != nil || !ok {
		t.Fatalf("team task must activate despite active personal task: %v, %v", ok, err)
	}
	if ok, err := repo.Activate(ctx, teamB.ID); err != nil || ok {
		t.Errorf("second team task for the same assignee = %v, %v; want false", ok, err)
	}
}

func TestTaskRepository_ListDashboard(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	plans := NewStudyPlanRepository(db)
	me := createTestUser(t, db, "me@example.com")
	other := createTestUser(t, db, "other@example.com")

	today := models.Date{Year: 2025, Month: time.May, Day: 10}
	plan := &models.StudyPlan{UserID: me.ID, Subject: "Go", Goal: "ship", DurationDays: 5, GeneratedPlan: "x", StartDate: today, IsActive: true}
	if err := plans.Create(ctx, plan); err != nil {
		t.Fatal(err)
	}

	mine := createTestTask(t, repo, me.ID, "mine")
	createTestTask(t, repo, other.ID, "not mine")

	team := &models.Team{Name: "T", OwnerID: other.ID}
	if err := NewTeamRepository(db).Create(ctx, team); err != nil {
		t.Fatal(err)
	}
	assigned := models.NewTask(other.ID, "assigned to me")
	assigned.TeamID = &team.ID
	assigned.AssigneeID = &me.ID
	if err := repo.Create(ctx, assigned); err != nil {
		t.Fatal(err)
	}
	unassigned := models.NewTask(other.ID, "team inbox")
	unassigned.TeamID = &team.ID
	if err := repo.Create(ctx, unassigned); err != nil {
		t.Fatal(err)
	}

	later := today.AddDays(2)
	planTask := models.NewTask(me.ID, "Go (Day 3): practice")
	planTask.StudyPlanID = &plan.ID
	planTask.ScheduledDate = &later
	if err := repo.Create(ctx, planTask); err != nil {
		t.Fatal(err)
	}

	farther := today.AddDays(4)
	farTask := models.NewTask(me.ID, "Go (Day 5): review")
	farTask.StudyPlanID = &plan.ID
	farTask.ScheduledDate = &farther
	if err := repo.Create(ctx, farTask); err != nil {
		t.Fatal(err)
	}

	next, err := repo.NextScheduledPlanTask(ctx, plan.ID, today)
	if err != nil {
		t.Fatalf("NextScheduledPlanTask() error = %v", err)
	}
	if next.ID != planTask.ID {
		t.Errorf("look-ahead = %s, want %s", next.Title, planTask.Title)
	}

	got, err := repo.ListDashboard(ctx, me.ID, &plan.ID, today, &next.ID)
	if err != nil {
		t.Fatalf("ListDashboard() error = %v", err)
	}
	want := map[uuid.UUID]bool{mine.ID: true, assigned.ID: true, planTask.ID: true, farTask.ID: true}
	if len(got) != len(want) {
		t.Fatalf("ListDashboard() returned %d tasks, want %d", len(got), len(want))
	}
	for _, task := range got {
		if !want[task.ID] {
			t.Errorf("unexpected task %q in dashboard", task.Title)
		}
	}
	if got[0].ID != mine.ID {
		t.Errorf("dashboard must be ordered by creation, first = %q", got[0].Title)
	}
}

func TestTaskRepository_CompletionCounts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	me := createTestUser(t, db, "counter@example.com")

	saturday := time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC)
	for i, d := range []models.Difficulty{models.DifficultyHard, models.DifficultyHard, models.DifficultyEasy} {
		task := models.NewTask(me.ID, "done")
		task.Difficulty = d
		task.Status = models.TaskStatusCompleted
		at := saturday.Add(time.Duration(i) * time.Hour)
		task.CompletedAt = &at
		if err := repo.Create(ctx, task); err != nil {
			t.Fatal(err)
		}
	}
	yesterday := saturday.Add(-24 * time.Hour)
	old := models.NewTask(me.ID, "friday")
	old.Status = models.TaskStatusCompleted
	old.CompletedAt = &yesterday
	if err := repo.Create(ctx, old); err != nil {
		t.Fatal(err)
	}

	hard, err := repo.CountCompletedByDifficulty(ctx, me.ID, models.DifficultyHard)
	if err != nil || hard != 2 {
		t.Errorf("CountCompletedByDifficulty(HARD) = %d, %v; want 2", hard, err)
	}

	dayStart := time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC)
	n, err := repo.CountCompletedBetween(ctx, me.ID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil || n != 3 {
		t.Errorf("CountCompletedBetween(saturday) = %d, %v; want 3", n, err)
	}

	history, err := repo.ListCompleted(ctx, me.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 4 || history[len(history)-1].ID != old.ID {
		t.Errorf("ListCompleted must order by completion desc, got %d tasks", len(history))
	}

	removed, err := repo.DeleteCompleted(ctx, me.ID)
	if err != nil || removed != 4 {
		t.Errorf("DeleteCompleted() = %d, %v; want 4", removed, err)
	}
}

func TestTaskRepository_OldestInbox(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	me := createTestUser(t, db, "oldest@example.com")

	first := createTestTask(t, repo, me.ID, "first")
	hard := models.NewTask(me.ID, "hard one")
	hard.Difficulty = models.DifficultyHard
	if err := repo.Create(ctx, hard); err != nil {
		t.Fatal(err)
	}

	got, err := repo.OldestInbox(ctx, me.ID, nil)
	if err != nil || got.ID != first.ID {
		t.Errorf("OldestInbox(nil) = %v, %v", got, err)
	}
	d := models.DifficultyHard
	got, err = repo.OldestInbox(ctx, me.ID, &d)
	if err != nil || got.ID != hard.ID {
		t.Errorf("OldestInbox(HARD) = %v, %v", got, err)
	}
	e := models.DifficultyEasy
	if _, err := repo.OldestInbox(ctx, me.ID, &e); !errors.Is(err, ErrNotFound) {
		t.Errorf("OldestInbox(EASY) error = %v, want ErrNotFound", err)
	}
}

func TestTaskRepository_UpdateEnrichmentOnlyOpen(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	me := createTestUser(t, db, "enrich@example.com")

	open := createTestTask(t, repo, me.ID, "open")
	ok, err := repo.UpdateEnrichment(ctx, open.ID, "Learning", models.DifficultyHard, 90, []string{"a", "b"})
	if err != nil || !ok {
		t.Fatalf("UpdateEnrichment(open) = %v, %v", ok, err)
	}
	got, err := repo.GetByID(ctx, open.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Category != "Learning" || got.Difficulty != models.DifficultyHard || got.TimeEstimateMinutes != 90 || len(got.SubTasks) != 2 {
		t.Errorf("enrichment not stored: %+v", got)
	}

	done := createTestTask(t, repo, me.ID, "done")
	at := time.Now().UTC()
	done.Status = models.TaskStatusCompleted
	done.CompletedAt = &at
	if err := repo.Update(ctx, done); err != nil {
		t.Fatal(err)
	}
	ok, err = repo.UpdateEnrichment(ctx, done.ID, "Work", models.DifficultyEasy, 5, nil)
	if err != nil || ok {
		t.Errorf("UpdateEnrichment(completed) = %v, %v; want false", ok, err)
	}
}

func TestTaskRepository_ListAwaitingEnrichment(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	me := createTestUser(t, db, "backfill@example.com")
	base := time.Date(2026, 10, 14, 6, 0, 0, 0, time.UTC)

	at := func(title string, offset time.Duration) *models.Task {
		task := models.NewTask(me.ID, title)
		task.CreatedAt = base.Add(offset)
		if err := repo.Create(ctx, task); err != nil {
			t.Fatal(err)
		}
		return task
	}
	pending := at("pending", time.Hour)
	at("too old", -time.Hour)
	at("too new", 3*time.Hour)
	enriched := at("enriched", 90*time.Minute)
	if _, err := repo.UpdateEnrichment(ctx, enriched.ID, "Work", models.DifficultyEasy, 10, []string{"x"}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListAwaitingEnrichment(ctx, base, base.Add(2*time.Hour), 10)
	if err != nil {
		t.Fatalf("ListAwaitingEnrichment() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != pending.ID {
		t.Errorf("got %d tasks, want only %q", len(got), pending.Title)
	}
}
