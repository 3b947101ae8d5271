package gamification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/focus-quest/internal/database"
	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
)

// saturdayNoon avoids both streak windows.
var saturdayNoon = time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC)

func completedTask(owner uuid.UUID, difficulty models.Difficulty, created, completed time.Time) *models.Task {
	task := models.NewTask(owner, "task")
	task.Difficulty = difficulty
	task.Status = models.TaskStatusCompleted
	task.CreatedAt = created
	task.CompletedAt = &completed
	return task
}

func newTestEngine(counter *mockCounter) (*Engine, *fakeProfiles, *fakeBadges) {
	profiles := newFakeProfiles()
	badges := newFakeBadges()
	if counter == nil {
		counter = &mockCounter{}
	}
	return NewEngine(profiles, badges, counter, time.UTC, nil), profiles, badges
}

func TestEngine_AwardXP(t *testing.T) {
	t.Parallel()

	engine, profiles, _ := newTestEngine(nil)
	ctx := context.Background()
	user := uuid.New()

	profiles.profiles[user] = models.Profile{UserID: user, Level: 1, XP: 90, Version: 1}

	p, gained, err := engine.AwardXP(ctx, user, models.DifficultyHard)
	if err != nil {
		t.Fatalf("AwardXP() error = %v", err)
	}
	if gained != 1 || p.Level != 2 || p.XP != 30 {
		t.Errorf("AwardXP() = level %d xp %d gained %d, want level 2 xp 30 gained 1", p.Level, p.XP, gained)
	}
	if stored := profiles.profiles[user]; stored.XP != 30 || stored.Level != 2 {
		t.Errorf("stored profile = %+v", stored)
	}
}

func TestEngine_AwardXP_CreatesProfile(t *testing.T) {
	t.Parallel()

	engine, _, _ := newTestEngine(nil)
	p, gained, err := engine.AwardXP(context.Background(), uuid.New(), models.DifficultyEasy)
	if err != nil {
		t.Fatalf("AwardXP() error = %v", err)
	}
	if p.Level != 1 || p.XP != 15 || gained != 0 {
		t.Errorf("AwardXP() = %+v gained %d", p, gained)
	}
}

func TestEngine_AwardXP_RetriesOnConflict(t *testing.T) {
	t.Parallel()

	engine, profiles, _ := newTestEngine(nil)
	user := uuid.New()
	profiles.conflicts = 2

	p, _, err := engine.AwardXP(context.Background(), user, models.DifficultyModerate)
	if err != nil {
		t.Fatalf("AwardXP() error = %v", err)
	}
	if p.XP != 25 {
		t.Errorf("XP = %d, want 25 (applied once)", p.XP)
	}
}

func TestEngine_AwardXP_GivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	engine, profiles, _ := newTestEngine(nil)
	profiles.conflicts = maxProfileRetries

	_, _, err := engine.AwardXP(context.Background(), uuid.New(), models.DifficultyModerate)
	if !errors.Is(err, database.ErrOptimisticLock) {
		t.Errorf("AwardXP() error = %v, want ErrOptimisticLock", err)
	}
}

func TestEngine_EvaluateBadges_WeekendWarrior(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		completed int
		want      bool
	}{
		{"two completions", 2, false},
		{"three completions", 3, true},
		{"many completions", 7, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotFrom, gotTo time.Time
			counter := &mockCounter{
				CountCompletedBetweenFunc: func(_ context.Context, _ uuid.UUID, from, to time.Time) (int, error) {
					gotFrom, gotTo = from, to
					return tt.completed, nil
				},
			}
			engine, _, badges := newTestEngine(counter)
			user := uuid.New()

			awarded, err := engine.EvaluateBadges(context.Background(), user,
				completedTask(user, models.DifficultyEasy, saturdayNoon, saturdayNoon))
			if err != nil {
				t.Fatalf("EvaluateBadges() error = %v", err)
			}
			if got := contains(awarded, models.BadgeWeekendWarrior); got != tt.want {
				t.Errorf("awarded %v, want Weekend Warrior = %v", awarded, tt.want)
			}
			if tt.want && badges.count(user) != 1 {
				t.Errorf("award count = %d, want 1", badges.count(user))
			}
			wantFrom := time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
			if !gotFrom.Equal(wantFrom) || !gotTo.Equal(wantFrom.AddDate(0, 0, 1)) {
				t.Errorf("counted window %v..%v", gotFrom, gotTo)
			}
		})
	}
}

func TestEngine_EvaluateBadges_WeekdaySkipsWeekendCount(t *testing.T) {
	t.Parallel()

	counter := &mockCounter{
		CountCompletedBetweenFunc: func(context.Context, uuid.UUID, time.Time, time.Time) (int, error) {
			t.Error("weekend count queried on a weekday")
			return 10, nil
		},
	}
	engine, _, _ := newTestEngine(counter)
	user := uuid.New()
	wednesday := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	awarded, err := engine.EvaluateBadges(context.Background(), user,
		completedTask(user, models.DifficultyEasy, wednesday, wednesday))
	if err != nil {
		t.Fatalf("EvaluateBadges() error = %v", err)
	}
	if len(awarded) != 0 {
		t.Errorf("awarded = %v, want none", awarded)
	}
}

func TestEngine_EvaluateBadges_Idempotent(t *testing.T) {
	t.Parallel()

	counter := &mockCounter{
		CountCompletedBetweenFunc: func(context.Context, uuid.UUID, time.Time, time.Time) (int, error) {
			return 4, nil
		},
		CountCompletedByDifficultyFunc: func(context.Context, uuid.UUID, models.Difficulty) (int, error) {
			return 5, nil
		},
	}
	engine, _, badges := newTestEngine(counter)
	user := uuid.New()
	task := completedTask(user, models.DifficultyHard, saturdayNoon.AddDate(0, 0, -5), saturdayNoon)

	first, err := engine.EvaluateBadges(context.Background(), user, task)
	if err != nil {
		t.Fatalf("EvaluateBadges() error = %v", err)
	}
	if len(first) != 3 {
		t.Errorf("first run awarded %v, want Giant Slayer, Phoenix and Weekend Warrior", first)
	}

	second, err := engine.EvaluateBadges(context.Background(), user, task)
	if err != nil {
		t.Fatalf("EvaluateBadges() error = %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second run awarded %v, want none", second)
	}
	if badges.count(user) != 3 {
		t.Errorf("award rows = %d, want 3", badges.count(user))
	}
}

func TestEngine_EvaluateBadges_GiantSlayer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		difficulty models.Difficulty
		hardCount  int
		want       bool
	}{
		{"fifth hard task", models.DifficultyHard, 5, true},
		{"fourth hard task", models.DifficultyHard, 4, false},
		{"easy task after many hard", models.DifficultyEasy, 9, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			counter := &mockCounter{
				CountCompletedByDifficultyFunc: func(_ context.Context, _ uuid.UUID, d models.Difficulty) (int, error) {
					if d != models.DifficultyHard {
						t.Errorf("counted difficulty %s", d)
					}
					return tt.hardCount, nil
				},
			}
			engine, _, _ := newTestEngine(counter)
			user := uuid.New()
			wednesday := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

			awarded, err := engine.EvaluateBadges(context.Background(), user,
				completedTask(user, tt.difficulty, wednesday, wednesday))
			if err != nil {
				t.Fatalf("EvaluateBadges() error = %v", err)
			}
			if got := contains(awarded, models.BadgeGiantSlayer); got != tt.want {
				t.Errorf("awarded %v, want Giant Slayer = %v", awarded, tt.want)
			}
		})
	}
}

func TestEngine_EvaluateBadges_Phoenix(t *testing.T) {
	t.Parallel()

	completed := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		created time.Time
		want    bool
	}{
		{"three calendar days", time.Date(2026, 10, 11, 23, 0, 0, 0, time.UTC), true},
		{"two calendar days", time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), false},
		{"same day", completed.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine, _, _ := newTestEngine(nil)
			user := uuid.New()
			awarded, err := engine.EvaluateBadges(context.Background(), user,
				completedTask(user, models.DifficultyEasy, tt.created, completed))
			if err != nil {
				t.Fatalf("EvaluateBadges() error = %v", err)
			}
			if got := contains(awarded, models.BadgePhoenix); got != tt.want {
				t.Errorf("awarded %v, want Phoenix = %v", awarded, tt.want)
			}
		})
	}
}

func TestEngine_EarlyBirdStreak(t *testing.T) {
	t.Parallel()

	engine, profiles, _ := newTestEngine(nil)
	ctx := context.Background()
	user := uuid.New()

	morning := func(day int) time.Time { return time.Date(2026, 10, day, 7, 30, 0, 0, time.UTC) }

	for i, day := range []int{12, 13} {
		awarded, err := engine.EvaluateBadges(ctx, user, completedTask(user, models.DifficultyEasy, morning(day), morning(day)))
		if err != nil {
			t.Fatalf("day %d: EvaluateBadges() error = %v", day, err)
		}
		if len(awarded) != 0 {
			t.Errorf("day %d: awarded %v early", day, awarded)
		}
		if got := profiles.profiles[user].EarlyBirdStreak; got != i+1 {
			t.Errorf("day %d: streak = %d, want %d", day, got, i+1)
		}
	}

	awarded, err := engine.EvaluateBadges(ctx, user, completedTask(user, models.DifficultyEasy, morning(14), morning(14)))
	if err != nil {
		t.Fatal(err)
	}
	if !contains(awarded, models.BadgeEarlyBird) {
		t.Errorf("third day awarded %v, want Early Bird", awarded)
	}
}

func TestEngine_EarlyBirdSameDayRestartsStreak(t *testing.T) {
	t.Parallel()

	engine, profiles, _ := newTestEngine(nil)
	ctx := context.Background()
	user := uuid.New()

	morning := func(day, minute int) time.Time { return time.Date(2026, 10, day, 7, minute, 0, 0, time.UTC) }

	steps := []struct {
		day, minute int
		want        int
	}{
		{12, 0, 1},
		{13, 0, 2},
		{13, 30, 1},
		{14, 0, 2},
	}
	for _, step := range steps {
		at := morning(step.day, step.minute)
		awarded, err := engine.EvaluateBadges(ctx, user, completedTask(user, models.DifficultyEasy, at, at))
		if err != nil {
			t.Fatalf("day %d: EvaluateBadges() error = %v", step.day, err)
		}
		if contains(awarded, models.BadgeEarlyBird) {
			t.Errorf("day %d %02d: Early Bird awarded with streak %d", step.day, step.minute, profiles.profiles[user].EarlyBirdStreak)
		}
		if got := profiles.profiles[user].EarlyBirdStreak; got != step.want {
			t.Errorf("day %d %02d: streak = %d, want %d", step.day, step.minute, got, step.want)
		}
	}
}

func TestEngine_NightOwlStreakResets(t *testing.T) {
	t.Parallel()

	engine, profiles, _ := newTestEngine(nil)
	ctx := context.Background()
	user := uuid.New()

	night := func(day int) time.Time { return time.Date(2026, 10, day, 23, 15, 0, 0, time.UTC) }
	for _, day := range []int{5, 6, 9} {
		if _, err := engine.EvaluateBadges(ctx, user, completedTask(user, models.DifficultyEasy, night(day), night(day))); err != nil {
			t.Fatal(err)
		}
	}
	p := profiles.profiles[user]
	if p.NightOwlStreak != 1 {
		t.Errorf("streak after gap = %d, want 1", p.NightOwlStreak)
	}
	if p.LastNightOwlDate == nil || p.LastNightOwlDate.String() != "2026-10-09" {
		t.Errorf("last night owl date = %v", p.LastNightOwlDate)
	}
}

func TestEngine_UsesConfiguredLocation(t *testing.T) {
	t.Parallel()

	profiles := newFakeProfiles()
	loc := time.FixedZone("UTC+10", 10*3600)
	engine := NewEngine(profiles, newFakeBadges(), &mockCounter{}, loc, nil)
	user := uuid.New()

	// 21:00 UTC is 07:00 the next morning at UTC+10
	at := time.Date(2026, 10, 13, 21, 0, 0, 0, time.UTC)
	if _, err := engine.EvaluateBadges(context.Background(), user, completedTask(user, models.DifficultyEasy, at, at)); err != nil {
		t.Fatal(err)
	}
	p := profiles.profiles[user]
	if p.EarlyBirdStreak != 1 || p.NightOwlStreak != 0 {
		t.Errorf("streaks = early %d night %d, want early 1", p.EarlyBirdStreak, p.NightOwlStreak)
	}
	if p.LastEarlyBirdDate.String() != "2026-10-14" {
		t.Errorf("early bird date = %s, want 2026-10-14", p.LastEarlyBirdDate)
	}
}

func TestEngine_EvaluateBadges_RequiresCompletion(t *testing.T) {
	t.Parallel()

	engine, _, _ := newTestEngine(nil)
	task := models.NewTask(uuid.New(), "open")
	if _, err := engine.EvaluateBadges(context.Background(), task.OwnerID, task); err == nil {
		t.Error("EvaluateBadges() on an open task should fail")
	}
}

func TestEngine_OnTaskCompleted(t *testing.T) {
	t.Parallel()

	engine, profiles, _ := newTestEngine(nil)
	user := uuid.New()
	profiles.profiles[user] = models.Profile{UserID: user, Level: 1, XP: 80, Version: 3}
	wednesday := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	res, err := engine.OnTaskCompleted(context.Background(), user, completedTask(user, models.DifficultyModerate, wednesday, wednesday))
	if err != nil {
		t.Fatalf("OnTaskCompleted() error = %v", err)
	}
	if res.XPAwarded != 25 || res.LevelsGained != 1 || res.Profile.Level != 2 || res.Profile.XP != 5 {
		t.Errorf("OnTaskCompleted() = %+v profile %+v", res, res.Profile)
	}
}

func TestEngine_GetProfileView(t *testing.T) {
	t.Parallel()

	engine, profiles, badges := newTestEngine(nil)
	ctx := context.Background()
	user := uuid.New()
	profiles.profiles[user] = models.Profile{UserID: user, Level: 10, XP: 40, Version: 1}

	b, _ := badges.GetOrCreate(ctx, models.BadgePhoenix, "", models.DefaultBadgeIcon)
	if _, err := badges.GetOrCreate(ctx, models.BadgeNightOwl, "", models.DefaultBadgeIcon); err != nil {
		t.Fatal(err)
	}
	if _, err := badges.Award(ctx, user, b.ID, time.Now()); err != nil {
		t.Fatal(err)
	}

	view, err := engine.GetProfileView(ctx, user)
	if err != nil {
		t.Fatalf("GetProfileView() error = %v", err)
	}
	if view.Title != "Task Slayer" || view.XPForNextLevel != 1000 {
		t.Errorf("title %q next %d", view.Title, view.XPForNextLevel)
	}
	if len(view.Badges) != 2 || len(view.EarnedBadgeIDs) != 1 || view.EarnedBadgeIDs[0] != b.ID {
		t.Errorf("badges %d earned %v", len(view.Badges), view.EarnedBadgeIDs)
	}
}

func TestEngine_SetMood(t *testing.T) {
	t.Parallel()

	engine, profiles, _ := newTestEngine(nil)
	user := uuid.New()
	if _, err := engine.SetMood(context.Background(), user, models.MoodStressed); err != nil {
		t.Fatalf("SetMood() error = %v", err)
	}
	if profiles.profiles[user].Mood != models.MoodStressed {
		t.Errorf("mood = %s", profiles.profiles[user].Mood)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
