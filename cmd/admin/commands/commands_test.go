package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benvon/focus-quest/internal/database"
	"github.com/benvon/focus-quest/internal/models"
)

func fileOpener(t *testing.T) Opener {
	t.Helper()
	path := filepath.Join(t.TempDir(), "admin.db")
	return func(ctx context.Context) (*database.DB, error) {
		return database.New("sqlite://" + path)
	}
}

func run(t *testing.T, open Opener, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(open)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRatelimitCommands(t *testing.T) {
	t.Parallel()
	open := fileOpener(t)

	if _, err := run(t, open, "", "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	out, err := run(t, open, "", "ratelimit", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No rate limit configuration") {
		t.Errorf("empty list output = %q", out)
	}

	if _, err := run(t, open, "", "ratelimit", "set", "--rate", "100-M"); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err = run(t, open, "", "ratelimit", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Rate: 100-M") {
		t.Errorf("list output = %q", out)
	}
}

func TestRatelimitSet_Rejects(t *testing.T) {
	t.Parallel()

	opened := false
	open := func(ctx context.Context) (*database.DB, error) {
		opened = true
		return nil, context.Canceled
	}

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing rate", args: []string{"ratelimit", "set"}},
		{name: "blank rate", args: []string{"ratelimit", "set", "--rate", "  "}},
		{name: "malformed rate", args: []string{"ratelimit", "set", "--rate", "fast"}},
	}
	for _, tt := range tests {
		if _, err := run(t, open, "", tt.args...); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
	if opened {
		t.Error("database opened for an invalid rate")
	}
}

func TestPlanParse(t *testing.T) {
	t.Parallel()

	plan := "## Day 2: Practice\n- Do **drills**\n\n## Day 1: Basics\n- Read chapter 1\n- Take *notes*\n"

	out, err := run(t, nil, plan, "plan", "parse")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := "Day 1 Basics\n  - Read chapter 1\n  - Take notes\nDay 2 Practice\n  - Do drills\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	out, err = run(t, nil, plan, "plan", "parse", "--json", "--html", "-")
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	var days []models.PlanDay
	if err := json.Unmarshal([]byte(out), &days); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(days) != 2 || days[1].Number != 2 {
		t.Fatalf("days = %+v", days)
	}
	if !strings.Contains(days[1].Tasks[0], "<strong") {
		t.Errorf("expected emphasis markup, got %q", days[1].Tasks[0])
	}

	out, err = run(t, nil, "no headers here", "plan", "parse")
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if out != "No days found.\n" {
		t.Errorf("empty output = %q", out)
	}
}

func TestBadgesList(t *testing.T) {
	t.Parallel()
	open := fileOpener(t)

	if _, err := run(t, open, "", "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := database.NewBadgeRepository(db).GetOrCreate(context.Background(), models.BadgePhoenix, models.BadgeDescriptions[models.BadgePhoenix], models.DefaultBadgeIcon); err != nil {
		t.Fatalf("create badge: %v", err)
	}
	_ = db.Close()

	out, err := run(t, open, "", "badges", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != len(models.BadgeDescriptions)+1 {
		t.Fatalf("got %d lines: %q", len(lines), out)
	}
	for _, line := range lines[1:] {
		stored := !strings.Contains(line, "  -  ")
		if strings.HasPrefix(line, models.BadgePhoenix) != stored {
			t.Errorf("unexpected stored marker in %q", line)
		}
	}
}

func TestBadgeRows_SortedAndMerged(t *testing.T) {
	t.Parallel()

	rows := badgeRows([]*models.Badge{{Name: "Custom", Description: "extra"}})
	if len(rows) != len(models.BadgeDescriptions)+1 {
		t.Fatalf("rows = %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].name > rows[i].name {
			t.Fatalf("rows not sorted: %q before %q", rows[i-1].name, rows[i].name)
		}
	}
}
