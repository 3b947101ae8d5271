package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDate_AddDaysAndWeekday(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2024-02-28")
	if err != nil {
		t.Fatal(err)
	}
	if got := d.AddDays(2).String(); got != "2024-03-01" {
		t.Errorf("AddDays(2) = %s, want 2024-03-01", got)
	}
	if got := d.AddDays(-28).String(); got != "2024-01-31" {
		t.Errorf("AddDays(-28) = %s", got)
	}
	if d.Weekday() != time.Wednesday {
		t.Errorf("Weekday = %s, want Wednesday", d.Weekday())
	}
	if !d.Before(d.AddDays(1)) || d.AddDays(1).Before(d) {
		t.Error("Before ordering is wrong")
	}
}

func TestDate_Scan(t *testing.T) {
	t.Parallel()

	var d Date
	if err := d.Scan("2025-06-01"); err != nil || d.String() != "2025-06-01" {
		t.Errorf("scan string: %v %s", err, d)
	}
	if err := d.Scan([]byte("2025-06-02T00:00:00Z")); err != nil || d.String() != "2025-06-02" {
		t.Errorf("scan bytes: %v %s", err, d)
	}
	if err := d.Scan(time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)); err != nil || d.String() != "2025-06-03" {
		t.Errorf("scan time: %v %s", err, d)
	}
	if err := d.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestDate_JSON(t *testing.T) {
	t.Parallel()

	plan := StudyPlan{StartDate: Date{2025, time.January, 30}, DurationDays: 3}
	plan.ComputeEndDate()
	if plan.EndDate.String() != "2025-02-01" {
		t.Fatalf("EndDate = %s, want 2025-02-01", plan.EndDate)
	}

	b, err := json.Marshal(plan.StartDate)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2025-01-30"` {
		t.Errorf("marshal = %s", b)
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil || back != plan.StartDate {
		t.Errorf("unmarshal = %v, %v", back, err)
	}

	b, _ = json.Marshal(Date{})
	if string(b) != `""` {
		t.Errorf("zero marshal = %s", b)
	}
	if err := json.Unmarshal([]byte(`""`), &back); err != nil || !back.IsZero() {
		t.Errorf("zero unmarshal = %v, %v", back, err)
	}
}
