package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusInbox     TaskStatus = "INBOX"
	TaskStatusActive    TaskStatus = "ACTIVE"
	TaskStatusCompleted TaskStatus = "COMPLETED"
	TaskStatusDeleted   TaskStatus = "DELETED"
)

// Difficulty represents how hard a task is
type Difficulty string

const (
	DifficultyEasy     Difficulty = "EASY"
	DifficultyModerate Difficulty = "MODERATE"
	DifficultyHard     Difficulty = "HARD"
)

// Task defaults
const (
	DefaultCategory            = "Other"
	DefaultDifficulty          = DifficultyModerate
	DefaultTimeEstimateMinutes = 25
	SnoozeDuration             = time.Hour
	TimerExtensionSeconds      = 300
)

// Task represents a unit of work
type Task struct {
	ID                  uuid.UUID  `json:"id"`
	OwnerID             uuid.UUID  `json:"owner_id"`
	Title               string     `json:"title"`
	Status              TaskStatus `json:"status"`
	Category            string     `json:"category"`
	Difficulty          Difficulty `json:"difficulty"`
	TimeEstimateMinutes int        `json:"time_estimate_minutes"`
	SubTasks            []string   `json:"sub_tasks"`
	Memo                string     `json:"memo"`
	Important           bool       `json:"important"`
	TeamID              *uuid.UUID `json:"team_id,omitempty"`
	AssigneeID          *uuid.UUID `json:"assignee_id,omitempty"`
	StudyPlanID         *uuid.UUID `json:"study_plan_id,omitempty"`
	ScheduledDate       *Date      `json:"scheduled_date,omitempty"`
	SnoozedUntil        *time.Time `json:"snoozed_until,omitempty"`
	TimerStartedAt      *time.Time `json:"timer_started_at,omitempty"`
	TimerRemainingSecs  *int       `json:"timer_remaining_seconds,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

// NewTask returns an INBOX task with default category, difficulty and estimate.
func NewTask(ownerID uuid.UUID, title string) *Task {
	return &Task{
		ID:                  uuid.New(),
		OwnerID:             ownerID,
		Title:               title,
		Status:              TaskStatusInbox,
		Category:            DefaultCategory,
		Difficulty:          DefaultDifficulty,
		TimeEstimateMinutes: DefaultTimeEstimateMinutes,
		SubTasks:            []string{},
	}
}

// IsPersonal reports whether the task is outside any team.
func (t *Task) IsPersonal() bool {
	return t.TeamID == nil
}

// IsOpen reports whether the task is INBOX or ACTIVE.
func (t *Task) IsOpen() bool {
	return t.Status == TaskStatusInbox || t.Status == TaskStatusActive
}

// ParseDifficulty normalizes s to a Difficulty; ok is false when s is not recognized.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(strings.ToUpper(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy, true
	case DifficultyModerate:
		return DifficultyModerate, true
	case DifficultyHard:
		return DifficultyHard, true
	}
	return DefaultDifficulty, false
}
