package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan duration bounds in days
const (
	MinPlanDurationDays = 1
	MaxPlanDurationDays = 90
)

// StudyPlan is an AI-generated multi-day plan
type StudyPlan struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Subject       string    `json:"subject"`
	Goal          string    `json:"goal"`
	DurationDays  int       `json:"duration_days"`
	GeneratedPlan string    `json:"generated_plan"`
	StartDate     Date      `json:"start_date"`
	EndDate       Date      `json:"end_date"`
	IsActive      bool      `json:"is_active"`
	IsCompleted   bool      `json:"is_completed"`
	CreatedAt     time.Time `json:"created_at"`
}

// ComputeEndDate sets EndDate to StartDate + DurationDays - 1 when it is unset.
func (p *StudyPlan) ComputeEndDate() {
	if p.EndDate.IsZero() && !p.StartDate.IsZero() {
		p.EndDate = p.StartDate.AddDays(p.DurationDays - 1)
	}
}

// DayDate returns the scheduled date of the 1-based day ordinal.
func (p *StudyPlan) DayDate(day int) Date {
	return p.StartDate.AddDays(day - 1)
}

// PlanDay is a parsed day of a plan, ready for display
type PlanDay struct {
	Number int      `json:"day_number"`
	Title  string   `json:"title"`
	Tasks  []string `json:"tasks"`
}
