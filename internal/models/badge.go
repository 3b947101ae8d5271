package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultBadgeIcon is used for every lazily created badge definition.
const DefaultBadgeIcon = "🏆"

// Badge names
const (
	BadgeGiantSlayer    = "Giant Slayer ⚔️"
	BadgePhoenix        = "Phoenix 🔥"
	BadgeWeekendWarrior = "Weekend Warrior 🤺"
	BadgeEarlyBird      = "Early Bird 🦉"
	BadgeNightOwl       = "Night Owl 🌙"
)

// BadgeDescriptions maps each badge name to its description.
var BadgeDescriptions = map[string]string{
	BadgeGiantSlayer:    "Complete 5 'Hard' difficulty tasks.",
	BadgePhoenix:        "Complete a task that was over 3 days old.",
	BadgeWeekendWarrior: "Complete 3 or more tasks on a weekend day.",
	BadgeEarlyBird:      "Complete your first task before 9 AM for 3 days in a row.",
	BadgeNightOwl:       "Complete a task after 10 PM for 3 days in a row.",
}

// Badge is a named achievement definition
type Badge struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserBadge records that a user earned a badge
type UserBadge struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	BadgeID   uuid.UUID `json:"badge_id"`
	AwardedAt time.Time `json:"awarded_at"`
}
