package models

import (
	"time"

	"github.com/google/uuid"
)

// Mood is the self-reported state of a user
type Mood string

const (
	MoodHappy    Mood = "HAPPY"
	MoodOkay     Mood = "OKAY"
	MoodStressed Mood = "STRESSED"
)

// XPPerLevel is the threshold multiplier: level N needs N*XPPerLevel xp to advance.
const XPPerLevel = 100

// Profile holds the gamification state of a user
type Profile struct {
	UserID            uuid.UUID `json:"user_id"`
	XP                int       `json:"xp"`
	Level             int       `json:"level"`
	Mood              Mood      `json:"mood"`
	EarlyBirdStreak   int       `json:"early_bird_streak"`
	LastEarlyBirdDate *Date     `json:"last_early_bird_date,omitempty"`
	NightOwlStreak    int       `json:"night_owl_streak"`
	LastNightOwlDate  *Date     `json:"last_night_owl_date,omitempty"`
	Version           int       `json:"-"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewProfile returns a level 1 profile with no xp.
func NewProfile(userID uuid.UUID) *Profile {
	return &Profile{UserID: userID, Level: 1, Mood: MoodOkay}
}

// XPForNextLevel returns the xp threshold of the current level.
func (p *Profile) XPForNextLevel() int {
	return p.Level * XPPerLevel
}

var levelTitles = []struct {
	minLevel int
	title    string
}{
	{30, "Procrastination's Bane"},
	{20, "Momentum Master"},
	{15, "Productivity Knight"},
	{10, "Task Slayer"},
	{5, "The Finisher"},
	{1, "The Initiator"},
}

// Title returns the display title earned at the profile's level.
func (p *Profile) Title() string {
	return TitleForLevel(p.Level)
}

// TitleForLevel returns the display title for level.
func TitleForLevel(level int) string {
	for _, lt := range levelTitles {
		if level >= lt.minLevel {
			return lt.title
		}
	}
	return "Beginner"
}

// ParseMood normalizes s to a Mood; ok is false when s is not recognized.
func ParseMood(s string) (Mood, bool) {
	switch m := Mood(s); m {
	case MoodHappy, MoodOkay, MoodStressed:
		return m, true
	}
	return "", false
}
