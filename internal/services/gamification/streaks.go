package gamification

import (
	"time"

	"github.com/benvon/focus-quest/internal/models"
)

const (
	earlyBirdCutoff = 9 * time.Hour
	nightOwlCutoff  = 22 * time.Hour
	streakTarget    = 3
)

// streakWindow identifies which time-of-day streak a completion advances.
type streakWindow int

const (
	windowNone streakWindow = iota
	windowEarlyBird
	windowNightOwl
)

func sinceMidnight(t time.Time) time.Duration {
	y, m, d := t.Date()
	return t.Sub(time.Date(y, m, d, 0, 0, 0, 0, t.Location()))
}

// windowFor classifies a local completion time: before 09:00 or after 22:00.
func windowFor(local time.Time) streakWindow {
	clock := sinceMidnight(local)
	switch {
	case clock < earlyBirdCutoff:
		return windowEarlyBird
	case clock > nightOwlCutoff:
		return windowNightOwl
	}
	return windowNone
}

// advanceStreak extends streak when last is the day before today and restarts it at 1
// otherwise, including a second qualifying completion on the same day.
func advanceStreak(streak int, last *models.Date, today models.Date) int {
	if last != nil && *last == today.AddDays(-1) {
		return streak + 1
	}
	return 1
}

// applyStreak updates the profile streak selected by window and reports the resulting
// streak length, or 0 when the completion does not qualify.
func applyStreak(p *models.Profile, window streakWindow, today models.Date) int {
	switch window {
	case windowEarlyBird:
		p.EarlyBirdStreak = advanceStreak(p.EarlyBirdStreak, p.LastEarlyBirdDate, today)
		p.LastEarlyBirdDate = &today
		return p.EarlyBirdStreak
	case windowNightOwl:
		p.NightOwlStreak = advanceStreak(p.NightOwlStreak, p.LastNightOwlDate, today)
		p.LastNightOwlDate = &today
		return p.NightOwlStreak
	}
	return 0
}

// daysBetween counts calendar days from a to b in loc.
func daysBetween(a, b time.Time, loc *time.Location) int {
	da := models.DateOf(a.In(loc)).In(time.UTC)
	db := models.DateOf(b.In(loc)).In(time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// dayBounds returns the UTC instants of the local midnight starting t's day and the next one.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	y, m, d := local.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
