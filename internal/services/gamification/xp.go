package gamification

import "github.com/benvon/focus-quest/internal/models"

var xpByDifficulty = map[models.Difficulty]int{
	models.DifficultyEasy:     15,
	models.DifficultyModerate: 25,
	models.DifficultyHard:     40,
}

const defaultXP = 25

// XPForDifficulty returns the xp granted for completing a task of difficulty d.
func XPForDifficulty(d models.Difficulty) int {
	if xp, ok := xpByDifficulty[d]; ok {
		return xp
	}
	return defaultXP
}

// ApplyXP adds amount to the profile and levels up while xp reaches the current
// level threshold. It returns the number of levels gained.
func ApplyXP(p *models.Profile, amount int) int {
	if p.Level < 1 {
		p.Level = 1
	}
	p.XP += amount
	gained := 0
	for p.XP >= p.XPForNextLevel() {
		p.XP -= p.XPForNextLevel()
		p.Level++
		gained++
	}
	return gained
}
