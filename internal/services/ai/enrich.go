package ai

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/planparser"
	"go.uber.org/zap"
)

var firstNumber = regexp.MustCompile(`\d+`)

func matchLabel(labels []string, output, fallback string) string {
	for _, label := range labels {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(label) + `\b`)
		if re.MatchString(output) {
			return label
		}
	}
	return fallback
}

// ClassifyCategory returns the first known category named in output, else "Other".
func ClassifyCategory(output string) string {
	return matchLabel(Categories, output, models.DefaultCategory)
}

// ClassifyDifficulty returns the first difficulty named in output, else MODERATE.
func ClassifyDifficulty(output string) models.Difficulty {
	label := matchLabel(Difficulties, output, "")
	if d, ok := models.ParseDifficulty(label); ok {
		return d
	}
	return models.DefaultDifficulty
}

// ParseTimeEstimate returns the first positive integer in output, else 25.
func ParseTimeEstimate(output string) int {
	if n, err := strconv.Atoi(firstNumber.FindString(output)); err == nil && n > 0 {
		return n
	}
	return models.DefaultTimeEstimateMinutes
}

// ParseSubTasks returns the bullet lines of output rendered with emphasis spans. When
// output has no bullets the whole trimmed text is the only sub-task.
func ParseSubTasks(output string) []string {
	lines := planparser.BulletLines(output)
	subTasks := make([]string, 0, len(lines))
	for _, line := range lines {
		subTasks = append(subTasks, planparser.RenderEmphasis(line))
	}
	if len(subTasks) == 0 {
		if trimmed := strings.TrimSpace(output); trimmed != "" {
			subTasks = append(subTasks, trimmed)
		}
	}
	return subTasks
}

// Enrichment is the AI-derived metadata for a task title
type Enrichment struct {
	Category            string
	Difficulty          models.Difficulty
	TimeEstimateMinutes int
	SubTasks            []string
}

// Enrich asks the model for category, difficulty, estimate and sub-tasks of title.
// Every field falls back to its default when the model gives nothing usable.
func (c *Client) Enrich(ctx context.Context, title string) Enrichment {
	return enrichWith(func(prompt string) string { return c.Text(ctx, prompt) }, title)
}

// EnrichErr is Enrich but stops at the first rate limit or quota error so the caller
// can retry later. Other failures degrade to defaults as in Enrich.
func (c *Client) EnrichErr(ctx context.Context, title string) (Enrichment, error) {
	var limited error
	e := enrichWith(func(prompt string) string {
		if limited != nil {
			return ""
		}
		out, err := c.TextErr(ctx, prompt)
		if err != nil {
			if IsRateLimitError(err) || IsQuotaError(err) {
				limited = err
				return ""
			}
			c.logger.Warn("ai_generate_failed", zap.Error(err))
		}
		return out
	}, title)
	if limited != nil {
		return Enrichment{}, limited
	}
	return e, nil
}

func enrichWith(text func(prompt string) string, title string) Enrichment {
	e := Enrichment{
		Category:   ClassifyCategory(text(CategoryPrompt(title))),
		Difficulty: ClassifyDifficulty(text(DifficultyPrompt(title))),
	}
	e.TimeEstimateMinutes = ParseTimeEstimate(text(TimeEstimatePrompt(title, string(e.Difficulty))))
	e.SubTasks = ParseSubTasks(text(SubTaskPrompt(title)))
	return e
}

// Apply copies the enrichment onto task.
func (e Enrichment) Apply(task *models.Task) {
	task.Category = e.Category
	task.Difficulty = e.Difficulty
	task.TimeEstimateMinutes = e.TimeEstimateMinutes
	task.SubTasks = e.SubTasks
	if task.SubTasks == nil {
		task.SubTasks = []string{}
	}
}
