// Package planparser extracts day and task structure from generated plan text.
package planparser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Day is one day section of a plan.
type Day struct {
	Number  int
	Title   string
	Content string
}

var (
	primaryHeader  = regexp.MustCompile(`(?i)##[ \t]*Day[ \t]*(\d+)[ \t]*:?[ \t]*([^\n\r]*)`)
	fallbackHeader = regexp.MustCompile(`(?im)^[ \t]*\*\*[ \t]*Day[ \t]*(\d+)[ \t]*:?[ \t]*([^*\n\r]*)\*\*[ \t]*:?[ \t]*([^\n\r]*)$`)
	numberedMarker = regexp.MustCompile(`^\d+\.`)
	taskFallback   = regexp.MustCompile(`(?im)^[ \t]*Task[ \t]*\d+[ \t]*[:\-][ \t]*(.+)$`)
	boldSpan       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	lightSpan      = regexp.MustCompile(`[*_]([^*_\n]+)[*_]`)
	tagPattern     = regexp.MustCompile(`<[^>]+>`)
	firstInteger   = regexp.MustCompile(`\d+`)
	boldDayHeader  = regexp.MustCompile(`(?i)^\*\*[ \t]*Day[ \t]*\d+`)
)

const (
	strongOpen = `<strong style="color: var(--accent-color);">`
	strongEnd  = `</strong>`
	lightOpen  = `<em style="color: #bdbdbd; font-style: italic;">`
	lightEnd   = `</em>`
)

// ExtractDays splits text into day sections sorted by day number.
// Headers look like "## Day N: Title". When none are present, bold "**Day N**" headers
// are tried instead. Days with equal numbers are all kept in their original order.
func ExtractDays(text string) []Day {
	days := extractWith(text, primaryHeader, false)
	if len(days) == 0 {
		days = extractWith(text, fallbackHeader, true)
	}
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Number < days[j].Number
	})
	return days
}

func extractWith(text string, header *regexp.Regexp, bold bool) []Day {
	matches := header.FindAllStringSubmatchIndex(text, -1)
	days := make([]Day, 0, len(matches))
	for i, m := range matches {
		num, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		title := strings.TrimSpace(text[m[4]:m[5]])
		if bold && title == "" {
			title = strings.Trim(text[m[6]:m[7]], " \t-:")
		}
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		days = append(days, Day{
			Number:  num,
			Title:   title,
			Content: strings.TrimSpace(text[m[1]:end]),
		})
	}
	return days
}

// FindDay returns the content of every section numbered n, joined in order.
func FindDay(days []Day, n int) (Day, bool) {
	var found Day
	ok := false
	for _, d := range days {
		if d.Number != n {
			continue
		}
		if !ok {
			found = d
			ok = true
			continue
		}
		found.Content += "\n" + d.Content
	}
	return found, ok
}

// ExtractDayTasks returns the bullet or numbered lines of content with their markers
// stripped. Lines such as "Task 1: ..." are used when no bullets are found.
func ExtractDayTasks(content string) []string {
	tasks := BulletLines(content)
	if len(tasks) > 0 {
		return tasks
	}
	for _, m := range taskFallback.FindAllStringSubmatch(content, -1) {
		if text := strings.TrimSpace(m[1]); text != "" {
			tasks = append(tasks, text)
		}
	}
	return tasks
}

// BulletLines returns the lines of text that start with "-", "*" or "N.", markers removed.
// A line opening with bold text counts as a task and keeps its emphasis.
func BulletLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if rest, ok := stripMarker(strings.TrimSpace(line)); ok {
			lines = append(lines, rest)
		}
	}
	return lines
}

func stripMarker(line string) (string, bool) {
	var rest string
	switch {
	case strings.HasPrefix(line, "-"):
		rest = line[1:]
	case strings.HasPrefix(line, "**"):
		// bold-led lines are tasks whose emphasis is kept; "**Day N**" headers are not
		if boldDayHeader.MatchString(line) {
			return "", false
		}
		rest = line
	case strings.HasPrefix(line, "*"):
		rest = line[1:]
	default:
		loc := numberedMarker.FindStringIndex(line)
		if loc == nil {
			return "", false
		}
		rest = line[loc[1]:]
	}
	rest = strings.TrimSpace(rest)
	// rules such as "---" or "***" carry no task text
	return rest, strings.Trim(rest, "-*_ \t") != ""
}

// RenderEmphasis converts **bold** and *light*/_light_ markup into inline spans.
func RenderEmphasis(text string) string {
	out := boldSpan.ReplaceAllString(text, strongOpen+"$1"+strongEnd)
	return lightSpan.ReplaceAllString(out, lightOpen+"$1"+lightEnd)
}

// StripTags removes angle-bracket markup.
func StripTags(text string) string {
	return tagPattern.ReplaceAllString(text, "")
}

// DayOrdinal returns the first integer in s, so "3" and "day-3" both yield 3.
func DayOrdinal(s string) (int, bool) {
	m := firstInteger.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
