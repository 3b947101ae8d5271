package ai

import (
	"context"
	"strings"
)

// DefaultRelaxSuggestions are shown when the model returns nothing.
var DefaultRelaxSuggestions = []string{
	"Take a 10-minute walk outside.",
	"Listen to one of your favorite songs.",
	"Do a simple 5-minute breathing exercise.",
	"Drink a full glass of water.",
	"Stretch your arms and back for a minute.",
}

// ParseRelaxSuggestions turns each non-empty line of output into a suggestion.
func ParseRelaxSuggestions(output string) []string {
	var suggestions []string
	for _, line := range strings.Split(output, "\n") {
		s := strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "- "))
		if s != "" {
			suggestions = append(suggestions, s)
		}
	}
	if len(suggestions) == 0 {
		return append([]string(nil), DefaultRelaxSuggestions...)
	}
	return suggestions
}

// RelaxSuggestions asks the model for quick refreshing activities.
func (c *Client) RelaxSuggestions(ctx context.Context) []string {
	return ParseRelaxSuggestions(c.Text(ctx, RelaxPrompt))
}
