package ai

import (
	logpkg "github.com/benvon/focus-quest/internal/logger"
)

const (
	// MaxPreviewLength bounds prompt and response previews in logs
	MaxPreviewLength = 200
	// MaxDebugContentLength bounds full-content debug logging
	MaxDebugContentLength = 10000
	// RedactedValue replaces sensitive data
	RedactedValue = "[REDACTED]"
)

// SanitizeAPIKey keeps the first and last four characters of a key.
func SanitizeAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 8 {
		return RedactedValue
	}
	return apiKey[:4] + RedactedValue + apiKey[len(apiKey)-4:]
}

// SanitizePrompt creates a safe preview of a prompt for logging
func SanitizePrompt(prompt string, fullLog bool) string {
	return preview(prompt, fullLog)
}

// SanitizeResponse creates a safe preview of a response for logging
func SanitizeResponse(response string, fullLog bool) string {
	return preview(response, fullLog)
}

func preview(s string, fullLog bool) string {
	maxLen := MaxPreviewLength
	if fullLog {
		maxLen = MaxDebugContentLength
	}
	return logpkg.SanitizeString(s, maxLen)
}
