package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
)

var (
	// ErrRateLimited indicates the API rate limit was exceeded
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExceeded indicates the API quota was exceeded
	ErrQuotaExceeded = errors.New("quota exceeded")
)

const (
	defaultRateLimitWait = 60 * time.Second
	quotaWait            = time.Hour
)

// APIError represents an error from the AI provider API
type APIError struct {
	Message     string
	Type        string
	Code        string
	StatusCode  int
	RetryAfter  *time.Duration
	IsPermanent bool // true for quota errors, false for rate limits
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// Unwrap lets callers match ErrRateLimited and ErrQuotaExceeded.
func (e *APIError) Unwrap() error {
	switch {
	case e.IsPermanent:
		return ErrQuotaExceeded
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests && !apiErr.IsPermanent
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// IsQuotaError checks if an error is a quota exhaustion error
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsPermanent || apiErr.Code == "insufficient_quota"
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "insufficient_quota") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "billing")
}

// ExtractAPIError converts a 429 from the OpenAI SDK into an APIError. Other errors yield nil.
func ExtractAPIError(err error) *APIError {
	var oaErr *openai.Error
	if !errors.As(err, &oaErr) || oaErr.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	apiErr := &APIError{
		StatusCode: oaErr.StatusCode,
		Message:    oaErr.Message,
		Type:       oaErr.Type,
		Code:       oaErr.Code,
	}
	if apiErr.Type == "" {
		apiErr.Type = "rate_limit_error"
	}
	if apiErr.Code == "insufficient_quota" {
		apiErr.IsPermanent = true
	}

	wait := defaultRateLimitWait
	if oaErr.Response != nil {
		if secs, convErr := strconv.Atoi(oaErr.Response.Header.Get("Retry-After")); convErr == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
	}
	if apiErr.IsPermanent {
		wait = quotaWait
	}
	apiErr.RetryAfter = &wait
	return apiErr
}

// GetRetryDelay calculates an exponential backoff delay for attempt based on the error type.
func GetRetryDelay(err error, attempt int) time.Duration {
	shift := attempt
	if shift < 0 {
		shift = 0
	}
	if shift > 10 {
		shift = 10
	}
	factor := time.Duration(1) << uint(shift)

	if IsQuotaError(err) {
		return min(time.Hour*factor, 24*time.Hour)
	}

	if IsRateLimitError(err) {
		delay := min(defaultRateLimitWait*factor, 15*time.Minute)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter != nil && *apiErr.RetryAfter > delay {
			delay = *apiErr.RetryAfter
		}
		return delay
	}

	return min(5*time.Second*factor, 5*time.Minute)
}
