package ai

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client degrades every generation failure to an empty string.
type Client struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient wraps gen. A nil gen disables AI; every call then returns "".
func NewClient(gen Generator, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{gen: gen, timeout: timeout, logger: logger}
}

// Enabled reports whether a provider is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.gen != nil
}

// Text returns the generated text for prompt, or "" on any failure.
func (c *Client) Text(ctx context.Context, prompt string) string {
	if !c.Enabled() {
		if c != nil {
			c.logger.Debug("ai_disabled")
		}
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		c.logger.Warn("ai_generate_failed",
			zap.Error(err),
			zap.Bool("rate_limited", IsRateLimitError(err)),
			zap.Bool("quota_exceeded", IsQuotaError(err)),
		)
		return ""
	}
	return strings.TrimSpace(out)
}

// TextErr is Text but surfaces the provider error, for callers that retry.
func (c *Client) TextErr(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
