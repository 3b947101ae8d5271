package models

import (
	"strings"
	"time"
)

// DefaultRatelimitConfigKey names the single row the API limiter reloads from.
const DefaultRatelimitConfigKey = "default"

// RatelimitConfig is the stored per-client API rate, in limiter format ("5-S", "100-M").
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize trims the rate and fills in the default key.
func (c *RatelimitConfig) Normalize() error {
	c.Rate = strings.TrimSpace(c.Rate)
	if c.Rate == "" {
		return NewValidationError("rate cannot be empty")
	}
	if c.ConfigKey == "" {
		c.ConfigKey = DefaultRatelimitConfigKey
	}
	return nil
}
