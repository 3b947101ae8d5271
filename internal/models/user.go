package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account resolved from an OIDC identity. Every task, profile and
// team membership hangs off its ID.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	ProviderID    *string   `json:"provider_id,omitempty"`
	Name          *string   `json:"name,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DisplayName is the user's name, or the local part of the email when no name is set.
func (u *User) DisplayName() string {
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		return strings.TrimSpace(*u.Name)
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// NormalizeEmail is the form emails are compared in when looking users up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
