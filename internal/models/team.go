package models

import (
	"time"

	"github.com/google/uuid"
)

// AssignAll assigns a new team task to every member.
const AssignAll = "all"

// Team is a group of users sharing tasks
type Team struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamMember is a user's membership in a team
type TeamMember struct {
	TeamID   uuid.UUID `json:"team_id"`
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Name     *string   `json:"name,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}
