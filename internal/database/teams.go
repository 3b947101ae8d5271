package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
)

// TeamRepository handles teams and memberships
type TeamRepository struct {
	db *DB
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Create inserts the team and adds its owner as the first member.
func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	return r.db.RunInTx(ctx, func(ctx context.Context) error {
		ts := now()
		if _, err := r.db.conn(ctx).ExecContext(ctx,
			`INSERT INTO teams (id, name, owner_id, created_at) VALUES ($1, $2, $3, $4)`,
			team.ID, team.Name, team.OwnerID, ts,
		); err != nil {
			return fmt.Errorf("failed to create team: %w", err)
		}
		team.CreatedAt = ts
		return r.AddMember(ctx, team.ID, team.OwnerID)
	})
}

// GetByID retrieves a team
func (r *TeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	team := &models.Team{}
	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at FROM teams WHERE id = $1`, id,
	).Scan(&team.ID, &team.Name, &team.OwnerID, &team.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// ListForUser returns the teams the user belongs to, by name.
func (r *TeamRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Team, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `
		SELECT t.id, t.name, t.owner_id, t.created_at
		FROM teams t JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.name, t.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var teams []*models.Team
	for rows.Next() {
		team := &models.Team{}
		if err := rows.Scan(&team.ID, &team.Name, &team.OwnerID, &team.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}
	return teams, nil
}

// AddMember adds a user to a team. An existing membership returns ErrUniqueViolation.
func (r *TeamRepository) AddMember(ctx context.Context, teamID, userID uuid.UUID) error {
	_, err := r.db.conn(ctx).ExecContext(ctx,
		`INSERT INTO team_members (team_id, user_id, joined_at) VALUES ($1, $2, $3)`,
		teamID, userID, now(),
	)
	if err != nil {
		return fmt.Errorf("failed to add team member: %w", translateError(err))
	}
	return nil
}

// IsMember reports whether the user belongs to the team.
func (r *TeamRepository) IsMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	var n int
	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check team membership: %w", err)
	}
	return n > 0, nil
}

// ListMembers returns the team's members in join order.
func (r *TeamRepository) ListMembers(ctx context.Context, teamID uuid.UUID) ([]*models.TeamMember, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `
		SELECT m.team_id, m.user_id, u.email, u.name, m.joined_at
		FROM team_members m JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1
		ORDER BY m.joined_at, u.email
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var members []*models.TeamMember
	for rows.Next() {
		m := &models.TeamMember{}
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Email, &m.Name, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team members: %w", err)
	}
	return members, nil
}
