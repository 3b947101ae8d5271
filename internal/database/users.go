package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
)

const userColumns = `id, email, provider_id, name, email_verified, created_at, updated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	ts := now()
	_, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		user.ID,
		user.Email,
		user.ProviderID,
		user.Name,
		user.EmailVerified,
		ts,
		ts,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", translateError(err))
	}
	user.CreatedAt = ts
	user.UpdatedAt = ts
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email, ignoring case and surrounding space
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = $1`, models.NormalizeEmail(email))
}

// GetByProviderID retrieves a user by provider ID
func (r *UserRepository) GetByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	return r.first(ctx, `SELECT `+userColumns+` FROM users WHERE provider_id = $1`, providerID)
}

// Update updates an existing user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	ts := now()
	result, err := r.db.conn(ctx).ExecContext(ctx, `
		UPDATE users
		SET email = $2, provider_id = $3, name = $4, email_verified = $5, updated_at = $6
		WHERE id = $1
	`,
		user.ID,
		user.Email,
		user.ProviderID,
		user.Name,
		user.EmailVerified,
		ts,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", translateError(err))
	}
	if err := expectOneRow(result, "user"); err != nil {
		return err
	}
	user.UpdatedAt = ts
	return nil
}

func (r *UserRepository) first(ctx context.Context, query string, args ...any) (*models.User, error) {
	user := &models.User{}
	err := r.db.conn(ctx).QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&user.ProviderID,
		&user.Name,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
