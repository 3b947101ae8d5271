package database

import (
	"context"
	"testing"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New("sqlite::memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *DB, email string) *models.User {
	t.Helper()
	user := &models.User{ID: uuid.New(), Email: email}
	if err := NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createTestTask(t *testing.T, repo *TaskRepository, owner uuid.UUID, title string) *models.Task {
	t.Helper()
	task := models.NewTask(owner, title)
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return task
}

func newUser(email string) *models.User {
	return &models.User{ID: uuid.New(), Email: email}
}

func createUserInTx(ctx context.Context, t *testing.T, repo *UserRepository, email string) uuid.UUID {
	t.Helper()
	user := newUser(email)
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user.ID
}
