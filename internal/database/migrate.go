package database

import (
	"context"
	"embed"
	"fmt"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Schema returns the embedded schema for the dialect.
func Schema(dialect Dialect) (string, error) {
	b, err := migrations.ReadFile("migrations/" + string(dialect) + ".sql")
	if err != nil {
		return "", fmt.Errorf("no schema for dialect %s: %w", dialect, err)
	}
	return string(b), nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	schema, err := Schema(db.dialect)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
