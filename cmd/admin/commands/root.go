// Package commands implements the focus-quest-admin subcommands.
package commands

import (
	"context"
	"fmt"

	"github.com/benvon/focus-quest/internal/config"
	"github.com/benvon/focus-quest/internal/database"
	"github.com/spf13/cobra"
)

// Opener connects to the application database.
type Opener func(ctx context.Context) (*database.DB, error)

// OpenFromEnv loads configuration from the environment and opens DATABASE_URL.
func OpenFromEnv(ctx context.Context) (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// NewRootCmd builds the admin command tree.
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "focus-quest-admin",
		Short:         "Administration tool for Focus Quest",
		Long:          "CLI tool for migrations, rate limits, plan parsing and badge inspection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(open))
	root.AddCommand(newRatelimitCmd(open))
	root.AddCommand(newPlanCmd())
	root.AddCommand(newBadgesCmd(open))
	return root
}

func withDB(cmd *cobra.Command, open Opener, fn func(ctx context.Context, db *database.DB) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close database: %v\n", err)
		}
	}()
	return fn(ctx, db)
}
