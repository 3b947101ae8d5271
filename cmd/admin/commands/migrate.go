package commands

import (
	"context"
	"fmt"

	"github.com/benvon/focus-quest/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, open, func(ctx context.Context, db *database.DB) error {
				if err := db.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
				return nil
			})
		},
	}
}
