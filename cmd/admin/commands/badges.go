package commands

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/benvon/focus-quest/internal/database"
	"github.com/benvon/focus-quest/internal/models"
	"github.com/spf13/cobra"
)

func newBadgesCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badges",
		Short: "Inspect badge definitions",
	}
	cmd.AddCommand(newBadgesListCmd(open))
	return cmd
}

func newBadgesListCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List badge definitions",
		Long:  "Lists every known badge. Definitions are stored the first time a badge is awarded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, open, func(ctx context.Context, db *database.DB) error {
				stored, err := database.NewBadgeRepository(db).List(ctx)
				if err != nil {
					return fmt.Errorf("list badges: %w", err)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tSTORED\tDESCRIPTION")
				for _, row := range badgeRows(stored) {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", row.name, row.stored, row.description)
				}
				return tw.Flush()
			})
		},
	}
}

type badgeRow struct {
	name        string
	stored      string
	description string
}

// badgeRows merges the built-in catalog with stored definitions, sorted by name.
func badgeRows(stored []*models.Badge) []badgeRow {
	byName := make(map[string]badgeRow, len(models.BadgeDescriptions)+len(stored))
	for name, desc := range models.BadgeDescriptions {
		byName[name] = badgeRow{name: name, stored: "-", description: desc}
	}
	for _, b := range stored {
		byName[b.Name] = badgeRow{
			name:        b.Name,
			stored:      b.CreatedAt.UTC().Format("2006-01-02"),
			description: b.Description,
		}
	}
	rows := make([]badgeRow, 0, len(byName))
	for _, r := range byName {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })
	return rows
}
