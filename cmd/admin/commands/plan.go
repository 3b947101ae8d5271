package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/planparser"
	"github.com/benvon/focus-quest/internal/services/plans"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect study plan text",
	}
	cmd.AddCommand(newPlanParseCmd())
	return cmd
}

func newPlanParseCmd() *cobra.Command {
	var (
		asJSON bool
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse plan text into days and tasks",
		Long:  "Reads plan text from file, or stdin when no file or '-' is given, and prints the structured days.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			days := plans.Structure(text)
			if !raw {
				for i := range days {
					for j, task := range days[i].Tasks {
						days[i].Tasks[j] = planparser.StripTags(task)
					}
				}
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(days)
			}
			printDays(out, days)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the days as JSON")
	cmd.Flags().BoolVar(&raw, "html", false, "Keep the emphasis markup in task text")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read plan file: %w", err)
	}
	return string(b), nil
}

func printDays(out io.Writer, days []models.PlanDay) {
	if len(days) == 0 {
		fmt.Fprintln(out, "No days found.")
		return
	}
	for _, d := range days {
		fmt.Fprintln(out, d.Title)
		for _, task := range d.Tasks {
			fmt.Fprintf(out, "  - %s\n", task)
		}
	}
}
