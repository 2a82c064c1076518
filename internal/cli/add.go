package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a new task",
	Long: `Add a new task. The change is recorded locally and queued for the
next sync cycle.

Examples:
  ferrytask add "Buy groceries"
  ferrytask add "Write report" --desc "quarterly numbers"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var addDescription string

func init() {
	addCmd.Flags().StringVarP(&addDescription, "desc", "d", "", "Task description")
}

func runAdd(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	title := strings.Join(args, " ")

	t, err := env.Repo.Create(context.Background(), title, addDescription)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	fmt.Printf("✓ Added: \"%s\" (%s)\n", t.Title, shortID(t.ID))
	return nil
}
