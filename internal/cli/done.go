package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferryhq/ferrytask/internal/task"
)

var doneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Mark a task as done",
	Long: `Mark a task as completed.

Examples:
  ferrytask done abc123
  ferrytask done abc123 --undo`,
	Args: cobra.ExactArgs(1),
	RunE: runDone,
}

var doneUndo bool

func init() {
	doneCmd.Flags().BoolVar(&doneUndo, "undo", false, "Mark task as not done")
}

func runDone(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()

	t, err := env.resolveTaskID(ctx, args[0])
	if err != nil {
		return err
	}

	completed := !doneUndo
	updated, err := env.Repo.Update(ctx, t.ID, task.Patch{Completed: &completed})
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	if completed {
		fmt.Printf("✓ Completed: \"%s\"\n", updated.Title)
	} else {
		fmt.Printf("○ Reopened: \"%s\"\n", updated.Title)
	}

	return nil
}
