package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [task-id]",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Long: `Delete a task by its ID. The task is soft-deleted: it disappears from
listings, but its row stays in the local store so the deletion can be
uploaded.

Examples:
  ferrytask delete abc123
  ferrytask rm abc123`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	if env.Cfg.ConfirmDelete {
		fmt.Printf("About to delete: \"%s\" (ID: %s)\n", t.Title, t.ID)
		fmt.Print("Are you sure? [y/N]: ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "y" && confirm != "Y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	deleted, err := env.Repo.Delete(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return fmt.Errorf("task not found: %s", args[0])
	}

	fmt.Printf("🗑️  Deleted: \"%s\"\n", t.Title)
	return nil
}
