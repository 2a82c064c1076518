package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ferryhq/ferrytask/internal/model"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `List tasks with their sync status.

Examples:
  ferrytask list
  ferrytask list --pending`,
	RunE: runList,
}

var listPendingOnly bool

func init() {
	listCmd.Flags().BoolVar(&listPendingOnly, "pending", false, "Only tasks still waiting to sync")
}

func runList(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()

	var tasks []model.Task
	if listPendingOnly {
		tasks, err = env.Repo.ListNeedingSync(ctx)
	} else {
		tasks, err = env.Repo.ListAll(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found. Add one with: ferrytask add \"Your task\"")
		return nil
	}

	fmt.Printf("\n%d task(s)\n", len(tasks))
	fmt.Println(strings.Repeat("─", 64))

	for _, t := range tasks {
		done := "[ ]"
		if t.Completed {
			done = "[x]"
		}

		title := t.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}

		fmt.Printf("  %s  %-8s  %-40s  %s %s\n",
			done, shortID(t.ID), title, statusIcon(t.SyncStatus), t.SyncStatus)
	}
	fmt.Println()

	return nil
}
