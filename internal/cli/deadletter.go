package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deadletterCmd = &cobra.Command{
	Use:   "deadletter",
	Short: "Inspect the dead-letter quarantine",
	Long: `Inspect sync intents whose retries were exhausted.

Commands:
  ferrytask deadletter        # List quarantined intents, newest first
  ferrytask deadletter clear  # Empty the quarantine`,
	RunE: runDeadletterList,
}

var deadletterClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the dead-letter quarantine",
	RunE:  runDeadletterClear,
}

func init() {
	deadletterCmd.AddCommand(deadletterClearCmd)
}

func runDeadletterList(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	letters, err := env.Engine.DeadLetterContents(context.Background())
	if err != nil {
		return err
	}

	if len(letters) == 0 {
		fmt.Println("Dead-letter quarantine is empty.")
		return nil
	}

	fmt.Printf("%d dead letter(s), newest first:\n\n", len(letters))
	for _, dl := range letters {
		fmt.Printf("  %s  %-6s  task=%s\n", dl.FailedAt.Local().Format("2006-01-02 15:04:05"),
			dl.Operation, shortID(dl.TaskID))
		fmt.Printf("            after %d attempts: %s\n", dl.RetryCount, dl.FinalErrorMessage)
	}

	return nil
}

func runDeadletterClear(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Engine.ClearDeadLetters(context.Background()); err != nil {
		return err
	}

	fmt.Println("✓ Dead-letter quarantine cleared.")
	return nil
}
