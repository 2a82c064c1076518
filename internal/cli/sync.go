package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync tasks with server",
	Long: `Run one sync cycle: probe the server, upload every queued change in
batches, and settle the outcomes.

Commands:
  ferrytask sync              # Sync now
  ferrytask sync status       # Show sync status`,
	RunE: runSync,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE:  runSyncStatus,
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	fmt.Println("🔄 Synchronizing...")

	result := env.Engine.RunCycle(context.Background())

	if result.Success {
		fmt.Printf("✓ Sync complete! Synced: %d\n", result.SyncedItems)
		return nil
	}

	fmt.Printf("⚠️  Sync finished with problems. Synced: %d, Failed: %d\n",
		result.SyncedItems, result.FailedItems)
	for _, e := range result.Errors {
		fmt.Printf("   %s: %s\n", e.TaskID, e.Error)
	}
	return nil
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()

	pending, err := env.Engine.CountPending(ctx)
	if err != nil {
		return err
	}
	letters, err := env.Engine.DeadLetterContents(ctx)
	if err != nil {
		return err
	}
	lastSynced, err := env.Engine.LastSyncedAt(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Server:       %s\n", env.Cfg.APIBaseURL)
	fmt.Printf("Pending:      %d\n", pending)
	fmt.Printf("Dead letters: %d\n", len(letters))
	if lastSynced != nil {
		fmt.Printf("Last synced:  %s\n", lastSynced.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("Last synced:  never")
	}

	if env.Engine.CheckConnectivity(ctx) {
		fmt.Println("Status:       ✓ Server reachable")
	} else {
		fmt.Println("Status:       ✗ Server unreachable")
	}

	return nil
}
