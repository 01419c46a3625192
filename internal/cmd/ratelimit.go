package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var ratelimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Inspect the persisted rate budget",
	Long:  "Show or reset the rate-budget snapshot recorded by the last ingest run.",
}

var ratelimitStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last recorded rate budget",
	Args:  cobra.NoArgs,
	RunE:  runRatelimitStatus,
}

var ratelimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the persisted rate budget",
	Args:  cobra.NoArgs,
	RunE:  runRatelimitReset,
}

func init() {
	rootCmd.AddCommand(ratelimitCmd)
	ratelimitCmd.AddCommand(ratelimitStatusCmd)
	ratelimitCmd.AddCommand(ratelimitResetCmd)
}

func runRatelimitStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

	snapshot, err := db.LoadRateBudget(ctx)
	if err != nil {
		return err
	}
	if snapshot == nil {
		fmt.Println("No rate budget recorded yet; run an ingest first")
		return nil
	}

	fmt.Printf("Points spent:   %.1f / %.1f per hour\n", snapshot.PointsSpent, snapshot.LimitPerHour)
	fmt.Printf("Points reset:   in %s\n", (time.Duration(snapshot.PointsResetIn) * time.Second).String())
	if snapshot.ThrottledUntil != nil {
		fmt.Printf("Throttled until: %s\n", snapshot.ThrottledUntil.UTC().Format(time.RFC3339))
	}
	fmt.Printf("Recorded at:    %s\n", snapshot.UpdatedAt.UTC().Format(time.RFC3339))

	return nil
}

func runRatelimitReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

	if err := db.ResetRateBudget(ctx); err != nil {
		return err
	}

	fmt.Println("Rate budget cleared")
	return nil
}
