package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raidlens/raidlens/internal/output"
)

var fightsCmd = &cobra.Command{
	Use:   "fights [report-code]",
	Short: "List ingested fights",
	Long:  "List fights stored locally, optionally scoped to a single report.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFights,
}

func init() {
	rootCmd.AddCommand(fightsCmd)

	fightsCmd.Flags().Bool("runs", false, "Show ingest runs instead of fights")
}

func runFights(cmd *cobra.Command, args []string) error {
	reportCode := ""
	if len(args) == 1 {
		reportCode = strings.TrimSpace(args[0])
	}

	showRuns, err := cmd.Flags().GetBool("runs")
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

	if showRuns {
		runs, err := db.ListIngestRuns(ctx, reportCode)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No ingest runs recorded")
			return nil
		}
		fmt.Println(output.FormatIngestRuns(runs))
		return nil
	}

	fights, err := db.ListFights(ctx, reportCode)
	if err != nil {
		return err
	}
	if len(fights) == 0 {
		if reportCode != "" {
			fmt.Printf("No fights ingested for report %s\n", reportCode)
		} else {
			fmt.Println("No fights ingested")
		}
		return nil
	}

	fmt.Println(output.FormatFightList(fights))
	return nil
}
