package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <report-code> <fight-id>",
	Short: "Print stored metrics for a fight",
	Long:  "Print the derived metrics stored for one fight of an ingested report as JSON.",
	Args:  cobra.ExactArgs(2),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("family", "", "Only print one metric family: casts, cooldowns, windows, cancelled, dots, resources, phases, rotation")
}

func runReport(cmd *cobra.Command, args []string) error {
	reportCode := strings.TrimSpace(args[0])
	fightID, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid fight id %q: %w", args[1], err)
	}

	family, err := cmd.Flags().GetString("family")
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

	metrics, err := db.LoadFightMetrics(ctx, reportCode, fightID)
	if err != nil {
		return err
	}
	if metrics == nil {
		return fmt.Errorf("fight %d of report %s is not ingested", fightID, reportCode)
	}

	var payload any = metrics
	if family != "" {
		switch strings.ToLower(family) {
		case "casts":
			payload = metrics.CastActivity
		case "cooldowns":
			payload = metrics.CooldownUsage
		case "windows":
			payload = metrics.CooldownWindows
		case "cancelled":
			payload = metrics.CancelledCasts
		case "dots":
			payload = metrics.DotRefresh
		case "resources":
			payload = metrics.Resources
		case "phases":
			payload = metrics.PhaseMetrics
		case "rotation":
			payload = metrics.Rotation
		default:
			return fmt.Errorf("unknown metric family %q", family)
		}
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))

	return nil
}
