package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raidlens/raidlens/internal/config"
	"github.com/raidlens/raidlens/internal/core/client"
	"github.com/raidlens/raidlens/internal/core/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <report-code>",
	Short: "Ingest a report and derive fight metrics",
	Long: `Fetch fights and event streams for a report from the remote service,
derive per-fight metrics, and persist them to the local store. Re-running
ingest for the same report replaces previously stored metrics.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().IntSlice("fights", nil, "Fight IDs to ingest (default: all fights in the report)")
	ingestCmd.Flags().String("class", "", "Player class for cooldown metrics (e.g. warrior)")
	ingestCmd.Flags().String("spec", "", "Player class/spec pair for rotation and DoT metrics (e.g. warrior/fury)")
	ingestCmd.Flags().Int("source", 0, "Source actor ID to focus class/spec metrics on")
	ingestCmd.Flags().Int("workers", 0, "Concurrent fight workers (default from config)")
	ingestCmd.Flags().Int("top-cancelled", 0, "Number of top cancelled-cast abilities to keep (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	reportCode := strings.TrimSpace(args[0])
	if reportCode == "" {
		return errors.New("report code is required")
	}

	fightIDs, err := cmd.Flags().GetIntSlice("fights")
	if err != nil {
		return err
	}
	class, err := cmd.Flags().GetString("class")
	if err != nil {
		return err
	}
	spec, err := cmd.Flags().GetString("spec")
	if err != nil {
		return err
	}
	sourceID, err := cmd.Flags().GetInt("source")
	if err != nil {
		return err
	}
	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return err
	}
	topCancelled, err := cmd.Flags().GetInt("top-cancelled")
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

	cfg := config.GetConfig()
	if cfg == nil {
		return errors.New("config not loaded")
	}
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	if workers <= 0 {
		workers = cfg.Ingest.Workers
	}
	if topCancelled <= 0 {
		topCancelled = cfg.Ingest.TopCancelled
	}

	runner := &ingest.Runner{
		Client:    buildClient(cfg),
		Store:     db,
		PageLimit: cfg.API.PageLimit,
		Logger:    ingestLogger(),
	}

	result, err := runner.Run(ctx, ingest.Options{
		ReportCode:   reportCode,
		FightIDs:     fightIDs,
		Class:        strings.ToLower(strings.TrimSpace(class)),
		Spec:         strings.ToLower(strings.TrimSpace(spec)),
		SourceID:     sourceID,
		Workers:      workers,
		TopCancelled: topCancelled,
		ToolVersion:  versionInfo.Version,
	})
	if err != nil {
		return err
	}

	run := result.Run
	fmt.Printf("Ingested report %s: %d fights, %d pages, %d requests in %s\n",
		run.ReportCode, run.Fights, run.Pages, run.Requests,
		run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
	for _, fm := range result.Fights {
		outcome := "wipe"
		if fm.Fight.Kill {
			outcome = "kill"
		}
		fmt.Printf("  fight %d %s (%s, %.1fs)\n",
			fm.Fight.ID, fm.Fight.EncounterName, outcome,
			float64(fm.Fight.DurationMs())/1000.0)
	}

	return nil
}

// buildClient assembles the service client from the API config.
func buildClient(cfg *config.Config) *client.Client {
	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	return &client.Client{
		Endpoint: cfg.API.Endpoint,
		Tokens: &client.TokenProvider{
			TokenURL:     cfg.API.TokenURL,
			ClientID:     cfg.API.ClientID,
			ClientSecret: cfg.API.ClientSecret,
			Client:       httpClient,
		},
		Budget: &client.RateBudget{Margin: cfg.API.RateLimitMargin},
		HTTP:   httpClient,
		Retry:  client.DefaultRetryPolicy(),
	}
}

func ingestLogger() *zap.Logger {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	return zap.NewNop()
}
