package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/raidlens/raidlens/internal/core"
	"github.com/raidlens/raidlens/internal/core/store"
)

// FormatFightList renders stored fights as an ASCII table.
func FormatFightList(fights []store.StoredFight) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Report", "Fight", "Encounter", "Duration", "Outcome", "Ingested"})

	for _, f := range fights {
		t.AppendRow(table.Row{
			f.ReportCode,
			f.Fight.ID,
			f.Fight.EncounterName,
			formatDurationMs(f.Fight.DurationMs()),
			outcomeLabel(f.Fight.Kill),
			f.IngestedAt.UTC().Format(time.RFC3339),
		})
	}

	if len(fights) > 0 {
		t.AppendFooter(table.Row{"", "", "", "", "", fmt.Sprintf("%d fights", len(fights))})
	}

	return t.Render()
}

// FormatIngestRuns renders ingest provenance rows, newest first.
func FormatIngestRuns(runs []core.IngestRun) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Started", "Report", "Fights", "Pages", "Requests", "Duration", "Version"})

	for _, run := range runs {
		t.AppendRow(table.Row{
			run.StartedAt.UTC().Format(time.RFC3339),
			run.ReportCode,
			run.Fights,
			run.Pages,
			run.Requests,
			run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String(),
			run.ToolVersion,
		})
	}

	return t.Render()
}

func formatDurationMs(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(100 * time.Millisecond).String()
}

func outcomeLabel(kill bool) string {
	if kill {
		return "kill"
	}
	return "wipe"
}
