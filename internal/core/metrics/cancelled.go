package metrics

import (
	"sort"

	"github.com/raidlens/raidlens/internal/core"
)

// ComputeCancelledCasts counts cast-begin events that never completed, per
// (player, ability). Instant abilities with no begin events contribute
// nothing. The result is ordered by player, then cancel count descending,
// trimmed to topN abilities per player (topN <= 0 keeps everything).
func ComputeCancelledCasts(events []core.Event, topN int) []core.CancelledCastSummary {
	type key struct {
		source  int
		ability int
	}

	counts := make(map[key]*core.CancelledCastSummary)
	for _, ev := range events {
		if ev.Type != core.EventBeginCast && ev.Type != core.EventCast {
			continue
		}
		k := key{source: ev.SourceID, ability: ev.AbilityID}
		row, ok := counts[k]
		if !ok {
			row = &core.CancelledCastSummary{SourceID: ev.SourceID, AbilityID: ev.AbilityID}
			counts[k] = row
		}
		if ev.Type == core.EventBeginCast {
			row.Begins++
		} else {
			row.Completions++
		}
	}

	rows := make([]core.CancelledCastSummary, 0, len(counts))
	for _, row := range counts {
		if row.Begins == 0 {
			continue
		}
		if cancels := row.Begins - row.Completions; cancels > 0 {
			row.CancelCount = cancels
		}
		row.CancelPct = clampPct(float64(row.CancelCount) / float64(row.Begins) * 100)
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SourceID != rows[j].SourceID {
			return rows[i].SourceID < rows[j].SourceID
		}
		if rows[i].CancelCount != rows[j].CancelCount {
			return rows[i].CancelCount > rows[j].CancelCount
		}
		return rows[i].AbilityID < rows[j].AbilityID
	})

	if topN <= 0 {
		return rows
	}

	trimmed := rows[:0]
	kept := 0
	lastSource := 0
	for i, row := range rows {
		if i == 0 || row.SourceID != lastSource {
			lastSource = row.SourceID
			kept = 0
		}
		if kept < topN {
			trimmed = append(trimmed, row)
			kept++
		}
	}

	return trimmed
}
