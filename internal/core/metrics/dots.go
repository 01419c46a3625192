package metrics

import (
	"math"
	"sort"

	"github.com/raidlens/raidlens/internal/core"
)

// pandemicFraction is the final share of a DoT's duration during which a
// refresh wastes nothing. Refreshing with more remaining time than this is
// early; refreshing at or inside the window is safe.
const pandemicFraction = 0.3

// ComputeDotRefresh scores refresh discipline for each of the spec's
// tracked DoTs. Consecutive applications of the same spell on the same
// target are compared against the pandemic window; applications after the
// previous one expired start a fresh tracking chain. Specs absent from the
// table yield no rows.
func ComputeDotRefresh(spec string, events []core.Event) []core.DotRefreshSummary {
	dots := DotsForSpec(spec)
	if len(dots) == 0 {
		return nil
	}

	byAbility := make(map[int]DotSpec, len(dots))
	for _, dot := range dots {
		byAbility[dot.AbilityID] = dot
	}

	sorted := make([]core.Event, 0, len(events))
	for _, ev := range events {
		if ev.Type != core.EventCast {
			continue
		}
		if _, ok := byAbility[ev.AbilityID]; !ok {
			continue
		}
		sorted = append(sorted, ev)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	type chainKey struct {
		source  int
		ability int
		target  int
	}
	type rowKey struct {
		source  int
		ability int
	}
	type tally struct {
		applications   int
		refreshes      int
		early          int
		earlyRemaining float64
	}

	lastApplied := make(map[chainKey]int64)
	tallies := make(map[rowKey]*tally)

	for _, ev := range sorted {
		dot := byAbility[ev.AbilityID]
		ck := chainKey{source: ev.SourceID, ability: ev.AbilityID, target: ev.TargetID}
		rk := rowKey{source: ev.SourceID, ability: ev.AbilityID}

		row, ok := tallies[rk]
		if !ok {
			row = &tally{}
			tallies[rk] = row
		}
		row.applications++

		if prev, ok := lastApplied[ck]; ok {
			remaining := dot.DurationMs - (ev.Timestamp - prev)
			if remaining > 0 {
				row.refreshes++
				if float64(remaining) > pandemicFraction*float64(dot.DurationMs) {
					row.early++
					row.earlyRemaining += float64(remaining)
				}
			}
		}
		lastApplied[ck] = ev.Timestamp
	}

	rows := make([]core.DotRefreshSummary, 0, len(tallies))
	for rk, t := range tallies {
		if t.applications == 0 {
			continue
		}
		dot := byAbility[rk.ability]
		row := core.DotRefreshSummary{
			SourceID:       rk.source,
			AbilityID:      rk.ability,
			AbilityName:    dot.Name,
			TotalRefreshes: t.refreshes,
			EarlyRefreshes: t.early,
		}
		if t.refreshes > 0 {
			row.EarlyRefreshPct = clampPct(float64(t.early) / float64(t.refreshes) * 100)
		}
		if t.early > 0 {
			row.AvgRemainingMs = round1(t.earlyRemaining / float64(t.early))
			if dot.TickIntervalMs > 0 {
				row.ClippedTicksEst = int(math.Round(row.AvgRemainingMs / float64(dot.TickIntervalMs)))
			}
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SourceID != rows[j].SourceID {
			return rows[i].SourceID < rows[j].SourceID
		}
		return rows[i].AbilityID < rows[j].AbilityID
	})

	return rows
}
