package metrics

import (
	"sort"

	"github.com/raidlens/raidlens/internal/core"
)

const (
	// gcdMs is the global cooldown used as the unit of active time.
	gcdMs = 1500
	// gapThresholdMs is the strict lower bound for a counted cast gap.
	gapThresholdMs = 2500
)

// ComputeCastActivity summarizes one player's cast cadence over a fight.
// A zero-duration fight yields a zeroed record, never an error.
func ComputeCastActivity(source int, casts []core.Event, fightDurationMs int64) core.CastActivity {
	activity := core.CastActivity{SourceID: source}

	sorted := make([]core.Event, len(casts))
	copy(sorted, casts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	activity.TotalCasts = len(sorted)

	activeTime := int64(activity.TotalCasts) * gcdMs
	if activeTime > fightDurationMs {
		activeTime = fightDurationMs
	}
	activity.ActiveTimeMs = activeTime
	activity.DowntimeMs = fightDurationMs - activeTime

	if fightDurationMs > 0 {
		activity.GCDUptimePct = clampPct(float64(activeTime) / float64(fightDurationMs) * 100)
		activity.CastsPerMinute = round1(float64(activity.TotalCasts) / (float64(fightDurationMs) / 60000))
	}

	var gapTotal int64
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].Timestamp - sorted[i-1].Timestamp
		if gap > gapThresholdMs {
			activity.GapCount++
			gapTotal += gap
			if gap > activity.LongestGapMs {
				activity.LongestGapMs = gap
			}
		}
	}
	if activity.GapCount > 0 {
		activity.AvgGapMs = round1(float64(gapTotal) / float64(activity.GapCount))
	}

	return activity
}
