package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raidlens/raidlens/internal/core"
)

func dotCast(ts int64, ability, target int) core.Event {
	return core.Event{Timestamp: ts, Type: core.EventCast, SourceID: 1, AbilityID: ability, TargetID: target}
}

func TestDotRefreshCorruptionClipped(t *testing.T) {
	events := []core.Event{
		dotCast(0, 11672, 5),
		dotCast(8000, 11672, 5),
	}

	rows := ComputeDotRefresh("warlock/affliction", events)
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, "Corruption", row.AbilityName)
	require.Equal(t, 1, row.TotalRefreshes)
	require.Equal(t, 1, row.EarlyRefreshes)
	require.Equal(t, 100.0, row.EarlyRefreshPct)
	require.Equal(t, 10000.0, row.AvgRemainingMs)
	require.Equal(t, 3, row.ClippedTicksEst)
}

func TestDotRefreshPandemicBoundary(t *testing.T) {
	// Corruption runs 18s; the pandemic window opens with 5400ms left.
	// Refreshing exactly there is safe, one millisecond sooner is early.
	atBoundary := ComputeDotRefresh("warlock/affliction", []core.Event{
		dotCast(0, 11672, 5),
		dotCast(12600, 11672, 5),
	})
	require.Len(t, atBoundary, 1)
	require.Equal(t, 1, atBoundary[0].TotalRefreshes)
	require.Equal(t, 0, atBoundary[0].EarlyRefreshes)

	early := ComputeDotRefresh("warlock/affliction", []core.Event{
		dotCast(0, 11672, 5),
		dotCast(12599, 11672, 5),
	})
	require.Len(t, early, 1)
	require.Equal(t, 1, early[0].EarlyRefreshes)
}

func TestDotRefreshExpiredApplicationIsNotARefresh(t *testing.T) {
	rows := ComputeDotRefresh("warlock/affliction", []core.Event{
		dotCast(0, 11672, 5),
		dotCast(20000, 11672, 5),
	})
	require.Len(t, rows, 1)
	require.Equal(t, 0, rows[0].TotalRefreshes)
	require.Equal(t, 0, rows[0].EarlyRefreshes)
}

func TestDotRefreshTracksTargetsSeparately(t *testing.T) {
	rows := ComputeDotRefresh("warlock/affliction", []core.Event{
		dotCast(0, 11672, 5),
		dotCast(8000, 11672, 6),
	})
	require.Len(t, rows, 1)
	require.Equal(t, 0, rows[0].TotalRefreshes)
}

func TestDotRefreshUnknownSpecYieldsNoRows(t *testing.T) {
	require.Nil(t, ComputeDotRefresh("warrior/fury", []core.Event{dotCast(0, 11672, 5)}))
}

func TestDotRefreshUntrackedSpellYieldsNoRows(t *testing.T) {
	require.Empty(t, ComputeDotRefresh("warlock/affliction", []core.Event{dotCast(0, 999, 5)}))
}
