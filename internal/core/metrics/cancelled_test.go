package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raidlens/raidlens/internal/core"
)

func beginAt(ts int64, source, ability int) core.Event {
	return core.Event{Timestamp: ts, Type: core.EventBeginCast, SourceID: source, AbilityID: ability}
}

func castBy(ts int64, source, ability int) core.Event {
	return core.Event{Timestamp: ts, Type: core.EventCast, SourceID: source, AbilityID: ability}
}

func TestCancelledCastsCounts(t *testing.T) {
	events := []core.Event{
		beginAt(0, 1, 100), castBy(2000, 1, 100),
		beginAt(4000, 1, 100), castBy(6000, 1, 100),
		beginAt(8000, 1, 100), castBy(10000, 1, 100),
		beginAt(12000, 1, 100),
	}

	rows := ComputeCancelledCasts(events, 0)
	require.Len(t, rows, 1)
	require.Equal(t, 4, rows[0].Begins)
	require.Equal(t, 3, rows[0].Completions)
	require.Equal(t, 1, rows[0].CancelCount)
	require.Equal(t, 25.0, rows[0].CancelPct)
}

func TestCancelledCastsNeverNegative(t *testing.T) {
	// More completions than begins, e.g. procs finishing casts for free.
	events := []core.Event{
		beginAt(0, 1, 100),
		castBy(1000, 1, 100),
		castBy(2000, 1, 100),
	}

	rows := ComputeCancelledCasts(events, 0)
	require.Len(t, rows, 1)
	require.Equal(t, 0, rows[0].CancelCount)
	require.Equal(t, 0.0, rows[0].CancelPct)
}

func TestCancelledCastsInstantAbilitiesSkipped(t *testing.T) {
	events := []core.Event{castBy(0, 1, 200), castBy(1500, 1, 200)}
	require.Empty(t, ComputeCancelledCasts(events, 0))
}

func TestCancelledCastsTopNPerPlayer(t *testing.T) {
	var events []core.Event
	for ability := 100; ability < 105; ability++ {
		cancels := ability - 99
		for i := 0; i < cancels; i++ {
			events = append(events, beginAt(int64(i), 1, ability))
		}
	}
	events = append(events, beginAt(0, 2, 300))

	rows := ComputeCancelledCasts(events, 2)
	require.Len(t, rows, 3)
	require.Equal(t, 1, rows[0].SourceID)
	require.Equal(t, 104, rows[0].AbilityID)
	require.Equal(t, 5, rows[0].CancelCount)
	require.Equal(t, 103, rows[1].AbilityID)
	require.Equal(t, 2, rows[2].SourceID)
	require.Equal(t, 300, rows[2].AbilityID)
}
