package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return nil
}

func newTestBudget(now time.Time) (*RateBudget, *sleepRecorder) {
	recorder := &sleepRecorder{}
	budget := &RateBudget{
		Clock: func() time.Time { return now },
		Sleep: recorder.sleep,
	}
	return budget, recorder
}

func TestWaitIfNeededUnderBudget(t *testing.T) {
	budget, recorder := newTestBudget(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	budget.Update(50, 100, 30*time.Second)

	require.NoError(t, budget.WaitIfNeeded(context.Background()))
	require.Empty(t, recorder.slept)
}

func TestWaitIfNeededMarginBoundary(t *testing.T) {
	budget, recorder := newTestBudget(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	budget.Update(89, 100, 30*time.Second)
	require.NoError(t, budget.WaitIfNeeded(context.Background()))
	require.Empty(t, recorder.slept)

	budget.Update(90, 100, 30*time.Second)
	require.NoError(t, budget.WaitIfNeeded(context.Background()))
	require.Equal(t, []time.Duration{30 * time.Second}, recorder.slept)
}

func TestWaitIfNeededSleepBounds(t *testing.T) {
	budget, recorder := newTestBudget(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	budget.Update(100, 100, 0)
	require.NoError(t, budget.WaitIfNeeded(context.Background()))

	budget.Update(100, 100, 2*time.Hour)
	require.NoError(t, budget.WaitIfNeeded(context.Background()))

	require.Equal(t, []time.Duration{time.Second, time.Hour}, recorder.slept)
}

func TestThrottleDeadlineTakesPriorityAndClearsOnce(t *testing.T) {
	budget, recorder := newTestBudget(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	budget.Update(95, 100, 30*time.Second)
	budget.MarkThrottled(5 * time.Second)

	require.NoError(t, budget.WaitIfNeeded(context.Background()))
	require.Equal(t, []time.Duration{5 * time.Second}, recorder.slept)

	// Deadline was honored once; the next wait falls back to the
	// points-based check.
	require.NoError(t, budget.WaitIfNeeded(context.Background()))
	require.Equal(t, []time.Duration{5 * time.Second, 30 * time.Second}, recorder.slept)
}

func TestExpiredThrottleDeadlineIgnored(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recorder := &sleepRecorder{}
	budget := &RateBudget{
		Clock: func() time.Time { return now },
		Sleep: recorder.sleep,
	}

	budget.MarkThrottled(5 * time.Second)
	now = now.Add(10 * time.Second)

	require.NoError(t, budget.WaitIfNeeded(context.Background()))
	require.Empty(t, recorder.slept)
	require.Nil(t, budget.Snapshot().ThrottledUntil)
}

func TestMarkThrottledFallbacks(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	budget, _ := newTestBudget(now)

	// No hint and no known reset: 60s fallback.
	budget.MarkThrottled(0)
	snap := budget.Snapshot()
	require.NotNil(t, snap.ThrottledUntil)
	require.Equal(t, now.Add(60*time.Second), *snap.ThrottledUntil)

	// Known reset-in is preferred over the fallback.
	budget.Update(10, 100, 90*time.Second)
	budget.MarkThrottled(0)
	snap = budget.Snapshot()
	require.Equal(t, now.Add(90*time.Second), *snap.ThrottledUntil)

	// Explicit hints are clamped to an hour.
	budget.MarkThrottled(5 * time.Hour)
	snap = budget.Snapshot()
	require.Equal(t, now.Add(time.Hour), *snap.ThrottledUntil)
}

func TestUpdateOverwritesState(t *testing.T) {
	budget, _ := newTestBudget(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	budget.Update(90, 100, 30*time.Second)
	budget.Update(10, 100, 1800*time.Second)

	snap := budget.Snapshot()
	require.Equal(t, 10.0, snap.PointsSpent)
	require.Equal(t, int64(1800), snap.PointsResetIn)
}

func TestCustomMargin(t *testing.T) {
	budget, recorder := newTestBudget(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	budget.Margin = 0.5

	budget.Update(50, 100, 10*time.Second)
	require.NoError(t, budget.WaitIfNeeded(context.Background()))
	require.Len(t, recorder.slept, 1)
}
