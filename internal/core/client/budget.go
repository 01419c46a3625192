package client

import (
	"context"
	"sync"
	"time"

	"github.com/raidlens/raidlens/internal/core"
)

const (
	// defaultSafetyMargin pre-throttles callers before the remote budget
	// is actually exhausted, so concurrent fetches do not oscillate at
	// the boundary.
	defaultSafetyMargin = 0.10

	minSleep         = time.Second
	maxSleep         = time.Hour
	fallbackThrottle = 60 * time.Second
)

// RateBudget tracks the remote service's rolling hourly request-point
// budget. One instance is shared by every fetch path in the process; all
// state changes go through its mutex. Sleeps never hold the mutex.
type RateBudget struct {
	// Margin overrides the default safety margin when in (0, 1).
	Margin float64
	// Clock and Sleep are injectable for tests.
	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	mu             sync.Mutex
	pointsSpent    float64
	limitPerHour   float64
	resetIn        time.Duration
	throttledUntil time.Time
	updatedAt      time.Time
}

// Update absorbs the server's authoritative counters from the latest
// response. Server state always overwrites whatever we had.
func (b *RateBudget) Update(spent, limit float64, resetIn time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pointsSpent = spent
	b.limitPerHour = limit
	b.resetIn = resetIn
	b.updatedAt = b.nowLocked()
}

// MarkThrottled records an explicit cool-down from the server: the given
// retry-after if positive, else the last known reset-in, else 60s, clamped
// to [1s, 1h] and stored as an absolute deadline.
func (b *RateBudget) MarkThrottled(retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wait := retryAfter
	if wait <= 0 {
		wait = b.resetIn
	}
	if wait <= 0 {
		wait = fallbackThrottle
	}
	b.throttledUntil = b.nowLocked().Add(clampSleep(wait))
}

// WaitIfNeeded suspends the caller until the budget permits a request.
// An unexpired throttle deadline is honored in full and then cleared
// exactly once; an expired one is discarded. Otherwise, spent points at or
// above (1 - margin) x limit trigger a sleep of the clamped reset-in.
func (b *RateBudget) WaitIfNeeded(ctx context.Context) error {
	b.mu.Lock()
	now := b.nowLocked()

	var wait time.Duration
	if !b.throttledUntil.IsZero() {
		if b.throttledUntil.After(now) {
			wait = b.throttledUntil.Sub(now)
		}
		b.throttledUntil = time.Time{}
	}

	if wait == 0 && b.limitPerHour > 0 {
		threshold := (1 - b.margin()) * b.limitPerHour
		if b.pointsSpent >= threshold {
			wait = clampSleep(b.resetIn)
		}
	}
	b.mu.Unlock()

	if wait == 0 {
		return nil
	}
	return b.sleep(ctx, wait)
}

// Snapshot returns the current state for diagnostics.
func (b *RateBudget) Snapshot() core.RateBudgetSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := core.RateBudgetSnapshot{
		PointsSpent:   b.pointsSpent,
		LimitPerHour:  b.limitPerHour,
		PointsResetIn: int64(b.resetIn / time.Second),
		UpdatedAt:     b.updatedAt,
	}
	if !b.throttledUntil.IsZero() {
		until := b.throttledUntil
		snap.ThrottledUntil = &until
	}
	return snap
}

func (b *RateBudget) margin() float64 {
	if b.Margin > 0 && b.Margin < 1 {
		return b.Margin
	}
	return defaultSafetyMargin
}

func (b *RateBudget) nowLocked() time.Time {
	if b.Clock != nil {
		return b.Clock()
	}
	return time.Now().UTC()
}

func (b *RateBudget) sleep(ctx context.Context, d time.Duration) error {
	if b.Sleep != nil {
		return b.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

// clampSleep bounds every sleep so one stuck task can never stall forever
// on bad server data.
func clampSleep(d time.Duration) time.Duration {
	if d < minSleep {
		return minSleep
	}
	if d > maxSleep {
		return maxSleep
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
