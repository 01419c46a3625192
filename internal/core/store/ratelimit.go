package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/raidlens/raidlens/internal/core"
)

// SaveRateBudget persists the latest rate-budget snapshot so a later
// process can honor a throttle deadline set by a previous run.
func (s *Store) SaveRateBudget(ctx context.Context, snap core.RateBudgetSnapshot) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var throttled any
	if snap.ThrottledUntil != nil {
		throttled = snap.ThrottledUntil.UTC().Unix()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO rate_budget (id, points_spent, limit_per_hour, points_reset_in, throttled_until, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			points_spent = excluded.points_spent,
			limit_per_hour = excluded.limit_per_hour,
			points_reset_in = excluded.points_reset_in,
			throttled_until = excluded.throttled_until,
			updated_at = excluded.updated_at
	`, snap.PointsSpent, snap.LimitPerHour, snap.PointsResetIn, throttled, snap.UpdatedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store rate budget: %w", err)
	}
	return nil
}

// LoadRateBudget returns the stored snapshot, or nil when none was saved.
func (s *Store) LoadRateBudget(ctx context.Context) (*core.RateBudgetSnapshot, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		snap      core.RateBudgetSnapshot
		throttled sql.NullInt64
		updatedAt int64
	)
	row := s.DB.QueryRowContext(ctx, `
		SELECT points_spent, limit_per_hour, points_reset_in, throttled_until, updated_at
		FROM rate_budget WHERE id = 1
	`)
	if err := row.Scan(&snap.PointsSpent, &snap.LimitPerHour, &snap.PointsResetIn, &throttled, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load rate budget: %w", err)
	}

	if throttled.Valid {
		t := time.Unix(throttled.Int64, 0).UTC()
		snap.ThrottledUntil = &t
	}
	snap.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &snap, nil
}

// ResetRateBudget clears the stored snapshot.
func (s *Store) ResetRateBudget(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.DB.ExecContext(ctx, "DELETE FROM rate_budget WHERE id = 1"); err != nil {
		return fmt.Errorf("reset rate budget: %w", err)
	}
	return nil
}
