package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raidlens/raidlens/internal/core"
)

var metricTables = []string{
	"cast_activity",
	"cooldown_usage",
	"cooldown_windows",
	"cancelled_casts",
	"dot_refresh",
	"resource_metrics",
	"phase_metrics",
	"rotation_reports",
}

// ReplaceFightMetrics persists every derived row for one fight. All rows
// for the (report, fight) pair are deleted first inside a transaction, so
// re-ingesting the same fight never duplicates or half-merges rows.
func (s *Store) ReplaceFightMetrics(ctx context.Context, fm *core.FightMetrics) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if fm == nil {
		return errors.New("fight metrics are required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	code := strings.TrimSpace(fm.ReportCode)
	if code == "" {
		return errors.New("report code is required")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metrics transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	for _, table := range metricTables {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE report_code = ? AND fight_id = ?", table),
			code, fm.Fight.ID); err != nil {
			return fmt.Errorf("clear %s rows: %w", table, err)
		}
	}

	kill := 0
	if fm.Fight.Kill {
		kill = 1
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fights (report_code, fight_id, encounter_name, start_time, end_time, kill, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(report_code, fight_id) DO UPDATE SET
			encounter_name = excluded.encounter_name,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			kill = excluded.kill,
			ingested_at = excluded.ingested_at
	`, code, fm.Fight.ID, fm.Fight.EncounterName, fm.Fight.StartTime, fm.Fight.EndTime, kill, time.Now().UTC().Unix()); err != nil {
		return fmt.Errorf("store fight: %w", err)
	}

	for _, row := range fm.CastActivity {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cast_activity (report_code, fight_id, source_id, total_casts, active_time_ms,
				downtime_ms, gcd_uptime_pct, casts_per_minute, gap_count, longest_gap_ms, avg_gap_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, code, fm.Fight.ID, row.SourceID, row.TotalCasts, row.ActiveTimeMs,
			row.DowntimeMs, row.GCDUptimePct, row.CastsPerMinute, row.GapCount, row.LongestGapMs, row.AvgGapMs); err != nil {
			return fmt.Errorf("store cast activity: %w", err)
		}
	}

	for _, row := range fm.CooldownUsage {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cooldown_usage (report_code, fight_id, source_id, ability_id, ability_name,
				cooldown_sec, times_used, max_possible_uses, efficiency_pct, first_use_ms, last_use_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, code, fm.Fight.ID, row.SourceID, row.AbilityID, row.AbilityName,
			row.CooldownSec, row.TimesUsed, row.MaxPossibleUses, row.EfficiencyPct,
			nullableInt64(row.FirstUseMs), nullableInt64(row.LastUseMs)); err != nil {
			return fmt.Errorf("store cooldown usage: %w", err)
		}
	}

	for _, row := range fm.CooldownWindows {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cooldown_windows (report_code, fight_id, source_id, ability_id, ability_name,
				activation_ms, window_sec, window_damage, window_dps, baseline_dps, dps_gain_pct)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, code, fm.Fight.ID, row.SourceID, row.AbilityID, row.AbilityName,
			row.ActivationMs, row.WindowSec, row.WindowDamage, row.WindowDPS, row.BaselineDPS, row.DPSGainPct); err != nil {
			return fmt.Errorf("store cooldown window: %w", err)
		}
	}

	for _, row := range fm.CancelledCasts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cancelled_casts (report_code, fight_id, source_id, ability_id, begins,
				completions, cancel_count, cancel_pct)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, code, fm.Fight.ID, row.SourceID, row.AbilityID, row.Begins,
			row.Completions, row.CancelCount, row.CancelPct); err != nil {
			return fmt.Errorf("store cancelled casts: %w", err)
		}
	}

	for _, row := range fm.DotRefresh {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dot_refresh (report_code, fight_id, source_id, ability_id, ability_name,
				total_refreshes, early_refreshes, early_refresh_pct, avg_remaining_ms, clipped_ticks_est)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, code, fm.Fight.ID, row.SourceID, row.AbilityID, row.AbilityName,
			row.TotalRefreshes, row.EarlyRefreshes, row.EarlyRefreshPct, row.AvgRemainingMs, row.ClippedTicksEst); err != nil {
			return fmt.Errorf("store dot refresh: %w", err)
		}
	}

	for _, row := range fm.Resources {
		series, err := json.Marshal(row.Series)
		if err != nil {
			return fmt.Errorf("encode resource series: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO resource_metrics (report_code, fight_id, source_id, resource_type, resource_name,
				min, max, avg, time_at_zero_ms, time_at_zero_pct, series)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, code, fm.Fight.ID, row.SourceID, row.ResourceType, row.ResourceName,
			row.Min, row.Max, row.Avg, row.TimeAtZeroMs, row.TimeAtZeroPct, string(series)); err != nil {
			return fmt.Errorf("store resource metrics: %w", err)
		}
	}

	for _, row := range fm.PhaseMetrics {
		downtime := 0
		if row.IsDowntime {
			downtime = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO phase_metrics (report_code, fight_id, phase_name, start_ms, end_ms,
				is_downtime, cast_count, damage, dps)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, code, fm.Fight.ID, row.PhaseName, row.StartMs, row.EndMs,
			downtime, row.CastCount, row.Damage, row.DPS); err != nil {
			return fmt.Errorf("store phase metrics: %w", err)
		}
	}

	if fm.Rotation != nil {
		violations, err := json.Marshal(fm.Rotation.Violations)
		if err != nil {
			return fmt.Errorf("encode rotation violations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rotation_reports (report_code, fight_id, spec, rules_checked, rules_passed, score_pct, violations)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, code, fm.Fight.ID, fm.Rotation.Spec, fm.Rotation.RulesChecked,
			fm.Rotation.RulesPassed, fm.Rotation.ScorePct, string(violations)); err != nil {
			return fmt.Errorf("store rotation report: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit metrics transaction: %w", err)
	}
	return nil
}

// LoadFightMetrics reconstructs the full metrics bundle for one fight.
// Returns nil when the fight was never ingested.
func (s *Store) LoadFightMetrics(ctx context.Context, reportCode string, fightID int) (*core.FightMetrics, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stored, err := s.GetFight(ctx, reportCode, fightID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}

	fm := &core.FightMetrics{ReportCode: stored.ReportCode, Fight: stored.Fight}
	code := stored.ReportCode

	if err := s.loadCastActivity(ctx, code, fightID, fm); err != nil {
		return nil, err
	}
	if err := s.loadCooldownUsage(ctx, code, fightID, fm); err != nil {
		return nil, err
	}
	if err := s.loadCooldownWindows(ctx, code, fightID, fm); err != nil {
		return nil, err
	}
	if err := s.loadCancelledCasts(ctx, code, fightID, fm); err != nil {
		return nil, err
	}
	if err := s.loadDotRefresh(ctx, code, fightID, fm); err != nil {
		return nil, err
	}
	if err := s.loadResources(ctx, code, fightID, fm); err != nil {
		return nil, err
	}
	if err := s.loadPhaseMetrics(ctx, code, fightID, fm); err != nil {
		return nil, err
	}
	if err := s.loadRotation(ctx, code, fightID, fm); err != nil {
		return nil, err
	}

	return fm, nil
}

func (s *Store) loadCastActivity(ctx context.Context, code string, fightID int, fm *core.FightMetrics) error {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT source_id, total_casts, active_time_ms, downtime_ms, gcd_uptime_pct,
			casts_per_minute, gap_count, longest_gap_ms, avg_gap_ms
		FROM cast_activity WHERE report_code = ? AND fight_id = ? ORDER BY source_id
	`, code, fightID)
	if err != nil {
		return fmt.Errorf("load cast activity: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var r core.CastActivity
		if err := rows.Scan(&r.SourceID, &r.TotalCasts, &r.ActiveTimeMs, &r.DowntimeMs,
			&r.GCDUptimePct, &r.CastsPerMinute, &r.GapCount, &r.LongestGapMs, &r.AvgGapMs); err != nil {
			return fmt.Errorf("scan cast activity: %w", err)
		}
		fm.CastActivity = append(fm.CastActivity, r)
	}
	return rows.Err()
}

func (s *Store) loadCooldownUsage(ctx context.Context, code string, fightID int, fm *core.FightMetrics) error {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT source_id, ability_id, ability_name, cooldown_sec, times_used,
			max_possible_uses, efficiency_pct, first_use_ms, last_use_ms
		FROM cooldown_usage WHERE report_code = ? AND fight_id = ? ORDER BY source_id, ability_id
	`, code, fightID)
	if err != nil {
		return fmt.Errorf("load cooldown usage: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var (
			r           core.CooldownUsage
			first, last sql.NullInt64
		)
		if err := rows.Scan(&r.SourceID, &r.AbilityID, &r.AbilityName, &r.CooldownSec,
			&r.TimesUsed, &r.MaxPossibleUses, &r.EfficiencyPct, &first, &last); err != nil {
			return fmt.Errorf("scan cooldown usage: %w", err)
		}
		if first.Valid {
			v := first.Int64
			r.FirstUseMs = &v
		}
		if last.Valid {
			v := last.Int64
			r.LastUseMs = &v
		}
		fm.CooldownUsage = append(fm.CooldownUsage, r)
	}
	return rows.Err()
}

func (s *Store) loadCooldownWindows(ctx context.Context, code string, fightID int, fm *core.FightMetrics) error {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT source_id, ability_id, ability_name, activation_ms, window_sec,
			window_damage, window_dps, baseline_dps, dps_gain_pct
		FROM cooldown_windows WHERE report_code = ? AND fight_id = ? ORDER BY source_id, activation_ms
	`, code, fightID)
	if err != nil {
		return fmt.Errorf("load cooldown windows: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var r core.CooldownWindow
		if err := rows.Scan(&r.SourceID, &r.AbilityID, &r.AbilityName, &r.ActivationMs,
			&r.WindowSec, &r.WindowDamage, &r.WindowDPS, &r.BaselineDPS, &r.DPSGainPct); err != nil {
			return fmt.Errorf("scan cooldown window: %w", err)
		}
		fm.CooldownWindows = append(fm.CooldownWindows, r)
	}
	return rows.Err()
}

func (s *Store) loadCancelledCasts(ctx context.Context, code string, fightID int, fm *core.FightMetrics) error {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT source_id, ability_id, begins, completions, cancel_count, cancel_pct
		FROM cancelled_casts WHERE report_code = ? AND fight_id = ? ORDER BY source_id, cancel_count DESC, ability_id
	`, code, fightID)
	if err != nil {
		return fmt.Errorf("load cancelled casts: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var r core.CancelledCastSummary
		if err := rows.Scan(&r.SourceID, &r.AbilityID, &r.Begins, &r.Completions,
			&r.CancelCount, &r.CancelPct); err != nil {
			return fmt.Errorf("scan cancelled casts: %w", err)
		}
		fm.CancelledCasts = append(fm.CancelledCasts, r)
	}
	return rows.Err()
}

func (s *Store) loadDotRefresh(ctx context.Context, code string, fightID int, fm *core.FightMetrics) error {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT source_id, ability_id, ability_name, total_refreshes, early_refreshes,
			early_refresh_pct, avg_remaining_ms, clipped_ticks_est
		FROM dot_refresh WHERE report_code = ? AND fight_id = ? ORDER BY source_id, ability_id
	`, code, fightID)
	if err != nil {
		return fmt.Errorf("load dot refresh: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var r core.DotRefreshSummary
		if err := rows.Scan(&r.SourceID, &r.AbilityID, &r.AbilityName, &r.TotalRefreshes,
			&r.EarlyRefreshes, &r.EarlyRefreshPct, &r.AvgRemainingMs, &r.ClippedTicksEst); err != nil {
			return fmt.Errorf("scan dot refresh: %w", err)
		}
		fm.DotRefresh = append(fm.DotRefresh, r)
	}
	return rows.Err()
}

func (s *Store) loadResources(ctx context.Context, code string, fightID int, fm *core.FightMetrics) error {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT source_id, resource_type, resource_name, min, max, avg,
			time_at_zero_ms, time_at_zero_pct, series
		FROM resource_metrics WHERE report_code = ? AND fight_id = ? ORDER BY source_id, resource_type
	`, code, fightID)
	if err != nil {
		return fmt.Errorf("load resource metrics: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var (
			r      core.ResourceMetrics
			series sql.NullString
		)
		if err := rows.Scan(&r.SourceID, &r.ResourceType, &r.ResourceName, &r.Min, &r.Max,
			&r.Avg, &r.TimeAtZeroMs, &r.TimeAtZeroPct, &series); err != nil {
			return fmt.Errorf("scan resource metrics: %w", err)
		}
		if series.Valid && series.String != "" && series.String != "null" {
			if err := json.Unmarshal([]byte(series.String), &r.Series); err != nil {
				return fmt.Errorf("decode resource series: %w", err)
			}
		}
		fm.Resources = append(fm.Resources, r)
	}
	return rows.Err()
}

func (s *Store) loadPhaseMetrics(ctx context.Context, code string, fightID int, fm *core.FightMetrics) error {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT phase_name, start_ms, end_ms, is_downtime, cast_count, damage, dps
		FROM phase_metrics WHERE report_code = ? AND fight_id = ? ORDER BY start_ms
	`, code, fightID)
	if err != nil {
		return fmt.Errorf("load phase metrics: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var (
			r        core.PhaseMetric
			downtime int
		)
		if err := rows.Scan(&r.PhaseName, &r.StartMs, &r.EndMs, &downtime,
			&r.CastCount, &r.Damage, &r.DPS); err != nil {
			return fmt.Errorf("scan phase metrics: %w", err)
		}
		r.IsDowntime = downtime != 0
		fm.PhaseMetrics = append(fm.PhaseMetrics, r)
	}
	return rows.Err()
}

func (s *Store) loadRotation(ctx context.Context, code string, fightID int, fm *core.FightMetrics) error {
	var (
		r          core.RotationReport
		violations sql.NullString
	)
	row := s.DB.QueryRowContext(ctx, `
		SELECT spec, rules_checked, rules_passed, score_pct, violations
		FROM rotation_reports WHERE report_code = ? AND fight_id = ?
	`, code, fightID)

	if err := row.Scan(&r.Spec, &r.RulesChecked, &r.RulesPassed, &r.ScorePct, &violations); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("load rotation report: %w", err)
	}
	if violations.Valid && violations.String != "" && violations.String != "null" {
		if err := json.Unmarshal([]byte(violations.String), &r.Violations); err != nil {
			return fmt.Errorf("decode rotation violations: %w", err)
		}
	}
	fm.Rotation = &r
	return nil
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
