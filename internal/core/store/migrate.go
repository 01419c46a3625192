package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS fights (
		report_code TEXT NOT NULL,
		fight_id INTEGER NOT NULL,
		encounter_name TEXT NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		kill INTEGER NOT NULL DEFAULT 0,
		ingested_at INTEGER NOT NULL,
		PRIMARY KEY (report_code, fight_id)
	);`,
	`CREATE TABLE IF NOT EXISTS cast_activity (
		report_code TEXT NOT NULL,
		fight_id INTEGER NOT NULL,
		source_id INTEGER NOT NULL,
		total_casts INTEGER NOT NULL,
		active_time_ms INTEGER NOT NULL,
		downtime_ms INTEGER NOT NULL,
		gcd_uptime_pct REAL NOT NULL,
		casts_per_minute REAL NOT NULL,
		gap_count INTEGER NOT NULL,
		longest_gap_ms INTEGER NOT NULL,
		avg_gap_ms REAL NOT NULL,
		PRIMARY KEY (report_code, fight_id, source_id)
	);`,
	`CREATE TABLE IF NOT EXISTS cooldown_usage (
		report_code TEXT NOT NULL,
		fight_id INTEGER NOT NULL,
		source_id INTEGER NOT NULL,
		ability_id INTEGER NOT NULL,
		ability_name TEXT NOT NULL,
		cooldown_sec INTEGER NOT NULL,
		times_used INTEGER NOT NULL,
		max_possible_uses INTEGER NOT NULL,
		efficiency_pct REAL NOT NULL,
		first_use_ms INTEGER,
		last_use_ms INTEGER,
		PRIMARY KEY (report_code, fight_id, source_id, ability_id)
	);`,
	`CREATE TABLE IF NOT EXISTS cooldown_windows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_code TEXT NOT NULL,
		fight_id INTEGER NOT NULL,
		source_id INTEGER NOT NULL,
		ability_id INTEGER NOT NULL,
		ability_name TEXT NOT NULL,
		activation_ms INTEGER NOT NULL,
		window_sec INTEGER NOT NULL,
		window_damage REAL NOT NULL,
		window_dps REAL NOT NULL,
		baseline_dps REAL NOT NULL,
		dps_gain_pct REAL NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_cooldown_windows_fight ON cooldown_windows(report_code, fight_id);`,
	`CREATE TABLE IF NOT EXISTS cancelled_casts (
		report_code TEXT NOT NULL,
		fight_id INTEGER NOT NULL,
		source_id INTEGER NOT NULL,
		ability_id INTEGER NOT NULL,
		begins INTEGER NOT NULL,
		completions INTEGER NOT NULL,
		cancel_count INTEGER NOT NULL,
		cancel_pct REAL NOT NULL,
		PRIMARY KEY (report_code, fight_id, source_id, ability_id)
	);`,
	`CREATE TABLE IF NOT EXISTS dot_refresh (
		report_code TEXT NOT NULL,
		fight_id INTEGER NOT NULL,
		source_id INTEGER NOT NULL,
		ability_id INTEGER NOT NULL,
		ability_name TEXT NOT NULL,
		total_refreshes INTEGER NOT NULL,
		early_refreshes INTEGER NOT NULL,
		early_refresh_pct REAL NOT NULL,
		avg_remaining_ms REAL NOT NULL,
		clipped_ticks_est INTEGER NOT NULL,
		PRIMARY KEY (report_code, fight_id, source_id, ability_id)
	);`,
	`CREATE TABLE IF NOT EXISTS resource_metrics (
		report_code TEXT NOT NULL,
		fight_id INTEGER NOT NULL,
		source_id INTEGER NOT NULL,
		resource_type INTEGER NOT NULL,
		resource_name TEXT NOT NULL,
		min REAL NOT NULL,
		max REAL NOT NULL,
		avg REAL NOT NULL,
		time_at_zero_ms INTEGER NOT NULL,
		time_at_zero_pct REAL NOT NULL,
		series TEXT,
		PRIMARY KEY (report_code, fight_id, source_id, resource_type)
	);`,
	`CREATE TABLE IF NOT EXISTS phase_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_code TEXT NOT NULL,
		fight_id INTEGER NOT NULL,
		phase_name TEXT NOT NULL,
		start_ms INTEGER NOT NULL,
		end_ms INTEGER NOT NULL,
		is_downtime INTEGER NOT NULL DEFAULT 0,
		cast_count INTEGER NOT NULL,
		damage REAL NOT NULL,
		dps REAL NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_phase_metrics_fight ON phase_metrics(report_code, fight_id);`,
	`CREATE TABLE IF NOT EXISTS rotation_reports (
		report_code TEXT NOT NULL,
		fight_id INTEGER NOT NULL,
		spec TEXT NOT NULL,
		rules_checked INTEGER NOT NULL,
		rules_passed INTEGER NOT NULL,
		score_pct REAL NOT NULL,
		violations TEXT,
		PRIMARY KEY (report_code, fight_id)
	);`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		id TEXT PRIMARY KEY,
		report_code TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		completed_at INTEGER NOT NULL,
		fights INTEGER NOT NULL,
		pages INTEGER NOT NULL,
		requests INTEGER NOT NULL,
		tool_version TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_ingest_runs_report ON ingest_runs(report_code, started_at);`,
	`CREATE TABLE IF NOT EXISTS rate_budget (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		points_spent REAL NOT NULL,
		limit_per_hour REAL NOT NULL,
		points_reset_in INTEGER NOT NULL,
		throttled_until INTEGER,
		updated_at INTEGER NOT NULL
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
