package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raidlens/raidlens/internal/core"
)

// StoredFight is a fight row together with its report key.
type StoredFight struct {
	ReportCode string     `json:"report_code"`
	Fight      core.Fight `json:"fight"`
	IngestedAt time.Time  `json:"ingested_at"`
}

// UpsertFight stores or refreshes the fight row for a report.
func (s *Store) UpsertFight(ctx context.Context, reportCode string, fight core.Fight) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	code := strings.TrimSpace(reportCode)
	if code == "" {
		return errors.New("report code is required")
	}

	kill := 0
	if fight.Kill {
		kill = 1
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO fights (report_code, fight_id, encounter_name, start_time, end_time, kill, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(report_code, fight_id) DO UPDATE SET
			encounter_name = excluded.encounter_name,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			kill = excluded.kill,
			ingested_at = excluded.ingested_at
	`, code, fight.ID, fight.EncounterName, fight.StartTime, fight.EndTime, kill, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("store fight: %w", err)
	}
	return nil
}

// ListFights returns every stored fight for a report, ordered by fight ID.
// An empty report code lists fights across all reports.
func (s *Store) ListFights(ctx context.Context, reportCode string) ([]StoredFight, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	query := `
		SELECT report_code, fight_id, encounter_name, start_time, end_time, kill, ingested_at
		FROM fights`
	args := []any{}
	if code := strings.TrimSpace(reportCode); code != "" {
		query += " WHERE report_code = ?"
		args = append(args, code)
	}
	query += " ORDER BY report_code, fight_id"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fights: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	fights := make([]StoredFight, 0)
	for rows.Next() {
		var (
			sf       StoredFight
			kill     int
			ingested int64
		)
		if err := rows.Scan(&sf.ReportCode, &sf.Fight.ID, &sf.Fight.EncounterName,
			&sf.Fight.StartTime, &sf.Fight.EndTime, &kill, &ingested); err != nil {
			return nil, fmt.Errorf("scan fight: %w", err)
		}
		sf.Fight.Kill = kill != 0
		sf.IngestedAt = time.Unix(ingested, 0).UTC()
		fights = append(fights, sf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list fights: %w", err)
	}
	return fights, nil
}

// GetFight returns one stored fight, or nil when it was never ingested.
func (s *Store) GetFight(ctx context.Context, reportCode string, fightID int) (*StoredFight, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		sf       StoredFight
		kill     int
		ingested int64
	)
	row := s.DB.QueryRowContext(ctx, `
		SELECT report_code, fight_id, encounter_name, start_time, end_time, kill, ingested_at
		FROM fights
		WHERE report_code = ? AND fight_id = ?
	`, strings.TrimSpace(reportCode), fightID)

	if err := row.Scan(&sf.ReportCode, &sf.Fight.ID, &sf.Fight.EncounterName,
		&sf.Fight.StartTime, &sf.Fight.EndTime, &kill, &ingested); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch fight: %w", err)
	}
	sf.Fight.Kill = kill != 0
	sf.IngestedAt = time.Unix(ingested, 0).UTC()
	return &sf, nil
}
