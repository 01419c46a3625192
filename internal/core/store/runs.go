package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raidlens/raidlens/internal/core"
)

// RecordIngestRun stores provenance for one completed ingestion.
func (s *Store) RecordIngestRun(ctx context.Context, run core.IngestRun) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(run.ID) == "" {
		return errors.New("ingest run id is required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO ingest_runs (id, report_code, started_at, completed_at, fights, pages, requests, tool_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.ReportCode, run.StartedAt.UTC().Unix(), run.CompletedAt.UTC().Unix(),
		run.Fights, run.Pages, run.Requests, run.ToolVersion)
	if err != nil {
		return fmt.Errorf("store ingest run: %w", err)
	}
	return nil
}

// ListIngestRuns returns runs for a report, newest first. An empty report
// code lists runs across all reports.
func (s *Store) ListIngestRuns(ctx context.Context, reportCode string) ([]core.IngestRun, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	query := `
		SELECT id, report_code, started_at, completed_at, fights, pages, requests, tool_version
		FROM ingest_runs`
	args := []any{}
	if code := strings.TrimSpace(reportCode); code != "" {
		query += " WHERE report_code = ?"
		args = append(args, code)
	}
	query += " ORDER BY started_at DESC"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ingest runs: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	runs := make([]core.IngestRun, 0)
	for rows.Next() {
		var (
			run                  core.IngestRun
			startedAt, completed int64
		)
		if err := rows.Scan(&run.ID, &run.ReportCode, &startedAt, &completed,
			&run.Fights, &run.Pages, &run.Requests, &run.ToolVersion); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		run.StartedAt = time.Unix(startedAt, 0).UTC()
		run.CompletedAt = time.Unix(completed, 0).UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ingest runs: %w", err)
	}
	return runs, nil
}
