package db

import (
	"context"
	"fmt"
	"log"

	"github.com/hankyul/bidwatch/internal/models"
)

// CreateSyncRun inserts a running record and returns its id.
func (s *Store) CreateSyncRun(ctx context.Context, mode string) (string, error) {
	var runID string
	err := s.pool.QueryRow(ctx,
		"INSERT INTO sync_runs (mode, status) VALUES ($1, 'running') RETURNING run_id",
		mode).Scan(&runID)
	if err != nil {
		return "", fmt.Errorf("failed to create sync run: %w", err)
	}
	return runID, nil
}

// FinishSyncRun finalizes a run with its outcome. Bookkeeping failures are
// logged, never propagated: the sync result matters more than its record.
func (s *Store) FinishSyncRun(ctx context.Context, runID, status string, scanned, saved int, errText string) {
	if runID == "" {
		return
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE sync_runs SET
			status = $1,
			scanned = $2,
			saved = $3,
			error_text = $4,
			completed_at = NOW()
		WHERE run_id = $5`,
		status, scanned, saved, errText, runID)
	if err != nil {
		log.Printf("[DB] Failed to update sync run %s: %v", runID, err)
	}
}

func (s *Store) ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, mode, status, scanned, saved, error_text, started_at, completed_at
		FROM sync_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var r models.SyncRun
		if err := rows.Scan(&r.RunID, &r.Mode, &r.Status, &r.Scanned, &r.Saved,
			&r.ErrorText, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
