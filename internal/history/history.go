package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// History is an append-only audit log of handler runs in SQLite.
// It is never read back to replay or retry deliveries.
type History struct {
	db *sql.DB
}

// NewHistory opens (or creates) the history database at dbPath
func NewHistory(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}

	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) initSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS handler_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			dispatch_id TEXT NOT NULL,
			delivery_id TEXT NOT NULL,
			event TEXT NOT NULL,
			rule TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_seconds REAL NOT NULL,
			error_message TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = h.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_runs_delivery
		ON handler_runs(delivery_id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// RecordRun inserts a handler run and returns its ID
func (h *History) RecordRun(ctx context.Context, run *Run) (int64, error) {
	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	result, err := h.db.ExecContext(ctx, `
		INSERT INTO handler_runs
		(dispatch_id, delivery_id, event, rule, status, started_at,
		 duration_seconds, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.DispatchID,
		run.DeliveryID,
		run.Event,
		run.Rule,
		run.Status,
		startedAt.UTC().Format(time.RFC3339Nano),
		run.DurationSeconds,
		run.ErrorMessage,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert handler run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

const selectRuns = `
	SELECT id, dispatch_id, delivery_id, event, rule, status, started_at,
	       duration_seconds, error_message
	FROM handler_runs`

// GetRecentRuns returns the most recent runs, newest first
func (h *History) GetRecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := h.db.QueryContext(ctx, selectRuns+`
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent runs: %w", err)
	}
	return collectRuns(rows)
}

// GetRunsForDelivery returns all runs triggered by one delivery, in invocation order
func (h *History) GetRunsForDelivery(ctx context.Context, deliveryID string) ([]Run, error) {
	rows, err := h.db.QueryContext(ctx, selectRuns+`
		WHERE delivery_id = ?
		ORDER BY id ASC
	`, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery runs: %w", err)
	}
	return collectRuns(rows)
}

// GetLatestRunByRule returns the latest run of every rule that has run at least once
func (h *History) GetLatestRunByRule(ctx context.Context) (map[string]*Run, error) {
	rows, err := h.db.QueryContext(ctx, selectRuns+`
		WHERE id IN (SELECT MAX(id) FROM handler_runs GROUP BY rule)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest runs: %w", err)
	}

	runs, err := collectRuns(rows)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*Run, len(runs))
	for i := range runs {
		result[runs[i].Rule] = &runs[i]
	}
	return result, nil
}

func collectRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan handler run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var startedAtStr string

	err := s.Scan(
		&run.ID,
		&run.DispatchID,
		&run.DeliveryID,
		&run.Event,
		&run.Rule,
		&run.Status,
		&startedAtStr,
		&run.DurationSeconds,
		&run.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	startedAt, err := time.Parse(time.RFC3339Nano, startedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at timestamp: %w", err)
	}
	run.StartedAt = startedAt

	return &run, nil
}
