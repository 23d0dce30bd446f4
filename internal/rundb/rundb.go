// Package rundb is the sqlite run registry: one row per pipeline run
// plus the validation metrics produced alongside probability maps.
package rundb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/anabrs1/TELMA-CS/internal/validate"
)

// DB wraps the registry database handle.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the registry at path and applies any
// pending schema migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run registry %s: %w", path, err)
	}
	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Run is one recorded pipeline run.
type Run struct {
	ID         string
	Kind       string // "extract" or "predict"
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string // "running", "ok", "failed"
	Rows       int64
	MaskPixels int64
	OutputPath string
	Error      string
}

// StartRun records the beginning of a run and returns its id.
func (db *DB) StartRun(kind string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO runs (run_id, kind, started_at, status) VALUES (?, ?, ?, 'running')`,
		id, kind, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run start: %w", err)
	}
	return id, nil
}

// FinishRun records the outcome of a run.
func (db *DB) FinishRun(id string, rows, maskPixels int64, outputPath string, runErr error) error {
	status := "ok"
	errText := ""
	if runErr != nil {
		status = "failed"
		errText = runErr.Error()
	}
	_, err := db.Exec(
		`UPDATE runs SET finished_at = ?, status = ?, row_count = ?, mask_pixels = ?,
			output_path = ?, error = ? WHERE run_id = ?`,
		time.Now().UTC(), status, rows, maskPixels, outputPath, errText, id,
	)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

// RecordMetrics stores per-class validation metrics for a run.
func (db *DB) RecordMetrics(runID string, class int, m validate.Metrics) error {
	_, err := db.Exec(
		`INSERT INTO run_metrics (run_id, class, roc_auc, boyce_index) VALUES (?, ?, ?, ?)`,
		runID, class, nullIfNaN(m.RocAuc), nullIfNaN(m.BoyceIndex),
	)
	if err != nil {
		return fmt.Errorf("failed to record metrics: %w", err)
	}
	return nil
}

func nullIfNaN(v float64) interface{} {
	if v != v {
		return nil
	}
	return v
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	rows, err := db.Query(
		`SELECT run_id, kind, started_at, COALESCE(finished_at, started_at),
			status, COALESCE(row_count, 0), COALESCE(mask_pixels, 0),
			COALESCE(output_path, ''), COALESCE(error, '')
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Kind, &r.StartedAt, &r.FinishedAt,
			&r.Status, &r.Rows, &r.MaskPixels, &r.OutputPath, &r.Error); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
