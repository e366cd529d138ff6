package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the state of a scan run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunStopped   RunStatus = "stopped" // cancelled, timed out or backend unavailable
	RunFailed    RunStatus = "failed"
)

// Run records one execution of a scan pass
type Run struct {
	ID         string     `json:"id"`
	Pass       string     `json:"pass"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int        `json:"processed"`
	Matched    int        `json:"matched"`
	Failures   int        `json:"failures"`
	Status     RunStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
}

// StartRun records the start of a pass and returns the run id.
func (s *Store) StartRun(ctx context.Context, pass string, at time.Time) (string, error) {
	id := uuid.NewString()
	if _, err := s.exec(ctx, "INSERT INTO scan_runs (id, pass, started_at, status) VALUES (?, ?, ?, ?)",
		id, pass, formatTime(at), string(RunRunning)); err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counters and status of a run.
func (s *Store) FinishRun(ctx context.Context, r Run, at time.Time) error {
	res, err := s.exec(ctx, `UPDATE scan_runs
		SET finished_at = ?, processed = ?, matched = ?, failures = ?, status = ?, error = ?
		WHERE id = ?`,
		formatTime(at), r.Processed, r.Matched, r.Failures, string(r.Status), r.Error, r.ID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

// UpdateRunProgress stores the counters of a run still in progress.
func (s *Store) UpdateRunProgress(ctx context.Context, r Run) error {
	if _, err := s.exec(ctx, "UPDATE scan_runs SET processed = ?, matched = ?, failures = ? WHERE id = ?",
		r.Processed, r.Matched, r.Failures, r.ID); err != nil {
		return fmt.Errorf("update run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.q.QueryContext(ctx, `SELECT id, pass, started_at, finished_at, processed, matched, failures, status, error
		FROM scan_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			finished sql.NullString
			status   string
		)
		if err := rows.Scan(&r.ID, &r.Pass, &started, &finished, &r.Processed, &r.Matched, &r.Failures, &status, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if t := parseTime(sql.NullString{String: started, Valid: true}); t != nil {
			r.StartedAt = *t
		}
		r.FinishedAt = parseTime(finished)
		r.Status = RunStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
