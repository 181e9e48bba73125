package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/platform-hub/internal/domain"
)

// JobRunStore persists job-run audit records. Rows are append-only once
// terminal: Finish refuses to touch anything but a RUNNING row.
type JobRunStore struct{ db *sql.DB }

// NewJobRunStore creates a Postgres-backed job-run store.
func NewJobRunStore(db *sql.DB) *JobRunStore { return &JobRunStore{db: db} }

// Start inserts a RUNNING row and returns its id.
func (s *JobRunStore) Start(ctx context.Context, jobName, queue, input string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job_name, queue, status, input, started_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, id, jobName, queue, domain.JobRunRunning, input)
	if err != nil {
		return "", fmt.Errorf("start job run: %w", err)
	}
	return id, nil
}

// Finish moves a RUNNING row to a terminal status with its outcome.
func (s *JobRunStore) Finish(ctx context.Context, id string, status domain.JobRunStatus, output, errText string, duration time.Duration) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_runs
		SET status = $1, output = $2, error = $3, duration_ms = $4, finished_at = NOW()
		WHERE id = $5 AND status = $6
	`, status, output, errText, duration.Milliseconds(), id, domain.JobRunRunning)
	if err != nil {
		return fmt.Errorf("finish job run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns recent job runs, newest first.
func (s *JobRunStore) List(ctx context.Context, limit int) ([]domain.JobRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_name, queue, status, COALESCE(input,''), COALESCE(output,''),
		       COALESCE(error,''), COALESCE(duration_ms,0), started_at, finished_at
		FROM job_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}
	defer rows.Close()

	var out []domain.JobRun
	for rows.Next() {
		var j domain.JobRun
		if err := rows.Scan(
			&j.ID, &j.JobName, &j.Queue, &j.Status, &j.Input, &j.Output,
			&j.Error, &j.DurationMS, &j.StartedAt, &j.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job run: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// DeleteTerminalOlderThan removes aged terminal rows; RUNNING rows are never
// swept.
func (s *JobRunStore) DeleteTerminalOlderThan(ctx context.Context, days int) (int, error) {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM job_runs
		WHERE status IN ('COMPLETED', 'FAILED')
		  AND started_at < NOW() - INTERVAL '%d days'
	`, days))
	if err != nil {
		return 0, fmt.Errorf("delete old job runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
