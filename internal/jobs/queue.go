// Package jobs implements the durable Postgres-backed work queue, its
// worker pools, and the recurring-job scheduler.
//
// Jobs move WAITING -> RUNNING -> COMPLETED or FAILED. A failed attempt
// below the attempt ceiling re-enters WAITING with a backoff delay;
// exhausted jobs stay FAILED and are retained for inspection.
package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Queue names. Concurrency ceilings per queue are configured at pool
// construction; verification and maintenance run strictly serialized.
const (
	QueueSync         = "sync"
	QueueVerification = "verification"
	QueueAnalytics    = "analytics"
	QueueMaintenance  = "maintenance"
)

// Job statuses.
const (
	StatusWaiting   = "WAITING"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Job is one queued unit of work.
type Job struct {
	ID          string
	Queue       string
	Name        string
	Payload     string
	Status      string
	Attempts    int
	MaxAttempts int
	RunAt       time.Time
	LastError   string
	CreatedAt   time.Time
}

// Queue is a durable named work queue over Postgres.
type Queue struct {
	db *sql.DB
}

// NewQueue creates a Postgres-backed queue handle.
func NewQueue(db *sql.DB) *Queue { return &Queue{db: db} }

// Enqueue adds a job in WAITING state, runnable immediately.
func (q *Queue) Enqueue(ctx context.Context, queue, name, payload string, maxAttempts int) (string, error) {
	return q.EnqueueAt(ctx, queue, name, payload, maxAttempts, time.Now())
}

// EnqueueAt adds a job that becomes runnable at the given time.
func (q *Queue) EnqueueAt(ctx context.Context, queue, name, payload string, maxAttempts int, runAt time.Time) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	id := uuid.New().String()
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO jobs (id, queue, name, payload, status, attempts, max_attempts, run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, NOW(), NOW())
	`, id, queue, name, payload, StatusWaiting, maxAttempts, runAt)
	if err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

// Claim atomically takes the oldest runnable job from one queue and marks it
// RUNNING. Returns (nil, nil) when the queue is empty. Concurrent workers
// skip rows another worker holds.
func (q *Queue) Claim(ctx context.Context, queue string) (*Job, error) {
	row := q.db.QueryRowContext(ctx, `
		WITH claimed AS (
			UPDATE jobs
			SET status = $1, attempts = attempts + 1, updated_at = NOW()
			WHERE id = (
				SELECT id FROM jobs
				WHERE queue = $2 AND status = $3 AND run_at <= NOW()
				ORDER BY run_at ASC
				LIMIT 1
				FOR UPDATE SKIP LOCKED
			)
			RETURNING id, queue, name, payload, status, attempts, max_attempts, run_at, COALESCE(last_error,''), created_at
		)
		SELECT * FROM claimed
	`, StatusRunning, queue, StatusWaiting)

	j := &Job{}
	err := row.Scan(&j.ID, &j.Queue, &j.Name, &j.Payload, &j.Status,
		&j.Attempts, &j.MaxAttempts, &j.RunAt, &j.LastError, &j.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return j, nil
}

// Complete marks a RUNNING job COMPLETED.
func (q *Queue) Complete(ctx context.Context, jobID string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, updated_at = NOW() WHERE id = $2
	`, StatusCompleted, jobID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// Fail records a failed attempt. Below the attempt ceiling the job re-enters
// WAITING with the policy's backoff delay; at the ceiling it is terminally
// FAILED and retained.
func (q *Queue) Fail(ctx context.Context, job *Job, jobErr error, policy RetryPolicy) error {
	errText := ""
	if jobErr != nil {
		errText = jobErr.Error()
	}

	if job.Attempts < job.MaxAttempts {
		runAt := time.Now().Add(policy.Delay(job.Attempts))
		_, err := q.db.ExecContext(ctx, `
			UPDATE jobs SET status = $1, run_at = $2, last_error = $3, updated_at = NOW()
			WHERE id = $4
		`, StatusWaiting, runAt, errText, job.ID)
		if err != nil {
			return fmt.Errorf("requeue job: %w", err)
		}
		return nil
	}

	return q.FailPermanently(ctx, job.ID, jobErr)
}

// FailPermanently marks a job FAILED regardless of remaining attempts. Used
// when retrying cannot help, like a job no handler is registered for.
func (q *Queue) FailPermanently(ctx context.Context, jobID string, jobErr error) error {
	errText := ""
	if jobErr != nil {
		errText = jobErr.Error()
	}
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, last_error = $2, updated_at = NOW()
		WHERE id = $3
	`, StatusFailed, errText, jobID)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// RequeueStale returns jobs left RUNNING by a crashed worker to WAITING so
// another worker can claim them. A claim bumps updated_at, so any RUNNING
// row untouched for longer than olderThan has lost its worker. Rows already
// out of attempts go straight to FAILED.
func (q *Queue) RequeueStale(ctx context.Context, olderThan time.Duration) (int, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = CASE WHEN attempts >= max_attempts THEN $1 ELSE $2 END,
		    run_at = NOW(),
		    last_error = $3,
		    updated_at = NOW()
		WHERE status = $4 AND updated_at < NOW() - $5 * INTERVAL '1 second'
	`, StatusFailed, StatusWaiting, "claim released after worker loss",
		StatusRunning, int(olderThan.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("requeue stale jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Depth returns the number of runnable jobs waiting in one queue.
func (q *Queue) Depth(ctx context.Context, queue string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM jobs WHERE queue = $1 AND status = $2
	`, queue, StatusWaiting).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return n, nil
}
