package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/platform-hub/internal/pkg/logger"
)

// Schedule is one recurring job registration. Name is the idempotency key:
// registering the same name again replaces the interval and payload instead
// of duplicating the schedule.
type Schedule struct {
	Name     string
	Queue    string
	JobName  string
	Payload  string
	Interval time.Duration
}

// Scheduler seeds recurring jobs into the queue on fixed intervals. Due
// schedules are claimed with row locks so multiple processes can share one
// schedule table without double-enqueueing.
type Scheduler struct {
	db          *sql.DB
	queue       *Queue
	tick        time.Duration
	maxAttempts int

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler over the shared schedule table.
func NewScheduler(db *sql.DB, queue *Queue, tick time.Duration, maxAttempts int) *Scheduler {
	if tick <= 0 {
		tick = 15 * time.Second
	}
	return &Scheduler{db: db, queue: queue, tick: tick, maxAttempts: maxAttempts}
}

// Register upserts one recurring schedule. Re-registering by name replaces
// the existing row; the next run time is preserved unless the schedule is
// new or its interval shrank below the pending gap.
func (s *Scheduler) Register(ctx context.Context, sched Schedule) error {
	if sched.Interval <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive", sched.Name)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (name, queue, job_name, payload, interval_seconds, next_run_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			queue = EXCLUDED.queue,
			job_name = EXCLUDED.job_name,
			payload = EXCLUDED.payload,
			interval_seconds = EXCLUDED.interval_seconds,
			next_run_at = LEAST(schedules.next_run_at, NOW() + EXCLUDED.interval_seconds * INTERVAL '1 second'),
			updated_at = NOW()
	`, sched.Name, sched.Queue, sched.JobName, sched.Payload, int(sched.Interval.Seconds()))
	if err != nil {
		return fmt.Errorf("register schedule %s: %w", sched.Name, err)
	}
	return nil
}

// Start begins the tick loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	logger.Info("starting scheduler", "tick", s.tick.String())

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop halts the tick loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	logger.Info("scheduler stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.runDue(s.ctx); err != nil {
				logger.Error("scheduler tick failed", "error", err.Error())
			}
		}
	}
}

// runDue enqueues every due schedule and advances its next run time. The
// claim-and-advance update keeps concurrent schedulers from firing the same
// schedule twice.
func (s *Scheduler) runDue(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		WITH due AS (
			UPDATE schedules
			SET next_run_at = NOW() + interval_seconds * INTERVAL '1 second',
			    last_run_at = NOW(),
			    updated_at = NOW()
			WHERE name IN (
				SELECT name FROM schedules
				WHERE next_run_at <= NOW()
				FOR UPDATE SKIP LOCKED
			)
			RETURNING name, queue, job_name, payload
		)
		SELECT * FROM due
	`)
	if err != nil {
		return fmt.Errorf("claim due schedules: %w", err)
	}
	defer rows.Close()

	type due struct {
		name, queue, jobName, payload string
	}
	var claimed []due
	for rows.Next() {
		var d due
		if err := rows.Scan(&d.name, &d.queue, &d.jobName, &d.payload); err != nil {
			return fmt.Errorf("scan due schedule: %w", err)
		}
		claimed = append(claimed, d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range claimed {
		if _, err := s.queue.Enqueue(ctx, d.queue, d.jobName, d.payload, s.maxAttempts); err != nil {
			logger.Error("schedule enqueue failed", "schedule", d.name, "error", err.Error())
			continue
		}
		logger.Debug("schedule fired", "schedule", d.name, "job", d.jobName)
	}
	return nil
}
