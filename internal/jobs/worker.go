package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/platform-hub/internal/pkg/logger"
)

// Handler executes one job. The returned output string is recorded on the
// job-run audit row by the processor layer; a returned error sends the job
// through the queue's retry policy.
type Handler func(ctx context.Context, job *Job) error

// Pool runs a fixed number of workers against one named queue.
type Pool struct {
	queue       *Queue
	queueName   string
	concurrency int
	poll        time.Duration
	policy      RetryPolicy

	mu       sync.RWMutex
	handlers map[string]Handler
	running  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a worker pool for one queue.
func NewPool(queue *Queue, queueName string, concurrency int, poll time.Duration, policy RetryPolicy) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &Pool{
		queue:       queue,
		queueName:   queueName,
		concurrency: concurrency,
		poll:        poll,
		policy:      policy,
		handlers:    make(map[string]Handler),
	}
}

// Register binds a job name to its handler. Registration after Start is not
// supported.
func (p *Pool) Register(jobName string, h Handler) {
	p.mu.Lock()
	p.handlers[jobName] = h
	p.mu.Unlock()
}

// Start launches the workers.
func (p *Pool) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("pool %s already running", p.queueName)
	}
	p.running = true
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.mu.Unlock()

	logger.Info("starting worker pool", "queue", p.queueName, "workers", p.concurrency)

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return nil
}

// Stop drains in-flight jobs and returns once every worker has exited.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	logger.Info("worker pool stopped", "queue", p.queueName)
}

func (p *Pool) worker(workerNum int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
			job, err := p.queue.Claim(p.ctx, p.queueName)
			if err != nil {
				logger.Error("claim failed", "queue", p.queueName, "worker", workerNum, "error", err.Error())
				p.sleep(time.Second)
				continue
			}
			if job == nil {
				p.sleep(p.poll)
				continue
			}
			p.runJob(job)
		}
	}
}

// runJob executes one claimed job to completion. The job context is detached
// from the pool context so an in-flight job finishes during shutdown.
func (p *Pool) runJob(job *Job) {
	p.mu.RLock()
	h, ok := p.handlers[job.Name]
	p.mu.RUnlock()

	ctx := context.Background()

	if !ok {
		// A handler will not appear mid-process, so retrying only burns
		// attempts. Fail terminally on first sight.
		err := fmt.Errorf("no handler registered for job %q", job.Name)
		logger.Error("unroutable job", "queue", p.queueName, "job", job.Name, "id", job.ID)
		if failErr := p.queue.FailPermanently(ctx, job.ID, err); failErr != nil {
			logger.Error("fail update error", "id", job.ID, "error", failErr.Error())
		}
		return
	}

	if err := h(ctx, job); err != nil {
		logger.Warn("job failed", "queue", p.queueName, "job", job.Name, "id", job.ID,
			"attempt", job.Attempts, "error", err.Error())
		if failErr := p.queue.Fail(ctx, job, err, p.policy); failErr != nil {
			logger.Error("fail update error", "id", job.ID, "error", failErr.Error())
		}
		return
	}

	if err := p.queue.Complete(ctx, job.ID); err != nil {
		logger.Error("complete update error", "id", job.ID, "error", err.Error())
	}
}

func (p *Pool) sleep(d time.Duration) {
	select {
	case <-p.ctx.Done():
	case <-time.After(d):
	}
}
