package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T) (*Pool, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	policy := RetryPolicy{MaxAttempts: 3, Backoff: func(int) time.Duration { return time.Minute }}
	pool := NewPool(NewQueue(db), QueueSync, 2, 10*time.Millisecond, policy)
	return pool, mock, func() { db.Close() }
}

func TestRunJobSuccessCompletes(t *testing.T) {
	pool, mock, cleanup := newTestPool(t)
	defer cleanup()

	handled := false
	pool.Register("sync:campaigns", func(ctx context.Context, job *Job) error {
		handled = true
		assert.Equal(t, `{"clientId":"c-1"}`, job.Payload)
		return nil
	})

	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs(StatusCompleted, "j-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	pool.runJob(&Job{ID: "j-1", Name: "sync:campaigns", Payload: `{"clientId":"c-1"}`, Attempts: 1, MaxAttempts: 3})

	assert.True(t, handled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunJobHandlerErrorGoesThroughRetryPolicy(t *testing.T) {
	pool, mock, cleanup := newTestPool(t)
	defer cleanup()

	pool.Register("sync:campaigns", func(ctx context.Context, job *Job) error {
		return errors.New("vendor 500")
	})

	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs(StatusWaiting, sqlmock.AnyArg(), "vendor 500", "j-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	pool.runJob(&Job{ID: "j-1", Name: "sync:campaigns", Attempts: 1, MaxAttempts: 3})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunJobUnregisteredNameFailsTerminally(t *testing.T) {
	pool, mock, cleanup := newTestPool(t)
	defer cleanup()

	// Attempts remain, but an unroutable job must not re-enter WAITING and
	// spin through its attempt budget: one terminal FAILED update, no requeue.
	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs(StatusFailed, sqlmock.AnyArg(), "j-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	pool.runJob(&Job{ID: "j-2", Name: "sync:unknown", Attempts: 1, MaxAttempts: 5})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolStartStop(t *testing.T) {
	pool, mock, cleanup := newTestPool(t)
	defer cleanup()

	// Workers may poll an empty queue a few times before Stop.
	for i := 0; i < 64; i++ {
		mock.ExpectQuery("WITH claimed AS").WillReturnRows(sqlmock.NewRows(jobCols()))
	}
	mock.MatchExpectationsInOrder(false)

	require.NoError(t, pool.Start())
	assert.Error(t, pool.Start())

	time.Sleep(30 * time.Millisecond)
	pool.Stop()

	// Stop after Stop is a no-op.
	pool.Stop()
}
