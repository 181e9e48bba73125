package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotentUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewScheduler(db, NewQueue(db), time.Second, 3)

	sched := Schedule{
		Name:     "sync-all",
		Queue:    QueueSync,
		JobName:  "sync:all-campaigns",
		Payload:  `{}`,
		Interval: 30 * time.Minute,
	}

	mock.ExpectExec("INSERT INTO schedules").
		WithArgs("sync-all", QueueSync, "sync:all-campaigns", `{}`, 1800).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, s.Register(context.Background(), sched))

	// Same name again replaces instead of duplicating; same statement runs.
	mock.ExpectExec("INSERT INTO schedules").
		WithArgs("sync-all", QueueSync, "sync:all-campaigns", `{}`, 1800).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Register(context.Background(), sched))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRejectsNonPositiveInterval(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewScheduler(db, NewQueue(db), time.Second, 3)

	err = s.Register(context.Background(), Schedule{Name: "bad", Interval: 0})
	assert.Error(t, err)
}

func TestRunDueEnqueuesClaimedSchedules(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewScheduler(db, NewQueue(db), time.Second, 3)

	mock.ExpectQuery("WITH due AS").
		WillReturnRows(sqlmock.NewRows([]string{"name", "queue", "job_name", "payload"}).
			AddRow("verify-all", QueueVerification, "verify:all-credentials", `{}`).
			AddRow("benchmarks", QueueAnalytics, "calculate:benchmarks", `{"period":"weekly"}`))

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(sqlmock.AnyArg(), QueueVerification, "verify:all-credentials", `{}`,
			StatusWaiting, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(sqlmock.AnyArg(), QueueAnalytics, "calculate:benchmarks", `{"period":"weekly"}`,
			StatusWaiting, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.runDue(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDueNothingDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewScheduler(db, NewQueue(db), time.Second, 3)

	mock.ExpectQuery("WITH due AS").
		WillReturnRows(sqlmock.NewRows([]string{"name", "queue", "job_name", "payload"}))

	require.NoError(t, s.runDue(context.Background()))
}
