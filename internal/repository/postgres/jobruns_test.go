package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/platform-hub/internal/domain"
)

func TestJobRunStartThenFinish(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewJobRunStore(db)

	mock.ExpectExec("INSERT INTO job_runs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := store.Start(context.Background(), "sync:campaigns", "sync", `{"clientId":"c-1"}`)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	mock.ExpectExec("UPDATE job_runs").
		WithArgs(domain.JobRunCompleted, `{"synced":12}`, "", int64(1500), id, domain.JobRunRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Finish(context.Background(), id, domain.JobRunCompleted,
		`{"synced":12}`, "", 1500*time.Millisecond))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRunFinishRefusesTerminalRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewJobRunStore(db)

	// The WHERE status = RUNNING guard matches nothing for a finished row.
	mock.ExpectExec("UPDATE job_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.Finish(context.Background(), "done-run", domain.JobRunFailed, "", "boom", time.Second)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTerminalOlderThanLeavesRunningRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewJobRunStore(db)

	mock.ExpectExec("DELETE FROM job_runs\\s+WHERE status IN \\('COMPLETED', 'FAILED'\\)").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.DeleteTerminalOlderThan(context.Background(), 14)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
