package domain

import "time"

// JobRunStatus enumerates the lifecycle of a job-run audit record.
type JobRunStatus string

const (
	JobRunRunning   JobRunStatus = "RUNNING"
	JobRunCompleted JobRunStatus = "COMPLETED"
	JobRunFailed    JobRunStatus = "FAILED"
)

// JobRun is the append-only audit record of one job execution. Rows are never
// updated after reaching a terminal status.
type JobRun struct {
	ID         string       `json:"id" db:"id"`
	JobName    string       `json:"job_name" db:"job_name"`
	Queue      string       `json:"queue" db:"queue"`
	Status     JobRunStatus `json:"status" db:"status"`
	Input      string       `json:"input" db:"input"`
	Output     string       `json:"output" db:"output"`
	Error      string       `json:"error" db:"error"`
	DurationMS int64        `json:"duration_ms" db:"duration_ms"`
	StartedAt  time.Time    `json:"started_at" db:"started_at"`
	FinishedAt *time.Time   `json:"finished_at" db:"finished_at"`
}

// Terminal reports whether the run has finished.
func (j *JobRun) Terminal() bool {
	return j.Status == JobRunCompleted || j.Status == JobRunFailed
}
