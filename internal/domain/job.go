package domain

import (
	"database/sql"
	"time"
)

type JobType string

const (
	JobTypeTranscode JobType = "transcode"
	JobTypeFinalize  JobType = "finalize"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusDone      JobStatus = "done"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is settled. A terminal job never runs
// again and holds no claim on its dependents beyond its final status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed || s == JobStatusCancelled
}

// Job is one unit of background work: a single quality rendition, or the
// finalize step that composes the master playlist. A finalize job lists the
// rendition jobs it depends on; the queue releases it only after every one
// of them is done, and cancels it if any of them failed.
//
// Jobs are fire-and-forget: beyond the terminal status and the captured
// error output, no result payload is retained.
type Job struct {
	ID           int64
	VideoID      int64
	Type         JobType
	Quality      string // rendition label, empty for finalize jobs
	Timeout      time.Duration
	DependsOn    []int64
	Status       JobStatus
	ErrorMessage string
	Attempts     int64
	CreatedAt    time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
}
