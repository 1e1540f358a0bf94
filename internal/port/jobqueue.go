package port

import (
	"time"

	"videoflix/internal/domain"
)

// JobRequest describes one unit submitted to the queue. DependsOn lists
// upstream job IDs that must all succeed before this job becomes claimable;
// if any of them fails, the queue cancels the job instead of releasing it.
// This is the fan-in barrier the pipeline's finalize step is built on.
type JobRequest struct {
	VideoID   int64
	Type      domain.JobType
	Quality   string
	Timeout   time.Duration
	DependsOn []int64
}

type JobQueue interface {
	Enqueue(req JobRequest) (*domain.Job, error)
	// Claim returns the oldest claimable pending job, or nil when none is
	// ready. A job whose dependencies are not all done is never returned.
	Claim() (*domain.Job, error)
	Complete(jobID int64) error
	Fail(jobID int64, errMsg string) error
	// ResetStalled returns running jobs to pending. Called once at startup
	// to recover jobs orphaned by a crash; there is no automatic retry of
	// failed jobs.
	ResetStalled() error
	// PruneFinished drops terminal jobs older than the given age. Job
	// results are fire-and-forget and not kept around.
	PruneFinished(olderThan time.Duration) error
}
