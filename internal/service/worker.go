package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"videoflix/internal/domain"
	"videoflix/internal/infrastructure/logger"
	"videoflix/internal/port"
)

// JobRunner executes a claimed job; the worker pool settles the job in the
// queue from the returned error.
type JobRunner interface {
	RunJob(ctx context.Context, job *domain.Job) error
}

// WorkerPool pulls jobs from the queue and runs them with the job's own
// timeout. Workers share nothing but the queue; sibling rendition jobs for
// one video can run on different workers concurrently.
type WorkerPool struct {
	queue   port.JobQueue
	runner  JobRunner
	workers int

	pollInterval time.Duration
	group        *errgroup.Group
}

func NewWorkerPool(queue port.JobQueue, runner JobRunner, workers int) *WorkerPool {
	return &WorkerPool{
		queue:        queue,
		runner:       runner,
		workers:      workers,
		pollInterval: 500 * time.Millisecond,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	// Recover jobs orphaned by a previous crash; failed jobs stay failed.
	if err := wp.queue.ResetStalled(); err != nil {
		logger.Error.Printf("failed to reset stalled jobs: %v", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	wp.group = group
	for i := 0; i < wp.workers; i++ {
		i := i
		group.Go(func() error {
			wp.runWorker(ctx, i)
			return nil
		})
	}
	logger.Info.Printf("started %d workers", wp.workers)
}

// Wait blocks until every worker has observed cancellation and returned.
func (wp *WorkerPool) Wait() {
	if wp.group != nil {
		_ = wp.group.Wait()
	}
}

func (wp *WorkerPool) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			logger.Info.Printf("worker %d shutting down", id)
			return
		default:
		}

		job, err := wp.queue.Claim()
		if err != nil {
			logger.Error.Printf("worker %d: failed to claim job: %v", id, err)
			wp.sleep(ctx, 4*wp.pollInterval)
			continue
		}

		if job == nil {
			// No claimable jobs, wait before polling again
			wp.sleep(ctx, wp.pollInterval)
			continue
		}

		logger.Info.Printf("worker %d: processing job %d (type=%s, video=%d, quality=%s)",
			id, job.ID, job.Type, job.VideoID, job.Quality)
		wp.processJob(ctx, job)
	}
}

func (wp *WorkerPool) processJob(ctx context.Context, job *domain.Job) {
	jobCtx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	if err := wp.runner.RunJob(jobCtx, job); err != nil {
		if ctx.Err() != nil {
			// Shutdown interrupted the job, not the job's own timeout.
			// Leave it running; ResetStalled requeues it at next startup.
			logger.Info.Printf("job %d interrupted by shutdown, will be retried after restart", job.ID)
			return
		}
		logger.Error.Printf("job %d failed: %v", job.ID, err)
		if failErr := wp.queue.Fail(job.ID, err.Error()); failErr != nil {
			logger.Error.Printf("job %d: record failure: %v", job.ID, failErr)
		}
		return
	}

	if err := wp.queue.Complete(job.ID); err != nil {
		logger.Error.Printf("job %d: record completion: %v", job.ID, err)
		return
	}
	logger.Info.Printf("job %d completed", job.ID)
}

func (wp *WorkerPool) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
