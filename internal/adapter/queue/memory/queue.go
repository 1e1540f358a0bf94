// Package memory provides an in-process job queue with the same dependency
// semantics as the sqlite backend. It backs tests and single-node setups
// where persistence across restarts is not needed.
package memory

import (
	"database/sql"
	"sync"
	"time"

	"videoflix/internal/domain"
	"videoflix/internal/port"
)

type Queue struct {
	mu     sync.Mutex
	nextID int64
	jobs   []*domain.Job
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Enqueue(req port.JobRequest) (*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	job := &domain.Job{
		ID:        q.nextID,
		VideoID:   req.VideoID,
		Type:      req.Type,
		Quality:   req.Quality,
		Timeout:   req.Timeout,
		DependsOn: append([]int64(nil), req.DependsOn...),
		Status:    domain.JobStatusPending,
		CreatedAt: time.Now(),
	}
	q.jobs = append(q.jobs, job)
	return copyJob(job), nil
}

func (q *Queue) Claim() (*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.cancelDependencyFailed()

	for _, job := range q.jobs {
		if job.Status != domain.JobStatusPending || !q.depsDone(job) {
			continue
		}
		job.Status = domain.JobStatusRunning
		job.Attempts++
		job.StartedAt = sql.NullTime{Time: time.Now(), Valid: true}
		return copyJob(job), nil
	}
	return nil, nil
}

func (q *Queue) Complete(jobID int64) error {
	return q.settle(jobID, domain.JobStatusDone, "")
}

func (q *Queue) Fail(jobID int64, errMsg string) error {
	return q.settle(jobID, domain.JobStatusFailed, errMsg)
}

func (q *Queue) ResetStalled() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range q.jobs {
		if job.Status == domain.JobStatusRunning {
			job.Status = domain.JobStatusPending
			job.StartedAt = sql.NullTime{}
		}
	}
	return nil
}

// PruneFinished drops settled jobs older than the cutoff. Dependency-failed
// jobs are settled first, and a terminal job that an unsettled job still
// depends on is kept, matching the sqlite backend.
func (q *Queue) PruneFinished(olderThan time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.cancelDependencyFailed()

	referenced := make(map[int64]bool)
	for _, job := range q.jobs {
		if job.Status.Terminal() {
			continue
		}
		for _, depID := range job.DependsOn {
			referenced[depID] = true
		}
	}

	cutoff := time.Now().Add(-olderThan)
	kept := q.jobs[:0]
	for _, job := range q.jobs {
		prunable := job.Status.Terminal() && !referenced[job.ID] &&
			job.CompletedAt.Valid && job.CompletedAt.Time.Before(cutoff)
		if prunable {
			continue
		}
		kept = append(kept, job)
	}
	q.jobs = kept
	return nil
}

// List returns a snapshot of every job, used by tests to inspect the graph.
func (q *Queue) List() []*domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]*domain.Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		jobs = append(jobs, copyJob(job))
	}
	return jobs
}

// Get returns a snapshot of a job, used by tests to observe settlement.
func (q *Queue) Get(jobID int64) (*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job := q.find(jobID); job != nil {
		return copyJob(job), nil
	}
	return nil, domain.ErrNotFound
}

func (q *Queue) settle(jobID int64, status domain.JobStatus, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := q.find(jobID)
	if job == nil {
		return domain.ErrNotFound
	}
	job.Status = status
	job.ErrorMessage = errMsg
	job.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
	return nil
}

func (q *Queue) find(jobID int64) *domain.Job {
	for _, job := range q.jobs {
		if job.ID == jobID {
			return job
		}
	}
	return nil
}

func (q *Queue) depsDone(job *domain.Job) bool {
	for _, depID := range job.DependsOn {
		dep := q.find(depID)
		if dep == nil || dep.Status != domain.JobStatusDone {
			return false
		}
	}
	return true
}

func (q *Queue) cancelDependencyFailed() {
	for _, job := range q.jobs {
		if job.Status != domain.JobStatusPending {
			continue
		}
		for _, depID := range job.DependsOn {
			dep := q.find(depID)
			if dep == nil {
				continue
			}
			if dep.Status == domain.JobStatusFailed || dep.Status == domain.JobStatusCancelled {
				job.Status = domain.JobStatusCancelled
				job.ErrorMessage = "dependency failed"
				job.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
				break
			}
		}
	}
}

func copyJob(job *domain.Job) *domain.Job {
	dup := *job
	dup.DependsOn = append([]int64(nil), job.DependsOn...)
	return &dup
}

var _ port.JobQueue = (*Queue)(nil)
