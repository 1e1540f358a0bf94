package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"videoflix/internal/domain"
	"videoflix/internal/port"
)

// JobQueue is the persistent queue backend. The dependency barrier lives in
// Claim: a pending job is released only once every job it depends on is
// done, and is cancelled as soon as any of them fails. That makes "run only
// after all listed jobs succeed" a property of the queue rather than of any
// polling caller.
type JobQueue struct {
	db *sql.DB
}

func NewJobQueue(store *Store) *JobQueue {
	return &JobQueue{db: store.db}
}

func (q *JobQueue) Enqueue(req port.JobRequest) (*domain.Job, error) {
	ctx := context.Background()
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enqueue: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO jobs (video_id, type, quality, timeout_sec, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		req.VideoID, string(req.Type), req.Quality, int64(req.Timeout/time.Second),
		string(domain.JobStatusPending), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, depID := range req.DependsOn {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO job_deps (job_id, depends_on_id) VALUES (?, ?)`, id, depID); err != nil {
			return nil, fmt.Errorf("insert job dependency: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enqueue: %w", err)
	}
	return q.get(id)
}

func (q *JobQueue) Claim() (*domain.Job, error) {
	ctx := context.Background()
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	if err := cancelDependencyFailed(ctx, tx); err != nil {
		return nil, err
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT j.id FROM jobs j
		 WHERE j.status = ? AND NOT EXISTS (
			SELECT 1 FROM job_deps d
			JOIN jobs p ON p.id = d.depends_on_id
			WHERE d.job_id = j.id AND p.status != ?)
		 ORDER BY j.id LIMIT 1`,
		string(domain.JobStatusPending), string(domain.JobStatusDone),
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Nothing claimable, but the cancellations above still count.
			if err := tx.Commit(); err != nil {
				return nil, fmt.Errorf("commit claim: %w", err)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("select claimable job: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, started_at = ?, attempts = attempts + 1 WHERE id = ?`,
		string(domain.JobStatusRunning), now, id); err != nil {
		return nil, fmt.Errorf("mark job running: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return q.get(id)
}

func (q *JobQueue) Complete(jobID int64) error {
	_, err := q.db.ExecContext(context.Background(),
		`UPDATE jobs SET status = ?, completed_at = ? WHERE id = ?`,
		string(domain.JobStatusDone), time.Now().UTC(), jobID)
	return err
}

func (q *JobQueue) Fail(jobID int64, errMsg string) error {
	_, err := q.db.ExecContext(context.Background(),
		`UPDATE jobs SET status = ?, error_message = ?, completed_at = ? WHERE id = ?`,
		string(domain.JobStatusFailed), errMsg, time.Now().UTC(), jobID)
	return err
}

func (q *JobQueue) ResetStalled() error {
	_, err := q.db.ExecContext(context.Background(),
		`UPDATE jobs SET status = ?, started_at = NULL WHERE status = ?`,
		string(domain.JobStatusPending), string(domain.JobStatusRunning))
	return err
}

// PruneFinished drops settled jobs older than the cutoff. Dependency-failed
// jobs are settled first, and a terminal job that an unsettled job still
// depends on is kept, so the barrier never loses a failed dependency to the
// sweep.
func (q *JobQueue) PruneFinished(olderThan time.Duration) error {
	ctx := context.Background()
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin prune: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := cancelDependencyFailed(ctx, tx); err != nil {
		return err
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM jobs WHERE status IN (?, ?, ?) AND completed_at < ?
		 AND NOT EXISTS (
			SELECT 1 FROM job_deps d
			JOIN jobs c ON c.id = d.job_id
			WHERE d.depends_on_id = jobs.id AND c.status NOT IN (?, ?, ?))`,
		string(domain.JobStatusDone), string(domain.JobStatusFailed),
		string(domain.JobStatusCancelled), cutoff,
		string(domain.JobStatusDone), string(domain.JobStatusFailed),
		string(domain.JobStatusCancelled),
	); err != nil {
		return fmt.Errorf("prune finished jobs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit prune: %w", err)
	}
	return nil
}

// cancelDependencyFailed settles pending jobs whose dependency failed or was
// cancelled; such a job can never run.
func cancelDependencyFailed(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = 'dependency failed', completed_at = ?
		 WHERE status = ? AND EXISTS (
			SELECT 1 FROM job_deps d
			JOIN jobs p ON p.id = d.depends_on_id
			WHERE d.job_id = jobs.id AND p.status IN (?, ?))`,
		string(domain.JobStatusCancelled), time.Now().UTC(), string(domain.JobStatusPending),
		string(domain.JobStatusFailed), string(domain.JobStatusCancelled),
	); err != nil {
		return fmt.Errorf("cancel dependency-failed jobs: %w", err)
	}
	return nil
}

func (q *JobQueue) get(id int64) (*domain.Job, error) {
	ctx := context.Background()
	row := q.db.QueryRowContext(ctx,
		`SELECT id, video_id, type, quality, timeout_sec, status, error_message,
			attempts, created_at, started_at, completed_at
		 FROM jobs WHERE id = ?`, id)

	var j domain.Job
	var jobType, status string
	var timeoutSec int64
	err := row.Scan(&j.ID, &j.VideoID, &jobType, &j.Quality, &timeoutSec, &status,
		&j.ErrorMessage, &j.Attempts, &j.CreatedAt, &j.StartedAt, &j.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	j.Type = domain.JobType(jobType)
	j.Status = domain.JobStatus(status)
	j.Timeout = time.Duration(timeoutSec) * time.Second

	rows, err := q.db.QueryContext(ctx,
		`SELECT depends_on_id FROM job_deps WHERE job_id = ? ORDER BY depends_on_id`, id)
	if err != nil {
		return nil, fmt.Errorf("get job dependencies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var depID int64
		if err := rows.Scan(&depID); err != nil {
			return nil, err
		}
		j.DependsOn = append(j.DependsOn, depID)
	}
	return &j, rows.Err()
}

var _ port.JobQueue = (*JobQueue)(nil)
