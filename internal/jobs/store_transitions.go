package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"novastudio/internal/services"
)

// Transition applies a compare-and-swap update guarded by the current status.
// The mutation runs against a fresh copy of the row; if the stored status no
// longer matches the expected pre-state the update is abandoned and
// ErrConcurrentModification is returned. Every status change flows through
// this path so racing progress reports and cancellations cannot lose updates.
func (s *Store) Transition(ctx context.Context, id string, from Status, mutate func(*Job)) (*Job, error) {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "jobs", "transition", fmt.Sprintf("job %s", id), nil)
	}
	if job.Status != from {
		return nil, fmt.Errorf("%w: job %s is %s, expected %s", ErrConcurrentModification, id, job.Status, from)
	}

	mutate(job)
	job.UpdatedAt = time.Now().UTC()

	res, err := s.execWithRetry(
		ctx,
		`UPDATE render_jobs
         SET status = ?, progress = ?, progress_message = ?, output_ref = ?,
             error_kind = ?, error_message = ?, attempts = ?, run_after = ?,
             updated_at = ?, last_heartbeat = ?
         WHERE id = ? AND status = ?`,
		job.Status,
		job.Progress,
		nullableString(job.ProgressMessage),
		nullableString(job.OutputRef),
		nullableString(string(job.ErrorKind)),
		nullableString(job.ErrorMessage),
		job.Attempts,
		job.RunAfter.UTC().Format(time.RFC3339Nano),
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.LastHeartbeat),
		id,
		from,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "jobs", "transition", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "jobs", "transition", "rows affected", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: job %s changed under transition to %s", ErrConcurrentModification, id, job.Status)
	}
	return job, nil
}

// UpdateProgress records a progress report guarded by status=running. Reports
// arriving after a terminal transition, or regressing below the stored value,
// affect zero rows and are silently dropped; the bool reports whether the
// update applied.
func (s *Store) UpdateProgress(ctx context.Context, id string, percent int, message string) (bool, error) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE render_jobs
         SET progress = ?, progress_message = ?, updated_at = ?
         WHERE id = ? AND status = ? AND progress <= ?`,
		percent,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusRunning,
		percent,
	)
	if err != nil {
		return false, services.Wrap(services.ErrPersistence, "jobs", "update progress", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, services.Wrap(services.ErrPersistence, "jobs", "update progress", "rows affected", err)
	}
	return affected > 0, nil
}

// NextRunnable returns the oldest queued job that is due to run and whose
// project is not in the exclusion set. The exclusion set carries the projects
// with a job currently running, enforcing per-project serialization.
func (s *Store) NextRunnable(ctx context.Context, now time.Time, excludedProjects []string) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM render_jobs WHERE status = ? AND run_after <= ?`
	args := []any{StatusQueued, now.UTC().Format(time.RFC3339Nano)}
	if len(excludedProjects) > 0 {
		query += ` AND project_id NOT IN (` + makePlaceholders(len(excludedProjects)) + `)`
		for _, projectID := range excludedProjects {
			args = append(args, projectID)
		}
	}
	query += ` ORDER BY created_at LIMIT 1`

	row := s.db.QueryRowContext(ensureContext(ctx), query, args...)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "jobs", "next runnable", "", err)
	}
	return job, nil
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE render_jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
		StatusRunning,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "jobs", "update heartbeat", "", err)
	}
	return nil
}

// ReclaimStale returns running jobs whose heartbeats expired back to queued so
// another dispatcher slot can pick them up after a crash or hang.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE render_jobs
         SET status = ?, progress_message = 'Reclaimed from stale processing',
             last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusQueued,
		now.Format(time.RFC3339Nano),
		StatusRunning,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "jobs", "reclaim stale", "", err)
	}
	return res.RowsAffected()
}
