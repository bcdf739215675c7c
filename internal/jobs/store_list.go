package jobs

import (
	"context"
	"iter"

	"novastudio/internal/services"
)

// Filter narrows job listings. Zero values match everything.
type Filter struct {
	ProjectID string
	Statuses  []Status
	Type      Type
	Limit     int
}

func (f Filter) buildQuery() (string, []any) {
	query := `SELECT ` + jobColumns + ` FROM render_jobs`
	var (
		clauses []string
		args    []any
	)
	if f.ProjectID != "" {
		clauses = append(clauses, `project_id = ?`)
		args = append(args, f.ProjectID)
	}
	if len(f.Statuses) > 0 {
		clauses = append(clauses, `status IN (`+makePlaceholders(len(f.Statuses))+`)`)
		for _, status := range f.Statuses {
			args = append(args, status)
		}
	}
	if f.Type != "" {
		clauses = append(clauses, `job_type = ?`)
		args = append(args, f.Type)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return query, args
}

// Jobs returns a lazy, finite, non-restartable sequence of jobs matching the
// filter, ordered by creation time descending. Iteration stops early when the
// consumer breaks; the underlying cursor is closed either way.
func (s *Store) Jobs(ctx context.Context, filter Filter) iter.Seq2[*Job, error] {
	return func(yield func(*Job, error) bool) {
		query, args := filter.buildQuery()
		rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
		if err != nil {
			yield(nil, services.Wrap(services.ErrPersistence, "jobs", "list", "", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			job, err := scanJob(rows)
			if err != nil {
				yield(nil, services.Wrap(services.ErrPersistence, "jobs", "list", "scan", err))
				return
			}
			if !yield(job, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, services.Wrap(services.ErrPersistence, "jobs", "list", "iterate", err))
		}
	}
}

// List collects jobs matching the filter into a slice.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Job, error) {
	var result []*Job
	for job, err := range s.Jobs(ctx, filter) {
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, nil
}

// CountActive returns the number of jobs that are queued or running, used for
// max-queue-depth backpressure.
func (s *Store) CountActive(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COUNT(1) FROM render_jobs WHERE status IN (?, ?)`,
		StatusQueued,
		StatusRunning,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, services.Wrap(services.ErrPersistence, "jobs", "count active", "", err)
	}
	return count, nil
}

// RunningProjects returns the distinct project ids with a running job.
func (s *Store) RunningProjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT DISTINCT project_id FROM render_jobs WHERE status = ?`,
		StatusRunning,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "jobs", "running projects", "", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var projectID string
		if err := rows.Scan(&projectID); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "jobs", "running projects", "scan", err)
		}
		projects = append(projects, projectID)
	}
	return projects, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM render_jobs GROUP BY status`)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "jobs", "stats", "", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "jobs", "stats", "scan", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusQueued:
			health.Queued += count
		case StatusRunning:
			health.Running += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		case StatusCancelled:
			health.Cancelled += count
		}
	}
	return health, nil
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM render_jobs WHERE id = ?`, id)
	if err != nil {
		return false, services.Wrap(services.ErrPersistence, "jobs", "remove", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, services.Wrap(services.ErrPersistence, "jobs", "remove", "rows affected", err)
	}
	return affected > 0, nil
}

// ClearTerminal removes completed, failed, and cancelled jobs.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM render_jobs WHERE status IN (?, ?, ?)`,
		StatusCompleted,
		StatusFailed,
		StatusCancelled,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "jobs", "clear terminal", "", err)
	}
	return res.RowsAffected()
}
