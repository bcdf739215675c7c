package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"novastudio/internal/jobs"
	"novastudio/internal/logging"
	"novastudio/internal/media"
	"novastudio/internal/services"
)

// Submit validates a job request against the live project, snapshots the
// project state, and enqueues the job. Validation failures never create a job
// record.
func (s *Scheduler) Submit(ctx context.Context, projectID string, jobType jobs.Type, rawParams json.RawMessage) (*jobs.Job, error) {
	project, err := s.catalog.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, services.Wrap(services.ErrNotFound, "scheduler", "submit",
			fmt.Sprintf("project %s not found", projectID), nil)
	}

	params, err := jobs.ParseParams(jobType, rawParams)
	if err != nil {
		return nil, err
	}
	if err := project.Settings.Validate(); err != nil {
		return nil, err
	}

	assets, err := s.catalog.ProjectMedia(ctx, project)
	if err != nil {
		return nil, err
	}
	available := make(map[string]struct{}, len(assets))
	assetList := make([]media.Media, 0, len(assets))
	for id, asset := range assets {
		available[id] = struct{}{}
		assetList = append(assetList, asset)
	}
	if err := media.ValidateTimeline(project.Timeline, available); err != nil {
		return nil, err
	}

	if depth := s.cfg.Scheduler.MaxQueueDepth; depth > 0 {
		active, err := s.store.CountActive(ctx)
		if err != nil {
			return nil, err
		}
		if active >= depth {
			return nil, services.Wrap(services.ErrQueueFull, "scheduler", "submit",
				fmt.Sprintf("queue depth %d reached", depth), nil)
		}
	}

	snapshot := media.NewSnapshot(project, assetList)
	snapshotJSON, err := snapshot.Encode()
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "scheduler", "submit", "encode snapshot", err)
	}
	paramsJSON, err := jobs.EncodeParams(params)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "scheduler", "submit", "encode params", err)
	}

	job := &jobs.Job{
		ID:           uuid.NewString(),
		ProjectID:    project.ID,
		Type:         jobType,
		Status:       jobs.StatusQueued,
		ParamsJSON:   paramsJSON,
		SnapshotJSON: snapshotJSON,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("job queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldProjectID, job.ProjectID),
		logging.String(logging.FieldJobType, string(jobType)),
		logging.String(logging.FieldEventType, "job_queued"))
	s.wakePool()
	return job, nil
}

// Cancel requests cancellation of a job. Queued jobs move straight to
// cancelled; running jobs get their cancel token fired and settle
// asynchronously; terminal jobs are returned unchanged.
func (s *Scheduler) Cancel(ctx context.Context, jobID string) (*jobs.Job, error) {
	for attempt := 0; attempt < 2; attempt++ {
		job, err := s.store.GetByID(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, services.Wrap(services.ErrNotFound, "scheduler", "cancel",
				fmt.Sprintf("job %s not found", jobID), nil)
		}

		switch job.Status {
		case jobs.StatusQueued:
			cancelled, err := s.store.Transition(ctx, jobID, jobs.StatusQueued, func(j *jobs.Job) {
				j.SetCancelled()
			})
			if errors.Is(err, jobs.ErrConcurrentModification) {
				continue
			}
			if err != nil {
				return nil, err
			}
			s.logger.Info("queued job cancelled",
				logging.String(logging.FieldJobID, jobID),
				logging.String(logging.FieldEventType, "job_cancelled"))
			s.notifyCancelled(ctx, cancelled)
			return cancelled, nil

		case jobs.StatusRunning:
			if cancel, ok := s.cancelToken(jobID); ok {
				cancel()
				s.logger.Info("cancellation requested",
					logging.String(logging.FieldJobID, jobID),
					logging.String(logging.FieldEventType, "job_cancel_requested"))
				return job, nil
			}
			// No token means the job is running in no live dispatcher
			// (e.g. left over from a crashed process); settle it directly.
			cancelled, err := s.store.Transition(ctx, jobID, jobs.StatusRunning, func(j *jobs.Job) {
				j.SetCancelled()
			})
			if errors.Is(err, jobs.ErrConcurrentModification) {
				continue
			}
			if err != nil {
				return nil, err
			}
			s.notifyCancelled(ctx, cancelled)
			return cancelled, nil

		default:
			// Terminal: cancelling is a no-op.
			return job, nil
		}
	}
	return s.store.GetByID(ctx, jobID)
}

func (s *Scheduler) notifyCancelled(ctx context.Context, job *jobs.Job) {
	if job == nil {
		return
	}
	if err := s.notifier.NotifyJobCancelled(ctx, job, s.projectTitle(job)); err != nil {
		s.logger.Warn("cancel notification failed", logging.Error(err))
	}
}

func (s *Scheduler) projectTitle(job *jobs.Job) string {
	if job.SnapshotJSON == "" {
		return ""
	}
	snapshot, err := media.DecodeSnapshot(job.SnapshotJSON)
	if err != nil {
		return ""
	}
	return snapshot.ProjectTitle
}

// backoffFor computes the retry delay for the given attempt count
// (1 for the first retry), doubling from the configured floor to the cap.
func (s *Scheduler) backoffFor(attempt int) time.Duration {
	delay := s.cfg.RetryBackoffInitial()
	max := s.cfg.RetryBackoffMax()
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
