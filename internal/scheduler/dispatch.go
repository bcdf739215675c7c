package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"novastudio/internal/jobs"
	"novastudio/internal/logging"
	"novastudio/internal/media"
	"novastudio/internal/services"
	"novastudio/internal/worker"
)

func (s *Scheduler) runDispatcher(ctx context.Context, index int) {
	defer s.wg.Done()
	logger := s.logger.With(logging.Int("dispatcher", index))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// The first dispatcher doubles as the stale-job reclaimer.
		if index == 0 {
			if err := s.heartbeat.reclaimStale(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("reclaim stale jobs failed; stuck jobs may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
					logging.String(logging.FieldErrorHint, "check job database access"))
			}
		}

		job, err := s.nextJob(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.setLastError(err)
			logger.Error("failed to fetch next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check job database access"))
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.ErrorRetryInterval()):
			}
			continue
		}
		if job == nil {
			s.waitForJobOrShutdown(ctx)
			continue
		}

		if !s.claimProject(job.ProjectID, job.ID) {
			continue
		}
		s.dispatch(ctx, logger, job)
	}
}

func (s *Scheduler) nextJob(ctx context.Context) (*jobs.Job, error) {
	excluded, err := s.excludedProjects(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.NextRunnable(ctx, time.Now().UTC(), excluded)
}

// dispatch claims the job via CAS and runs it. The in-flight project slot is
// held for the whole execution.
func (s *Scheduler) dispatch(ctx context.Context, logger *slog.Logger, job *jobs.Job) {
	defer s.releaseProject(job.ProjectID, job.ID)

	// The token goes up before the claim so a Cancel that observes the job
	// running always finds it. releaseProject tears it down if the claim
	// loses.
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.registerCancel(job.ID, cancel)

	claimed, err := s.store.Transition(ctx, job.ID, jobs.StatusQueued, func(j *jobs.Job) {
		now := time.Now().UTC()
		j.Status = jobs.StatusRunning
		j.Attempts++
		j.Progress = 0
		j.ProgressMessage = "started"
		j.ErrorKind = ""
		j.ErrorMessage = ""
		j.LastHeartbeat = &now
	})
	if errors.Is(err, jobs.ErrConcurrentModification) {
		// Another actor moved the job (e.g. a cancel); not ours anymore.
		return
	}
	if err != nil {
		s.setLastError(err)
		logger.Error("failed to claim job", logging.Error(err),
			logging.String(logging.FieldJobID, job.ID))
		return
	}

	s.noteBatchStart()
	jobLogger := logger.With(
		logging.String(logging.FieldJobID, claimed.ID),
		logging.String(logging.FieldProjectID, claimed.ProjectID),
		logging.String(logging.FieldJobType, string(claimed.Type)),
		logging.Int(logging.FieldAttempt, claimed.Attempts))
	jobLogger.Info("job started", logging.String(logging.FieldEventType, "job_start"))
	if err := s.notifier.NotifyJobStarted(ctx, claimed, s.projectTitle(claimed)); err != nil {
		jobLogger.Warn("start notification failed", logging.Error(err))
	}

	s.execute(ctx, jobCtx, jobLogger, claimed)
}

// execute runs the worker with a heartbeat loop and settles the outcome.
// ctx is the pool lifetime; jobCtx additionally carries this job's cancel
// token, so jobCtx done while ctx is alive means a user cancellation.
func (s *Scheduler) execute(ctx, jobCtx context.Context, logger *slog.Logger, job *jobs.Job) {
	start := time.Now()

	w := s.registry.Lookup(job.Type)
	if w == nil {
		s.settleFailure(ctx, logger, job, worker.NewFailure(jobs.ErrorKindInternal,
			fmt.Sprintf("no worker registered for %s jobs", job.Type), false, nil))
		return
	}

	req, err := s.buildRequest(job)
	if err != nil {
		s.settleFailure(ctx, logger, job, err)
		return
	}

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go s.heartbeat.startLoop(hbCtx, &hbWG, job.ID)
	defer func() {
		hbCancel()
		hbWG.Wait()
	}()

	type result struct {
		ref string
		err error
	}
	done := make(chan result, 1)
	go func() {
		ref, execErr := w.Execute(jobCtx, req)
		done <- result{ref: ref, err: execErr}
	}()

	var res result
	select {
	case res = <-done:
	case <-jobCtx.Done():
		if ctx.Err() != nil {
			// Shutdown: leave the job running; heartbeat reclaim or the next
			// process start returns it to the queue.
			logger.Debug("job interrupted by shutdown")
			return
		}
		// User cancellation: the worker gets the grace period to unwind.
		select {
		case res = <-done:
		case <-time.After(s.cfg.CancelGracePeriod()):
			s.settleGraceExpired(ctx, logger, job)
			return
		}
	}

	switch {
	case res.err == nil:
		s.settleSuccess(ctx, logger, job, res.ref, time.Since(start))
	case errors.Is(res.err, context.Canceled) && ctx.Err() == nil && jobCtx.Err() != nil:
		s.settleCancelled(ctx, logger, job)
	case errors.Is(res.err, context.Canceled):
		logger.Debug("job interrupted by shutdown")
	default:
		s.settleFailure(ctx, logger, job, res.err)
	}
}

func (s *Scheduler) buildRequest(job *jobs.Job) (worker.Request, error) {
	snapshot, err := media.DecodeSnapshot(job.SnapshotJSON)
	if err != nil {
		return worker.Request{}, worker.NewFailure(jobs.ErrorKindInternal, "decode snapshot", false, err)
	}
	params, err := jobs.ParseParams(job.Type, []byte(job.ParamsJSON))
	if err != nil {
		return worker.Request{}, worker.NewFailure(jobs.ErrorKindValidation, "decode params", false, err)
	}

	jobID := job.ID
	interval := s.cfg.ProgressInterval()
	var reportMu sync.Mutex
	var lastPersist time.Time
	return worker.Request{
		JobID:     job.ID,
		ProjectID: job.ProjectID,
		Type:      job.Type,
		Attempt:   job.Attempts,
		Snapshot:  snapshot,
		Params:    params,
		Report: func(percent int, message string) {
			// Coalesce chatty workers; the final report always lands.
			reportMu.Lock()
			if interval > 0 && percent < 100 && time.Since(lastPersist) < interval {
				reportMu.Unlock()
				return
			}
			lastPersist = time.Now()
			reportMu.Unlock()

			applied, err := s.store.UpdateProgress(context.Background(), jobID, percent, message)
			if err != nil {
				s.logger.Warn("progress update failed", logging.Error(err),
					logging.String(logging.FieldJobID, jobID))
				return
			}
			_ = applied // stale or out-of-order reports are dropped by the store
		},
	}, nil
}

func (s *Scheduler) settleSuccess(ctx context.Context, logger *slog.Logger, job *jobs.Job, ref string, elapsed time.Duration) {
	completed, err := s.transitionWithRetry(ctx, job.ID, jobs.StatusRunning, func(j *jobs.Job) {
		j.SetCompleted(ref)
		j.ProgressMessage = "completed"
	})
	if err != nil {
		s.setLastError(err)
		logger.Error("failed to persist completion", logging.Error(err))
		return
	}
	s.setLastJob(completed)
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("output_ref", ref),
		logging.Duration("job_duration", elapsed))
	if err := s.notifier.NotifyJobCompleted(ctx, completed, s.projectTitle(completed)); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}
	s.noteOutcome(ctx, false)
}

func (s *Scheduler) settleCancelled(ctx context.Context, logger *slog.Logger, job *jobs.Job) {
	cancelled, err := s.transitionWithRetry(ctx, job.ID, jobs.StatusRunning, func(j *jobs.Job) {
		j.SetCancelled()
	})
	if err != nil {
		s.setLastError(err)
		logger.Error("failed to persist cancellation", logging.Error(err))
		return
	}
	s.setLastJob(cancelled)
	logger.Info("job cancelled", logging.String(logging.FieldEventType, "job_cancelled"))
	s.notifyCancelled(ctx, cancelled)
}

// settleGraceExpired handles a worker that ignored its cancel token past the
// grace period. The job fails permanently; the goroutine is abandoned.
func (s *Scheduler) settleGraceExpired(ctx context.Context, logger *slog.Logger, job *jobs.Job) {
	failed, err := s.transitionWithRetry(ctx, job.ID, jobs.StatusRunning, func(j *jobs.Job) {
		j.SetFailed(jobs.ErrorKindTimeout, "worker ignored cancellation past the grace period")
	})
	if err != nil {
		s.setLastError(err)
		logger.Error("failed to persist grace-period failure", logging.Error(err))
		return
	}
	s.setLastJob(failed)
	logger.Warn("worker ignored cancellation",
		logging.String(logging.FieldEventType, "job_cancel_grace_expired"),
		logging.Duration("grace_period", s.cfg.CancelGracePeriod()))
	if err := s.notifier.NotifyJobFailed(ctx, failed, s.projectTitle(failed)); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
	s.noteOutcome(ctx, true)
}

func (s *Scheduler) settleFailure(ctx context.Context, logger *slog.Logger, job *jobs.Job, execErr error) {
	kind, message, retryable := classifyFailure(execErr)

	if retryable && job.Attempts < s.cfg.Scheduler.RetryBudget {
		delay := s.backoffFor(job.Attempts)
		requeued, err := s.transitionWithRetry(ctx, job.ID, jobs.StatusRunning, func(j *jobs.Job) {
			j.Status = jobs.StatusQueued
			j.RunAfter = time.Now().UTC().Add(delay)
			j.ProgressMessage = fmt.Sprintf("retry %d/%d scheduled", j.Attempts, s.cfg.Scheduler.RetryBudget)
			j.LastHeartbeat = nil
		})
		if err != nil {
			s.setLastError(err)
			logger.Error("failed to requeue job for retry", logging.Error(err))
			return
		}
		s.setLastJob(requeued)
		logger.Warn("job failed, retry scheduled",
			logging.String(logging.FieldEventType, "job_retry"),
			logging.Error(execErr),
			logging.Duration("retry_delay", delay),
			logging.Int("retry_budget", s.cfg.Scheduler.RetryBudget))
		return
	}

	failed, err := s.transitionWithRetry(ctx, job.ID, jobs.StatusRunning, func(j *jobs.Job) {
		j.SetFailed(kind, message)
	})
	if err != nil {
		s.setLastError(err)
		logger.Error("failed to persist job failure", logging.Error(err))
		return
	}
	s.setLastJob(failed)
	s.setLastError(execErr)
	logger.Error("job failed",
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.Error(execErr))
	if err := s.notifier.NotifyJobFailed(ctx, failed, s.projectTitle(failed)); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
	s.noteOutcome(ctx, true)
}

// transitionWithRetry retries a guarded transition once after a conflict.
func (s *Scheduler) transitionWithRetry(ctx context.Context, id string, from jobs.Status, mutate func(*jobs.Job)) (*jobs.Job, error) {
	job, err := s.store.Transition(ctx, id, from, mutate)
	if errors.Is(err, jobs.ErrConcurrentModification) {
		job, err = s.store.Transition(ctx, id, from, mutate)
	}
	return job, err
}

func classifyFailure(err error) (jobs.ErrorKind, string, bool) {
	var failure *worker.Failure
	if errors.As(err, &failure) {
		return failure.Kind, failure.Message, failure.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return jobs.ErrorKindTimeout, err.Error(), true
	}
	if errors.Is(err, services.ErrValidation) {
		return jobs.ErrorKindValidation, err.Error(), false
	}
	if errors.Is(err, services.ErrUpstream) || errors.Is(err, services.ErrTransient) {
		return jobs.ErrorKindUpstream, err.Error(), true
	}
	return jobs.ErrorKindInternal, err.Error(), services.Retryable(err)
}
