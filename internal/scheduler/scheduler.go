// Package scheduler dispatches render jobs: a fixed worker pool pulls queued
// jobs in FIFO order, serializes execution per project, and drives every
// status change through the job store's guarded transition path.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"novastudio/internal/catalog"
	"novastudio/internal/config"
	"novastudio/internal/jobs"
	"novastudio/internal/logging"
	"novastudio/internal/notifications"
	"novastudio/internal/worker"
)

// Scheduler owns the dispatch pool and the submission/cancellation surface.
type Scheduler struct {
	cfg      *config.Config
	store    *jobs.Store
	catalog  *catalog.Store
	registry *worker.Registry
	notifier notifications.Service
	logger   *slog.Logger

	heartbeat    *heartbeatMonitor
	pollInterval time.Duration
	wake         chan struct{}

	drainMu    sync.Mutex
	drainStart time.Time
	drainDone  int
	drainFail  int

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastJob  *jobs.Job
	inflight map[string]string             // project id -> job id
	cancels  map[string]context.CancelFunc // job id -> cancel token
}

// New constructs a scheduler. The notifier may be nil; a noop service is used.
func New(cfg *config.Config, store *jobs.Store, cat *catalog.Store, registry *worker.Registry, notifier notifications.Service, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Scheduler{
		cfg:          cfg,
		store:        store,
		catalog:      cat,
		registry:     registry,
		notifier:     notifier,
		logger:       logger.With(logging.String(logging.FieldComponent, "scheduler")),
		heartbeat:    newHeartbeatMonitor(store, logger, cfg.HeartbeatInterval(), cfg.HeartbeatTimeout()),
		pollInterval: cfg.QueuePollInterval(),
		wake:         make(chan struct{}, 1),
		inflight:     make(map[string]string),
		cancels:      make(map[string]context.CancelFunc),
	}
}

// Start begins background dispatching.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	workers := s.cfg.Scheduler.WorkerCount
	if workers <= 0 {
		workers = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(workers)
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		go s.runDispatcher(runCtx, i)
	}
	return nil
}

// Stop terminates background dispatching and waits for in-flight jobs to
// observe the shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

func (s *Scheduler) wakePool() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-s.wake:
	case <-time.After(s.pollInterval):
	}
}

// noteBatchStart marks the beginning of a work batch for the drain summary.
func (s *Scheduler) noteBatchStart() {
	s.drainMu.Lock()
	if s.drainDone == 0 && s.drainFail == 0 {
		s.drainStart = time.Now()
	}
	s.drainMu.Unlock()
}

// noteOutcome records a terminal outcome and, once the queue is empty again,
// sends a single drained summary for the batch.
func (s *Scheduler) noteOutcome(ctx context.Context, failed bool) {
	s.drainMu.Lock()
	if failed {
		s.drainFail++
	} else {
		s.drainDone++
	}
	s.drainMu.Unlock()

	active, err := s.store.CountActive(ctx)
	if err != nil || active > 0 {
		return
	}

	s.drainMu.Lock()
	completed, failures := s.drainDone, s.drainFail
	start := s.drainStart
	s.drainDone, s.drainFail = 0, 0
	s.drainMu.Unlock()
	if completed+failures == 0 {
		return
	}
	if err := s.notifier.NotifyQueueDrained(ctx, completed, failures, time.Since(start)); err != nil {
		s.logger.Warn("queue drained notification failed", logging.Error(err))
	}
}

func (s *Scheduler) setLastError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Scheduler) setLastJob(job *jobs.Job) {
	s.mu.Lock()
	if job != nil {
		copy := *job
		s.lastJob = &copy
	} else {
		s.lastJob = nil
	}
	s.mu.Unlock()
}

// excludedProjects returns the projects with an in-flight job plus any the
// store still records as running (surviving from a previous process).
func (s *Scheduler) excludedProjects(ctx context.Context) ([]string, error) {
	running, err := s.store.RunningProjects(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(running))
	for _, project := range running {
		seen[project] = struct{}{}
	}
	s.mu.RLock()
	for project := range s.inflight {
		seen[project] = struct{}{}
	}
	s.mu.RUnlock()

	excluded := make([]string, 0, len(seen))
	for project := range seen {
		excluded = append(excluded, project)
	}
	return excluded, nil
}

// claimProject reserves a project for one dispatcher. Returns false when
// another dispatcher got there first.
func (s *Scheduler) claimProject(projectID, jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[projectID]; busy {
		return false
	}
	s.inflight[projectID] = jobID
	return true
}

func (s *Scheduler) releaseProject(projectID, jobID string) {
	s.mu.Lock()
	if current, ok := s.inflight[projectID]; ok && current == jobID {
		delete(s.inflight, projectID)
	}
	delete(s.cancels, jobID)
	s.mu.Unlock()
}

func (s *Scheduler) registerCancel(jobID string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancels[jobID] = cancel
	s.mu.Unlock()
}

func (s *Scheduler) cancelToken(jobID string) (context.CancelFunc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cancel, ok := s.cancels[jobID]
	return cancel, ok
}
