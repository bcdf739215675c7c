package scheduler

import (
	"context"

	"novastudio/internal/jobs"
	"novastudio/internal/logging"
	"novastudio/internal/worker"
)

// StatusSummary represents lightweight scheduler diagnostics.
type StatusSummary struct {
	Running      bool
	LastError    string
	LastJob      *jobs.Job
	QueueStats   map[jobs.Status]int
	WorkerHealth []worker.Health
}

// Status returns the latest scheduler information.
func (s *Scheduler) Status(ctx context.Context) StatusSummary {
	s.mu.RLock()
	running := s.running
	lastErr := s.lastErr
	lastJob := s.lastJob
	s.mu.RUnlock()

	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	summary := StatusSummary{
		Running:      running,
		QueueStats:   stats,
		WorkerHealth: s.registry.HealthCheck(ctx),
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		copy := *lastJob
		summary.LastJob = &copy
	}
	return summary
}

// Health reports aggregate job counts from the store.
func (s *Scheduler) Health(ctx context.Context) (jobs.HealthSummary, error) {
	return s.store.Health(ctx)
}
