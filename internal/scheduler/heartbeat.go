package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"novastudio/internal/jobs"
	"novastudio/internal/logging"
)

// heartbeatMonitor keeps running jobs' heartbeats fresh and reclaims jobs
// whose worker stopped reporting.
type heartbeatMonitor struct {
	store    *jobs.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

func newHeartbeatMonitor(store *jobs.Store, logger *slog.Logger, interval, timeout time.Duration) *heartbeatMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &heartbeatMonitor{
		store:    store,
		logger:   logger.With(logging.String(logging.FieldComponent, "scheduler-heartbeat")),
		interval: interval,
		timeout:  timeout,
	}
}

// reclaimStale returns running jobs with expired heartbeats to the queue.
func (h *heartbeatMonitor) reclaimStale(ctx context.Context) error {
	if h.timeout <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-h.timeout)
	reclaimed, err := h.store.ReclaimStale(ctx, cutoff)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		h.logger.Info("reclaimed stale jobs", logging.Int64("count", reclaimed))
	}
	return nil
}

// startLoop refreshes one job's heartbeat until the context is cancelled.
func (h *heartbeatMonitor) startLoop(ctx context.Context, wg *sync.WaitGroup, jobID string) {
	defer wg.Done()
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, jobID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				h.logger.Warn("heartbeat update failed",
					logging.Error(err),
					logging.String(logging.FieldJobID, jobID))
			}
		}
	}
}
