package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"novastudio/internal/artifacts"
	"novastudio/internal/jobs"
	"novastudio/internal/logging"
)

// stepPlan is the work a simulated worker performs: named steps walked in
// order with a delay each, then a descriptive artifact.
type stepPlan struct {
	steps    []string
	artifact map[string]any
}

// simulated is the shared body of the per-type workers. Real media processing
// is out of scope; each variant plans steps from its params and snapshot and
// walks them, reporting progress and honoring cancellation between steps.
type simulated struct {
	name      string
	store     artifacts.Store
	logger    *slog.Logger
	stepDelay time.Duration
	plan      func(req Request) (stepPlan, error)
}

func newSimulated(name string, store artifacts.Store, logger *slog.Logger, stepDelay time.Duration, plan func(Request) (stepPlan, error)) *simulated {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &simulated{
		name:      name,
		store:     store,
		logger:    logger.With(logging.String(logging.FieldComponent, name)),
		stepDelay: stepDelay,
		plan:      plan,
	}
}

func (s *simulated) Execute(ctx context.Context, req Request) (string, error) {
	plan, err := s.plan(req)
	if err != nil {
		return "", err
	}
	if len(plan.steps) == 0 {
		return "", NewFailure(jobs.ErrorKindInternal, "empty step plan", false, nil)
	}

	for i, step := range plan.steps {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.stepDelay):
		}
		percent := (i + 1) * 95 / len(plan.steps)
		if req.Report != nil {
			req.Report(percent, step)
		}
		s.logger.Debug("step complete",
			logging.String(logging.FieldJobID, req.JobID),
			logging.String("step", step),
			logging.Int("percent", percent))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	plan.artifact["job_id"] = req.JobID
	plan.artifact["project_id"] = req.ProjectID
	plan.artifact["job_type"] = string(req.Type)
	plan.artifact["produced_at"] = time.Now().UTC().Format(time.RFC3339)

	payload, err := json.MarshalIndent(plan.artifact, "", "  ")
	if err != nil {
		return "", NewFailure(jobs.ErrorKindInternal, "encode artifact", false, err)
	}
	ref, err := s.store.Put(ctx, fmt.Sprintf("%s.%s.json", req.JobID, req.Type), strings.NewReader(string(payload)))
	if err != nil {
		return "", NewFailure(jobs.ErrorKindInternal, "store artifact", true, err)
	}
	return ref, nil
}

func (s *simulated) HealthCheck(ctx context.Context) Health {
	if s.store == nil {
		return Unhealthy(s.name, "artifact store not configured")
	}
	return Healthy(s.name)
}
