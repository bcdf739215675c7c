// Package worker defines the execution contract the scheduler drives jobs
// through, plus the simulated per-type workers.
package worker

import (
	"context"
	"fmt"

	"novastudio/internal/jobs"
	"novastudio/internal/media"
)

// ProgressFunc receives percent (0-100) and a short human message. Reports
// must be strictly increasing; the scheduler drops anything else.
type ProgressFunc func(percent int, message string)

// Request is everything a worker needs to execute one job. The snapshot is an
// independent copy of the project state taken at submission; workers never
// touch live catalog rows.
type Request struct {
	JobID     string
	ProjectID string
	Type      jobs.Type
	Attempt   int
	Snapshot  media.Snapshot
	Params    jobs.Params
	Report    ProgressFunc
}

// Worker executes one job type. Execute returns the artifact reference on
// success; cancellation arrives through ctx and must be honored between steps.
type Worker interface {
	Execute(ctx context.Context, req Request) (string, error)
	HealthCheck(ctx context.Context) Health
}

// Health summarizes the readiness of a worker.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Failure is the structured error workers return. Retryable steers the
// scheduler's retry decision; Kind lands on the job record.
type Failure struct {
	Kind      jobs.ErrorKind
	Message   string
	Retryable bool
	Err       error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	}
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure builds a worker failure.
func NewFailure(kind jobs.ErrorKind, message string, retryable bool, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Retryable: retryable, Err: err}
}

// Registry maps job types to their workers.
type Registry struct {
	workers map[jobs.Type]Worker
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{workers: make(map[jobs.Type]Worker)}
}

// Register binds a worker to a job type, replacing any previous binding.
func (r *Registry) Register(jobType jobs.Type, w Worker) {
	r.workers[jobType] = w
}

// Lookup returns the worker for a job type, or nil when none is registered.
func (r *Registry) Lookup(jobType jobs.Type) Worker {
	return r.workers[jobType]
}

// Types returns the registered job types.
func (r *Registry) Types() []jobs.Type {
	types := make([]jobs.Type, 0, len(r.workers))
	for jobType := range r.workers {
		types = append(types, jobType)
	}
	return types
}

// HealthCheck aggregates health from all registered workers.
func (r *Registry) HealthCheck(ctx context.Context) []Health {
	results := make([]Health, 0, len(r.workers))
	for _, w := range r.workers {
		results = append(results, w.HealthCheck(ctx))
	}
	return results
}
