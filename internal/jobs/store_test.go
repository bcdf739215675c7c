package jobs_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"novastudio/internal/jobs"
	"novastudio/internal/services"
)

func openStore(t *testing.T) *jobs.Store {
	t.Helper()
	store, err := jobs.OpenPath(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newJob(projectID string) *jobs.Job {
	return &jobs.Job{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Type:      jobs.TypeRender,
		Status:    jobs.StatusQueued,
	}
}

func TestCreateAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job := newJob("proj-1")
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	loaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected job, got nil")
	}
	if loaded.Status != jobs.StatusQueued || loaded.ProjectID != "proj-1" || loaded.Type != jobs.TypeRender {
		t.Fatalf("job did not round trip: %+v", loaded)
	}
	if loaded.CreatedAt.IsZero() || loaded.RunAfter.IsZero() {
		t.Fatal("timestamps not persisted")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := openStore(t)
	job, err := store.GetByID(context.Background(), "absent")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for missing job, got %+v", job)
	}
}

func TestTransitionCAS(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job := newJob("proj-1")
	if err := store.Create(ctx, job); err != nil {
		t.Fatal(err)
	}

	running, err := store.Transition(ctx, job.ID, jobs.StatusQueued, func(j *jobs.Job) {
		j.Status = jobs.StatusRunning
	})
	if err != nil {
		t.Fatalf("queued->running failed: %v", err)
	}
	if running.Status != jobs.StatusRunning {
		t.Fatalf("status = %s, want running", running.Status)
	}

	// The pre-state no longer matches; a second claim must lose.
	_, err = store.Transition(ctx, job.ID, jobs.StatusQueued, func(j *jobs.Job) {
		j.Status = jobs.StatusRunning
	})
	if !errors.Is(err, jobs.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestTransitionMissingJob(t *testing.T) {
	store := openStore(t)
	_, err := store.Transition(context.Background(), "absent", jobs.StatusQueued, func(j *jobs.Job) {
		j.Status = jobs.StatusCancelled
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestUpdateProgressGuards(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job := newJob("proj-1")
	if err := store.Create(ctx, job); err != nil {
		t.Fatal(err)
	}

	// Progress against a queued job is dropped.
	applied, err := store.UpdateProgress(ctx, job.ID, 10, "early")
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Fatal("progress should not apply to a queued job")
	}

	if _, err := store.Transition(ctx, job.ID, jobs.StatusQueued, func(j *jobs.Job) {
		j.Status = jobs.StatusRunning
	}); err != nil {
		t.Fatal(err)
	}

	applied, err = store.UpdateProgress(ctx, job.ID, 40, "rendering")
	if err != nil || !applied {
		t.Fatalf("progress update failed: applied=%v err=%v", applied, err)
	}

	// Regressions are dropped.
	applied, err = store.UpdateProgress(ctx, job.ID, 20, "stale")
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Fatal("regressing progress should be dropped")
	}

	loaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Progress != 40 {
		t.Fatalf("progress = %d, want 40", loaded.Progress)
	}

	// Terminal jobs drop further reports.
	if _, err := store.Transition(ctx, job.ID, jobs.StatusRunning, func(j *jobs.Job) {
		j.SetCompleted("file:///out.mp4")
	}); err != nil {
		t.Fatal(err)
	}
	applied, err = store.UpdateProgress(ctx, job.ID, 99, "late")
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Fatal("progress after completion should be dropped")
	}
}

func TestNextRunnableFIFOAndExclusion(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first := newJob("proj-a")
	second := newJob("proj-a")
	other := newJob("proj-b")
	for _, job := range []*jobs.Job{first, second, other} {
		if err := store.Create(ctx, job); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond) // distinct created_at ordering
	}

	got, err := store.NextRunnable(ctx, time.Now(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != first.ID {
		t.Fatalf("expected oldest job %s first, got %+v", first.ID, got)
	}

	got, err = store.NextRunnable(ctx, time.Now(), []string{"proj-a"})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != other.ID {
		t.Fatalf("exclusion should skip proj-a, got %+v", got)
	}

	got, err = store.NextRunnable(ctx, time.Now(), []string{"proj-a", "proj-b"})
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected no runnable job, got %+v", got)
	}
}

func TestNextRunnableHonorsRunAfter(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job := newJob("proj-a")
	job.RunAfter = time.Now().Add(time.Hour)
	if err := store.Create(ctx, job); err != nil {
		t.Fatal(err)
	}

	got, err := store.NextRunnable(ctx, time.Now(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("backoff-delayed job should not be runnable yet, got %+v", got)
	}

	got, err = store.NextRunnable(ctx, time.Now().Add(2*time.Hour), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("job should be runnable after its run_after")
	}
}

func TestListFilterAndOrder(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a := newJob("proj-a")
	b := newJob("proj-b")
	b.Type = jobs.TypeDub
	for _, job := range []*jobs.Job{a, b} {
		if err := store.Create(ctx, job); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	all, err := store.List(ctx, jobs.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != b.ID {
		t.Fatalf("expected newest-first ordering, got %v", all)
	}

	dubs, err := store.List(ctx, jobs.Filter{Type: jobs.TypeDub})
	if err != nil {
		t.Fatal(err)
	}
	if len(dubs) != 1 || dubs[0].ID != b.ID {
		t.Fatalf("type filter failed: %v", dubs)
	}

	limited, err := store.List(ctx, jobs.Filter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit not applied: %v", limited)
	}
}

func TestJobsIteratorStopsEarly(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := store.Create(ctx, newJob("proj")); err != nil {
			t.Fatal(err)
		}
	}

	seen := 0
	for _, err := range store.Jobs(ctx, jobs.Filter{}) {
		if err != nil {
			t.Fatal(err)
		}
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Fatalf("early break did not stop iteration, saw %d", seen)
	}
}

func TestReclaimStale(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job := newJob("proj-a")
	if err := store.Create(ctx, job); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Transition(ctx, job.ID, jobs.StatusQueued, func(j *jobs.Job) {
		j.Status = jobs.StatusRunning
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateHeartbeat(ctx, job.ID); err != nil {
		t.Fatal(err)
	}

	// A cutoff in the past reclaims nothing.
	reclaimed, err := store.ReclaimStale(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if reclaimed != 0 {
		t.Fatalf("fresh heartbeat reclaimed: %d", reclaimed)
	}

	reclaimed, err = store.ReclaimStale(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected 1 reclaimed job, got %d", reclaimed)
	}

	loaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Status != jobs.StatusQueued {
		t.Fatalf("reclaimed job status = %s, want queued", loaded.Status)
	}
}

func TestStatsAndHealth(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	done := newJob("proj-a")
	if err := store.Create(ctx, done); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Transition(ctx, done.ID, jobs.StatusQueued, func(j *jobs.Job) {
		j.Status = jobs.StatusRunning
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Transition(ctx, done.ID, jobs.StatusRunning, func(j *jobs.Job) {
		j.SetCompleted("file:///out.mp4")
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, newJob("proj-b")); err != nil {
		t.Fatal(err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if health.Total != 2 || health.Completed != 1 || health.Queued != 1 {
		t.Fatalf("unexpected health summary: %+v", health)
	}

	active, err := store.CountActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active != 1 {
		t.Fatalf("active = %d, want 1", active)
	}
}
