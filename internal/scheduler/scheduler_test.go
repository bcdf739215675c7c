package scheduler_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"novastudio/internal/catalog"
	"novastudio/internal/config"
	"novastudio/internal/jobs"
	"novastudio/internal/media"
	"novastudio/internal/scheduler"
	"novastudio/internal/services"
	"novastudio/internal/worker"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ArtifactDir = filepath.Join(base, "artifacts")
	cfg.Scheduler.WorkerCount = 2
	cfg.Scheduler.RetryBudget = 3
	cfg.Scheduler.RetryBackoffInitialMS = 10
	cfg.Scheduler.RetryBackoffMaxMS = 50
	cfg.Scheduler.CancelGracePeriodMS = 150
	cfg.Scheduler.QueuePollIntervalMS = 10
	cfg.Scheduler.HeartbeatIntervalMS = 20
	cfg.Scheduler.HeartbeatTimeoutMS = 60000
	cfg.Scheduler.ErrorRetryIntervalMS = 10
	return &cfg
}

type fixture struct {
	cfg      *config.Config
	store    *jobs.Store
	catalog  *catalog.Store
	registry *worker.Registry
	sched    *scheduler.Scheduler
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cat, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open catalog store: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	registry := worker.NewRegistry()
	return &fixture{
		cfg:      cfg,
		store:    store,
		catalog:  cat,
		registry: registry,
		sched:    scheduler.New(cfg, store, cat, registry, nil, nil),
	}
}

func (f *fixture) seedProject(t *testing.T) *media.Project {
	t.Helper()
	ctx := context.Background()
	voiceID := "m-voice-" + uuid.NewString()[:8]
	if err := f.catalog.CreateMedia(ctx, &media.Media{ID: voiceID, Kind: media.KindVoice}); err != nil {
		t.Fatalf("seed media: %v", err)
	}
	project := &media.Project{
		ID:       uuid.NewString(),
		Title:    "Launch teaser",
		Settings: media.DefaultSettings(),
		MediaIDs: []string{voiceID},
		Timeline: media.Timeline{Tracks: []media.Track{
			{Kind: media.TrackVoiceover, Clips: []media.Clip{{StartMS: 0, EndMS: 4000, MediaID: voiceID}}},
		}},
	}
	if err := f.catalog.CreateProject(ctx, project); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return project
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if err := f.sched.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	t.Cleanup(f.sched.Stop)
}

// stubWorker runs the provided function as its Execute body.
type stubWorker struct {
	fn func(ctx context.Context, req worker.Request) (string, error)
}

func (w *stubWorker) Execute(ctx context.Context, req worker.Request) (string, error) {
	return w.fn(ctx, req)
}

func (w *stubWorker) HealthCheck(context.Context) worker.Health {
	return worker.Healthy("stub")
}

func waitForStatus(t *testing.T, store *jobs.Store, jobID string, want jobs.Status) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), jobID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.GetByID(context.Background(), jobID)
	t.Fatalf("job %s never reached %s; currently %+v", jobID, want, job)
	return nil
}

func renderParams() json.RawMessage {
	return json.RawMessage(`{"platform":"youtube"}`)
}

func TestSubmitRejectsUnknownProject(t *testing.T) {
	f := newFixture(t, testConfig(t))
	_, err := f.sched.Submit(context.Background(), "absent", jobs.TypeRender, renderParams())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestSubmitRejectsInvalidTimeline(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)
	project.Timeline.Tracks[0].Clips[0].MediaID = "missing-asset"
	if err := f.catalog.UpdateProject(context.Background(), project); err != nil {
		t.Fatal(err)
	}

	_, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Rejected submissions must not leave a job record behind.
	all, err := f.store.List(context.Background(), jobs.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no job records, got %d", len(all))
	}
}

func TestSubmitRejectsBadParams(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)
	_, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeDub, json.RawMessage(`{}`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing target_language, got %v", err)
	}
}

func TestSubmitEnforcesQueueDepth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.MaxQueueDepth = 1
	f := newFixture(t, cfg)
	project := f.seedProject(t)

	if _, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams()); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	_, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if !errors.Is(err, services.ErrQueueFull) {
		t.Fatalf("expected queue-full error, got %v", err)
	}
}

func TestJobRunsToCompletion(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)

	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		req.Report(25, "compositing")
		req.Report(80, "encoding")
		return "file:///artifacts/out.json", nil
	}})
	f.start(t)

	job, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	done := waitForStatus(t, f.store, job.ID, jobs.StatusCompleted)
	if done.Progress != 100 {
		t.Fatalf("completed progress = %d, want 100", done.Progress)
	}
	if done.OutputRef != "file:///artifacts/out.json" {
		t.Fatalf("output ref = %q", done.OutputRef)
	}
	if done.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", done.Attempts)
	}
}

func TestPerProjectSerialization(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)

	var mu sync.Mutex
	active := make(map[string]int)
	maxActive := 0
	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		mu.Lock()
		active[req.ProjectID]++
		if active[req.ProjectID] > maxActive {
			maxActive = active[req.ProjectID]
		}
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		active[req.ProjectID]--
		mu.Unlock()
		return "file:///out", nil
	}})
	f.start(t)

	var ids []string
	for i := 0; i < 3; i++ {
		job, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		ids = append(ids, job.ID)
	}
	for _, id := range ids {
		waitForStatus(t, f.store, id, jobs.StatusCompleted)
	}

	mu.Lock()
	defer mu.Unlock()
	if maxActive > 1 {
		t.Fatalf("observed %d concurrent jobs for one project", maxActive)
	}
}

func TestDifferentProjectsRunConcurrently(t *testing.T) {
	f := newFixture(t, testConfig(t))
	first := f.seedProject(t)
	second := f.seedProject(t)

	var mu sync.Mutex
	running := 0
	peak := 0
	release := make(chan struct{})
	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		mu.Lock()
		running--
		mu.Unlock()
		return "file:///out", nil
	}})
	f.start(t)

	jobA, err := f.sched.Submit(context.Background(), first.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}
	jobB, err := f.sched.Submit(context.Background(), second.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		p := peak
		mu.Unlock()
		if p >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(release)
	waitForStatus(t, f.store, jobA.ID, jobs.StatusCompleted)
	waitForStatus(t, f.store, jobB.ID, jobs.StatusCompleted)

	mu.Lock()
	defer mu.Unlock()
	if peak < 2 {
		t.Fatalf("expected concurrent execution across projects, peak = %d", peak)
	}
}

func TestRetryableFailureRetriesUntilSuccess(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)

	var mu sync.Mutex
	calls := 0
	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			return "", worker.NewFailure(jobs.ErrorKindUpstream, "voice service unavailable", true, nil)
		}
		return "file:///out", nil
	}})
	f.start(t)

	job, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}

	done := waitForStatus(t, f.store, job.ID, jobs.StatusCompleted)
	if done.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", done.Attempts)
	}
}

func TestRetryBudgetExhaustion(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)

	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		return "", worker.NewFailure(jobs.ErrorKindUpstream, "voice service unavailable", true, nil)
	}})
	f.start(t)

	job, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}

	failed := waitForStatus(t, f.store, job.ID, jobs.StatusFailed)
	if failed.Attempts != f.cfg.Scheduler.RetryBudget {
		t.Fatalf("attempts = %d, want %d", failed.Attempts, f.cfg.Scheduler.RetryBudget)
	}
	if failed.ErrorKind != jobs.ErrorKindUpstream {
		t.Fatalf("error kind = %s", failed.ErrorKind)
	}
}

func TestNonRetryableFailureFailsImmediately(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)

	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		return "", worker.NewFailure(jobs.ErrorKindValidation, "snapshot unusable", false, nil)
	}})
	f.start(t)

	job, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}

	failed := waitForStatus(t, f.store, job.ID, jobs.StatusFailed)
	if failed.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", failed.Attempts)
	}
	if failed.ErrorKind != jobs.ErrorKindValidation {
		t.Fatalf("error kind = %s", failed.ErrorKind)
	}
}

func TestCancelQueuedJob(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)

	// Scheduler not started: the job stays queued.
	job, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}

	cancelled, err := f.sched.Cancel(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != jobs.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
}

func TestCancelRunningJob(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)

	started := make(chan struct{})
	var once sync.Once
	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return "", ctx.Err()
	}})
	f.start(t)

	job, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never started")
	}

	if _, err := f.sched.Cancel(context.Background(), job.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	waitForStatus(t, f.store, job.ID, jobs.StatusCancelled)
}

func TestCancelSignalsRunningWorker(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)

	started := make(chan struct{})
	interrupted := make(chan struct{})
	var startOnce, stopOnce sync.Once
	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		startOnce.Do(func() { close(started) })
		<-ctx.Done()
		stopOnce.Do(func() { close(interrupted) })
		return "", ctx.Err()
	}})
	f.start(t)

	job, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never started")
	}

	if _, err := f.sched.Cancel(context.Background(), job.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	// The worker must be told to stop, not abandoned while the job record
	// flips underneath it.
	select {
	case <-interrupted:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never saw the cancel token")
	}
	waitForStatus(t, f.store, job.ID, jobs.StatusCancelled)
}

func TestCancelIgnoredPastGracePeriod(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)

	started := make(chan struct{})
	var once sync.Once
	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		once.Do(func() { close(started) })
		time.Sleep(10 * time.Second) // ignores cancellation
		return "file:///out", nil
	}})
	f.start(t)

	job, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never started")
	}

	if _, err := f.sched.Cancel(context.Background(), job.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	failed := waitForStatus(t, f.store, job.ID, jobs.StatusFailed)
	if failed.ErrorKind != jobs.ErrorKindTimeout {
		t.Fatalf("error kind = %s, want timeout", failed.ErrorKind)
	}
}

func TestCancelTerminalJobIsNoOp(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)

	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		return "file:///out", nil
	}})
	f.start(t)

	job, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}
	waitForStatus(t, f.store, job.ID, jobs.StatusCompleted)

	got, err := f.sched.Cancel(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("cancel of terminal job errored: %v", err)
	}
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("terminal status changed to %s", got.Status)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)

	titles := make(chan string, 1)
	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		titles <- req.Snapshot.ProjectTitle
		return "file:///out", nil
	}})

	job, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}

	// Edit the project after submission but before execution.
	project.Title = "Renamed"
	if err := f.catalog.UpdateProject(context.Background(), project); err != nil {
		t.Fatal(err)
	}

	f.start(t)
	waitForStatus(t, f.store, job.ID, jobs.StatusCompleted)

	select {
	case title := <-titles:
		if title != "Launch teaser" {
			t.Fatalf("worker saw live project state: %q", title)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker never ran")
	}
}

func TestStatusSummary(t *testing.T) {
	f := newFixture(t, testConfig(t))
	project := f.seedProject(t)
	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		return "file:///out", nil
	}})
	f.start(t)

	job, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}
	waitForStatus(t, f.store, job.ID, jobs.StatusCompleted)

	summary := f.sched.Status(context.Background())
	if !summary.Running {
		t.Fatal("expected scheduler to report running")
	}
	if summary.QueueStats[jobs.StatusCompleted] != 1 {
		t.Fatalf("queue stats = %v", summary.QueueStats)
	}
	if len(summary.WorkerHealth) != 1 || !summary.WorkerHealth[0].Ready {
		t.Fatalf("worker health = %+v", summary.WorkerHealth)
	}

	health, err := f.sched.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if health.Completed != 1 {
		t.Fatalf("health = %+v", health)
	}
}

func TestSubmitWakesIdlePool(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.QueuePollIntervalMS = 60000 // force reliance on the wake signal
	f := newFixture(t, cfg)
	project := f.seedProject(t)

	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		return "file:///out", nil
	}})
	f.start(t)
	time.Sleep(20 * time.Millisecond) // let dispatchers park on the wake channel

	job, err := f.sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}
	waitForStatus(t, f.store, job.ID, jobs.StatusCompleted)
}

// recordingNotifier captures notification calls for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	started   int
	completed int
	failed    int
	cancelled int
	drained   int
	drainDone int
	drainFail int
}

func (n *recordingNotifier) NotifyJobStarted(context.Context, *jobs.Job, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started++
	return nil
}

func (n *recordingNotifier) NotifyJobCompleted(context.Context, *jobs.Job, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed++
	return nil
}

func (n *recordingNotifier) NotifyJobFailed(context.Context, *jobs.Job, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed++
	return nil
}

func (n *recordingNotifier) NotifyJobCancelled(context.Context, *jobs.Job, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled++
	return nil
}

func (n *recordingNotifier) NotifyQueueDrained(_ context.Context, completed, failed int, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drained++
	n.drainDone += completed
	n.drainFail += failed
	return nil
}

func (n *recordingNotifier) NotifyError(context.Context, error, string) error { return nil }

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func TestQueueDrainedNotification(t *testing.T) {
	cfg := testConfig(t)
	f := newFixture(t, cfg)
	recorder := &recordingNotifier{}
	sched := scheduler.New(cfg, f.store, f.catalog, f.registry, recorder, nil)
	project := f.seedProject(t)

	f.registry.Register(jobs.TypeRender, &stubWorker{fn: func(ctx context.Context, req worker.Request) (string, error) {
		return "file:///out", nil
	}})
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	t.Cleanup(sched.Stop)

	job, err := sched.Submit(context.Background(), project.ID, jobs.TypeRender, renderParams())
	if err != nil {
		t.Fatal(err)
	}
	waitForStatus(t, f.store, job.ID, jobs.StatusCompleted)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		recorder.mu.Lock()
		drained, done := recorder.drained, recorder.drainDone
		started, completed := recorder.started, recorder.completed
		recorder.mu.Unlock()
		if drained == 1 && done == 1 {
			if started != 1 || completed != 1 {
				t.Fatalf("notifier counts: started=%d completed=%d", started, completed)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("queue drained notification never arrived: %+v", recorder)
}
