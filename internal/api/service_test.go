package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"novastudio/internal/api"
	"novastudio/internal/catalog"
	"novastudio/internal/config"
	"novastudio/internal/jobs"
	"novastudio/internal/media"
	"novastudio/internal/scheduler"
	"novastudio/internal/services"
	"novastudio/internal/worker"
)

func newService(t *testing.T) (*api.Service, *catalog.Store, *jobs.Store) {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ArtifactDir = filepath.Join(base, "artifacts")

	store, err := jobs.Open(&cfg)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cat, err := catalog.Open(&cfg)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	sched := scheduler.New(&cfg, store, cat, worker.NewRegistry(), nil, nil)
	return api.NewService(cat, store, sched, nil), cat, store
}

func seedRenderableProject(t *testing.T, svc *api.Service, cat *catalog.Store) api.ProjectView {
	t.Helper()
	ctx := context.Background()
	asset := &media.Media{ID: "m-voice", Kind: media.KindVoice}
	if err := cat.CreateMedia(ctx, asset); err != nil {
		t.Fatal(err)
	}
	view, err := svc.CreateProject(ctx, api.CreateProjectRequest{
		Title: "Launch teaser",
		Timeline: media.Timeline{Tracks: []media.Track{
			{Kind: media.TrackVoiceover, Clips: []media.Clip{{StartMS: 0, EndMS: 4000, MediaID: "m-voice"}}},
		}},
		MediaIDs: []string{"m-voice"},
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return view
}

func TestCreateProjectDefaultsSettings(t *testing.T) {
	svc, cat, _ := newService(t)
	view := seedRenderableProject(t, svc, cat)
	if view.Settings.Resolution != media.Resolution1080p {
		t.Fatalf("expected default settings, got %+v", view.Settings)
	}
	if view.ID == "" || view.CreatedAt.IsZero() {
		t.Fatalf("incomplete view: %+v", view)
	}
}

func TestCreateProjectRejectsBadSettings(t *testing.T) {
	svc, _, _ := newService(t)
	bad := media.Settings{Resolution: media.Resolution4K, FPS: 30, Aspect: media.AspectSquare,
		Platforms: []media.Platform{media.PlatformYouTube}}
	_, err := svc.CreateProject(context.Background(), api.CreateProjectRequest{
		Title:    "Bad",
		Settings: &bad,
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for 4k square, got %v", err)
	}
}

func TestCreateMediaRejectsUnknownKind(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.CreateMedia(context.Background(), api.CreateMediaRequest{Kind: "hologram"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitJobQueues(t *testing.T) {
	svc, cat, store := newService(t)
	project := seedRenderableProject(t, svc, cat)

	view, err := svc.SubmitJob(context.Background(), api.SubmitJobRequest{
		ProjectID: project.ID,
		Type:      "render",
		Params:    json.RawMessage(`{"platform":"youtube"}`),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if view.Status != string(jobs.StatusQueued) {
		t.Fatalf("status = %s, want queued", view.Status)
	}
	if view.TypeLabel != "Render" {
		t.Fatalf("type label = %q", view.TypeLabel)
	}

	stored, err := store.GetByID(context.Background(), view.ID)
	if err != nil || stored == nil {
		t.Fatalf("job not persisted: %v %v", stored, err)
	}
}

func TestSubmitJobRejectsUnknownType(t *testing.T) {
	svc, cat, _ := newService(t)
	project := seedRenderableProject(t, svc, cat)
	_, err := svc.SubmitJob(context.Background(), api.SubmitJobRequest{ProjectID: project.ID, Type: "compress"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListJobsFilters(t *testing.T) {
	svc, cat, _ := newService(t)
	project := seedRenderableProject(t, svc, cat)

	for i := 0; i < 2; i++ {
		if _, err := svc.SubmitJob(context.Background(), api.SubmitJobRequest{
			ProjectID: project.ID, Type: "render", Params: json.RawMessage(`{}`),
		}); err != nil {
			t.Fatal(err)
		}
	}

	queued, err := svc.ListJobs(context.Background(), project.ID, "queued", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(queued) != 2 {
		t.Fatalf("queued jobs = %d, want 2", len(queued))
	}

	_, err = svc.ListJobs(context.Background(), "", "exploded", 0)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for bad status, got %v", err)
	}
}

func TestScriptToVideo(t *testing.T) {
	svc, _, _ := newService(t)

	result, err := svc.ScriptToVideo(context.Background(), api.ScriptToVideoRequest{
		Title:    "Morning routine",
		Script:   "Wake up early. Stretch. Make coffee. Plan the day with intention and energy.",
		Platform: "tiktok",
	})
	if err != nil {
		t.Fatalf("ScriptToVideo failed: %v", err)
	}
	if result.Project.Settings.Aspect != media.AspectVertical {
		t.Fatalf("tiktok project aspect = %s, want 9:16", result.Project.Settings.Aspect)
	}
	if len(result.Project.Timeline.Tracks) != 2 {
		t.Fatalf("expected voiceover + subtitles tracks, got %d", len(result.Project.Timeline.Tracks))
	}
	if result.Job.Status != string(jobs.StatusQueued) {
		t.Fatalf("job status = %s, want queued", result.Job.Status)
	}
	if result.Job.ProjectID != result.Project.ID {
		t.Fatal("job not linked to generated project")
	}
}

func TestScriptToVideoWithoutSubtitles(t *testing.T) {
	svc, _, _ := newService(t)
	noSubs := false
	result, err := svc.ScriptToVideo(context.Background(), api.ScriptToVideoRequest{
		Title:            "Plain narration",
		Script:           strings.Repeat("word ", 20),
		IncludeSubtitles: &noSubs,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Project.Timeline.Tracks) != 1 {
		t.Fatalf("expected single voiceover track, got %d", len(result.Project.Timeline.Tracks))
	}
	if result.Project.Settings.Aspect != media.AspectWide {
		t.Fatalf("default aspect = %s, want 16:9", result.Project.Settings.Aspect)
	}
}

func TestAnalyticsAggregates(t *testing.T) {
	svc, cat, store := newService(t)
	project := seedRenderableProject(t, svc, cat)

	job, err := svc.SubmitJob(context.Background(), api.SubmitJobRequest{
		ProjectID: project.ID, Type: "render", Params: json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := store.Transition(ctx, job.ID, jobs.StatusQueued, func(j *jobs.Job) {
		j.Status = jobs.StatusRunning
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Transition(ctx, job.ID, jobs.StatusRunning, func(j *jobs.Job) {
		j.SetCompleted("file:///out")
	}); err != nil {
		t.Fatal(err)
	}

	view, err := svc.Analytics(ctx)
	if err != nil {
		t.Fatalf("analytics failed: %v", err)
	}
	if view.Projects != 1 || view.MediaAssets != 1 {
		t.Fatalf("catalog counts wrong: %+v", view)
	}
	if view.JobsByStatus["completed"] != 1 || view.JobsByType["render"] != 1 {
		t.Fatalf("job aggregates wrong: %+v", view)
	}
	if view.SuccessRate != 1.0 {
		t.Fatalf("success rate = %f, want 1.0", view.SuccessRate)
	}
	if len(view.TopPlatforms) == 0 || view.TopPlatforms[0].Projects == 0 {
		t.Fatalf("platform distribution missing: %+v", view.TopPlatforms)
	}
}

func TestDecodeRequestRejectsUnknownFields(t *testing.T) {
	var req api.SubmitJobRequest
	err := api.DecodeRequestBytes([]byte(`{"project_id":"p","type":"render","bitrate":1}`), &req)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
