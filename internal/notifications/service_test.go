package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"novastudio/internal/config"
	"novastudio/internal/jobs"
	"novastudio/internal/notifications"
)

func sampleJob() *jobs.Job {
	return &jobs.Job{
		ID:        "job-1",
		ProjectID: "proj-1",
		Type:      jobs.TypeRender,
		Status:    jobs.StatusCompleted,
		OutputRef: "file:///artifacts/job-1.render.json",
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobCompleted(context.Background(), sampleJob(), "Launch teaser"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsJobCompleted(t *testing.T) {
	var captured struct {
		title    string
		tags     string
		priority string
		body     string
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		captured.body = string(body)
		_ = r.Body.Close()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.JobCompleted = true

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobCompleted(context.Background(), sampleJob(), "Launch teaser"); err != nil {
		t.Fatalf("notification returned error: %v", err)
	}

	if captured.title != "NovaStudio - Job Complete" {
		t.Fatalf("title = %q", captured.title)
	}
	if !strings.Contains(captured.body, "render job for Launch teaser") {
		t.Fatalf("body = %q", captured.body)
	}
	if !strings.Contains(captured.body, "file:///artifacts/job-1.render.json") {
		t.Fatalf("body missing output ref: %q", captured.body)
	}
	if captured.tags != "novastudio,job,completed" {
		t.Fatalf("tags = %q", captured.tags)
	}
	if captured.priority != "high" {
		t.Fatalf("priority = %q", captured.priority)
	}
}

func TestNtfyServiceHonorsEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.JobStarted = false
	cfg.Notifications.JobCancelled = false

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobStarted(context.Background(), sampleJob(), ""); err != nil {
		t.Fatalf("disabled event should be silently skipped, got %v", err)
	}
	if err := svc.NotifyJobCancelled(context.Background(), sampleJob(), ""); err != nil {
		t.Fatalf("disabled event should be silently skipped, got %v", err)
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Errors = true

	svc := notifications.NewService(&cfg)
	err := svc.NotifyError(context.Background(), io.ErrUnexpectedEOF, "scheduler")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected ntfy status error, got %v", err)
	}
}
