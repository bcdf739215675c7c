package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"novastudio/internal/config"
	"novastudio/internal/jobs"
)

const userAgent = "NovaStudio-Go/0.1.0"

// Service defines the notification surface exposed to the scheduler and daemon.
type Service interface {
	NotifyJobStarted(ctx context.Context, job *jobs.Job, projectTitle string) error
	NotifyJobCompleted(ctx context.Context, job *jobs.Job, projectTitle string) error
	NotifyJobFailed(ctx context.Context, job *jobs.Job, projectTitle string) error
	NotifyJobCancelled(ctx context.Context, job *jobs.Job, projectTitle string) error
	NotifyQueueDrained(ctx context.Context, completed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		events:   cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	events   config.Notifications
}

func jobLabel(job *jobs.Job, projectTitle string) string {
	projectTitle = strings.TrimSpace(projectTitle)
	if projectTitle == "" {
		projectTitle = job.ProjectID
	}
	return fmt.Sprintf("%s job for %s", job.Type, projectTitle)
}

func (n *ntfyService) NotifyJobStarted(ctx context.Context, job *jobs.Job, projectTitle string) error {
	if !n.events.JobStarted {
		return nil
	}
	data := payload{
		title:   "NovaStudio - Job Started",
		message: fmt.Sprintf("Started %s", jobLabel(job, projectTitle)),
		tags:    []string{"novastudio", "job", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, job *jobs.Job, projectTitle string) error {
	if !n.events.JobCompleted {
		return nil
	}
	message := fmt.Sprintf("Completed %s", jobLabel(job, projectTitle))
	if out := strings.TrimSpace(job.OutputRef); out != "" {
		message = fmt.Sprintf("%s\nOutput: %s", message, out)
	}
	data := payload{
		title:    "NovaStudio - Job Complete",
		message:  message,
		tags:     []string{"novastudio", "job", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, job *jobs.Job, projectTitle string) error {
	if !n.events.JobFailed {
		return nil
	}
	message := fmt.Sprintf("Failed %s", jobLabel(job, projectTitle))
	if detail := strings.TrimSpace(job.ErrorMessage); detail != "" {
		message = fmt.Sprintf("%s\n%s", message, detail)
	}
	data := payload{
		title:    "NovaStudio - Job Failed",
		message:  message,
		tags:     []string{"novastudio", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCancelled(ctx context.Context, job *jobs.Job, projectTitle string) error {
	if !n.events.JobCancelled {
		return nil
	}
	data := payload{
		title:   "NovaStudio - Job Cancelled",
		message: fmt.Sprintf("Cancelled %s", jobLabel(job, projectTitle)),
		tags:    []string{"novastudio", "job", "cancelled"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueDrained(ctx context.Context, completed, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if failed == 0 {
		title = "NovaStudio - Queue Drained"
		message = fmt.Sprintf("Queue drained: %d jobs completed in %s", completed, durationText)
	} else {
		title = "NovaStudio - Queue Drained (with errors)"
		message = fmt.Sprintf("Queue drained: %d completed, %d failed in %s", completed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"novastudio", "queue", "drained"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.events.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "NovaStudio - Error",
		message:  builder.String(),
		tags:     []string{"novastudio", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "NovaStudio - Test",
		message:  "Notification system test",
		tags:     []string{"novastudio", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobStarted(context.Context, *jobs.Job, string) error         { return nil }
func (noopService) NotifyJobCompleted(context.Context, *jobs.Job, string) error       { return nil }
func (noopService) NotifyJobFailed(context.Context, *jobs.Job, string) error          { return nil }
func (noopService) NotifyJobCancelled(context.Context, *jobs.Job, string) error       { return nil }
func (noopService) NotifyQueueDrained(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
