package api

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"novastudio/internal/jobs"
	"novastudio/internal/media"
)

var titleCaser = cases.Title(language.English)

// ProjectView is the wire shape of a project.
type ProjectView struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	BrandID     string         `json:"brand_id,omitempty"`
	TemplateID  string         `json:"template_id,omitempty"`
	Timeline    media.Timeline `json:"timeline"`
	MediaIDs    []string       `json:"media_ids,omitempty"`
	Settings    media.Settings `json:"settings"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewProjectView converts a catalog row to its wire shape.
func NewProjectView(project *media.Project) ProjectView {
	return ProjectView{
		ID:          project.ID,
		Title:       project.Title,
		Description: project.Description,
		BrandID:     project.BrandID,
		TemplateID:  project.TemplateID,
		Timeline:    project.Timeline,
		MediaIDs:    project.MediaIDs,
		Settings:    project.Settings,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

// MediaView is the wire shape of a media asset.
type MediaView struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	SourceURL string            `json:"source_url,omitempty"`
	Filename  string            `json:"filename,omitempty"`
	Language  string            `json:"language,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMediaView converts a catalog row to its wire shape. Transcripts are
// omitted from list responses; fetch the asset for the full record.
func NewMediaView(asset *media.Media) MediaView {
	return MediaView{
		ID:        asset.ID,
		Kind:      string(asset.Kind),
		SourceURL: asset.SourceURL,
		Filename:  asset.Filename,
		Language:  asset.Language,
		Metadata:  asset.Metadata,
		CreatedAt: asset.CreatedAt,
	}
}

// JobView is the wire shape of a render job.
type JobView struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id"`
	Type            string     `json:"type"`
	TypeLabel       string     `json:"type_label"`
	Status          string     `json:"status"`
	Progress        int        `json:"progress"`
	ProgressMessage string     `json:"progress_message,omitempty"`
	OutputRef       string     `json:"output_ref,omitempty"`
	ErrorKind       string     `json:"error_kind,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	Attempts        int        `json:"attempts"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	RunAfter        *time.Time `json:"run_after,omitempty"`
}

// NewJobView converts a job record to its wire shape.
func NewJobView(job *jobs.Job) JobView {
	view := JobView{
		ID:              job.ID,
		ProjectID:       job.ProjectID,
		Type:            string(job.Type),
		TypeLabel:       titleCaser.String(string(job.Type)),
		Status:          string(job.Status),
		Progress:        job.Progress,
		ProgressMessage: job.ProgressMessage,
		OutputRef:       job.OutputRef,
		ErrorKind:       string(job.ErrorKind),
		ErrorMessage:    job.ErrorMessage,
		Attempts:        job.Attempts,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
	if job.Status == jobs.StatusQueued && job.RunAfter.After(job.CreatedAt) {
		runAfter := job.RunAfter
		view.RunAfter = &runAfter
	}
	return view
}

// AnalyticsView aggregates catalog and job activity. Unlike a static report
// this is computed from the stores on every request.
type AnalyticsView struct {
	Projects      int            `json:"projects"`
	MediaAssets   int            `json:"media_assets"`
	Brands        int            `json:"brands"`
	Templates     int            `json:"templates"`
	JobsByStatus  map[string]int `json:"jobs_by_status"`
	JobsByType    map[string]int `json:"jobs_by_type"`
	TopPlatforms  []PlatformStat `json:"top_platforms"`
	SuccessRate   float64        `json:"success_rate"`
	TotalFinished int            `json:"total_finished"`
}

// PlatformStat counts projects targeting a platform.
type PlatformStat struct {
	Name     string `json:"name"`
	Projects int    `json:"projects"`
}

// StatusView is the daemon status payload.
type StatusView struct {
	Running      bool           `json:"running"`
	LastError    string         `json:"last_error,omitempty"`
	QueueStats   map[string]int `json:"queue_stats"`
	WorkerHealth []WorkerHealth `json:"worker_health"`
	LastJob      *JobView       `json:"last_job,omitempty"`
}

// WorkerHealth mirrors worker readiness for the status payload.
type WorkerHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}
