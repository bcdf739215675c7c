// Package api is the view/service layer shared by the daemon's HTTP handlers
// and the CLI: request validation, store access, and wire shapes.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"novastudio/internal/catalog"
	"novastudio/internal/jobs"
	"novastudio/internal/logging"
	"novastudio/internal/media"
	"novastudio/internal/scheduler"
	"novastudio/internal/services"
)

// Service exposes catalog and job operations to the HTTP boundary.
type Service struct {
	catalog *catalog.Store
	store   *jobs.Store
	sched   *scheduler.Scheduler
	logger  *slog.Logger
}

// NewService wires the service layer.
func NewService(cat *catalog.Store, store *jobs.Store, sched *scheduler.Scheduler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		catalog: cat,
		store:   store,
		sched:   sched,
		logger:  logger.With(logging.String(logging.FieldComponent, "api")),
	}
}

// CreateProject validates and stores a new project.
func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest) (ProjectView, error) {
	project := &media.Project{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		BrandID:     req.BrandID,
		TemplateID:  req.TemplateID,
		Timeline:    req.Timeline,
		MediaIDs:    req.MediaIDs,
	}
	if req.Settings != nil {
		project.Settings = *req.Settings
	} else {
		project.Settings = media.DefaultSettings()
	}
	if err := project.Validate(); err != nil {
		return ProjectView{}, err
	}
	if err := s.catalog.CreateProject(ctx, project); err != nil {
		return ProjectView{}, err
	}
	return NewProjectView(project), nil
}

// UpdateProject replaces a project's mutable fields.
func (s *Service) UpdateProject(ctx context.Context, id string, req UpdateProjectRequest) (ProjectView, error) {
	project, err := s.catalog.GetProject(ctx, id)
	if err != nil {
		return ProjectView{}, err
	}
	if project == nil {
		return ProjectView{}, services.Wrap(services.ErrNotFound, "api", "update project",
			fmt.Sprintf("project %s not found", id), nil)
	}

	project.Title = strings.TrimSpace(req.Title)
	project.Description = req.Description
	project.BrandID = req.BrandID
	project.TemplateID = req.TemplateID
	project.Timeline = req.Timeline
	project.MediaIDs = req.MediaIDs
	if req.Settings != nil {
		project.Settings = *req.Settings
	}
	if err := project.Validate(); err != nil {
		return ProjectView{}, err
	}
	if err := s.catalog.UpdateProject(ctx, project); err != nil {
		return ProjectView{}, err
	}
	return NewProjectView(project), nil
}

// GetProject fetches one project.
func (s *Service) GetProject(ctx context.Context, id string) (ProjectView, error) {
	project, err := s.catalog.GetProject(ctx, id)
	if err != nil {
		return ProjectView{}, err
	}
	if project == nil {
		return ProjectView{}, services.Wrap(services.ErrNotFound, "api", "get project",
			fmt.Sprintf("project %s not found", id), nil)
	}
	return NewProjectView(project), nil
}

// ListProjects returns all projects, newest first.
func (s *Service) ListProjects(ctx context.Context) ([]ProjectView, error) {
	projects, err := s.catalog.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]ProjectView, 0, len(projects))
	for _, project := range projects {
		views = append(views, NewProjectView(project))
	}
	return views, nil
}

// CreateMedia registers a media asset.
func (s *Service) CreateMedia(ctx context.Context, req CreateMediaRequest) (MediaView, error) {
	kind, ok := media.ParseKind(req.Kind)
	if !ok {
		return MediaView{}, invalidField("kind", fmt.Sprintf("unknown media kind %q", req.Kind))
	}
	asset := &media.Media{
		ID:         uuid.NewString(),
		Kind:       kind,
		SourceURL:  req.SourceURL,
		Filename:   req.Filename,
		Transcript: req.Transcript,
		Language:   req.Language,
		Metadata:   req.Metadata,
	}
	if err := s.catalog.CreateMedia(ctx, asset); err != nil {
		return MediaView{}, err
	}
	return NewMediaView(asset), nil
}

// ListMedia returns media assets, optionally filtered by kind.
func (s *Service) ListMedia(ctx context.Context, kindFilter string) ([]MediaView, error) {
	var kind media.Kind
	if kindFilter != "" {
		parsed, ok := media.ParseKind(kindFilter)
		if !ok {
			return nil, invalidField("kind", fmt.Sprintf("unknown media kind %q", kindFilter))
		}
		kind = parsed
	}
	assets, err := s.catalog.ListMedia(ctx, kind)
	if err != nil {
		return nil, err
	}
	views := make([]MediaView, 0, len(assets))
	for _, asset := range assets {
		views = append(views, NewMediaView(asset))
	}
	return views, nil
}

// CreateBrand registers a brand.
func (s *Service) CreateBrand(ctx context.Context, req CreateBrandRequest) (*catalog.Brand, error) {
	brand := &catalog.Brand{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(req.Name),
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
		FontFamily:     req.FontFamily,
		LogoURL:        req.LogoURL,
	}
	if err := s.catalog.CreateBrand(ctx, brand); err != nil {
		return nil, err
	}
	return brand, nil
}

// ListBrands returns all brands.
func (s *Service) ListBrands(ctx context.Context) ([]*catalog.Brand, error) {
	return s.catalog.ListBrands(ctx)
}

// CreateTemplate registers a template.
func (s *Service) CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*catalog.Template, error) {
	template := &catalog.Template{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Category:    req.Category,
		Description: req.Description,
		Aspect:      req.Aspect,
	}
	if err := s.catalog.CreateTemplate(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

// ListTemplates returns all templates.
func (s *Service) ListTemplates(ctx context.Context) ([]*catalog.Template, error) {
	return s.catalog.ListTemplates(ctx)
}

// SubmitJob validates and enqueues a job through the scheduler.
func (s *Service) SubmitJob(ctx context.Context, req SubmitJobRequest) (JobView, error) {
	jobType, ok := jobs.ParseType(req.Type)
	if !ok {
		return JobView{}, invalidField("type", fmt.Sprintf("unknown job type %q", req.Type))
	}
	job, err := s.sched.Submit(ctx, req.ProjectID, jobType, req.Params)
	if err != nil {
		return JobView{}, err
	}
	return NewJobView(job), nil
}

// GetJob fetches one job.
func (s *Service) GetJob(ctx context.Context, id string) (JobView, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return JobView{}, err
	}
	if job == nil {
		return JobView{}, services.Wrap(services.ErrNotFound, "api", "get job",
			fmt.Sprintf("job %s not found", id), nil)
	}
	return NewJobView(job), nil
}

// ListJobs returns jobs matching the filter, newest first.
func (s *Service) ListJobs(ctx context.Context, projectID, status string, limit int) ([]JobView, error) {
	filter := jobs.Filter{ProjectID: projectID, Limit: limit}
	if status != "" {
		parsed, ok := jobs.ParseStatus(status)
		if !ok {
			return nil, invalidField("status", fmt.Sprintf("unknown status %q", status))
		}
		filter.Statuses = []jobs.Status{parsed}
	}
	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]JobView, 0, len(list))
	for _, job := range list {
		views = append(views, NewJobView(job))
	}
	return views, nil
}

// CancelJob requests job cancellation through the scheduler.
func (s *Service) CancelJob(ctx context.Context, id string) (JobView, error) {
	job, err := s.sched.Cancel(ctx, id)
	if err != nil {
		return JobView{}, err
	}
	return NewJobView(job), nil
}

// Status reports scheduler and queue diagnostics.
func (s *Service) Status(ctx context.Context) StatusView {
	summary := s.sched.Status(ctx)
	view := StatusView{
		Running:    summary.Running,
		LastError:  summary.LastError,
		QueueStats: make(map[string]int, len(summary.QueueStats)),
	}
	for status, count := range summary.QueueStats {
		view.QueueStats[string(status)] = count
	}
	for _, health := range summary.WorkerHealth {
		view.WorkerHealth = append(view.WorkerHealth, WorkerHealth{
			Name:   health.Name,
			Ready:  health.Ready,
			Detail: health.Detail,
		})
	}
	if summary.LastJob != nil {
		last := NewJobView(summary.LastJob)
		view.LastJob = &last
	}
	return view
}

// Analytics aggregates catalog and job activity from the stores.
func (s *Service) Analytics(ctx context.Context) (AnalyticsView, error) {
	counts, err := s.catalog.CatalogCounts(ctx)
	if err != nil {
		return AnalyticsView{}, err
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return AnalyticsView{}, err
	}

	view := AnalyticsView{
		Projects:     counts.Projects,
		MediaAssets:  counts.Media,
		Brands:       counts.Brands,
		Templates:    counts.Templates,
		JobsByStatus: make(map[string]int, len(stats)),
		JobsByType:   make(map[string]int),
	}
	for status, count := range stats {
		view.JobsByStatus[string(status)] = count
	}

	for job, err := range s.store.Jobs(ctx, jobs.Filter{}) {
		if err != nil {
			return AnalyticsView{}, err
		}
		view.JobsByType[string(job.Type)]++
	}

	completed := view.JobsByStatus[string(jobs.StatusCompleted)]
	failed := view.JobsByStatus[string(jobs.StatusFailed)]
	view.TotalFinished = completed + failed
	if view.TotalFinished > 0 {
		view.SuccessRate = float64(completed) / float64(view.TotalFinished)
	}

	projects, err := s.catalog.ListProjects(ctx)
	if err != nil {
		return AnalyticsView{}, err
	}
	platformCounts := make(map[string]int)
	for _, project := range projects {
		for _, platform := range project.Settings.Platforms {
			platformCounts[titleCaser.String(string(platform))]++
		}
	}
	for name, count := range platformCounts {
		view.TopPlatforms = append(view.TopPlatforms, PlatformStat{Name: name, Projects: count})
	}
	sort.Slice(view.TopPlatforms, func(i, j int) bool {
		if view.TopPlatforms[i].Projects != view.TopPlatforms[j].Projects {
			return view.TopPlatforms[i].Projects > view.TopPlatforms[j].Projects
		}
		return view.TopPlatforms[i].Name < view.TopPlatforms[j].Name
	})
	return view, nil
}
