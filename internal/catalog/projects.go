package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"novastudio/internal/media"
	"novastudio/internal/services"
)

const projectColumns = "id, title, description, brand_id, template_id, timeline_json, media_ids_json, settings_json, created_at, updated_at"

// CreateProject persists a new project. CreatedAt/UpdatedAt are set here.
func (s *Store) CreateProject(ctx context.Context, project *media.Project) error {
	if project == nil {
		return errors.New("project is nil")
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	timelineJSON, mediaIDsJSON, settingsJSON, err := encodeProjectColumns(project)
	if err != nil {
		return err
	}

	_, err = s.execWithRetry(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.Title,
		nullableString(project.Description),
		nullableString(project.BrandID),
		nullableString(project.TemplateID),
		timelineJSON,
		mediaIDsJSON,
		settingsJSON,
		project.CreatedAt.Format(time.RFC3339Nano),
		project.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "catalog", "create project", "", err)
	}
	return nil
}

// UpdateProject replaces the stored project row. Missing projects are an error;
// projects are never created implicitly by an update.
func (s *Store) UpdateProject(ctx context.Context, project *media.Project) error {
	if project == nil {
		return errors.New("project is nil")
	}
	project.UpdatedAt = time.Now().UTC()

	timelineJSON, mediaIDsJSON, settingsJSON, err := encodeProjectColumns(project)
	if err != nil {
		return err
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE projects SET title = ?, description = ?, brand_id = ?, template_id = ?,
            timeline_json = ?, media_ids_json = ?, settings_json = ?, updated_at = ?
         WHERE id = ?`,
		project.Title,
		nullableString(project.Description),
		nullableString(project.BrandID),
		nullableString(project.TemplateID),
		timelineJSON,
		mediaIDsJSON,
		settingsJSON,
		project.UpdatedAt.Format(time.RFC3339Nano),
		project.ID,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "catalog", "update project", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrPersistence, "catalog", "update project", "", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "catalog", "update project",
			fmt.Sprintf("project %s not found", project.ID), nil)
	}
	return nil
}

// GetProject fetches a project by identifier. A missing project yields (nil, nil).
func (s *Store) GetProject(ctx context.Context, id string) (*media.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "get project", "", err)
	}
	return project, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]*media.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "list projects", "", err)
	}
	defer rows.Close()

	var projects []*media.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "catalog", "list projects", "", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "list projects", "", err)
	}
	return projects, nil
}

// ProjectMedia resolves the media records a project references. Unknown ids
// are skipped; timeline validation reports them separately.
func (s *Store) ProjectMedia(ctx context.Context, project *media.Project) (map[string]media.Media, error) {
	ids := project.MediaIDSet()
	if len(ids) == 0 {
		return map[string]media.Media{}, nil
	}
	ordered := make([]any, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE id IN (`+makePlaceholders(len(ordered))+`)`,
		ordered...)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "project media", "", err)
	}
	defer rows.Close()

	assets := make(map[string]media.Media, len(ordered))
	for rows.Next() {
		asset, err := scanMedia(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "catalog", "project media", "", err)
		}
		assets[asset.ID] = *asset
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "project media", "", err)
	}
	return assets, nil
}

func encodeProjectColumns(project *media.Project) (string, string, string, error) {
	timelineJSON, err := json.Marshal(project.Timeline)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal timeline: %w", err)
	}
	mediaIDsJSON, err := json.Marshal(project.MediaIDs)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal media ids: %w", err)
	}
	settingsJSON, err := json.Marshal(project.Settings)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal settings: %w", err)
	}
	return string(timelineJSON), string(mediaIDsJSON), string(settingsJSON), nil
}

func scanProject(scanner interface{ Scan(dest ...any) error }) (*media.Project, error) {
	var (
		id           string
		title        string
		description  sql.NullString
		brandID      sql.NullString
		templateID   sql.NullString
		timelineJSON sql.NullString
		mediaIDsJSON sql.NullString
		settingsJSON sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&id, &title, &description, &brandID, &templateID,
		&timelineJSON, &mediaIDsJSON, &settingsJSON,
		&createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	project := &media.Project{
		ID:          id,
		Title:       title,
		Description: description.String,
		BrandID:     brandID.String,
		TemplateID:  templateID.String,
	}
	if timelineJSON.Valid && timelineJSON.String != "" {
		if err := json.Unmarshal([]byte(timelineJSON.String), &project.Timeline); err != nil {
			return nil, fmt.Errorf("unmarshal timeline: %w", err)
		}
	}
	if mediaIDsJSON.Valid && mediaIDsJSON.String != "" {
		if err := json.Unmarshal([]byte(mediaIDsJSON.String), &project.MediaIDs); err != nil {
			return nil, fmt.Errorf("unmarshal media ids: %w", err)
		}
	}
	if settingsJSON.Valid && settingsJSON.String != "" {
		if err := json.Unmarshal([]byte(settingsJSON.String), &project.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		project.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		project.UpdatedAt = updated
	}
	return project, nil
}
