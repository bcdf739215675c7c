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

const mediaColumns = "id, kind, source_url, filename, transcript, language, metadata_json, created_at, updated_at"

// CreateMedia persists a new media asset.
func (s *Store) CreateMedia(ctx context.Context, asset *media.Media) error {
	if asset == nil {
		return errors.New("media is nil")
	}
	now := time.Now().UTC()
	asset.CreatedAt = now
	asset.UpdatedAt = now

	metadataJSON, err := json.Marshal(asset.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.execWithRetry(ctx,
		`INSERT INTO media (`+mediaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.ID,
		asset.Kind,
		nullableString(asset.SourceURL),
		nullableString(asset.Filename),
		nullableString(asset.Transcript),
		nullableString(asset.Language),
		string(metadataJSON),
		asset.CreatedAt.Format(time.RFC3339Nano),
		asset.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "catalog", "create media", "", err)
	}
	return nil
}

// GetMedia fetches a media asset by identifier. A missing asset yields (nil, nil).
func (s *Store) GetMedia(ctx context.Context, id string) (*media.Media, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
	asset, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "get media", "", err)
	}
	return asset, nil
}

// ListMedia returns media assets, optionally filtered by kind, newest first.
func (s *Store) ListMedia(ctx context.Context, kind media.Kind) ([]*media.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "list media", "", err)
	}
	defer rows.Close()

	var assets []*media.Media
	for rows.Next() {
		asset, err := scanMedia(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "catalog", "list media", "", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "list media", "", err)
	}
	return assets, nil
}

func scanMedia(scanner interface{ Scan(dest ...any) error }) (*media.Media, error) {
	var (
		id           string
		kind         string
		sourceURL    sql.NullString
		filename     sql.NullString
		transcript   sql.NullString
		languageTag  sql.NullString
		metadataJSON sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&id, &kind, &sourceURL, &filename, &transcript, &languageTag,
		&metadataJSON, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	asset := &media.Media{
		ID:         id,
		Kind:       media.Kind(kind),
		SourceURL:  sourceURL.String,
		Filename:   filename.String,
		Transcript: transcript.String,
		Language:   languageTag.String,
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &asset.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		asset.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		asset.UpdatedAt = updated
	}
	return asset, nil
}
