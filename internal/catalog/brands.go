package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"novastudio/internal/services"
)

// Brand is a reusable visual identity attached to projects.
type Brand struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	PrimaryColor   string    `json:"primary_color,omitempty"`
	SecondaryColor string    `json:"secondary_color,omitempty"`
	FontFamily     string    `json:"font_family,omitempty"`
	LogoURL        string    `json:"logo_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Template is a starting layout projects can be created from.
type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	Aspect      string    `json:"aspect,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateBrand persists a new brand.
func (s *Store) CreateBrand(ctx context.Context, brand *Brand) error {
	if brand == nil {
		return errors.New("brand is nil")
	}
	brand.CreatedAt = time.Now().UTC()
	_, err := s.execWithRetry(ctx,
		`INSERT INTO brands (id, name, primary_color, secondary_color, font_family, logo_url, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		brand.ID,
		brand.Name,
		nullableString(brand.PrimaryColor),
		nullableString(brand.SecondaryColor),
		nullableString(brand.FontFamily),
		nullableString(brand.LogoURL),
		brand.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "catalog", "create brand", "", err)
	}
	return nil
}

// ListBrands returns all brands, newest first.
func (s *Store) ListBrands(ctx context.Context) ([]*Brand, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, primary_color, secondary_color, font_family, logo_url, created_at
         FROM brands ORDER BY created_at DESC`)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "list brands", "", err)
	}
	defer rows.Close()

	var brands []*Brand
	for rows.Next() {
		var (
			brand      Brand
			primary    sql.NullString
			secondary  sql.NullString
			fontFamily sql.NullString
			logoURL    sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&brand.ID, &brand.Name, &primary, &secondary, &fontFamily, &logoURL, &createdRaw); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "catalog", "list brands", "", err)
		}
		brand.PrimaryColor = primary.String
		brand.SecondaryColor = secondary.String
		brand.FontFamily = fontFamily.String
		brand.LogoURL = logoURL.String
		if created, err := parseTimeString(createdRaw); err == nil {
			brand.CreatedAt = created
		}
		brands = append(brands, &brand)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "list brands", "", err)
	}
	return brands, nil
}

// CreateTemplate persists a new template.
func (s *Store) CreateTemplate(ctx context.Context, template *Template) error {
	if template == nil {
		return errors.New("template is nil")
	}
	template.CreatedAt = time.Now().UTC()
	_, err := s.execWithRetry(ctx,
		`INSERT INTO templates (id, name, category, description, aspect, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		template.ID,
		template.Name,
		nullableString(template.Category),
		nullableString(template.Description),
		nullableString(template.Aspect),
		template.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "catalog", "create template", "", err)
	}
	return nil
}

// ListTemplates returns all templates, newest first.
func (s *Store) ListTemplates(ctx context.Context) ([]*Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, category, description, aspect, created_at
         FROM templates ORDER BY created_at DESC`)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "list templates", "", err)
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		var (
			template    Template
			category    sql.NullString
			description sql.NullString
			aspect      sql.NullString
			createdRaw  string
		)
		if err := rows.Scan(&template.ID, &template.Name, &category, &description, &aspect, &createdRaw); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "catalog", "list templates", "", err)
		}
		template.Category = category.String
		template.Description = description.String
		template.Aspect = aspect.String
		if created, err := parseTimeString(createdRaw); err == nil {
			template.CreatedAt = created
		}
		templates = append(templates, &template)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "list templates", "", err)
	}
	return templates, nil
}
