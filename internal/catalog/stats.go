package catalog

import (
	"context"

	"novastudio/internal/services"
)

// Counts summarizes catalog row counts for the analytics endpoint.
type Counts struct {
	Projects  int `json:"projects"`
	Media     int `json:"media"`
	Brands    int `json:"brands"`
	Templates int `json:"templates"`
}

// CatalogCounts tallies rows per catalog table.
func (s *Store) CatalogCounts(ctx context.Context) (Counts, error) {
	var counts Counts
	for _, entry := range []struct {
		table string
		dest  *int
	}{
		{"projects", &counts.Projects},
		{"media", &counts.Media},
		{"brands", &counts.Brands},
		{"templates", &counts.Templates},
	} {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+entry.table).Scan(entry.dest); err != nil {
			return Counts{}, services.Wrap(services.ErrPersistence, "catalog", "counts", "", err)
		}
	}
	return counts, nil
}
