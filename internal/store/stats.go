package store

import (
	"context"
	"fmt"
)

// Stats holds catalog-wide counts
type Stats struct {
	Movies         int64 `json:"movies"`
	Series         int64 `json:"series"`
	WithExternalID int64 `json:"with_external_id"`
	Sources        int64 `json:"sources"`
	Genres         int64 `json:"genres"`
	Credits        int64 `json:"credits"`
	PendingReviews int64 `json:"pending_reviews"`
}

// GetStats returns catalog-wide counts
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	queries := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM entities WHERE media_type = 'movie'`, &stats.Movies},
		{`SELECT COUNT(*) FROM entities WHERE media_type = 'series'`, &stats.Series},
		{`SELECT COUNT(*) FROM entities WHERE external_id IS NOT NULL`, &stats.WithExternalID},
		{`SELECT COUNT(*) FROM sources`, &stats.Sources},
		{`SELECT COUNT(*) FROM genres`, &stats.Genres},
		{`SELECT COUNT(*) FROM credits`, &stats.Credits},
		{`SELECT COUNT(*) FROM review_queue WHERE resolved = 0`, &stats.PendingReviews},
	}

	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("stats query failed: %w", err)
		}
	}

	return stats, nil
}
