package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/arman/vod-catalog/internal/normalize"
	"github.com/arman/vod-catalog/internal/util"
)

func collectEntities(rows *sql.Rows) ([]*Entity, error) {
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// CandidatesForKey returns plausible existing entities for a comparison key,
// ordered strongest-signal first and bounded in size so the fuzzy pass stays
// cheap. Retrieval order:
//
//	a) exact external-id match (at most one row; more is a data-integrity
//	   violation reported as ErrAmbiguous)
//	b) exact normalized-title + year + media-type match
//	c) substring scan over normalized titles of the same media type,
//	   within the year tolerance when the record carries a year
//
// An empty result is not an error.
func (s *Store) CandidatesForKey(ctx context.Context, key normalize.Key, bound, yearTolerance int) ([]*Entity, error) {
	if bound <= 0 {
		bound = 100
	}

	seen := make(map[int64]bool)
	var candidates []*Entity

	add := func(e *Entity) {
		if e != nil && !seen[e.ID] {
			seen[e.ID] = true
			candidates = append(candidates, e)
		}
	}

	// (a) external id
	if key.ExternalID != "" {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+entityColumns+` FROM entities WHERE external_id = ?`, key.ExternalID)
		if err != nil {
			return nil, fmt.Errorf("external-id candidates: %w", err)
		}
		matched, err := collectEntities(rows)
		if err != nil {
			return nil, err
		}
		if len(matched) > 1 {
			// The unique index should make this impossible; if it shows up
			// anyway the data is damaged and no automatic merge is safe
			ids := make([]string, len(matched))
			for i, e := range matched {
				ids[i] = fmt.Sprintf("%d", e.ID)
			}
			util.ErrorLog("Data integrity violation: external id %s on entities [%s]",
				key.ExternalID, strings.Join(ids, ", "))
			return matched, fmt.Errorf("%w: duplicate rows for external id %s", util.ErrAmbiguous, key.ExternalID)
		}
		for _, e := range matched {
			add(e)
		}
	}

	// (b) exact composite key, with or without an attached external id
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entityColumns+` FROM entities
		WHERE normalized_title = ? AND media_type = ? AND year = ?
	`, key.NormalizedTitle, key.MediaType, key.Year)
	if err != nil {
		return nil, fmt.Errorf("composite-key candidates: %w", err)
	}
	exact, err := collectEntities(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range exact {
		add(e)
	}

	// (c) fuzzy candidates: similar titles, same media type, near year.
	// Unknown years (0) stay in the pool; only a concrete mismatch
	// disqualifies, and that final call belongs to the matcher.
	query := `
		SELECT ` + entityColumns + ` FROM entities
		WHERE media_type = ? AND normalized_title LIKE ?
	`
	args := []any{key.MediaType, "%" + likeToken(key.NormalizedTitle) + "%"}
	if key.Year > 0 {
		query += ` AND (year = 0 OR (year >= ? AND year <= ?))`
		args = append(args, key.Year-yearTolerance, key.Year+yearTolerance)
	}
	query += ` ORDER BY CASE WHEN year = ? THEN 0 WHEN year = 0 THEN 2 ELSE 1 END, id LIMIT ?`
	args = append(args, key.Year, bound)

	rows, err = s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fuzzy candidates: %w", err)
	}
	fuzzy, err := collectEntities(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range fuzzy {
		if len(candidates) >= bound {
			break
		}
		add(e)
	}

	return candidates, nil
}

// likeToken picks the longest token of the normalized title as the LIKE
// probe; the full similarity decision happens in the matcher, this only
// keeps the candidate pool small
func likeToken(normalizedTitle string) string {
	best := ""
	for _, token := range strings.Fields(normalizedTitle) {
		if len(token) > len(best) {
			best = token
		}
	}
	if best == "" {
		return normalizedTitle
	}
	return best
}
