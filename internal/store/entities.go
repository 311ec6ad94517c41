package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arman/vod-catalog/internal/model"
	"github.com/arman/vod-catalog/internal/normalize"
	"github.com/arman/vod-catalog/internal/util"
)

// Entity is one canonical title, deduplicated across all platforms
type Entity struct {
	ID              int64
	MediaType       model.MediaType
	NormalizedTitle string
	DisplayTitle    string
	Year            int    // 0 = unknown
	ExternalID      string // "" = none attached yet
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const entityColumns = `id, media_type, normalized_title, display_title, year,
	COALESCE(external_id, ''), created_at, updated_at`

func scanEntity(row interface{ Scan(...any) error }) (*Entity, error) {
	var e Entity
	var mediaType string
	// updated_at is selected raw and coalesced here: a COALESCE() expression
	// has no declared column type, so the driver hands back text that cannot
	// scan into time.Time
	var updatedAt sql.NullTime
	err := row.Scan(&e.ID, &mediaType, &e.NormalizedTitle, &e.DisplayTitle,
		&e.Year, &e.ExternalID, &e.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	e.MediaType = model.MediaType(mediaType)
	if updatedAt.Valid {
		e.UpdatedAt = updatedAt.Time
	} else {
		e.UpdatedAt = e.CreatedAt
	}
	return &e, nil
}

// GetOrCreateEntity is the atomic, concurrency-safe upsert at the heart of
// the resolution protocol. Under concurrent calls with equivalent keys,
// exactly one entity is created and every caller receives the same row;
// the guarantee comes from the storage-level unique indexes plus
// re-read-on-conflict, so it holds across separate processes too.
// Returns the entity and whether this call created it.
func (s *Store) GetOrCreateEntity(ctx context.Context, key normalize.Key, displayTitle string) (*Entity, bool, error) {
	if displayTitle == "" {
		displayTitle = key.NormalizedTitle
	}

	// A winner found by the re-read can in principle be purged by an
	// external administrative delete between our insert and select, so
	// the insert+select pair is attempted a bounded number of times.
	for attempt := 0; attempt < 3; attempt++ {
		var res sql.Result
		var err error

		if key.ExternalID != "" {
			res, err = s.db.ExecContext(ctx, `
				INSERT INTO entities (media_type, normalized_title, display_title, year, external_id)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(external_id) WHERE external_id IS NOT NULL DO NOTHING
			`, key.MediaType, key.NormalizedTitle, displayTitle, key.Year, key.ExternalID)
		} else {
			res, err = s.db.ExecContext(ctx, `
				INSERT INTO entities (media_type, normalized_title, display_title, year, external_id)
				VALUES (?, ?, ?, ?, NULL)
				ON CONFLICT(normalized_title, media_type, year) WHERE external_id IS NULL DO NOTHING
			`, key.MediaType, key.NormalizedTitle, displayTitle, key.Year)
		}
		if err != nil {
			return nil, false, fmt.Errorf("insert entity: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return nil, false, fmt.Errorf("rows affected: %w", err)
		}

		if rows == 1 {
			id, err := res.LastInsertId()
			if err != nil {
				return nil, false, fmt.Errorf("last insert id: %w", err)
			}
			entity, err := s.GetEntityByID(ctx, id)
			if err != nil {
				return nil, false, err
			}
			return entity, true, nil
		}

		// Conflict: another worker won the race. Re-read the winner.
		var winner *Entity
		if key.ExternalID != "" {
			winner, err = s.GetEntityByExternalID(ctx, key.ExternalID)
		} else {
			winner, err = s.GetEntityByCompositeKey(ctx, key)
		}
		if err == nil {
			return winner, false, nil
		}
		if !errors.Is(err, util.ErrNotFound) {
			return nil, false, err
		}
		// Winner vanished between insert and select; try again
	}

	return nil, false, fmt.Errorf("%w: entity for %q kept vanishing during get-or-create", util.ErrConflict, key.NormalizedTitle)
}

// GetEntityByID fetches an entity by canonical id
func (s *Store) GetEntityByID(ctx context.Context, id int64) (*Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	entity, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entity %d: %w", id, err)
	}
	return entity, nil
}

// GetEntityByExternalID fetches the entity carrying the given external id
func (s *Store) GetEntityByExternalID(ctx context.Context, externalID string) (*Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE external_id = ?`, externalID)
	entity, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entity by external id %s: %w", externalID, err)
	}
	return entity, nil
}

// GetEntityByCompositeKey fetches the keyless entity matching the
// normalized title + year + media type
func (s *Store) GetEntityByCompositeKey(ctx context.Context, key normalize.Key) (*Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entityColumns+` FROM entities
		WHERE normalized_title = ? AND media_type = ? AND year = ? AND external_id IS NULL
	`, key.NormalizedTitle, key.MediaType, key.Year)
	entity, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entity by composite key: %w", err)
	}
	return entity, nil
}

// UpgradeEntityExternalID attaches an external id to an entity that was
// matched by title-based criteria only (identity upgrade). The guarded
// UPDATE runs under the same uniqueness constraint as creation: if another
// entity already owns the id, the constraint fires and ErrConflict is
// returned for the caller to resolve (duplicate-external-id review case).
// Returns whether the id was adopted by this call.
func (s *Store) UpgradeEntityExternalID(ctx context.Context, id int64, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE entities SET external_id = ?, updated_at = ?
		WHERE id = ? AND external_id IS NULL
	`, externalID, time.Now(), id)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "constraint failed") {
			return false, fmt.Errorf("%w: external id %s already attached to another entity", util.ErrConflict, externalID)
		}
		return false, fmt.Errorf("upgrade entity %d: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// TouchEntity applies last-write-wins refresh of the mutable display title
func (s *Store) TouchEntity(ctx context.Context, id int64, displayTitle string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE entities SET display_title = ?, updated_at = ? WHERE id = ?
	`, displayTitle, time.Now(), id)
	if err != nil {
		return fmt.Errorf("touch entity %d: %w", id, err)
	}
	return nil
}

// ListEntities returns entities of the given media type, newest first.
// year = 0 means no year filter.
func (s *Store) ListEntities(ctx context.Context, mediaType model.MediaType, year, limit, offset int) ([]*Entity, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + entityColumns + ` FROM entities WHERE media_type = ?`
	args := []any{mediaType}
	if year > 0 {
		query += ` AND year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
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
