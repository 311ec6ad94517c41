package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arman/vod-catalog/internal/model"
	"github.com/arman/vod-catalog/internal/util"
)

// SourceRecord is one platform's listing for a canonical entity
type SourceRecord struct {
	ID          int64
	EntityID    int64
	Platform    string
	SourceID    string
	URL         string
	RawTitle    string
	RawPayload  string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// UpsertSourceRecord inserts or refreshes a platform listing, keyed by
// (platform, source id). Re-scrapes of the same listing update the raw
// title, url, payload and last-seen timestamp (last-write-wins).
// Returns whether this call created the row. The flag comes from the
// insert itself, so two workers racing on the same listing report
// exactly one creation.
func (s *Store) UpsertSourceRecord(ctx context.Context, tx *sql.Tx, entityID int64, rec model.ScrapedRecord) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO sources (entity_id, platform, source_id, url, raw_title, raw_payload, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(platform, source_id) DO NOTHING
	`, entityID, rec.Platform, rec.SourceID, rec.SourceURL, rec.Title,
		string(rec.RawPayload), rec.ScrapedAt)
	if err != nil {
		return false, fmt.Errorf("insert source record: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert source record: %w", err)
	}
	if inserted > 0 {
		return true, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sources SET entity_id = ?, url = ?, raw_title = ?,
		  raw_payload = ?, last_seen_at = ?
		WHERE platform = ? AND source_id = ?
	`, entityID, rec.SourceURL, rec.Title, string(rec.RawPayload),
		rec.ScrapedAt, rec.Platform, rec.SourceID)
	if err != nil {
		return false, fmt.Errorf("refresh source record: %w", err)
	}
	return false, nil
}

// SourcesFor returns the platform listings attached to an entity
func (s *Store) SourcesFor(ctx context.Context, entityID int64) ([]*SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_id, platform, source_id, COALESCE(url, ''),
		       COALESCE(raw_title, ''), COALESCE(raw_payload, ''),
		       first_seen_at, last_seen_at
		FROM sources WHERE entity_id = ? ORDER BY platform, source_id
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("sources for entity %d: %w", entityID, err)
	}
	defer rows.Close()

	var records []*SourceRecord
	for rows.Next() {
		var r SourceRecord
		// last_seen_at is selected raw and coalesced here: a COALESCE()
		// expression has no declared column type, so the driver hands back
		// text that cannot scan into time.Time
		var lastSeen sql.NullTime
		if err := rows.Scan(&r.ID, &r.EntityID, &r.Platform, &r.SourceID,
			&r.URL, &r.RawTitle, &r.RawPayload, &r.FirstSeenAt, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan source record: %w", err)
		}
		if lastSeen.Valid {
			r.LastSeenAt = lastSeen.Time
		} else {
			r.LastSeenAt = r.FirstSeenAt
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// GetSourceRecord fetches one listing by its platform key
func (s *Store) GetSourceRecord(ctx context.Context, platform, sourceID string) (*SourceRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entity_id, platform, source_id, COALESCE(url, ''),
		       COALESCE(raw_title, ''), COALESCE(raw_payload, ''),
		       first_seen_at, last_seen_at
		FROM sources WHERE platform = ? AND source_id = ?
	`, platform, sourceID)

	var r SourceRecord
	var lastSeen sql.NullTime
	err := row.Scan(&r.ID, &r.EntityID, &r.Platform, &r.SourceID,
		&r.URL, &r.RawTitle, &r.RawPayload, &r.FirstSeenAt, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get source record %s/%s: %w", platform, sourceID, err)
	}
	if lastSeen.Valid {
		r.LastSeenAt = lastSeen.Time
	} else {
		r.LastSeenAt = r.FirstSeenAt
	}
	return &r, nil
}
