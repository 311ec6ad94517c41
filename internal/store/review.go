package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arman/vod-catalog/internal/model"
)

// Review reasons
const (
	ReviewReasonFuzzyTie            = "fuzzy-tie"
	ReviewReasonDuplicateExternalID = "duplicate-external-id"
	ReviewReasonUpgradeConflict     = "upgrade-conflict"
)

// ReviewEntry is an ambiguous match parked for manual resolution.
// Ambiguity is never resolved automatically: the record is persisted as
// neither a duplicate nor a merge until a human decides.
type ReviewEntry struct {
	ID           int64
	Platform     string
	SourceID     string
	RawTitle     string
	Year         int
	MediaType    model.MediaType
	Reason       string
	CandidateIDs []int64
	Details      string
	Resolved     bool
	CreatedAt    time.Time
}

// AddReviewEntry records an ambiguous match for manual review
func (s *Store) AddReviewEntry(ctx context.Context, rec model.ScrapedRecord, reason string, candidateIDs []int64, details string) (int64, error) {
	ids := make([]string, len(candidateIDs))
	for i, id := range candidateIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO review_queue (platform, source_id, raw_title, year, media_type, reason, candidate_ids, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Platform, rec.SourceID, rec.Title, rec.Year, rec.MediaType,
		reason, strings.Join(ids, ","), details)
	if err != nil {
		return 0, fmt.Errorf("add review entry: %w", err)
	}

	return res.LastInsertId()
}

// ListReviewEntries returns review entries, pending-only unless
// includeResolved is set
func (s *Store) ListReviewEntries(ctx context.Context, includeResolved bool, limit int) ([]*ReviewEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, platform, source_id, COALESCE(raw_title, ''), COALESCE(year, 0),
		       COALESCE(media_type, 'movie'), reason, COALESCE(candidate_ids, ''),
		       COALESCE(details, ''), resolved, created_at
		FROM review_queue
	`
	if !includeResolved {
		query += ` WHERE resolved = 0`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list review entries: %w", err)
	}
	defer rows.Close()

	var entries []*ReviewEntry
	for rows.Next() {
		var e ReviewEntry
		var mediaType, candidateIDs string
		var resolved int
		if err := rows.Scan(&e.ID, &e.Platform, &e.SourceID, &e.RawTitle, &e.Year,
			&mediaType, &e.Reason, &candidateIDs, &e.Details, &resolved, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review entry: %w", err)
		}
		e.MediaType = model.MediaType(mediaType)
		e.Resolved = resolved == 1
		for _, raw := range strings.Split(candidateIDs, ",") {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				e.CandidateIDs = append(e.CandidateIDs, id)
			}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// ResolveReviewEntry marks a review entry as handled
func (s *Store) ResolveReviewEntry(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE review_queue SET resolved = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("resolve review entry %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("review entry %d: no such entry", id)
	}
	return nil
}
