package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/arman/vod-catalog/internal/model"
)

// AttachGenres merges genre names onto an entity additively: facts already
// attached are never removed by a later scrape that omits them, because a
// platform's own listing may be incomplete.
func (s *Store) AttachGenres(ctx context.Context, tx *sql.Tx, entityID int64, genres []string) error {
	for _, name := range genres {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO genres (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("insert genre %q: %w", name, err)
		}

		var genreID int64
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM genres WHERE name = ?`, name).Scan(&genreID); err != nil {
			return fmt.Errorf("lookup genre %q: %w", name, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entity_genres (entity_id, genre_id) VALUES (?, ?)
			ON CONFLICT(entity_id, genre_id) DO NOTHING
		`, entityID, genreID); err != nil {
			return fmt.Errorf("attach genre %q: %w", name, err)
		}
	}
	return nil
}

// AttachCredits merges credits onto an entity additively, keyed by
// (entity, role, name)
func (s *Store) AttachCredits(ctx context.Context, tx *sql.Tx, entityID int64, credits []model.Credit) error {
	for _, credit := range credits {
		name := strings.TrimSpace(credit.Name)
		if name == "" {
			continue
		}
		role := model.ParseCreditRole(string(credit.Role))

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO credits (entity_id, role, name, billing_order) VALUES (?, ?, ?, ?)
			ON CONFLICT(entity_id, role, name) DO NOTHING
		`, entityID, role, name, credit.Order); err != nil {
			return fmt.Errorf("attach credit %s/%q: %w", role, name, err)
		}
	}
	return nil
}

// GenresFor returns the genre names attached to an entity
func (s *Store) GenresFor(ctx context.Context, entityID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.name FROM genres g
		JOIN entity_genres eg ON eg.genre_id = g.id
		WHERE eg.entity_id = ? ORDER BY g.name
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("genres for entity %d: %w", entityID, err)
	}
	defer rows.Close()

	var genres []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		genres = append(genres, name)
	}
	return genres, rows.Err()
}

// CreditsFor returns the credits attached to an entity, in billing order
// within each role
func (s *Store) CreditsFor(ctx context.Context, entityID int64) ([]model.Credit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, name, billing_order FROM credits
		WHERE entity_id = ? ORDER BY role, billing_order, name
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("credits for entity %d: %w", entityID, err)
	}
	defer rows.Close()

	var credits []model.Credit
	for rows.Next() {
		var c model.Credit
		var role string
		if err := rows.Scan(&role, &c.Name, &c.Order); err != nil {
			return nil, err
		}
		c.Role = model.CreditRole(role)
		credits = append(credits, c)
	}
	return credits, rows.Err()
}
