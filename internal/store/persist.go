package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/arman/vod-catalog/internal/model"
	"github.com/arman/vod-catalog/internal/util"
)

// PersistOutcome reports what a resolution write actually did
type PersistOutcome struct {
	SourceCreated   bool
	ExternalAdopted bool
}

// PersistResolution applies one resolved record to the catalog in a single
// transaction: source-record upsert, additive genre/credit merge, optional
// identity upgrade, and the last-write-wins display-title refresh. Either
// everything commits or nothing does, so a cancelled scrape cycle can never
// leave an entity half-written.
//
// upgradeExternalID, when non-empty, is the external id the matched entity
// should adopt; a conflict with another entity's id surfaces as ErrConflict
// and rolls back nothing else (the caller parks it for review and retries
// the persist without the upgrade).
func (s *Store) PersistResolution(ctx context.Context, entityID int64, rec model.ScrapedRecord, upgradeExternalID string) (*PersistOutcome, error) {
	outcome := &PersistOutcome{}

	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		created, err := s.UpsertSourceRecord(ctx, tx, entityID, rec)
		if err != nil {
			return err
		}
		outcome.SourceCreated = created

		if err := s.AttachGenres(ctx, tx, entityID, rec.Genres); err != nil {
			return err
		}
		if err := s.AttachCredits(ctx, tx, entityID, rec.Credits); err != nil {
			return err
		}

		if upgradeExternalID != "" {
			adopted, err := upgradeExternalIDTx(ctx, tx, entityID, upgradeExternalID)
			if err != nil {
				return err
			}
			outcome.ExternalAdopted = adopted
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE entities SET display_title = ?, updated_at = ? WHERE id = ?`,
			rec.Title, time.Now(), entityID)
		if err != nil {
			return fmt.Errorf("refresh display title: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

// upgradeExternalIDTx is the in-transaction form of the identity upgrade,
// guarded by the same unique index that guards creation
func upgradeExternalIDTx(ctx context.Context, tx *sql.Tx, id int64, externalID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE entities SET external_id = ?, updated_at = ?
		WHERE id = ? AND external_id IS NULL
	`, externalID, time.Now(), id)
	if err != nil {
		if strings.Contains(err.Error(), "constraint") {
			return false, fmt.Errorf("%w: external id %s already attached to another entity", util.ErrConflict, externalID)
		}
		return false, fmt.Errorf("identity upgrade for entity %d: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
