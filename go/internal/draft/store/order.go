package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openleague/draftroom/go/internal/models"
)

// ListOrder returns the draft's order sorted by position.
func (s *Store) ListOrder(ctx context.Context, q Querier, draftID int64) ([]models.DraftOrderEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT draft_id, roster_id, draft_position, is_autodraft_enabled
		FROM draft_order
		WHERE draft_id = $1
		ORDER BY draft_position`,
		draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft order: %w", err)
	}
	defer rows.Close()

	var entries []models.DraftOrderEntry
	for rows.Next() {
		var e models.DraftOrderEntry
		if err := rows.Scan(&e.DraftID, &e.RosterID, &e.DraftPosition, &e.IsAutodraftEnabled); err != nil {
			return nil, fmt.Errorf("failed to scan draft order entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReplaceOrder swaps the draft's order for the given roster sequence.
// Autodraft flags carry over for rosters already present.
func (s *Store) ReplaceOrder(ctx context.Context, tx pgx.Tx, draftID int64, rosterIDs []int64) error {
	existing, err := s.ListOrder(ctx, tx, draftID)
	if err != nil {
		return err
	}
	autodraft := make(map[int64]bool, len(existing))
	for _, e := range existing {
		autodraft[e.RosterID] = e.IsAutodraftEnabled
	}

	if _, err := tx.Exec(ctx, `DELETE FROM draft_order WHERE draft_id = $1`, draftID); err != nil {
		return fmt.Errorf("failed to clear draft order: %w", err)
	}
	for i, rosterID := range rosterIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO draft_order (draft_id, roster_id, draft_position, is_autodraft_enabled)
			VALUES ($1, $2, $3, $4)`,
			draftID, rosterID, i+1, autodraft[rosterID],
		); err != nil {
			return fmt.Errorf("failed to insert draft order entry: %w", err)
		}
	}
	return nil
}

// SetAutodraft flips a roster's autodraft flag and reports whether a row
// changed.
func (s *Store) SetAutodraft(ctx context.Context, tx pgx.Tx, draftID, rosterID int64, enabled bool) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE draft_order SET is_autodraft_enabled = $3
		WHERE draft_id = $1 AND roster_id = $2`,
		draftID, rosterID, enabled,
	)
	if err != nil {
		return false, fmt.Errorf("failed to set autodraft: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
