package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openleague/draftroom/go/internal/models"
)

// InitChessClocks grants every roster in the order its full time budget.
// Re-running is a no-op for rosters that already have a clock.
func (s *Store) InitChessClocks(ctx context.Context, tx pgx.Tx, draftID int64, totalSeconds int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO draft_chess_clocks (draft_id, roster_id, remaining_seconds, updated_at)
		SELECT draft_id, roster_id, $2, now()
		FROM draft_order
		WHERE draft_id = $1
		ON CONFLICT (draft_id, roster_id) DO NOTHING`,
		draftID, totalSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to init chess clocks: %w", err)
	}
	return nil
}

// GetChessClock returns a roster's clock, or nil when the draft has none.
func (s *Store) GetChessClock(ctx context.Context, q Querier, draftID, rosterID int64) (*models.ChessClock, error) {
	row := q.QueryRow(ctx, `
		SELECT draft_id, roster_id, remaining_seconds, updated_at
		FROM draft_chess_clocks
		WHERE draft_id = $1 AND roster_id = $2`,
		draftID, rosterID,
	)
	var c models.ChessClock
	if err := row.Scan(&c.DraftID, &c.RosterID, &c.RemainingSeconds, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chess clock: %w", err)
	}
	return &c, nil
}

// ListChessClocks returns all clocks for the draft keyed by roster.
func (s *Store) ListChessClocks(ctx context.Context, q Querier, draftID int64) ([]models.ChessClock, error) {
	rows, err := q.Query(ctx, `
		SELECT draft_id, roster_id, remaining_seconds, updated_at
		FROM draft_chess_clocks
		WHERE draft_id = $1
		ORDER BY roster_id`,
		draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chess clocks: %w", err)
	}
	defer rows.Close()

	var clocks []models.ChessClock
	for rows.Next() {
		var c models.ChessClock
		if err := rows.Scan(&c.DraftID, &c.RosterID, &c.RemainingSeconds, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chess clock: %w", err)
		}
		clocks = append(clocks, c)
	}
	return clocks, rows.Err()
}

// SpendChessClock deducts consumed turn time, flooring at zero.
func (s *Store) SpendChessClock(ctx context.Context, tx pgx.Tx, draftID, rosterID int64, seconds int) error {
	_, err := tx.Exec(ctx, `
		UPDATE draft_chess_clocks
		SET remaining_seconds = GREATEST(0, remaining_seconds - $3), updated_at = now()
		WHERE draft_id = $1 AND roster_id = $2`,
		draftID, rosterID, seconds,
	)
	if err != nil {
		return fmt.Errorf("failed to spend chess clock: %w", err)
	}
	return nil
}
