package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openleague/draftroom/go/internal/models"
)

// ListQueue returns a roster's queue in position order.
func (s *Store) ListQueue(ctx context.Context, q Querier, draftID, rosterID int64) ([]models.QueueEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT id, draft_id, roster_id, player_id, pick_asset_id, queue_position
		FROM draft_queue
		WHERE draft_id = $1 AND roster_id = $2
		ORDER BY queue_position`,
		draftID, rosterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	defer rows.Close()

	var entries []models.QueueEntry
	for rows.Next() {
		var e models.QueueEntry
		if err := rows.Scan(&e.ID, &e.DraftID, &e.RosterID, &e.PlayerID, &e.PickAssetID, &e.QueuePosition); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddQueueEntry appends a player or asset to the roster's queue.
func (s *Store) AddQueueEntry(ctx context.Context, tx pgx.Tx, draftID, rosterID int64, playerID, pickAssetID *int64) (*models.QueueEntry, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO draft_queue (draft_id, roster_id, player_id, pick_asset_id, queue_position)
		SELECT $1, $2, $3, $4, COALESCE(MAX(queue_position), 0) + 1
		FROM draft_queue WHERE draft_id = $1 AND roster_id = $2
		RETURNING id, draft_id, roster_id, player_id, pick_asset_id, queue_position`,
		draftID, rosterID, playerID, pickAssetID,
	)
	var e models.QueueEntry
	if err := row.Scan(&e.ID, &e.DraftID, &e.RosterID, &e.PlayerID, &e.PickAssetID, &e.QueuePosition); err != nil {
		return nil, fmt.Errorf("failed to add queue entry: %w", err)
	}
	return &e, nil
}

// RemoveQueueEntry deletes one entry and compacts the roster's positions.
func (s *Store) RemoveQueueEntry(ctx context.Context, tx pgx.Tx, draftID, rosterID, entryID int64) (bool, error) {
	tag, err := tx.Exec(ctx,
		`DELETE FROM draft_queue WHERE id = $1 AND draft_id = $2 AND roster_id = $3`,
		entryID, draftID, rosterID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove queue entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if err := s.compactQueue(ctx, tx, draftID, rosterID); err != nil {
		return false, err
	}
	return true, nil
}

// ReorderQueue rewrites the roster's queue positions to match the given
// entry id sequence. Entries not listed keep their relative order after the
// listed ones.
func (s *Store) ReorderQueue(ctx context.Context, tx pgx.Tx, draftID, rosterID int64, entryIDs []int64) error {
	// Shift everything past the new head positions, then place the listed
	// entries; compaction folds the remainder back in behind them.
	if _, err := tx.Exec(ctx, `
		UPDATE draft_queue SET queue_position = queue_position + 1000000
		WHERE draft_id = $1 AND roster_id = $2`,
		draftID, rosterID,
	); err != nil {
		return fmt.Errorf("failed to shift queue positions: %w", err)
	}
	for i, id := range entryIDs {
		if _, err := tx.Exec(ctx, `
			UPDATE draft_queue SET queue_position = $4
			WHERE id = $1 AND draft_id = $2 AND roster_id = $3`,
			id, draftID, rosterID, i+1,
		); err != nil {
			return fmt.Errorf("failed to reorder queue entry: %w", err)
		}
	}
	return s.compactQueue(ctx, tx, draftID, rosterID)
}

// RemovePlayerFromQueues drops the player from every queue in the draft once
// picked.
func (s *Store) RemovePlayerFromQueues(ctx context.Context, tx pgx.Tx, draftID, playerID int64) error {
	rows, err := tx.Query(ctx,
		`DELETE FROM draft_queue WHERE draft_id = $1 AND player_id = $2 RETURNING roster_id`,
		draftID, playerID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove player from queues: %w", err)
	}
	rosterIDs, err := collectRosterIDs(rows)
	if err != nil {
		return err
	}
	return s.compactQueues(ctx, tx, draftID, rosterIDs)
}

// RemoveAssetFromQueues drops the asset from every queue in the draft once
// selected.
func (s *Store) RemoveAssetFromQueues(ctx context.Context, tx pgx.Tx, draftID, assetID int64) error {
	rows, err := tx.Query(ctx,
		`DELETE FROM draft_queue WHERE draft_id = $1 AND pick_asset_id = $2 RETURNING roster_id`,
		draftID, assetID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove asset from queues: %w", err)
	}
	rosterIDs, err := collectRosterIDs(rows)
	if err != nil {
		return err
	}
	return s.compactQueues(ctx, tx, draftID, rosterIDs)
}

func collectRosterIDs(rows pgx.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan queue roster id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) compactQueues(ctx context.Context, tx pgx.Tx, draftID int64, rosterIDs []int64) error {
	seen := make(map[int64]bool, len(rosterIDs))
	for _, rosterID := range rosterIDs {
		if seen[rosterID] {
			continue
		}
		seen[rosterID] = true
		if err := s.compactQueue(ctx, tx, draftID, rosterID); err != nil {
			return err
		}
	}
	return nil
}

// compactQueue renumbers a roster's queue to 1..n preserving order.
func (s *Store) compactQueue(ctx context.Context, tx pgx.Tx, draftID, rosterID int64) error {
	_, err := tx.Exec(ctx, `
		WITH renumbered AS (
			SELECT id, ROW_NUMBER() OVER (ORDER BY queue_position) AS rn
			FROM draft_queue
			WHERE draft_id = $1 AND roster_id = $2
		)
		UPDATE draft_queue q
		SET queue_position = r.rn
		FROM renumbered r
		WHERE q.id = r.id`,
		draftID, rosterID,
	)
	if err != nil {
		return fmt.Errorf("failed to compact queue: %w", err)
	}
	return nil
}
