package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openleague/draftroom/go/internal/models"
)

const pickColumns = `id, draft_id, pick_number, round, pick_in_round, roster_id,
	player_id, is_auto_pick, idempotency_key, pick_metadata, picked_at`

type InsertPickRequest struct {
	DraftID        int64
	PickNumber     int
	Round          int
	PickInRound    int
	RosterID       int64
	PlayerID       *int64
	IsAutoPick     bool
	IdempotencyKey *string
	Metadata       *models.PickMetadata
}

func scanPick(row pgx.Row) (*models.DraftPick, error) {
	var p models.DraftPick
	err := row.Scan(
		&p.ID, &p.DraftID, &p.PickNumber, &p.Round, &p.PickInRound, &p.RosterID,
		&p.PlayerID, &p.IsAutoPick, &p.IdempotencyKey, &p.Metadata, &p.PickedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertPick writes one pick row. Unique-constraint races surface as domain
// conflicts.
func (s *Store) InsertPick(ctx context.Context, tx pgx.Tx, req InsertPickRequest) (*models.DraftPick, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO draft_picks (
			draft_id, pick_number, round, pick_in_round, roster_id,
			player_id, is_auto_pick, idempotency_key, pick_metadata, picked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING `+pickColumns,
		req.DraftID, req.PickNumber, req.Round, req.PickInRound, req.RosterID,
		req.PlayerID, req.IsAutoPick, req.IdempotencyKey, req.Metadata,
	)
	pick, err := scanPick(row)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to insert pick: %w", err)
	}
	return pick, nil
}

// GetPickByNumber returns the pick row for a pick number, or nil when the
// slot has not been consumed.
func (s *Store) GetPickByNumber(ctx context.Context, q Querier, draftID int64, pickNumber int) (*models.DraftPick, error) {
	row := q.QueryRow(ctx,
		`SELECT `+pickColumns+` FROM draft_picks WHERE draft_id = $1 AND pick_number = $2`,
		draftID, pickNumber,
	)
	pick, err := scanPick(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pick by number: %w", err)
	}
	return pick, nil
}

// FindPickByIdempotencyKey returns the stored pick for a replayed request, or
// nil if the key has not been used by this roster.
func (s *Store) FindPickByIdempotencyKey(ctx context.Context, q Querier, draftID, rosterID int64, key string) (*models.DraftPick, error) {
	row := q.QueryRow(ctx, `
		SELECT `+pickColumns+` FROM draft_picks
		WHERE draft_id = $1 AND roster_id = $2 AND idempotency_key = $3`,
		draftID, rosterID, key,
	)
	pick, err := scanPick(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pick by idempotency key: %w", err)
	}
	return pick, nil
}

// PlayerDrafted reports whether the player is already consumed in this draft.
func (s *Store) PlayerDrafted(ctx context.Context, q Querier, draftID, playerID int64) (bool, error) {
	var drafted bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM draft_picks WHERE draft_id = $1 AND player_id = $2)`,
		draftID, playerID,
	).Scan(&drafted)
	if err != nil {
		return false, fmt.Errorf("failed to check drafted player: %w", err)
	}
	return drafted, nil
}

// MaxPickNumber returns the highest consumed forward pick number, zero when
// none. Matchup reciprocal rows are negative and excluded.
func (s *Store) MaxPickNumber(ctx context.Context, q Querier, draftID int64) (int, error) {
	var maxPick int
	err := q.QueryRow(ctx,
		`SELECT COALESCE(MAX(pick_number), 0) FROM draft_picks WHERE draft_id = $1 AND pick_number > 0`,
		draftID,
	).Scan(&maxPick)
	if err != nil {
		return 0, fmt.Errorf("failed to get max pick number: %w", err)
	}
	return maxPick, nil
}

// ListPicks returns the draft's forward picks in pick order.
func (s *Store) ListPicks(ctx context.Context, q Querier, draftID int64) ([]models.DraftPick, error) {
	rows, err := q.Query(ctx,
		`SELECT `+pickColumns+` FROM draft_picks WHERE draft_id = $1 AND pick_number > 0 ORDER BY pick_number`,
		draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	defer rows.Close()

	var picks []models.DraftPick
	for rows.Next() {
		pick, err := scanPick(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		picks = append(picks, *pick)
	}
	return picks, rows.Err()
}

// DeletePickByNumber removes a pick row and, for matchup picks, its
// reciprocal row. Used by undo.
func (s *Store) DeletePickByNumber(ctx context.Context, tx pgx.Tx, draftID int64, pickNumber int) error {
	tag, err := tx.Exec(ctx,
		`DELETE FROM draft_picks WHERE draft_id = $1 AND pick_number IN ($2, -$2)`,
		draftID, pickNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to delete pick: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no pick row for draft %d number %d", draftID, pickNumber)
	}
	return nil
}

// WeekFilled reports whether the roster already has a matchup pick for the
// week, on either side of the pairing.
func (s *Store) WeekFilled(ctx context.Context, q Querier, draftID, rosterID int64, week int) (bool, error) {
	var filled bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM draft_picks
			WHERE draft_id = $1 AND roster_id = $2 AND (pick_metadata->>'week')::int = $3
		)`,
		draftID, rosterID, week,
	).Scan(&filled)
	if err != nil {
		return false, fmt.Errorf("failed to check filled week: %w", err)
	}
	return filled, nil
}
