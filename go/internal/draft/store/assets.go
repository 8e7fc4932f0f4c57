package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openleague/draftroom/go/internal/errs"
	"github.com/openleague/draftroom/go/internal/models"
)

const assetColumns = `id, league_id, draft_id, season, round, original_roster_id,
	current_owner_roster_id, original_pick_position, created_at`

func scanAsset(row pgx.Row) (*models.PickAsset, error) {
	var a models.PickAsset
	err := row.Scan(
		&a.ID, &a.LeagueID, &a.DraftID, &a.Season, &a.Round, &a.OriginalRosterID,
		&a.CurrentOwnerRosterID, &a.OriginalPickPosition, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetPickAsset loads one asset row.
func (s *Store) GetPickAsset(ctx context.Context, q Querier, id int64) (*models.PickAsset, error) {
	row := q.QueryRow(ctx, `SELECT `+assetColumns+` FROM draft_pick_assets WHERE id = $1`, id)
	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound(errs.CodePickAssetNotFound, "pick asset not found")
		}
		return nil, fmt.Errorf("failed to get pick asset: %w", err)
	}
	return asset, nil
}

// ListDraftAssets returns the assets attached to the draft itself, the rows
// that rewrite the order for traded picks.
func (s *Store) ListDraftAssets(ctx context.Context, q Querier, draftID int64) ([]models.PickAsset, error) {
	rows, err := q.Query(ctx,
		`SELECT `+assetColumns+` FROM draft_pick_assets WHERE draft_id = $1 ORDER BY round, original_pick_position NULLS LAST, id`,
		draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft assets: %w", err)
	}
	defer rows.Close()

	var assets []models.PickAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pick asset: %w", err)
		}
		assets = append(assets, *asset)
	}
	return assets, rows.Err()
}

// ListSelectableAssets returns rookie pick assets a vet draft may spend a
// slot on: league assets for the configured season and rounds, not yet
// selected in this draft.
func (s *Store) ListSelectableAssets(ctx context.Context, q Querier, leagueID int64, season, maxRound int, draftID int64) ([]models.PickAsset, error) {
	rows, err := q.Query(ctx, `
		SELECT `+assetColumns+` FROM draft_pick_assets a
		WHERE a.league_id = $1 AND a.season = $2 AND a.round <= $3
		  AND NOT EXISTS (
			SELECT 1 FROM vet_draft_pick_selections s
			WHERE s.draft_id = $4 AND s.draft_pick_asset_id = a.id
		  )
		ORDER BY a.round, a.original_pick_position NULLS LAST, a.id`,
		leagueID, season, maxRound, draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list selectable assets: %w", err)
	}
	defer rows.Close()

	var assets []models.PickAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pick asset: %w", err)
		}
		assets = append(assets, *asset)
	}
	return assets, rows.Err()
}

// TransferAssetOwner reassigns ownership. Only trades and vet-draft
// selections go through here; the original roster never changes.
func (s *Store) TransferAssetOwner(ctx context.Context, tx pgx.Tx, assetID, newOwnerRosterID int64) error {
	tag, err := tx.Exec(ctx,
		`UPDATE draft_pick_assets SET current_owner_roster_id = $2 WHERE id = $1`,
		assetID, newOwnerRosterID,
	)
	if err != nil {
		return fmt.Errorf("failed to transfer asset owner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound(errs.CodePickAssetNotFound, "pick asset not found")
	}
	return nil
}

// StampOriginalPositions copies each original roster's confirmed draft
// position onto the draft's assets.
func (s *Store) StampOriginalPositions(ctx context.Context, tx pgx.Tx, draftID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE draft_pick_assets a
		SET original_pick_position = o.draft_position
		FROM draft_order o
		WHERE a.draft_id = $1 AND o.draft_id = $1 AND o.roster_id = a.original_roster_id`,
		draftID,
	)
	if err != nil {
		return fmt.Errorf("failed to stamp original pick positions: %w", err)
	}
	return nil
}

const selectionColumns = `id, draft_id, pick_number, draft_pick_asset_id, roster_id,
	previous_owner_roster_id, picked_at`

type InsertSelectionRequest struct {
	DraftID               int64
	PickNumber            int
	DraftPickAssetID      int64
	RosterID              int64
	PreviousOwnerRosterID int64
}

func scanSelection(row pgx.Row) (*models.VetPickSelection, error) {
	var sel models.VetPickSelection
	err := row.Scan(
		&sel.ID, &sel.DraftID, &sel.PickNumber, &sel.DraftPickAssetID, &sel.RosterID,
		&sel.PreviousOwnerRosterID, &sel.PickedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

// InsertSelection records a vet-draft slot spent on a pick asset.
func (s *Store) InsertSelection(ctx context.Context, tx pgx.Tx, req InsertSelectionRequest) (*models.VetPickSelection, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO vet_draft_pick_selections (
			draft_id, pick_number, draft_pick_asset_id, roster_id,
			previous_owner_roster_id, picked_at
		) VALUES ($1, $2, $3, $4, $5, now())
		RETURNING `+selectionColumns,
		req.DraftID, req.PickNumber, req.DraftPickAssetID, req.RosterID,
		req.PreviousOwnerRosterID,
	)
	sel, err := scanSelection(row)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to insert pick asset selection: %w", err)
	}
	return sel, nil
}

// AssetSelected reports whether the asset was already spent in this draft.
func (s *Store) AssetSelected(ctx context.Context, q Querier, draftID, assetID int64) (bool, error) {
	var selected bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM vet_draft_pick_selections WHERE draft_id = $1 AND draft_pick_asset_id = $2)`,
		draftID, assetID,
	).Scan(&selected)
	if err != nil {
		return false, fmt.Errorf("failed to check selected asset: %w", err)
	}
	return selected, nil
}

// MaxSelectionPickNumber returns the highest pick number consumed by an asset
// selection, zero when none.
func (s *Store) MaxSelectionPickNumber(ctx context.Context, q Querier, draftID int64) (int, error) {
	var maxPick int
	err := q.QueryRow(ctx,
		`SELECT COALESCE(MAX(pick_number), 0) FROM vet_draft_pick_selections WHERE draft_id = $1`,
		draftID,
	).Scan(&maxPick)
	if err != nil {
		return 0, fmt.Errorf("failed to get max selection pick number: %w", err)
	}
	return maxPick, nil
}

// GetSelectionByAsset loads the selection that claimed an asset, or nil.
// Selections carry no idempotency key; asset plus roster is the retry
// signature.
func (s *Store) GetSelectionByAsset(ctx context.Context, q Querier, draftID, assetID int64) (*models.VetPickSelection, error) {
	row := q.QueryRow(ctx,
		`SELECT `+selectionColumns+` FROM vet_draft_pick_selections WHERE draft_id = $1 AND draft_pick_asset_id = $2`,
		draftID, assetID,
	)
	sel, err := scanSelection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get selection by asset: %w", err)
	}
	return sel, nil
}

// GetSelectionByPickNumber loads the selection that consumed a pick number,
// or nil.
func (s *Store) GetSelectionByPickNumber(ctx context.Context, q Querier, draftID int64, pickNumber int) (*models.VetPickSelection, error) {
	row := q.QueryRow(ctx,
		`SELECT `+selectionColumns+` FROM vet_draft_pick_selections WHERE draft_id = $1 AND pick_number = $2`,
		draftID, pickNumber,
	)
	sel, err := scanSelection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get selection by pick number: %w", err)
	}
	return sel, nil
}

// DeleteSelectionByPickNumber removes a selection row. Used by undo.
func (s *Store) DeleteSelectionByPickNumber(ctx context.Context, tx pgx.Tx, draftID int64, pickNumber int) error {
	tag, err := tx.Exec(ctx,
		`DELETE FROM vet_draft_pick_selections WHERE draft_id = $1 AND pick_number = $2`,
		draftID, pickNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to delete selection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no selection row for draft %d number %d", draftID, pickNumber)
	}
	return nil
}
