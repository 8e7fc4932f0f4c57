package engine

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/openleague/draftroom/go/internal/draft/order"
	"github.com/openleague/draftroom/go/internal/errs"
	"github.com/openleague/draftroom/go/internal/models"
)

// Strategy supplies the per-draft-type autopick selection policy. Order math
// lives in the order package; only what gets taken differs between types.
type Strategy interface {
	SelectAutoPick(ctx context.Context, tx pgx.Tx, d *models.Draft, entries []models.DraftOrderEntry, picker order.Picker) (Selection, error)
}

// playerStrategy serves snake and linear drafts: queued preference first,
// then best available by ADP, then a rookie pick asset when the draft allows
// spending slots on those.
type playerStrategy struct {
	e *Engine
}

func (s playerStrategy) SelectAutoPick(ctx context.Context, tx pgx.Tx, d *models.Draft, entries []models.DraftOrderEntry, picker order.Picker) (Selection, error) {
	if sel, ok, err := s.e.selectFromQueue(ctx, tx, d, picker.RosterID); err != nil {
		return Selection{}, err
	} else if ok {
		return sel, nil
	}

	best, err := s.e.players.BestAvailable(ctx, tx, d.ID, d.Settings.EffectivePool())
	if err != nil {
		return Selection{}, err
	}
	if best != nil {
		return Selection{PlayerID: &best.ID}, nil
	}

	if d.Settings.IncludeRookiePicks && d.Settings.RookiePicksSeason != nil {
		assets, err := s.e.store.ListSelectableAssets(ctx, tx, d.LeagueID,
			*d.Settings.RookiePicksSeason, d.Settings.EffectiveRookiePicksRounds(), d.ID)
		if err != nil {
			return Selection{}, err
		}
		if len(assets) > 0 {
			id := assets[0].ID
			return Selection{PickAssetID: &id}, nil
		}
	}

	return Selection{}, errs.Fatal(nil, "nothing selectable for draft %d pick %d", d.ID, d.CurrentPick)
}

// selectFromQueue walks the roster's queue in position order, skipping
// entries whose referent is already consumed.
func (e *Engine) selectFromQueue(ctx context.Context, tx pgx.Tx, d *models.Draft, rosterID int64) (Selection, bool, error) {
	queue, err := e.store.ListQueue(ctx, tx, d.ID, rosterID)
	if err != nil {
		return Selection{}, false, err
	}
	for _, entry := range queue {
		switch {
		case entry.PlayerID != nil:
			taken, err := e.store.PlayerDrafted(ctx, tx, d.ID, *entry.PlayerID)
			if err != nil {
				return Selection{}, false, err
			}
			if !taken {
				return Selection{PlayerID: entry.PlayerID}, true, nil
			}
		case entry.PickAssetID != nil:
			used, err := e.store.AssetSelected(ctx, tx, d.ID, *entry.PickAssetID)
			if err != nil {
				return Selection{}, false, err
			}
			if !used {
				return Selection{PickAssetID: entry.PickAssetID}, true, nil
			}
		}
	}
	return Selection{}, false, nil
}

// matchupStrategy serves matchup drafts: the picker takes its lowest open
// week against the lowest-positioned opponent with that week still open.
type matchupStrategy struct {
	e *Engine
}

func (s matchupStrategy) SelectAutoPick(ctx context.Context, tx pgx.Tx, d *models.Draft, entries []models.DraftOrderEntry, picker order.Picker) (Selection, error) {
	for week := 1; week <= d.Rounds; week++ {
		filled, err := s.e.store.WeekFilled(ctx, tx, d.ID, picker.RosterID, week)
		if err != nil {
			return Selection{}, err
		}
		if filled {
			continue
		}
		for _, en := range entries {
			if en.RosterID == picker.RosterID {
				continue
			}
			oppFilled, err := s.e.store.WeekFilled(ctx, tx, d.ID, en.RosterID, week)
			if err != nil {
				return Selection{}, err
			}
			if !oppFilled {
				w := week
				opp := en.RosterID
				return Selection{Week: &w, OpponentRosterID: &opp}, nil
			}
		}
	}
	return Selection{}, errs.Fatal(nil, "no open matchup week for roster %d in draft %d", picker.RosterID, d.ID)
}
