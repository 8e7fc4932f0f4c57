package state

import (
	"context"
	"math/rand"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/openleague/draftroom/go/internal/draft/bus"
	"github.com/openleague/draftroom/go/internal/draft/events"
	"github.com/openleague/draftroom/go/internal/errs"
	"github.com/openleague/draftroom/go/internal/lock"
	"github.com/openleague/draftroom/go/internal/models"
)

// SetOrder replaces the draft order with the given rosters, first to last.
// Only allowed while the draft has not started and the order is not yet
// confirmed.
func (s *Service) SetOrder(ctx context.Context, leagueID, draftID, userID int64, rosterIDs []int64) ([]models.DraftOrderEntry, error) {
	if _, err := s.commissionerDraft(ctx, leagueID, draftID, userID); err != nil {
		return nil, err
	}
	if len(rosterIDs) == 0 {
		return nil, errs.Validation(errs.CodeInvalidSettings, "draft order cannot be empty")
	}
	seen := make(map[int64]bool, len(rosterIDs))
	for _, id := range rosterIDs {
		if seen[id] {
			return nil, errs.Validation(errs.CodeInvalidSettings, "roster %d appears twice in the order", id)
		}
		seen[id] = true
	}
	rosterList, err := s.rosters.ListByLeague(ctx, s.rosters.Reader(), leagueID)
	if err != nil {
		return nil, err
	}
	inLeague := make(map[int64]bool, len(rosterList))
	for _, r := range rosterList {
		inLeague[r.ID] = true
	}
	for _, id := range rosterIDs {
		if !inLeague[id] {
			return nil, errs.NotFound(errs.CodeRosterNotFound, "roster %d is not in league %d", id, leagueID)
		}
	}

	return s.replaceOrderLocked(ctx, draftID, rosterIDs)
}

// RandomizeOrder shuffles the league's rosters into a fresh order.
func (s *Service) RandomizeOrder(ctx context.Context, leagueID, draftID, userID int64) ([]models.DraftOrderEntry, error) {
	if _, err := s.commissionerDraft(ctx, leagueID, draftID, userID); err != nil {
		return nil, err
	}
	rosterList, err := s.rosters.ListByLeague(ctx, s.rosters.Reader(), leagueID)
	if err != nil {
		return nil, err
	}
	if len(rosterList) == 0 {
		return nil, errs.Validation(errs.CodeInvalidSettings, "league %d has no rosters", leagueID)
	}
	ids := make([]int64, len(rosterList))
	for i, r := range rosterList {
		ids[i] = r.ID
	}
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	return s.replaceOrderLocked(ctx, draftID, ids)
}

// SetOrderFromPickOwnership orders a rookie draft by who owns each round-1
// asset, sorted by the stamped original positions of the veteran draft.
// Every round-1 asset attached to the draft must carry a stamped position.
func (s *Service) SetOrderFromPickOwnership(ctx context.Context, leagueID, draftID, userID int64) ([]models.DraftOrderEntry, error) {
	if _, err := s.commissionerDraft(ctx, leagueID, draftID, userID); err != nil {
		return nil, err
	}
	assets, err := s.store.ListDraftAssets(ctx, s.store.Reader(), draftID)
	if err != nil {
		return nil, err
	}
	var firstRound []models.PickAsset
	for _, a := range assets {
		if a.Round == 1 {
			firstRound = append(firstRound, a)
		}
	}
	if len(firstRound) == 0 {
		return nil, errs.Validation(errs.CodeInvalidSettings, "draft %d has no round 1 pick assets", draftID)
	}
	for _, a := range firstRound {
		if a.OriginalPickPosition == nil {
			return nil, errs.Validation(errs.CodeInvalidSettings, "pick asset %d has no stamped original position", a.ID)
		}
	}
	sort.Slice(firstRound, func(i, j int) bool {
		return *firstRound[i].OriginalPickPosition < *firstRound[j].OriginalPickPosition
	})
	ids := make([]int64, len(firstRound))
	for i, a := range firstRound {
		ids[i] = a.CurrentOwnerRosterID
	}

	return s.replaceOrderLocked(ctx, draftID, ids)
}

// replaceOrderLocked swaps the order under the draft lock, re-checking that
// the draft is still malleable.
func (s *Service) replaceOrderLocked(ctx context.Context, draftID int64, rosterIDs []int64) ([]models.DraftOrderEntry, error) {
	var entries []models.DraftOrderEntry
	err := s.runner.WithLock(ctx, lock.DomainDraft, draftID, func(tx pgx.Tx) error {
		d, err := s.store.GetDraftForUpdate(ctx, tx, draftID)
		if err != nil {
			return err
		}
		if d.Status != models.DraftStatusNotStarted {
			return errs.Conflict(errs.CodeStatusConflict, "draft %d has already started", draftID)
		}
		if d.OrderConfirmed {
			return errs.Conflict(errs.CodeStatusConflict, "draft %d order is already confirmed", draftID)
		}
		if err := s.store.ReplaceOrder(ctx, tx, draftID, rosterIDs); err != nil {
			return err
		}
		entries, err = s.store.ListOrder(ctx, tx, draftID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ConfirmOrder locks the order in. Picks cannot be made before this, and
// the order cannot change after it. Confirming also stamps each pick
// asset's original position so later trades keep the slot's provenance.
func (s *Service) ConfirmOrder(ctx context.Context, leagueID, draftID, userID int64) (*models.Draft, error) {
	if _, err := s.commissionerDraft(ctx, leagueID, draftID, userID); err != nil {
		return nil, err
	}

	var confirmed *models.Draft
	err := s.runner.WithLock(ctx, lock.DomainDraft, draftID, func(tx pgx.Tx) error {
		d, err := s.store.GetDraftForUpdate(ctx, tx, draftID)
		if err != nil {
			return err
		}
		if d.Status != models.DraftStatusNotStarted {
			return errs.Conflict(errs.CodeStatusConflict, "draft %d has already started", draftID)
		}
		if d.OrderConfirmed {
			confirmed = d
			return nil
		}
		entries, err := s.store.ListOrder(ctx, tx, draftID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errs.Validation(errs.CodeInvalidSettings, "draft %d has no draft order to confirm", draftID)
		}
		d.OrderConfirmed = true
		if err := s.store.UpdateDraft(ctx, tx, d); err != nil {
			return err
		}
		if err := s.store.StampOriginalPositions(ctx, tx, draftID); err != nil {
			return err
		}
		confirmed = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// ToggleAutodraft flips autodraft for the caller's roster. Turning it on
// mid-turn does not pick immediately; the next tick does.
func (s *Service) ToggleAutodraft(ctx context.Context, leagueID, draftID, userID int64, enabled bool) error {
	d, err := s.memberDraft(ctx, leagueID, draftID, userID)
	if err != nil {
		return err
	}
	roster, err := s.rosters.GetByLeagueAndUser(ctx, s.rosters.Reader(), leagueID, userID)
	if err != nil {
		return err
	}
	if roster == nil {
		return errs.Forbidden(errs.CodeNotInLeague, "user %d has no roster in league %d", userID, leagueID)
	}

	var batch *bus.Batch
	err = s.runner.WithLock(ctx, lock.DomainDraft, d.ID, func(tx pgx.Tx) error {
		changed, err := s.store.SetAutodraft(ctx, tx, d.ID, roster.ID, enabled)
		if err != nil {
			return err
		}
		if !changed {
			return errs.NotFound(errs.CodeRosterNotFound, "roster %d is not in the draft order", roster.ID)
		}
		batch = bus.NewBatch(d.ID)
		batch.Add(events.TypeAutodraftToggled, events.AutodraftToggledPayload{
			DraftID:  d.ID,
			RosterID: roster.ID,
			Enabled:  enabled,
			Forced:   false,
		})
		if err := s.store.NotifyDeadlineChange(ctx, tx, d.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.pub.PublishBatch(ctx, batch)
	return nil
}
