package state

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/openleague/draftroom/go/internal/draft/bus"
	"github.com/openleague/draftroom/go/internal/draft/events"
	"github.com/openleague/draftroom/go/internal/draft/order"
	"github.com/openleague/draftroom/go/internal/errs"
	"github.com/openleague/draftroom/go/internal/lock"
	"github.com/openleague/draftroom/go/internal/models"
)

// UndoLastPick reverts the most recent consumed slot, whether it holds a
// player pick, a matchup week, or an asset selection, and puts that slot
// back on the clock. Undoing the final pick of a completed draft reopens it;
// league status and populated rosters are left for the commissioner to
// sort out.
func (s *Service) UndoLastPick(ctx context.Context, req LifecycleRequest) (*models.Draft, error) {
	if _, err := s.commissionerDraft(ctx, req.LeagueID, req.DraftID, req.UserID); err != nil {
		return nil, err
	}
	if d, ok, err := s.replayOperation(ctx, req.IdempotencyKey, req.UserID, models.OperationUndoPick); err != nil || ok {
		return d, err
	}

	var (
		undone *models.Draft
		batch  *bus.Batch
	)
	err := s.runner.WithLock(ctx, lock.DomainDraft, req.DraftID, func(tx pgx.Tx) error {
		d, err := s.store.GetDraftForUpdate(ctx, tx, req.DraftID)
		if err != nil {
			return err
		}
		if d.Status == models.DraftStatusNotStarted {
			return errs.Validation(errs.CodeNothingToUndo, "draft %d has not started", d.ID)
		}

		maxPick, err := s.store.MaxPickNumber(ctx, tx, d.ID)
		if err != nil {
			return err
		}
		maxSel, err := s.store.MaxSelectionPickNumber(ctx, tx, d.ID)
		if err != nil {
			return err
		}
		target := maxPick
		if maxSel > target {
			target = maxSel
		}
		if target < 1 {
			return errs.Validation(errs.CodeNothingToUndo, "draft %d has no picks to undo", d.ID)
		}

		undonePayload := events.DraftPickUndonePayload{
			DraftID:    d.ID,
			PickNumber: target,
			UndoneBy:   req.UserID,
		}
		if maxSel == target {
			sel, err := s.store.GetSelectionByPickNumber(ctx, tx, d.ID, target)
			if err != nil {
				return err
			}
			if sel == nil {
				return errs.Fatal(nil, "selection %d vanished under lock for draft %d", target, d.ID)
			}
			if err := s.store.TransferAssetOwner(ctx, tx, sel.DraftPickAssetID, sel.PreviousOwnerRosterID); err != nil {
				return err
			}
			if err := s.store.DeleteSelectionByPickNumber(ctx, tx, d.ID, target); err != nil {
				return err
			}
			undonePayload.RosterID = sel.RosterID
			undonePayload.PickAssetID = &sel.DraftPickAssetID
		} else {
			pick, err := s.store.GetPickByNumber(ctx, tx, d.ID, target)
			if err != nil {
				return err
			}
			if pick == nil {
				return errs.Fatal(nil, "pick %d vanished under lock for draft %d", target, d.ID)
			}
			// Removes the reciprocal matchup row too.
			if err := s.store.DeletePickByNumber(ctx, tx, d.ID, target); err != nil {
				return err
			}
			undonePayload.RosterID = pick.RosterID
			undonePayload.PlayerID = pick.PlayerID
		}

		entries, err := s.store.ListOrder(ctx, tx, d.ID)
		if err != nil {
			return err
		}
		assets, err := s.store.ListDraftAssets(ctx, tx, d.ID)
		if err != nil {
			return err
		}
		picker, err := order.ActualPickerFor(entries, d.DraftType, target, order.BuildAssetLookup(assets))
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		if d.Status == models.DraftStatusCompleted {
			d.Status = models.DraftStatusInProgress
			d.CompletedAt = nil
		}
		d.CurrentPick = target
		d.CurrentRound = order.SlotFor(target, len(entries)).Round
		rosterID := picker.RosterID
		d.CurrentRosterID = &rosterID

		if d.Status == models.DraftStatusInProgress {
			deadline, err := s.undoDeadline(ctx, tx, d, rosterID, now)
			if err != nil {
				return err
			}
			d.PickDeadline = &deadline
			d.State = models.DraftState{TurnStartedAt: &now}
		} else {
			// Still paused. The banked remainder belonged to the undone
			// slot; dropping it gives the reopened slot a full window on
			// resume.
			d.PickDeadline = nil
			d.State.RemainingSeconds = nil
		}
		if err := s.store.UpdateDraft(ctx, tx, d); err != nil {
			return err
		}
		if err := s.store.NotifyDeadlineChange(ctx, tx, d.ID); err != nil {
			return err
		}
		if err := s.recordOperation(ctx, tx, req.IdempotencyKey, req.UserID, models.OperationUndoPick, d); err != nil {
			return err
		}

		b := bus.NewBatch(d.ID)
		b.Add(events.TypeDraftPickUndone, undonePayload)
		if d.Status == models.DraftStatusInProgress {
			originalRosterID := picker.OriginalRosterID
			b.Add(events.TypeDraftNextPick, events.DraftNextPickPayload{
				DraftID:          d.ID,
				CurrentPick:      d.CurrentPick,
				CurrentRound:     d.CurrentRound,
				CurrentRosterID:  d.CurrentRosterID,
				OriginalRosterID: &originalRosterID,
				IsTraded:         picker.Traded,
				PickDeadline:     d.PickDeadline,
			})
		}
		undone, batch = d, b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.pub.PublishBatch(ctx, batch)
	return undone, nil
}

// undoDeadline grants the reopened slot a fresh window: the full pick time,
// or whatever the picker's chess clock still holds. Clock budgets are not
// refunded on undo.
func (s *Service) undoDeadline(ctx context.Context, tx pgx.Tx, d *models.Draft, rosterID int64, now time.Time) (time.Time, error) {
	if d.Settings.EffectiveTimerMode() != models.TimerModeChessClock {
		return now.Add(time.Duration(d.PickTimeSeconds) * time.Second), nil
	}
	remaining := 0
	clk, err := s.store.GetChessClock(ctx, tx, d.ID, rosterID)
	if err != nil {
		return time.Time{}, err
	}
	if clk != nil {
		remaining = clk.RemainingSeconds
	}
	if remaining < 1 {
		remaining = d.Settings.EffectiveChessClockMinPickSeconds()
	}
	return now.Add(time.Duration(remaining) * time.Second), nil
}
