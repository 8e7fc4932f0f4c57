package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/openleague/draftroom/go/internal/draft/bus"
	"github.com/openleague/draftroom/go/internal/draft/events"
	"github.com/openleague/draftroom/go/internal/draft/order"
	"github.com/openleague/draftroom/go/internal/draft/pickstate"
	"github.com/openleague/draftroom/go/internal/errs"
	"github.com/openleague/draftroom/go/internal/lock"
	"github.com/openleague/draftroom/go/internal/models"
)

// LifecycleRequest identifies a commissioner lifecycle action. The optional
// idempotency key makes a retried call return the first call's result
// instead of failing on the already-changed status.
type LifecycleRequest struct {
	LeagueID       int64
	DraftID        int64
	UserID         int64
	IdempotencyKey *string
}

// replayOperation returns the stored result of an already-performed keyed
// operation, if one exists inside the TTL.
func (s *Service) replayOperation(ctx context.Context, key *string, userID int64, op models.OperationType) (*models.Draft, bool, error) {
	if key == nil || *key == "" {
		return nil, false, nil
	}
	rec, err := s.store.FindOperation(ctx, s.store.Reader(), *key, userID, op)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}
	var d models.Draft
	if err := json.Unmarshal(rec.Result, &d); err != nil {
		log.Warn().Err(err).Str("idempotency_key", *key).Msg("stored operation result is unreadable, re-running")
		return nil, false, nil
	}
	return &d, true, nil
}

// recordOperation stores the operation result inside the mutating
// transaction so the record and the change land together.
func (s *Service) recordOperation(ctx context.Context, tx pgx.Tx, key *string, userID int64, op models.OperationType, d *models.Draft) error {
	if key == nil || *key == "" {
		return nil
	}
	result, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode operation result: %w", err)
	}
	return s.store.PutOperation(ctx, tx, *key, userID, op, d.ID, result, int(s.opTTL.Seconds()))
}

// Start moves a draft from NOT_STARTED to IN_PROGRESS, puts pick 1 on the
// clock, and initialises chess clocks when the draft runs them.
func (s *Service) Start(ctx context.Context, req LifecycleRequest) (*models.Draft, error) {
	if _, err := s.commissionerDraft(ctx, req.LeagueID, req.DraftID, req.UserID); err != nil {
		return nil, err
	}
	if d, ok, err := s.replayOperation(ctx, req.IdempotencyKey, req.UserID, models.OperationStartDraft); err != nil || ok {
		return d, err
	}

	var (
		started *models.Draft
		batch   *bus.Batch
	)
	err := s.runner.WithLock(ctx, lock.DomainDraft, req.DraftID, func(tx pgx.Tx) error {
		d, err := s.store.GetDraftForUpdate(ctx, tx, req.DraftID)
		if err != nil {
			return err
		}
		if d.Status != models.DraftStatusNotStarted {
			return errs.Conflict(errs.CodeStatusConflict, "draft %d is %s", d.ID, d.Status)
		}
		entries, err := s.store.ListOrder(ctx, tx, d.ID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errs.Validation(errs.CodeInvalidSettings, "draft %d has no draft order", d.ID)
		}
		if d.DraftType != models.DraftTypeAuction && !d.OrderConfirmed {
			return errs.Validation(errs.CodeOrderNotConfirmed, "draft order must be confirmed before starting")
		}
		now := s.clock.Now().UTC()

		var clocks pickstate.Clocks
		if d.Settings.EffectiveTimerMode() == models.TimerModeChessClock {
			total := 0
			if d.Settings.ChessClockTotalSeconds != nil {
				total = *d.Settings.ChessClockTotalSeconds
			}
			if total < 1 {
				return errs.Validation(errs.CodeInvalidSettings, "chess clock drafts need a positive total budget")
			}
			if err := s.store.InitChessClocks(ctx, tx, d.ID, total); err != nil {
				return err
			}
			clocks = make(pickstate.Clocks, len(entries))
			for _, e := range entries {
				clocks[e.RosterID] = total
			}
		}

		assets, err := s.store.ListDraftAssets(ctx, tx, d.ID)
		if err != nil {
			return err
		}
		first, err := pickstate.ForPick(d, entries, order.BuildAssetLookup(assets), clocks, 1, now)
		if err != nil {
			return err
		}

		d.Status = models.DraftStatusInProgress
		d.CurrentPick = first.PickNumber
		d.CurrentRound = first.Round
		d.CurrentRosterID = first.RosterID
		d.PickDeadline = first.Deadline
		d.StartedAt = &now
		d.State = models.DraftState{TurnStartedAt: &now}
		if err := s.store.UpdateDraft(ctx, tx, d); err != nil {
			return err
		}
		if err := s.store.NotifyDeadlineChange(ctx, tx, d.ID); err != nil {
			return err
		}
		if err := s.recordOperation(ctx, tx, req.IdempotencyKey, req.UserID, models.OperationStartDraft, d); err != nil {
			return err
		}

		b := bus.NewBatch(d.ID)
		b.Add(events.TypeDraftStarted, events.DraftStartedPayload{
			DraftID:     d.ID,
			DraftType:   string(d.DraftType),
			StartedAt:   now,
			TotalRounds: d.Rounds,
			TotalPicks:  d.Rounds * len(entries),
		})
		b.Add(events.TypeDraftNextPick, events.DraftNextPickPayload{
			DraftID:          d.ID,
			CurrentPick:      d.CurrentPick,
			CurrentRound:     d.CurrentRound,
			CurrentRosterID:  d.CurrentRosterID,
			OriginalRosterID: first.OriginalRosterID,
			IsTraded:         first.Traded,
			PickDeadline:     d.PickDeadline,
			ChessClocks:      clocks,
		})
		started, batch = d, b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.pub.PublishBatch(ctx, batch)
	return started, nil
}

// Pause freezes an in-progress draft. Per-pick drafts bank the time left on
// the current deadline; chess drafts materialise the elapsed turn into the
// picker's clock so resume can rebuild the deadline from the clock row.
func (s *Service) Pause(ctx context.Context, req LifecycleRequest) (*models.Draft, error) {
	if _, err := s.commissionerDraft(ctx, req.LeagueID, req.DraftID, req.UserID); err != nil {
		return nil, err
	}
	if d, ok, err := s.replayOperation(ctx, req.IdempotencyKey, req.UserID, models.OperationPauseDraft); err != nil || ok {
		return d, err
	}

	var (
		paused *models.Draft
		batch  *bus.Batch
	)
	err := s.runner.WithLock(ctx, lock.DomainDraft, req.DraftID, func(tx pgx.Tx) error {
		d, err := s.store.GetDraftForUpdate(ctx, tx, req.DraftID)
		if err != nil {
			return err
		}
		if d.Status != models.DraftStatusInProgress {
			return errs.Conflict(errs.CodeStatusConflict, "draft %d is %s", d.ID, d.Status)
		}
		now := s.clock.Now().UTC()

		state := models.DraftState{PausedAt: &now, PausedBy: &req.UserID}
		if d.Settings.EffectiveTimerMode() == models.TimerModeChessClock {
			if d.CurrentRosterID != nil && d.State.TurnStartedAt != nil {
				elapsed := int(now.Sub(*d.State.TurnStartedAt).Seconds())
				if elapsed > 0 {
					if err := s.store.SpendChessClock(ctx, tx, d.ID, *d.CurrentRosterID, elapsed); err != nil {
						return err
					}
				}
			}
		} else if d.PickDeadline != nil {
			remaining := int(d.PickDeadline.Sub(now).Seconds())
			if remaining < 0 {
				remaining = 0
			}
			state.RemainingSeconds = &remaining
		}

		d.Status = models.DraftStatusPaused
		d.PickDeadline = nil
		d.State = state
		if err := s.store.UpdateDraft(ctx, tx, d); err != nil {
			return err
		}
		if err := s.store.NotifyDeadlineChange(ctx, tx, d.ID); err != nil {
			return err
		}
		if err := s.recordOperation(ctx, tx, req.IdempotencyKey, req.UserID, models.OperationPauseDraft, d); err != nil {
			return err
		}

		b := bus.NewBatch(d.ID)
		b.Add(events.TypeDraftPaused, events.DraftPausedPayload{
			DraftID:  d.ID,
			PausedAt: now,
			PausedBy: &req.UserID,
			Reason:   "commissioner_pause",
		})
		paused, batch = d, b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.pub.PublishBatch(ctx, batch)
	return paused, nil
}

// Resume puts a paused draft back on the clock. Per-pick drafts restore the
// banked remainder, falling back to a full window; chess drafts grant
// whatever the picker's clock holds, floored once exhausted.
func (s *Service) Resume(ctx context.Context, req LifecycleRequest) (*models.Draft, error) {
	if _, err := s.commissionerDraft(ctx, req.LeagueID, req.DraftID, req.UserID); err != nil {
		return nil, err
	}
	if d, ok, err := s.replayOperation(ctx, req.IdempotencyKey, req.UserID, models.OperationResumeDraft); err != nil || ok {
		return d, err
	}

	var (
		resumed *models.Draft
		batch   *bus.Batch
	)
	err := s.runner.WithLock(ctx, lock.DomainDraft, req.DraftID, func(tx pgx.Tx) error {
		d, err := s.store.GetDraftForUpdate(ctx, tx, req.DraftID)
		if err != nil {
			return err
		}
		if d.Status != models.DraftStatusPaused {
			return errs.Conflict(errs.CodeStatusConflict, "draft %d is %s", d.ID, d.Status)
		}
		now := s.clock.Now().UTC()

		var deadline time.Time
		if d.Settings.EffectiveTimerMode() == models.TimerModeChessClock && d.CurrentRosterID != nil {
			remaining := 0
			clk, err := s.store.GetChessClock(ctx, tx, d.ID, *d.CurrentRosterID)
			if err != nil {
				return err
			}
			if clk != nil {
				remaining = clk.RemainingSeconds
			}
			if remaining < 1 {
				remaining = d.Settings.EffectiveChessClockMinPickSeconds()
			}
			deadline = now.Add(time.Duration(remaining) * time.Second)
		} else {
			secs := d.PickTimeSeconds
			if d.State.RemainingSeconds != nil && *d.State.RemainingSeconds > 0 {
				secs = *d.State.RemainingSeconds
			}
			deadline = now.Add(time.Duration(secs) * time.Second)
		}

		d.Status = models.DraftStatusInProgress
		d.PickDeadline = &deadline
		d.State = models.DraftState{TurnStartedAt: &now}
		if err := s.store.UpdateDraft(ctx, tx, d); err != nil {
			return err
		}
		if err := s.store.NotifyDeadlineChange(ctx, tx, d.ID); err != nil {
			return err
		}
		if err := s.recordOperation(ctx, tx, req.IdempotencyKey, req.UserID, models.OperationResumeDraft, d); err != nil {
			return err
		}

		b := bus.NewBatch(d.ID)
		b.Add(events.TypeDraftResumed, events.DraftResumedPayload{
			DraftID:      d.ID,
			ResumedAt:    now,
			PickDeadline: d.PickDeadline,
		})
		resumed, batch = d, b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.pub.PublishBatch(ctx, batch)
	return resumed, nil
}

// Complete force-finishes a draft and runs the same completion side effects
// a final pick would: roster population, league status flip, and the
// schedule call.
func (s *Service) Complete(ctx context.Context, req LifecycleRequest) (*models.Draft, error) {
	if _, err := s.commissionerDraft(ctx, req.LeagueID, req.DraftID, req.UserID); err != nil {
		return nil, err
	}
	if d, ok, err := s.replayOperation(ctx, req.IdempotencyKey, req.UserID, models.OperationCompleteDraft); err != nil || ok {
		return d, err
	}

	var (
		completed *models.Draft
		batch     *bus.Batch
	)
	err := s.runner.WithLock(ctx, lock.DomainDraft, req.DraftID, func(tx pgx.Tx) error {
		d, err := s.store.GetDraftForUpdate(ctx, tx, req.DraftID)
		if err != nil {
			return err
		}
		if d.Status != models.DraftStatusInProgress && d.Status != models.DraftStatusPaused {
			return errs.Conflict(errs.CodeStatusConflict, "draft %d is %s", d.ID, d.Status)
		}
		now := s.clock.Now().UTC()

		d.Status = models.DraftStatusCompleted
		d.CompletedAt = &now
		d.CurrentRosterID = nil
		d.PickDeadline = nil
		d.State = models.DraftState{}
		if err := s.store.UpdateDraft(ctx, tx, d); err != nil {
			return err
		}
		if err := s.store.NotifyDeadlineChange(ctx, tx, d.ID); err != nil {
			return err
		}

		b := bus.NewBatch(d.ID)
		if err := s.completeDraftTx(ctx, tx, d, b, now); err != nil {
			return err
		}
		if err := s.recordOperation(ctx, tx, req.IdempotencyKey, req.UserID, models.OperationCompleteDraft, d); err != nil {
			return err
		}
		completed, batch = d, b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.pub.PublishBatch(ctx, batch)
	return completed, nil
}

// DeleteDraft removes a draft and everything hanging off it. Pick assets
// survive with their draft reference cleared. In-progress drafts must be
// paused or completed first. Deleting twice reports success; the second
// call finds nothing and that is the state the caller asked for.
func (s *Service) DeleteDraft(ctx context.Context, leagueID, draftID, userID int64) error {
	if err := s.leagues.RequireCommissioner(ctx, s.leagues.Reader(), leagueID, userID); err != nil {
		return err
	}
	d, err := s.store.GetDraft(ctx, s.store.Reader(), draftID)
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return nil
		}
		return err
	}
	if d.LeagueID != leagueID {
		return errs.NotFound(errs.CodeDraftNotFound, "draft %d not found in league %d", draftID, leagueID)
	}

	var batch *bus.Batch
	err = s.runner.WithLock(ctx, lock.DomainDraft, draftID, func(tx pgx.Tx) error {
		fresh, err := s.store.GetDraftForUpdate(ctx, tx, draftID)
		if err != nil {
			if errs.KindOf(err) == errs.KindNotFound {
				return nil
			}
			return err
		}
		if fresh.Status == models.DraftStatusInProgress {
			return errs.Conflict(errs.CodeStatusConflict, "draft %d is in progress, pause it first", draftID)
		}
		if err := s.store.DeleteDraft(ctx, tx, draftID); err != nil {
			return err
		}
		batch = bus.NewBatch(draftID)
		batch.Add(events.TypeDraftDeleted, events.DraftDeletedPayload{
			DraftID:  draftID,
			LeagueID: fresh.LeagueID,
		})
		return nil
	})
	if err != nil {
		return err
	}
	s.pub.PublishBatch(ctx, batch)
	return nil
}
