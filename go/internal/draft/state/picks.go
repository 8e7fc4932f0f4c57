package state

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/openleague/draftroom/go/internal/draft/bus"
	"github.com/openleague/draftroom/go/internal/draft/engine"
	"github.com/openleague/draftroom/go/internal/draft/events"
	"github.com/openleague/draftroom/go/internal/draft/order"
	"github.com/openleague/draftroom/go/internal/draft/pickstate"
	"github.com/openleague/draftroom/go/internal/draft/store"
	"github.com/openleague/draftroom/go/internal/draft/validate"
	"github.com/openleague/draftroom/go/internal/errs"
	"github.com/openleague/draftroom/go/internal/lock"
	"github.com/openleague/draftroom/go/internal/models"
)

var _ engine.PickSink = (*Service)(nil)

// pickParams is the shared input of the three transactional pick paths.
// Exactly one of playerID, assetID, and week is set.
type pickParams struct {
	draftID        int64
	expectedPick   int
	rosterID       int64
	playerID       *int64
	assetID        *int64
	week           *int
	opponentID     *int64
	idempotencyKey *string
	isAutoPick     bool
	batch          *bus.Batch
}

// txOutcome is what a pick transaction produced.
type txOutcome struct {
	pick      *models.DraftPick
	selection *models.VetPickSelection
	draft     *models.Draft
	batch     *bus.Batch
	replayed  bool
}

// PickRequest is a client player pick.
type PickRequest struct {
	LeagueID       int64
	DraftID        int64
	UserID         int64
	PlayerID       int64
	IdempotencyKey *string
}

// Pick makes a player pick for the caller's roster and advances the draft.
// A retry with the idempotency key of a committed pick returns that pick,
// even though the turn has moved on.
func (s *Service) Pick(ctx context.Context, req PickRequest) (*models.DraftPick, error) {
	d, roster, err := s.pickPreamble(ctx, req.LeagueID, req.DraftID, req.UserID)
	if err != nil {
		return nil, err
	}
	if req.IdempotencyKey != nil && *req.IdempotencyKey != "" {
		existing, err := s.store.FindPickByIdempotencyKey(ctx, s.store.Reader(), d.ID, roster.ID, *req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}
	if err := s.checkPickable(d, roster.ID); err != nil {
		return nil, err
	}
	player, err := s.players.GetPlayer(ctx, s.players.Reader(), req.PlayerID)
	if err != nil {
		return nil, err
	}
	if !playerEligible(player, d.Settings) {
		return nil, errs.Validation(errs.CodePoolIneligible, "player %d is outside the draft's player pool", player.ID)
	}

	var out *txOutcome
	err = s.runner.WithLock(ctx, lock.DomainDraft, d.ID, func(tx pgx.Tx) error {
		out, err = s.makePickAndAdvanceTx(ctx, tx, pickParams{
			draftID:        d.ID,
			expectedPick:   d.CurrentPick,
			rosterID:       roster.ID,
			playerID:       &req.PlayerID,
			idempotencyKey: req.IdempotencyKey,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.pub.PublishBatch(ctx, out.batch)
	return out.pick, nil
}

// PickAssetRequest is a client pick spent on a rookie pick asset.
type PickAssetRequest struct {
	LeagueID         int64
	DraftID          int64
	UserID           int64
	DraftPickAssetID int64
	IdempotencyKey   *string
}

// PickAsset spends the caller's turn on a rookie pick asset instead of a
// player. Ownership transfers to the caller's roster. A retry is recognised
// by the selection row the first attempt wrote.
func (s *Service) PickAsset(ctx context.Context, req PickAssetRequest) (*models.VetPickSelection, error) {
	d, roster, err := s.pickPreamble(ctx, req.LeagueID, req.DraftID, req.UserID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.GetSelectionByAsset(ctx, s.store.Reader(), d.ID, req.DraftPickAssetID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.RosterID == roster.ID {
		return existing, nil
	}
	if err := s.checkPickable(d, roster.ID); err != nil {
		return nil, err
	}

	var out *txOutcome
	err = s.runner.WithLock(ctx, lock.DomainDraft, d.ID, func(tx pgx.Tx) error {
		out, err = s.makePickAssetSelectionTx(ctx, tx, pickParams{
			draftID:        d.ID,
			expectedPick:   d.CurrentPick,
			rosterID:       roster.ID,
			assetID:        &req.DraftPickAssetID,
			idempotencyKey: req.IdempotencyKey,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.pub.PublishBatch(ctx, out.batch)
	return out.selection, nil
}

// MatchupPickRequest is a client pick that schedules a matchup week.
type MatchupPickRequest struct {
	LeagueID         int64
	DraftID          int64
	UserID           int64
	Week             int
	OpponentRosterID int64
	IdempotencyKey   *string
}

// PickMatchup schedules a matchup for the caller's roster in a matchups
// draft. The opponent gets a mirrored reciprocal row.
func (s *Service) PickMatchup(ctx context.Context, req MatchupPickRequest) (*models.DraftPick, error) {
	d, roster, err := s.pickPreamble(ctx, req.LeagueID, req.DraftID, req.UserID)
	if err != nil {
		return nil, err
	}
	if req.IdempotencyKey != nil && *req.IdempotencyKey != "" {
		existing, err := s.store.FindPickByIdempotencyKey(ctx, s.store.Reader(), d.ID, roster.ID, *req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}
	if err := s.checkPickable(d, roster.ID); err != nil {
		return nil, err
	}

	var out *txOutcome
	err = s.runner.WithLock(ctx, lock.DomainDraft, d.ID, func(tx pgx.Tx) error {
		out, err = s.makeMatchupPickAndAdvanceTx(ctx, tx, pickParams{
			draftID:        d.ID,
			expectedPick:   d.CurrentPick,
			rosterID:       roster.ID,
			week:           &req.Week,
			opponentID:     &req.OpponentRosterID,
			idempotencyKey: req.IdempotencyKey,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.pub.PublishBatch(ctx, out.batch)
	return out.pick, nil
}

// pickPreamble runs the shared pre-lock phase of a client pick: membership
// and roster resolution. Replay lookups come next, before checkPickable,
// because a retried pick fails the turn checks once the draft has moved on.
func (s *Service) pickPreamble(ctx context.Context, leagueID, draftID, userID int64) (*models.Draft, *models.Roster, error) {
	d, err := s.memberDraft(ctx, leagueID, draftID, userID)
	if err != nil {
		return nil, nil, err
	}
	roster, err := s.rosters.GetByLeagueAndUser(ctx, s.rosters.Reader(), leagueID, userID)
	if err != nil {
		return nil, nil, err
	}
	if roster == nil {
		return nil, nil, errs.Forbidden(errs.CodeNotInLeague, "user %d has no roster in league %d", userID, leagueID)
	}
	return d, roster, nil
}

// checkPickable runs the ordered validation ladder against a hint read.
func (s *Service) checkPickable(d *models.Draft, rosterID int64) error {
	violations := validate.Pick(snapshotOf(d), rosterID, s.clock.Now(), false)
	return validate.FirstError(violations)
}

func snapshotOf(d *models.Draft) validate.Snapshot {
	return validate.Snapshot{
		Status:          d.Status,
		DraftType:       d.DraftType,
		ScheduledStart:  d.ScheduledStart,
		OrderConfirmed:  d.OrderConfirmed,
		CurrentPick:     d.CurrentPick,
		PickDeadline:    d.PickDeadline,
		CurrentRosterID: d.CurrentRosterID,
	}
}

func playerEligible(p *models.Player, settings models.DraftSettings) bool {
	for _, pool := range settings.EffectivePool() {
		if p.InPool(pool) {
			return true
		}
	}
	return false
}

// makePickAndAdvanceTx is the single write path for player picks, shared by
// clients and the tick engine. It re-reads under the row lock, short
// circuits on a replayed idempotency key, inserts the pick, and advances the
// turn, collecting events into the batch as it goes.
func (s *Service) makePickAndAdvanceTx(ctx context.Context, tx pgx.Tx, p pickParams) (*txOutcome, error) {
	d, err := s.store.GetDraftForUpdate(ctx, tx, p.draftID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DraftStatusInProgress {
		return nil, errs.Validation(errs.CodeDraftNotInProgress, "draft %d is %s", d.ID, d.Status)
	}
	if p.idempotencyKey != nil && *p.idempotencyKey != "" {
		existing, err := s.store.FindPickByIdempotencyKey(ctx, tx, d.ID, p.rosterID, *p.idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &txOutcome{pick: existing, draft: d, batch: p.batch, replayed: true}, nil
		}
	}
	if d.CurrentPick != p.expectedPick {
		return nil, errs.Conflict(errs.CodePickConflict, "draft %d moved on to pick %d", d.ID, d.CurrentPick)
	}
	if !p.isAutoPick {
		if d.CurrentRosterID == nil || *d.CurrentRosterID != p.rosterID {
			return nil, errs.Conflict(errs.CodeTurnConflict, "roster %d is not on the clock", p.rosterID)
		}
	}

	playerID := *p.playerID
	taken, err := s.store.PlayerDrafted(ctx, tx, d.ID, playerID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errs.Conflict(errs.CodePlayerAlreadyDrafted, "player %d is already drafted", playerID)
	}
	player, err := s.players.GetPlayer(ctx, tx, playerID)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.ListOrder(ctx, tx, d.ID)
	if err != nil {
		return nil, err
	}
	slot := order.SlotFor(d.CurrentPick, len(entries))
	pick, err := s.store.InsertPick(ctx, tx, store.InsertPickRequest{
		DraftID:        d.ID,
		PickNumber:     d.CurrentPick,
		Round:          slot.Round,
		PickInRound:    slot.PickInRound,
		RosterID:       p.rosterID,
		PlayerID:       &playerID,
		IsAutoPick:     p.isAutoPick,
		IdempotencyKey: p.idempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.RemovePlayerFromQueues(ctx, tx, d.ID, playerID); err != nil {
		return nil, err
	}

	batch := p.batch
	if batch == nil {
		batch = bus.NewBatch(d.ID)
	}
	payload := events.DraftPickPayload{
		DraftID:     d.ID,
		PickNumber:  pick.PickNumber,
		Round:       pick.Round,
		PickInRound: pick.PickInRound,
		RosterID:    pick.RosterID,
		PlayerID:    pick.PlayerID,
		PlayerName:  player.FullName,
		IsAutoPick:  pick.IsAutoPick,
		PickedAt:    pick.PickedAt,
	}
	payload.PlayerPosition = player.Position
	if player.Team != nil {
		payload.PlayerTeam = *player.Team
	}
	batch.Add(events.TypeDraftPick, payload)
	batch.Add(events.TypeDraftQueueUpdated, events.DraftQueueUpdatedPayload{
		DraftID:  d.ID,
		Action:   events.QueueActionRemoved,
		PlayerID: &playerID,
	})

	updated, err := s.advanceTurn(ctx, tx, d, entries, batch, true)
	if err != nil {
		return nil, err
	}
	return &txOutcome{pick: pick, draft: updated, batch: batch}, nil
}

// makePickAssetSelectionTx spends a draft slot on a rookie pick asset. No
// pick row is written; the selection row holds the slot's number and the
// previous owner so undo can revert the transfer.
func (s *Service) makePickAssetSelectionTx(ctx context.Context, tx pgx.Tx, p pickParams) (*txOutcome, error) {
	d, err := s.store.GetDraftForUpdate(ctx, tx, p.draftID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DraftStatusInProgress {
		return nil, errs.Validation(errs.CodeDraftNotInProgress, "draft %d is %s", d.ID, d.Status)
	}
	assetID := *p.assetID
	existing, err := s.store.GetSelectionByAsset(ctx, tx, d.ID, assetID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.RosterID == p.rosterID {
		return &txOutcome{selection: existing, draft: d, batch: p.batch, replayed: true}, nil
	}
	if d.CurrentPick != p.expectedPick {
		return nil, errs.Conflict(errs.CodePickConflict, "draft %d moved on to pick %d", d.ID, d.CurrentPick)
	}
	if !p.isAutoPick {
		if d.CurrentRosterID == nil || *d.CurrentRosterID != p.rosterID {
			return nil, errs.Conflict(errs.CodeTurnConflict, "roster %d is not on the clock", p.rosterID)
		}
	}

	if !d.Settings.IncludeRookiePicks || d.Settings.RookiePicksSeason == nil {
		return nil, errs.Validation(errs.CodePoolIneligible, "draft %d does not include rookie pick assets", d.ID)
	}
	asset, err := s.store.GetPickAsset(ctx, tx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.LeagueID != d.LeagueID {
		return nil, errs.NotFound(errs.CodePickAssetNotFound, "pick asset %d not found in league %d", assetID, d.LeagueID)
	}
	if asset.Season != *d.Settings.RookiePicksSeason || asset.Round > d.Settings.EffectiveRookiePicksRounds() {
		return nil, errs.Validation(errs.CodePoolIneligible, "pick asset %d is outside the draftable rookie rounds", assetID)
	}
	selected, err := s.store.AssetSelected(ctx, tx, d.ID, assetID)
	if err != nil {
		return nil, err
	}
	if selected {
		return nil, errs.Conflict(errs.CodeAssetAlreadySelected, "pick asset %d is already selected", assetID)
	}

	entries, err := s.store.ListOrder(ctx, tx, d.ID)
	if err != nil {
		return nil, err
	}
	sel, err := s.store.InsertSelection(ctx, tx, store.InsertSelectionRequest{
		DraftID:               d.ID,
		PickNumber:            d.CurrentPick,
		DraftPickAssetID:      assetID,
		RosterID:              p.rosterID,
		PreviousOwnerRosterID: asset.CurrentOwnerRosterID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.TransferAssetOwner(ctx, tx, assetID, p.rosterID); err != nil {
		return nil, err
	}
	if err := s.store.RemoveAssetFromQueues(ctx, tx, d.ID, assetID); err != nil {
		return nil, err
	}

	batch := p.batch
	if batch == nil {
		batch = bus.NewBatch(d.ID)
	}
	slot := order.SlotFor(d.CurrentPick, len(entries))
	batch.Add(events.TypeDraftPick, events.DraftPickPayload{
		DraftID:     d.ID,
		PickNumber:  sel.PickNumber,
		Round:       slot.Round,
		PickInRound: slot.PickInRound,
		RosterID:    sel.RosterID,
		PickAssetID: &sel.DraftPickAssetID,
		AssetSeason: &asset.Season,
		AssetRound:  &asset.Round,
		IsAutoPick:  p.isAutoPick,
		PickedAt:    sel.PickedAt,
	})
	batch.Add(events.TypeDraftQueueUpdated, events.DraftQueueUpdatedPayload{
		DraftID:     d.ID,
		Action:      events.QueueActionRemoved,
		PickAssetID: &assetID,
	})

	updated, err := s.advanceTurn(ctx, tx, d, entries, batch, true)
	if err != nil {
		return nil, err
	}
	return &txOutcome{selection: sel, draft: updated, batch: batch}, nil
}

// makeMatchupPickAndAdvanceTx schedules a matchup week. The picker's row
// carries the positive pick number; the opponent's reciprocal row carries
// the negated number and never touches the draft's counter.
func (s *Service) makeMatchupPickAndAdvanceTx(ctx context.Context, tx pgx.Tx, p pickParams) (*txOutcome, error) {
	d, err := s.store.GetDraftForUpdate(ctx, tx, p.draftID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DraftStatusInProgress {
		return nil, errs.Validation(errs.CodeDraftNotInProgress, "draft %d is %s", d.ID, d.Status)
	}
	if d.DraftType != models.DraftTypeMatchups {
		return nil, errs.Validation(errs.CodeInvalidSettings, "draft %d does not take matchup picks", d.ID)
	}
	if p.idempotencyKey != nil && *p.idempotencyKey != "" {
		existing, err := s.store.FindPickByIdempotencyKey(ctx, tx, d.ID, p.rosterID, *p.idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &txOutcome{pick: existing, draft: d, batch: p.batch, replayed: true}, nil
		}
	}
	if d.CurrentPick != p.expectedPick {
		return nil, errs.Conflict(errs.CodePickConflict, "draft %d moved on to pick %d", d.ID, d.CurrentPick)
	}
	if !p.isAutoPick {
		if d.CurrentRosterID == nil || *d.CurrentRosterID != p.rosterID {
			return nil, errs.Conflict(errs.CodeTurnConflict, "roster %d is not on the clock", p.rosterID)
		}
	}

	week := *p.week
	opponentID := *p.opponentID
	if week < 1 || week > d.Rounds {
		return nil, errs.Validation(errs.CodeInvalidWeek, "week %d is outside 1..%d", week, d.Rounds)
	}
	if opponentID == p.rosterID {
		return nil, errs.Validation(errs.CodeInvalidWeek, "roster %d cannot schedule a matchup against itself", p.rosterID)
	}
	entries, err := s.store.ListOrder(ctx, tx, d.ID)
	if err != nil {
		return nil, err
	}
	if !inOrder(entries, opponentID) {
		return nil, errs.NotFound(errs.CodeRosterNotFound, "opponent roster %d is not in the draft", opponentID)
	}
	for _, rosterID := range []int64{p.rosterID, opponentID} {
		filled, err := s.store.WeekFilled(ctx, tx, d.ID, rosterID, week)
		if err != nil {
			return nil, err
		}
		if filled {
			return nil, errs.Validation(errs.CodeInvalidWeek, "week %d is already scheduled for roster %d", week, rosterID)
		}
	}

	slot := order.SlotFor(d.CurrentPick, len(entries))
	pick, err := s.store.InsertPick(ctx, tx, store.InsertPickRequest{
		DraftID:        d.ID,
		PickNumber:     d.CurrentPick,
		Round:          slot.Round,
		PickInRound:    slot.PickInRound,
		RosterID:       p.rosterID,
		IsAutoPick:     p.isAutoPick,
		IdempotencyKey: p.idempotencyKey,
		Metadata:       &models.PickMetadata{Week: &week, OpponentRosterID: &opponentID},
	})
	if err != nil {
		return nil, err
	}
	pickerID := p.rosterID
	_, err = s.store.InsertPick(ctx, tx, store.InsertPickRequest{
		DraftID:     d.ID,
		PickNumber:  -d.CurrentPick,
		Round:       slot.Round,
		PickInRound: slot.PickInRound,
		RosterID:    opponentID,
		IsAutoPick:  p.isAutoPick,
		Metadata:    &models.PickMetadata{Week: &week, OpponentRosterID: &pickerID},
	})
	if err != nil {
		return nil, err
	}

	batch := p.batch
	if batch == nil {
		batch = bus.NewBatch(d.ID)
	}
	batch.Add(events.TypeDraftPick, events.DraftPickPayload{
		DraftID:        d.ID,
		PickNumber:     pick.PickNumber,
		Round:          pick.Round,
		PickInRound:    pick.PickInRound,
		RosterID:       pick.RosterID,
		Week:           &week,
		OpponentRoster: &opponentID,
		IsAutoPick:     pick.IsAutoPick,
		PickedAt:       pick.PickedAt,
	})

	updated, err := s.advanceTurn(ctx, tx, d, entries, batch, true)
	if err != nil {
		return nil, err
	}
	return &txOutcome{pick: pick, draft: updated, batch: batch}, nil
}

func inOrder(entries []models.DraftOrderEntry, rosterID int64) bool {
	for _, e := range entries {
		if e.RosterID == rosterID {
			return true
		}
	}
	return false
}

// advanceTurn is the only place the draft's counter moves forward. It spends
// the chess clock when asked, computes the next pick state, applies it, pings
// the deadline channel, and collects the draft_next_pick or draft_completed
// event.
func (s *Service) advanceTurn(ctx context.Context, tx pgx.Tx, d *models.Draft, entries []models.DraftOrderEntry, batch *bus.Batch, spendClock bool) (*models.Draft, error) {
	now := s.clock.Now().UTC()

	var clocks pickstate.Clocks
	if d.Settings.EffectiveTimerMode() == models.TimerModeChessClock {
		if spendClock && d.CurrentRosterID != nil && d.State.TurnStartedAt != nil {
			elapsed := int(now.Sub(*d.State.TurnStartedAt).Seconds())
			if elapsed > 0 {
				if err := s.store.SpendChessClock(ctx, tx, d.ID, *d.CurrentRosterID, elapsed); err != nil {
					return nil, err
				}
			}
		}
		list, err := s.store.ListChessClocks(ctx, tx, d.ID)
		if err != nil {
			return nil, err
		}
		clocks = make(pickstate.Clocks, len(list))
		for _, c := range list {
			clocks[c.RosterID] = c.RemainingSeconds
		}
	}

	assets, err := s.store.ListDraftAssets(ctx, tx, d.ID)
	if err != nil {
		return nil, err
	}
	next, err := pickstate.Compute(d, entries, order.BuildAssetLookup(assets), clocks, now)
	if err != nil {
		return nil, err
	}

	updated := *d
	updated.Status = next.Status
	if next.Completed {
		updated.CurrentPick = d.CurrentPick + 1
		updated.CurrentRosterID = nil
		updated.PickDeadline = nil
		updated.CompletedAt = next.CompletedAt
		updated.State = models.DraftState{}
	} else {
		updated.CurrentPick = next.PickNumber
		updated.CurrentRound = next.Round
		updated.CurrentRosterID = next.RosterID
		updated.PickDeadline = next.Deadline
		updated.State = models.DraftState{TurnStartedAt: &now}
	}
	if err := s.store.ApplyNextState(ctx, tx, d.ID, store.NextStateParams{
		Status:          updated.Status,
		CurrentPick:     updated.CurrentPick,
		CurrentRound:    updated.CurrentRound,
		CurrentRosterID: updated.CurrentRosterID,
		PickDeadline:    updated.PickDeadline,
		CompletedAt:     updated.CompletedAt,
		State:           updated.State,
	}); err != nil {
		return nil, err
	}
	if err := s.store.NotifyDeadlineChange(ctx, tx, d.ID); err != nil {
		return nil, err
	}

	if next.Completed {
		if err := s.completeDraftTx(ctx, tx, &updated, batch, now); err != nil {
			return nil, err
		}
	} else {
		batch.Add(events.TypeDraftNextPick, events.DraftNextPickPayload{
			DraftID:          d.ID,
			CurrentPick:      updated.CurrentPick,
			CurrentRound:     updated.CurrentRound,
			CurrentRosterID:  updated.CurrentRosterID,
			OriginalRosterID: next.OriginalRosterID,
			IsTraded:         next.Traded,
			PickDeadline:     updated.PickDeadline,
			ChessClocks:      clocks,
		})
	}
	return &updated, nil
}

// completeDraftTx runs the completion side effects inside the final pick's
// transaction: roster population, the league status flip, and the schedule
// call. A schedule failure is logged, not rolled back; the draft result must
// survive a flaky downstream.
func (s *Service) completeDraftTx(ctx context.Context, tx pgx.Tx, d *models.Draft, batch *bus.Batch, now time.Time) error {
	league, err := s.leagues.GetLeague(ctx, tx, d.LeagueID)
	if err != nil {
		return err
	}
	if err := s.rosters.PopulateFromDraftPicks(ctx, tx, d.ID, league.Season); err != nil {
		return err
	}
	if err := s.leagues.SetStatus(ctx, tx, d.LeagueID, models.LeagueStatusInSeason); err != nil {
		return err
	}
	if err := s.schedule.GenerateSchedule(ctx, d.LeagueID, league.Season); err != nil {
		log.Warn().Err(err).
			Int64("league_id", d.LeagueID).
			Int64("draft_id", d.ID).
			Msg("schedule generation failed after draft completion")
	}

	var duration string
	if d.StartedAt != nil {
		duration = now.Sub(*d.StartedAt).Round(time.Second).String()
	}
	batch.Add(events.TypeDraftCompleted, events.DraftCompletedPayload{
		DraftID:     d.ID,
		CompletedAt: now,
		Duration:    duration,
		TotalPicks:  d.CurrentPick - 1,
	})
	return nil
}

// ApplyAutoPickTx routes the tick engine's decision through the same
// transactional pick paths clients use. The idempotency key is derived from
// the slot so two racing scheduler instances write one pick.
func (s *Service) ApplyAutoPickTx(ctx context.Context, tx pgx.Tx, d *models.Draft, req engine.AutoPickRequest) (*bus.Batch, error) {
	if d.CurrentRosterID == nil {
		return nil, errs.Fatal(nil, "draft %d has no roster on the clock", d.ID)
	}
	rosterID := *d.CurrentRosterID

	batch := bus.NewBatch(d.ID)
	if req.ForceAutodraft {
		changed, err := s.store.SetAutodraft(ctx, tx, d.ID, rosterID, true)
		if err != nil {
			return nil, err
		}
		if changed {
			batch.Add(events.TypeAutodraftToggled, events.AutodraftToggledPayload{
				DraftID:  d.ID,
				RosterID: rosterID,
				Enabled:  true,
				Forced:   true,
			})
		}
	}

	key := fmt.Sprintf("auto-%d-%d", d.ID, d.CurrentPick)
	p := pickParams{
		draftID:        d.ID,
		expectedPick:   d.CurrentPick,
		rosterID:       rosterID,
		idempotencyKey: &key,
		isAutoPick:     true,
		batch:          batch,
	}
	var err error
	switch {
	case req.PlayerID != nil:
		p.playerID = req.PlayerID
		_, err = s.makePickAndAdvanceTx(ctx, tx, p)
	case req.PickAssetID != nil:
		p.assetID = req.PickAssetID
		_, err = s.makePickAssetSelectionTx(ctx, tx, p)
	case req.Week != nil:
		p.week = req.Week
		p.opponentID = req.OpponentRosterID
		_, err = s.makeMatchupPickAndAdvanceTx(ctx, tx, p)
	default:
		err = errs.Fatal(nil, "auto pick for draft %d carries no selection", d.ID)
	}
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// RecoverStalePickTx advances a draft whose pick row exists but whose
// counter never moved, without writing a new pick. The consumed turn's
// chess spend is unknowable at this point and is left alone.
func (s *Service) RecoverStalePickTx(ctx context.Context, tx pgx.Tx, d *models.Draft) (*bus.Batch, error) {
	entries, err := s.store.ListOrder(ctx, tx, d.ID)
	if err != nil {
		return nil, err
	}
	batch := bus.NewBatch(d.ID)
	if _, err := s.advanceTurn(ctx, tx, d, entries, batch, false); err != nil {
		return nil, err
	}
	return batch, nil
}
