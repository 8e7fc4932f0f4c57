package engine

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/openleague/draftroom/go/internal/draft/bus"
	"github.com/openleague/draftroom/go/internal/draft/order"
	"github.com/openleague/draftroom/go/internal/draft/store"
	"github.com/openleague/draftroom/go/internal/errs"
	"github.com/openleague/draftroom/go/internal/lock"
	"github.com/openleague/draftroom/go/internal/models"
	"github.com/openleague/draftroom/go/internal/players"
	"github.com/openleague/draftroom/go/internal/rosters"
)

// DraftStore defines what the engine needs from the draft store.
type DraftStore interface {
	Reader() store.Querier
	GetDraft(ctx context.Context, q store.Querier, id int64) (*models.Draft, error)
	GetDraftForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Draft, error)
	ListOrder(ctx context.Context, q store.Querier, draftID int64) ([]models.DraftOrderEntry, error)
	ListDraftAssets(ctx context.Context, q store.Querier, draftID int64) ([]models.PickAsset, error)
	GetPickByNumber(ctx context.Context, q store.Querier, draftID int64, pickNumber int) (*models.DraftPick, error)
	GetSelectionByPickNumber(ctx context.Context, q store.Querier, draftID int64, pickNumber int) (*models.VetPickSelection, error)
	ListQueue(ctx context.Context, q store.Querier, draftID, rosterID int64) ([]models.QueueEntry, error)
	PlayerDrafted(ctx context.Context, q store.Querier, draftID, playerID int64) (bool, error)
	AssetSelected(ctx context.Context, q store.Querier, draftID, assetID int64) (bool, error)
	ListSelectableAssets(ctx context.Context, q store.Querier, leagueID int64, season, maxRound int, draftID int64) ([]models.PickAsset, error)
	WeekFilled(ctx context.Context, q store.Querier, draftID, rosterID int64, week int) (bool, error)
}

// PlayerStore defines what the engine needs from the player store.
type PlayerStore interface {
	BestAvailable(ctx context.Context, q players.Querier, draftID int64, pools []models.PlayerPool) (*models.Player, error)
}

// RosterStore defines what the engine needs from the roster store.
type RosterStore interface {
	GetRoster(ctx context.Context, q rosters.Querier, id int64) (*models.Roster, error)
}

// LockRunner serialises tick work against client picks on the same draft.
type LockRunner interface {
	WithLock(ctx context.Context, domain lock.Domain, id int64, fn func(pgx.Tx) error) error
}

// PickSink applies the tick's decision through the same transactional path
// as client picks. Implemented by the draft state service.
type PickSink interface {
	ApplyAutoPickTx(ctx context.Context, tx pgx.Tx, d *models.Draft, req AutoPickRequest) (*bus.Batch, error)
	RecoverStalePickTx(ctx context.Context, tx pgx.Tx, d *models.Draft) (*bus.Batch, error)
}

// Publisher fans out a committed batch.
type Publisher interface {
	PublishBatch(ctx context.Context, batch *bus.Batch)
}

// AutoPickReason says why the tick acted for the roster.
type AutoPickReason string

const (
	ReasonEmptyRoster AutoPickReason = "EMPTY_ROSTER"
	ReasonAutodraft   AutoPickReason = "AUTODRAFT"
	ReasonTimeout     AutoPickReason = "TIMEOUT"
)

// Selection is the tick's chosen referent: a player, a pick asset, or a
// matchup slot. Exactly one of the three is populated.
type Selection struct {
	PlayerID         *int64
	PickAssetID      *int64
	Week             *int
	OpponentRosterID *int64
}

// AutoPickRequest carries the tick's decision into the pick state machine.
type AutoPickRequest struct {
	Selection
	Reason         AutoPickReason
	ForceAutodraft bool
}

// TickAction is what a tick ended up doing.
type TickAction string

const (
	TickNoop          TickAction = "noop"
	TickStaleRecovery TickAction = "stale_recovery"
	TickAutoPick      TickAction = "auto_pick"
)

// NoopReason explains a tick that changed nothing.
type NoopReason string

const (
	NoopNotFound       NoopReason = "not_found"
	NoopNotInProgress  NoopReason = "not_in_progress"
	NoopStatusChanged  NoopReason = "status_changed"
	NoopOvernightPause NoopReason = "overnight_pause"
	NoopNoneDue        NoopReason = "none_due"
)

// TickResult reports the outcome of one tick.
type TickResult struct {
	Action     TickAction
	Noop       NoopReason
	Reason     AutoPickReason
	PickNumber int
}

// Engine drives timer-initiated work for drafts: timeout autopicks,
// autodraft picks, empty-roster picks, and stale-state recovery. One
// strategy per draft type supplies the selection policy; everything else is
// shared.
type Engine struct {
	runner     LockRunner
	store      DraftStore
	players    PlayerStore
	rosters    RosterStore
	sink       PickSink
	pub        Publisher
	clock      clockwork.Clock
	defaultTZ  string
	strategies map[models.DraftType]Strategy
}

// New creates an engine over the given stores. defaultTZ names the zone used
// for overnight windows on drafts that do not set their own.
func New(runner LockRunner, st DraftStore, pl PlayerStore, ro RosterStore, sink PickSink, pub Publisher, defaultTZ string) *Engine {
	e := &Engine{
		runner:    runner,
		store:     st,
		players:   pl,
		rosters:   ro,
		sink:      sink,
		pub:       pub,
		clock:     clockwork.NewRealClock(),
		defaultTZ: defaultTZ,
	}
	e.strategies = map[models.DraftType]Strategy{
		models.DraftTypeSnake:    playerStrategy{e},
		models.DraftTypeLinear:   playerStrategy{e},
		models.DraftTypeMatchups: matchupStrategy{e},
	}
	return e
}

func (e *Engine) strategyFor(t models.DraftType) (Strategy, error) {
	s, ok := e.strategies[t]
	if !ok {
		return nil, fmt.Errorf("no tick strategy for draft type %s", t)
	}
	return s, nil
}

// Tick inspects one draft and, when its current pick is due, acts for the
// roster on the clock. The cheap status check runs outside the lock; every
// decision is made from a fresh re-read inside it.
func (e *Engine) Tick(ctx context.Context, draftID int64) (*TickResult, error) {
	hint, err := e.store.GetDraft(ctx, e.store.Reader(), draftID)
	if err != nil {
		// A draft deleted after the scheduler fetched it is not tick work.
		if errs.KindOf(err) == errs.KindNotFound {
			return &TickResult{Action: TickNoop, Noop: NoopNotFound}, nil
		}
		return nil, err
	}
	if hint.Status != models.DraftStatusInProgress {
		return &TickResult{Action: TickNoop, Noop: NoopNotInProgress}, nil
	}
	strat, err := e.strategyFor(hint.DraftType)
	if err != nil {
		return nil, err
	}

	result := &TickResult{Action: TickNoop}
	var batch *bus.Batch

	err = e.runner.WithLock(ctx, lock.DomainDraft, draftID, func(tx pgx.Tx) error {
		d, err := e.store.GetDraftForUpdate(ctx, tx, draftID)
		if err != nil {
			return err
		}
		if d.Status != models.DraftStatusInProgress {
			result.Noop = NoopStatusChanged
			return nil
		}

		now := e.clock.Now()
		if e.inOvernightWindow(d, now) {
			result.Noop = NoopOvernightPause
			return nil
		}

		entries, err := e.store.ListOrder(ctx, tx, draftID)
		if err != nil {
			return err
		}
		assets, err := e.store.ListDraftAssets(ctx, tx, draftID)
		if err != nil {
			return err
		}
		picker, err := order.ActualPickerFor(entries, d.DraftType, d.CurrentPick, order.BuildAssetLookup(assets))
		if err != nil {
			return err
		}

		deadlineExpired := d.PickDeadline != nil && now.After(*d.PickDeadline)
		autodraftOn := false
		for _, en := range entries {
			if en.RosterID == picker.RosterID {
				autodraftOn = en.IsAutodraftEnabled
				break
			}
		}
		roster, err := e.rosters.GetRoster(ctx, tx, picker.RosterID)
		if err != nil {
			return err
		}
		emptyRoster := roster.UserID == nil

		if !deadlineExpired && !autodraftOn && !emptyRoster {
			result.Noop = NoopNoneDue
			return nil
		}

		// A pick row for currentPick with the counter not advanced means a
		// previous transaction died between insert and advance. Advance only.
		existingPick, err := e.store.GetPickByNumber(ctx, tx, draftID, d.CurrentPick)
		if err != nil {
			return err
		}
		var existingSel *models.VetPickSelection
		if existingPick == nil {
			existingSel, err = e.store.GetSelectionByPickNumber(ctx, tx, draftID, d.CurrentPick)
			if err != nil {
				return err
			}
		}
		if existingPick != nil || existingSel != nil {
			batch, err = e.sink.RecoverStalePickTx(ctx, tx, d)
			if err != nil {
				return err
			}
			result.Action = TickStaleRecovery
			result.PickNumber = d.CurrentPick
			return nil
		}

		reason := ReasonTimeout
		switch {
		case emptyRoster:
			reason = ReasonEmptyRoster
		case autodraftOn:
			reason = ReasonAutodraft
		}

		sel, err := strat.SelectAutoPick(ctx, tx, d, entries, picker)
		if err != nil {
			return err
		}

		batch, err = e.sink.ApplyAutoPickTx(ctx, tx, d, AutoPickRequest{
			Selection:      sel,
			Reason:         reason,
			ForceAutodraft: reason == ReasonTimeout,
		})
		if err != nil {
			return err
		}
		result.Action = TickAutoPick
		result.Reason = reason
		result.PickNumber = d.CurrentPick
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch result.Action {
	case TickAutoPick:
		log.Info().
			Int64("draft_id", draftID).
			Int("pick_number", result.PickNumber).
			Str("reason", string(result.Reason)).
			Msg("auto-pick made")
	case TickStaleRecovery:
		log.Warn().
			Int64("draft_id", draftID).
			Int("pick_number", result.PickNumber).
			Msg("recovered stale draft state")
	default:
		log.Debug().
			Int64("draft_id", draftID).
			Str("noop", string(result.Noop)).
			Msg("tick no-op")
	}

	if batch != nil {
		e.pub.PublishBatch(ctx, batch)
	}
	return result, nil
}
