// Package state owns every draft mutation: lifecycle transitions, picks,
// order and queue management, and undo. All writes go through the per-draft
// advisory lock and collect their events into a batch that is published only
// after the transaction commits.
package state

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"github.com/openleague/draftroom/go/internal/draft/bus"
	"github.com/openleague/draftroom/go/internal/draft/events"
	"github.com/openleague/draftroom/go/internal/draft/store"
	"github.com/openleague/draftroom/go/internal/errs"
	"github.com/openleague/draftroom/go/internal/leagues"
	"github.com/openleague/draftroom/go/internal/lock"
	"github.com/openleague/draftroom/go/internal/models"
	"github.com/openleague/draftroom/go/internal/players"
	"github.com/openleague/draftroom/go/internal/rosters"
)

// DefaultOperationTTL is how long a stored idempotent operation result can be
// replayed.
const DefaultOperationTTL = 24 * time.Hour

// DraftStore defines what the state service needs from the draft store.
type DraftStore interface {
	Reader() store.Querier

	CreateDraft(ctx context.Context, tx pgx.Tx, req store.CreateDraftRequest) (*models.Draft, error)
	GetDraft(ctx context.Context, q store.Querier, id int64) (*models.Draft, error)
	GetDraftForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Draft, error)
	UpdateDraft(ctx context.Context, tx pgx.Tx, d *models.Draft) error
	ApplyNextState(ctx context.Context, tx pgx.Tx, draftID int64, params store.NextStateParams) error
	DeleteDraft(ctx context.Context, tx pgx.Tx, draftID int64) error
	NotifyDeadlineChange(ctx context.Context, tx pgx.Tx, draftID int64) error

	ListOrder(ctx context.Context, q store.Querier, draftID int64) ([]models.DraftOrderEntry, error)
	ReplaceOrder(ctx context.Context, tx pgx.Tx, draftID int64, rosterIDs []int64) error
	SetAutodraft(ctx context.Context, tx pgx.Tx, draftID, rosterID int64, enabled bool) (bool, error)

	InsertPick(ctx context.Context, tx pgx.Tx, req store.InsertPickRequest) (*models.DraftPick, error)
	GetPickByNumber(ctx context.Context, q store.Querier, draftID int64, pickNumber int) (*models.DraftPick, error)
	FindPickByIdempotencyKey(ctx context.Context, q store.Querier, draftID, rosterID int64, key string) (*models.DraftPick, error)
	PlayerDrafted(ctx context.Context, q store.Querier, draftID, playerID int64) (bool, error)
	MaxPickNumber(ctx context.Context, q store.Querier, draftID int64) (int, error)
	ListPicks(ctx context.Context, q store.Querier, draftID int64) ([]models.DraftPick, error)
	DeletePickByNumber(ctx context.Context, tx pgx.Tx, draftID int64, pickNumber int) error
	WeekFilled(ctx context.Context, q store.Querier, draftID, rosterID int64, week int) (bool, error)

	GetPickAsset(ctx context.Context, q store.Querier, id int64) (*models.PickAsset, error)
	ListDraftAssets(ctx context.Context, q store.Querier, draftID int64) ([]models.PickAsset, error)
	TransferAssetOwner(ctx context.Context, tx pgx.Tx, assetID, newOwnerRosterID int64) error
	StampOriginalPositions(ctx context.Context, tx pgx.Tx, draftID int64) error
	InsertSelection(ctx context.Context, tx pgx.Tx, req store.InsertSelectionRequest) (*models.VetPickSelection, error)
	AssetSelected(ctx context.Context, q store.Querier, draftID, assetID int64) (bool, error)
	MaxSelectionPickNumber(ctx context.Context, q store.Querier, draftID int64) (int, error)
	GetSelectionByAsset(ctx context.Context, q store.Querier, draftID, assetID int64) (*models.VetPickSelection, error)
	GetSelectionByPickNumber(ctx context.Context, q store.Querier, draftID int64, pickNumber int) (*models.VetPickSelection, error)
	DeleteSelectionByPickNumber(ctx context.Context, tx pgx.Tx, draftID int64, pickNumber int) error

	ListQueue(ctx context.Context, q store.Querier, draftID, rosterID int64) ([]models.QueueEntry, error)
	AddQueueEntry(ctx context.Context, tx pgx.Tx, draftID, rosterID int64, playerID, pickAssetID *int64) (*models.QueueEntry, error)
	RemoveQueueEntry(ctx context.Context, tx pgx.Tx, draftID, rosterID, entryID int64) (bool, error)
	ReorderQueue(ctx context.Context, tx pgx.Tx, draftID, rosterID int64, entryIDs []int64) error
	RemovePlayerFromQueues(ctx context.Context, tx pgx.Tx, draftID, playerID int64) error
	RemoveAssetFromQueues(ctx context.Context, tx pgx.Tx, draftID, assetID int64) error

	InitChessClocks(ctx context.Context, tx pgx.Tx, draftID int64, totalSeconds int) error
	GetChessClock(ctx context.Context, q store.Querier, draftID, rosterID int64) (*models.ChessClock, error)
	ListChessClocks(ctx context.Context, q store.Querier, draftID int64) ([]models.ChessClock, error)
	SpendChessClock(ctx context.Context, tx pgx.Tx, draftID, rosterID int64, seconds int) error

	FindOperation(ctx context.Context, q store.Querier, key string, userID int64, opType models.OperationType) (*models.OperationRecord, error)
	PutOperation(ctx context.Context, tx pgx.Tx, key string, userID int64, opType models.OperationType, draftID int64, result json.RawMessage, ttlSeconds int) error
}

// PlayerStore defines what the state service needs from the player store.
type PlayerStore interface {
	Reader() players.Querier
	GetPlayer(ctx context.Context, q players.Querier, id int64) (*models.Player, error)
}

// RosterStore defines what the state service needs from the roster store.
type RosterStore interface {
	Reader() rosters.Querier
	GetByLeagueAndUser(ctx context.Context, q rosters.Querier, leagueID, userID int64) (*models.Roster, error)
	ListByLeague(ctx context.Context, q rosters.Querier, leagueID int64) ([]models.Roster, error)
	PopulateFromDraftPicks(ctx context.Context, tx pgx.Tx, draftID int64, season int) error
}

// LeagueStore defines what the state service needs from the league store.
type LeagueStore interface {
	Reader() leagues.Querier
	GetLeague(ctx context.Context, q leagues.Querier, id int64) (*models.League, error)
	RequireMember(ctx context.Context, q leagues.Querier, leagueID, userID int64) error
	RequireCommissioner(ctx context.Context, q leagues.Querier, leagueID, userID int64) error
	SetStatus(ctx context.Context, tx pgx.Tx, leagueID int64, status models.LeagueStatus) error
}

// ScheduleClient triggers season schedule generation after a draft completes.
type ScheduleClient interface {
	GenerateSchedule(ctx context.Context, leagueID int64, season int) error
}

// Publisher fans out a committed event batch.
type Publisher interface {
	PublishBatch(ctx context.Context, batch *bus.Batch)
}

// Runner provides the per-draft critical section and plain transactions.
type Runner interface {
	WithLock(ctx context.Context, domain lock.Domain, id int64, fn func(tx pgx.Tx) error) error
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Service is the draft state machine.
type Service struct {
	runner   Runner
	store    DraftStore
	players  PlayerStore
	rosters  RosterStore
	leagues  LeagueStore
	schedule ScheduleClient
	pub      Publisher
	clock    clockwork.Clock
	opTTL    time.Duration
}

// NewService creates the draft state service.
func NewService(runner Runner, st DraftStore, pl PlayerStore, ro RosterStore, le LeagueStore, sched ScheduleClient, pub Publisher) *Service {
	return &Service{
		runner:   runner,
		store:    st,
		players:  pl,
		rosters:  ro,
		leagues:  le,
		schedule: sched,
		pub:      pub,
		clock:    clockwork.NewRealClock(),
		opTTL:    DefaultOperationTTL,
	}
}

// memberDraft authorises a league member and returns the draft, checked to
// belong to the league in the URL. The read is a pre-lock hint.
func (s *Service) memberDraft(ctx context.Context, leagueID, draftID, userID int64) (*models.Draft, error) {
	if err := s.leagues.RequireMember(ctx, s.leagues.Reader(), leagueID, userID); err != nil {
		return nil, err
	}
	d, err := s.store.GetDraft(ctx, s.store.Reader(), draftID)
	if err != nil {
		return nil, err
	}
	if d.LeagueID != leagueID {
		return nil, errs.NotFound(errs.CodeDraftNotFound, "draft %d not found in league %d", draftID, leagueID)
	}
	return d, nil
}

// commissionerDraft is memberDraft for commissioner-only operations.
func (s *Service) commissionerDraft(ctx context.Context, leagueID, draftID, userID int64) (*models.Draft, error) {
	if err := s.leagues.RequireCommissioner(ctx, s.leagues.Reader(), leagueID, userID); err != nil {
		return nil, err
	}
	d, err := s.store.GetDraft(ctx, s.store.Reader(), draftID)
	if err != nil {
		return nil, err
	}
	if d.LeagueID != leagueID {
		return nil, errs.NotFound(errs.CodeDraftNotFound, "draft %d not found in league %d", draftID, leagueID)
	}
	return d, nil
}

// CreateDraftRequest carries everything needed to set up a draft.
type CreateDraftRequest struct {
	LeagueID        int64
	UserID          int64
	DraftType       models.DraftType
	Rounds          int
	PickTimeSeconds int
	ScheduledStart  *time.Time
	Settings        models.DraftSettings

	OvernightPauseEnabled  bool
	OvernightPauseStart    string
	OvernightPauseEnd      string
	OvernightPauseTimezone string
}

// CreateDraft creates a draft in NOT_STARTED and seeds its order with the
// league's rosters in id order, unconfirmed.
func (s *Service) CreateDraft(ctx context.Context, req CreateDraftRequest) (*models.Draft, error) {
	if err := s.leagues.RequireCommissioner(ctx, s.leagues.Reader(), req.LeagueID, req.UserID); err != nil {
		return nil, err
	}
	league, err := s.leagues.GetLeague(ctx, s.leagues.Reader(), req.LeagueID)
	if err != nil {
		return nil, err
	}
	if err := validateDraftConfig(req.DraftType, req.Rounds, req.PickTimeSeconds, req.Settings, league); err != nil {
		return nil, err
	}
	if err := validateOvernight(req.OvernightPauseEnabled, req.OvernightPauseStart, req.OvernightPauseEnd, req.OvernightPauseTimezone); err != nil {
		return nil, err
	}
	rosterList, err := s.rosters.ListByLeague(ctx, s.rosters.Reader(), req.LeagueID)
	if err != nil {
		return nil, err
	}
	if len(rosterList) == 0 {
		return nil, errs.Validation(errs.CodeInvalidSettings, "league %d has no rosters to draft with", req.LeagueID)
	}

	var (
		created *models.Draft
		batch   *bus.Batch
	)
	err = s.runner.WithTx(ctx, func(tx pgx.Tx) error {
		d, err := s.store.CreateDraft(ctx, tx, store.CreateDraftRequest{
			LeagueID:               req.LeagueID,
			DraftType:              req.DraftType,
			Rounds:                 req.Rounds,
			PickTimeSeconds:        req.PickTimeSeconds,
			ScheduledStart:         req.ScheduledStart,
			Settings:               req.Settings,
			OvernightPauseEnabled:  req.OvernightPauseEnabled,
			OvernightPauseStart:    req.OvernightPauseStart,
			OvernightPauseEnd:      req.OvernightPauseEnd,
			OvernightPauseTimezone: req.OvernightPauseTimezone,
		})
		if err != nil {
			return err
		}
		ids := make([]int64, len(rosterList))
		for i, r := range rosterList {
			ids[i] = r.ID
		}
		if err := s.store.ReplaceOrder(ctx, tx, d.ID, ids); err != nil {
			return err
		}
		created = d
		batch = bus.NewBatch(d.ID)
		batch.Add(events.TypeDraftCreated, events.DraftCreatedPayload{
			DraftID:   d.ID,
			LeagueID:  d.LeagueID,
			DraftType: string(d.DraftType),
			Rounds:    d.Rounds,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.pub.PublishBatch(ctx, batch)
	return created, nil
}

// GetDraft returns a draft to a league member.
func (s *Service) GetDraft(ctx context.Context, leagueID, draftID, userID int64) (*models.Draft, error) {
	return s.memberDraft(ctx, leagueID, draftID, userID)
}

// Board is the full read model of a draft: the row plus order, picks made,
// asset selections, and chess clocks when the draft runs one.
type Board struct {
	Draft      *models.Draft
	Order      []models.DraftOrderEntry
	Picks      []models.DraftPick
	Selections []models.VetPickSelection
	Clocks     []models.ChessClock
}

// GetBoard assembles the board for a league member.
func (s *Service) GetBoard(ctx context.Context, leagueID, draftID, userID int64) (*Board, error) {
	d, err := s.memberDraft(ctx, leagueID, draftID, userID)
	if err != nil {
		return nil, err
	}
	q := s.store.Reader()
	entries, err := s.store.ListOrder(ctx, q, d.ID)
	if err != nil {
		return nil, err
	}
	picks, err := s.store.ListPicks(ctx, q, d.ID)
	if err != nil {
		return nil, err
	}
	board := &Board{Draft: d, Order: entries, Picks: picks}
	if d.Settings.IncludeRookiePicks {
		sels, err := s.listSelections(ctx, q, d.ID)
		if err != nil {
			return nil, err
		}
		board.Selections = sels
	}
	if d.Settings.EffectiveTimerMode() == models.TimerModeChessClock {
		clocks, err := s.store.ListChessClocks(ctx, q, d.ID)
		if err != nil {
			return nil, err
		}
		board.Clocks = clocks
	}
	return board, nil
}

// listSelections walks selections by pick number; the store has no bulk list
// because selections are rare relative to picks.
func (s *Service) listSelections(ctx context.Context, q store.Querier, draftID int64) ([]models.VetPickSelection, error) {
	maxSel, err := s.store.MaxSelectionPickNumber(ctx, q, draftID)
	if err != nil {
		return nil, err
	}
	var out []models.VetPickSelection
	for n := 1; n <= maxSel; n++ {
		sel, err := s.store.GetSelectionByPickNumber(ctx, q, draftID, n)
		if err != nil {
			return nil, err
		}
		if sel != nil {
			out = append(out, *sel)
		}
	}
	return out, nil
}

// UpdateSettingsRequest is a partial settings update; nil fields are left
// untouched.
type UpdateSettingsRequest struct {
	LeagueID int64
	DraftID  int64
	UserID   int64

	Rounds          *int
	PickTimeSeconds *int
	ScheduledStart  *time.Time
	Settings        *models.DraftSettings

	OvernightPauseEnabled  *bool
	OvernightPauseStart    *string
	OvernightPauseEnd      *string
	OvernightPauseTimezone *string
}

// UpdateSettings applies a commissioner settings change. Rounds and timer
// mode are locked once the draft has started; pick time changes only affect
// deadlines computed after the change.
func (s *Service) UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (*models.Draft, error) {
	if _, err := s.commissionerDraft(ctx, req.LeagueID, req.DraftID, req.UserID); err != nil {
		return nil, err
	}

	var (
		updated *models.Draft
		batch   *bus.Batch
	)
	err := s.runner.WithLock(ctx, lock.DomainDraft, req.DraftID, func(tx pgx.Tx) error {
		d, err := s.store.GetDraftForUpdate(ctx, tx, req.DraftID)
		if err != nil {
			return err
		}
		started := d.Status != models.DraftStatusNotStarted
		if started && req.Rounds != nil && *req.Rounds != d.Rounds {
			return errs.Conflict(errs.CodeStatusConflict, "rounds are locked once the draft has started")
		}
		if started && req.Settings != nil &&
			req.Settings.EffectiveTimerMode() != d.Settings.EffectiveTimerMode() {
			return errs.Conflict(errs.CodeTimerModeLockedAfterStart, "timer mode is locked once the draft has started")
		}

		if req.Rounds != nil {
			d.Rounds = *req.Rounds
		}
		if req.PickTimeSeconds != nil {
			d.PickTimeSeconds = *req.PickTimeSeconds
		}
		if req.ScheduledStart != nil {
			d.ScheduledStart = req.ScheduledStart
		}
		if req.Settings != nil {
			d.Settings = *req.Settings
		}
		if req.OvernightPauseEnabled != nil {
			d.OvernightPauseEnabled = *req.OvernightPauseEnabled
		}
		if req.OvernightPauseStart != nil {
			d.OvernightPauseStart = *req.OvernightPauseStart
		}
		if req.OvernightPauseEnd != nil {
			d.OvernightPauseEnd = *req.OvernightPauseEnd
		}
		if req.OvernightPauseTimezone != nil {
			d.OvernightPauseTimezone = *req.OvernightPauseTimezone
		}

		league, err := s.leagues.GetLeague(ctx, tx, d.LeagueID)
		if err != nil {
			return err
		}
		if err := validateDraftConfig(d.DraftType, d.Rounds, d.PickTimeSeconds, d.Settings, league); err != nil {
			return err
		}
		if err := validateOvernight(d.OvernightPauseEnabled, d.OvernightPauseStart, d.OvernightPauseEnd, d.OvernightPauseTimezone); err != nil {
			return err
		}
		if err := s.store.UpdateDraft(ctx, tx, d); err != nil {
			return err
		}
		updated = d
		batch = bus.NewBatch(d.ID)
		batch.Add(events.TypeDraftSettingsUpdated, events.DraftSettingsUpdatedPayload{
			DraftID:         d.ID,
			PickTimeSeconds: d.PickTimeSeconds,
			TimerMode:       string(d.Settings.EffectiveTimerMode()),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.pub.PublishBatch(ctx, batch)
	return updated, nil
}

// validateDraftConfig rejects configurations the engine cannot run.
func validateDraftConfig(draftType models.DraftType, rounds, pickTimeSeconds int, settings models.DraftSettings, league *models.League) error {
	switch draftType {
	case models.DraftTypeSnake, models.DraftTypeLinear, models.DraftTypeMatchups, models.DraftTypeAuction:
	default:
		return errs.Validation(errs.CodeInvalidSettings, "unknown draft type %q", draftType)
	}
	if rounds < 1 {
		return errs.Validation(errs.CodeInvalidSettings, "rounds must be positive, got %d", rounds)
	}
	if pickTimeSeconds < 1 {
		return errs.Validation(errs.CodeInvalidSettings, "pick time must be positive, got %d", pickTimeSeconds)
	}
	for _, pool := range settings.PlayerPool {
		switch pool {
		case models.PlayerPoolVeteran, models.PlayerPoolRookie:
		case models.PlayerPoolCollege:
			if league.Mode != models.LeagueModeDevy {
				return errs.Validation(errs.CodePoolIneligible, "college players are only draftable in devy leagues")
			}
		default:
			return errs.Validation(errs.CodePoolIneligible, "unknown player pool %q", pool)
		}
	}
	if settings.IncludeRookiePicks {
		if settings.PoolIncludes(models.PlayerPoolRookie) {
			return errs.Validation(errs.CodeInvalidSettings, "rookie pick assets cannot be drafted alongside rookie players")
		}
		if settings.RookiePicksSeason == nil {
			return errs.Validation(errs.CodeInvalidSettings, "rookie pick assets need a target season")
		}
	}
	switch settings.EffectiveTimerMode() {
	case models.TimerModePerPick:
	case models.TimerModeChessClock:
		if settings.ChessClockTotalSeconds == nil || *settings.ChessClockTotalSeconds < 1 {
			return errs.Validation(errs.CodeInvalidSettings, "chess clock drafts need a positive total budget")
		}
	default:
		return errs.Validation(errs.CodeInvalidSettings, "unknown timer mode %q", settings.TimerMode)
	}
	return nil
}

// validateOvernight checks the pause window parses before it is stored. The
// engine skips windows it cannot parse, so bad values must be rejected here.
func validateOvernight(enabled bool, start, end, timezone string) error {
	if !enabled {
		return nil
	}
	if _, err := time.Parse("15:04", start); err != nil {
		return errs.Validation(errs.CodeInvalidSettings, "overnight pause start %q is not HH:MM", start)
	}
	if _, err := time.Parse("15:04", end); err != nil {
		return errs.Validation(errs.CodeInvalidSettings, "overnight pause end %q is not HH:MM", end)
	}
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return errs.Validation(errs.CodeInvalidSettings, "unknown overnight pause timezone %q", timezone)
		}
	}
	return nil
}
