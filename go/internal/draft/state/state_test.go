package state

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
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

var stateNow = time.Date(2026, 8, 20, 19, 30, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func strPtr(s string) *string { return &s }

// fakeRunner hands closures a nil transaction; the in-memory store ignores it.
type fakeRunner struct {
	locked []int64
}

func (f *fakeRunner) WithLock(ctx context.Context, domain lock.Domain, id int64, fn func(pgx.Tx) error) error {
	f.locked = append(f.locked, id)
	return fn(nil)
}

func (f *fakeRunner) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return fn(nil)
}

// memStore is an in-memory stand-in for the draft store, close enough to the
// SQL semantics that the service cannot tell the difference.
type memStore struct {
	now time.Time

	draft      *models.Draft
	entries    []models.DraftOrderEntry
	picks      map[int]*models.DraftPick
	selections map[int]*models.VetPickSelection
	assets     map[int64]*models.PickAsset
	queues     map[int64][]models.QueueEntry
	clocks     map[int64]int
	operations []*models.OperationRecord

	nextID   int64
	deleted  bool
	notified int
	stamped  bool
}

func newMemStore(now time.Time, d *models.Draft, entries []models.DraftOrderEntry) *memStore {
	return &memStore{
		now:        now,
		draft:      d,
		entries:    entries,
		picks:      map[int]*models.DraftPick{},
		selections: map[int]*models.VetPickSelection{},
		assets:     map[int64]*models.PickAsset{},
		queues:     map[int64][]models.QueueEntry{},
		clocks:     map[int64]int{},
		nextID:     1000,
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) Reader() store.Querier { return nil }

func (m *memStore) CreateDraft(ctx context.Context, tx pgx.Tx, req store.CreateDraftRequest) (*models.Draft, error) {
	d := &models.Draft{
		ID:                     m.id(),
		LeagueID:               req.LeagueID,
		DraftType:              req.DraftType,
		Status:                 models.DraftStatusNotStarted,
		Rounds:                 req.Rounds,
		PickTimeSeconds:        req.PickTimeSeconds,
		ScheduledStart:         req.ScheduledStart,
		Settings:               req.Settings,
		OvernightPauseEnabled:  req.OvernightPauseEnabled,
		OvernightPauseStart:    req.OvernightPauseStart,
		OvernightPauseEnd:      req.OvernightPauseEnd,
		OvernightPauseTimezone: req.OvernightPauseTimezone,
		CreatedAt:              m.now,
		UpdatedAt:              m.now,
	}
	m.draft = d
	m.deleted = false
	out := *d
	return &out, nil
}

func (m *memStore) GetDraft(ctx context.Context, q store.Querier, id int64) (*models.Draft, error) {
	if m.deleted || m.draft == nil || m.draft.ID != id {
		return nil, errs.NotFound(errs.CodeDraftNotFound, "draft not found")
	}
	d := *m.draft
	return &d, nil
}

func (m *memStore) GetDraftForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Draft, error) {
	return m.GetDraft(ctx, nil, id)
}

func (m *memStore) UpdateDraft(ctx context.Context, tx pgx.Tx, d *models.Draft) error {
	c := *d
	m.draft = &c
	return nil
}

func (m *memStore) ApplyNextState(ctx context.Context, tx pgx.Tx, draftID int64, p store.NextStateParams) error {
	m.draft.Status = p.Status
	m.draft.CurrentPick = p.CurrentPick
	m.draft.CurrentRound = p.CurrentRound
	m.draft.CurrentRosterID = p.CurrentRosterID
	m.draft.PickDeadline = p.PickDeadline
	m.draft.CompletedAt = p.CompletedAt
	m.draft.State = p.State
	return nil
}

func (m *memStore) DeleteDraft(ctx context.Context, tx pgx.Tx, draftID int64) error {
	m.deleted = true
	m.picks = map[int]*models.DraftPick{}
	m.selections = map[int]*models.VetPickSelection{}
	m.queues = map[int64][]models.QueueEntry{}
	m.clocks = map[int64]int{}
	m.entries = nil
	for _, a := range m.assets {
		a.DraftID = nil
	}
	return nil
}

func (m *memStore) NotifyDeadlineChange(ctx context.Context, tx pgx.Tx, draftID int64) error {
	m.notified++
	return nil
}

func (m *memStore) ListOrder(ctx context.Context, q store.Querier, draftID int64) ([]models.DraftOrderEntry, error) {
	out := make([]models.DraftOrderEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *memStore) ReplaceOrder(ctx context.Context, tx pgx.Tx, draftID int64, rosterIDs []int64) error {
	autodraft := make(map[int64]bool, len(m.entries))
	for _, e := range m.entries {
		autodraft[e.RosterID] = e.IsAutodraftEnabled
	}
	m.entries = nil
	for i, id := range rosterIDs {
		m.entries = append(m.entries, models.DraftOrderEntry{
			DraftID:            draftID,
			RosterID:           id,
			DraftPosition:      i + 1,
			IsAutodraftEnabled: autodraft[id],
		})
	}
	return nil
}

func (m *memStore) SetAutodraft(ctx context.Context, tx pgx.Tx, draftID, rosterID int64, enabled bool) (bool, error) {
	for i := range m.entries {
		if m.entries[i].RosterID == rosterID {
			m.entries[i].IsAutodraftEnabled = enabled
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) InsertPick(ctx context.Context, tx pgx.Tx, req store.InsertPickRequest) (*models.DraftPick, error) {
	if _, dup := m.picks[req.PickNumber]; dup {
		return nil, errs.Conflict(errs.CodePickAlreadyMade, "pick %d already made", req.PickNumber)
	}
	if req.PlayerID != nil {
		for _, p := range m.picks {
			if p.PlayerID != nil && *p.PlayerID == *req.PlayerID {
				return nil, errs.Conflict(errs.CodePlayerAlreadyDrafted, "player already drafted")
			}
		}
	}
	pick := &models.DraftPick{
		ID:             m.id(),
		DraftID:        req.DraftID,
		PickNumber:     req.PickNumber,
		Round:          req.Round,
		PickInRound:    req.PickInRound,
		RosterID:       req.RosterID,
		PlayerID:       req.PlayerID,
		IsAutoPick:     req.IsAutoPick,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
		PickedAt:       m.now,
	}
	m.picks[req.PickNumber] = pick
	out := *pick
	return &out, nil
}

func (m *memStore) GetPickByNumber(ctx context.Context, q store.Querier, draftID int64, pickNumber int) (*models.DraftPick, error) {
	p, ok := m.picks[pickNumber]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (m *memStore) FindPickByIdempotencyKey(ctx context.Context, q store.Querier, draftID, rosterID int64, key string) (*models.DraftPick, error) {
	for _, p := range m.picks {
		if p.RosterID == rosterID && p.IdempotencyKey != nil && *p.IdempotencyKey == key {
			out := *p
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memStore) PlayerDrafted(ctx context.Context, q store.Querier, draftID, playerID int64) (bool, error) {
	for _, p := range m.picks {
		if p.PlayerID != nil && *p.PlayerID == playerID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) MaxPickNumber(ctx context.Context, q store.Querier, draftID int64) (int, error) {
	max := 0
	for n := range m.picks {
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (m *memStore) ListPicks(ctx context.Context, q store.Querier, draftID int64) ([]models.DraftPick, error) {
	var out []models.DraftPick
	for _, p := range m.picks {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PickNumber < out[j].PickNumber })
	return out, nil
}

func (m *memStore) DeletePickByNumber(ctx context.Context, tx pgx.Tx, draftID int64, pickNumber int) error {
	delete(m.picks, pickNumber)
	delete(m.picks, -pickNumber)
	return nil
}

func (m *memStore) WeekFilled(ctx context.Context, q store.Querier, draftID, rosterID int64, week int) (bool, error) {
	for _, p := range m.picks {
		if p.RosterID == rosterID && p.Metadata != nil && p.Metadata.Week != nil && *p.Metadata.Week == week {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) GetPickAsset(ctx context.Context, q store.Querier, id int64) (*models.PickAsset, error) {
	a, ok := m.assets[id]
	if !ok {
		return nil, errs.NotFound(errs.CodePickAssetNotFound, "pick asset not found")
	}
	out := *a
	return &out, nil
}

func (m *memStore) ListDraftAssets(ctx context.Context, q store.Querier, draftID int64) ([]models.PickAsset, error) {
	var out []models.PickAsset
	for _, a := range m.assets {
		if a.DraftID != nil && *a.DraftID == draftID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) TransferAssetOwner(ctx context.Context, tx pgx.Tx, assetID, newOwnerRosterID int64) error {
	if a, ok := m.assets[assetID]; ok {
		a.CurrentOwnerRosterID = newOwnerRosterID
	}
	return nil
}

func (m *memStore) StampOriginalPositions(ctx context.Context, tx pgx.Tx, draftID int64) error {
	m.stamped = true
	position := make(map[int64]int, len(m.entries))
	for _, e := range m.entries {
		position[e.RosterID] = e.DraftPosition
	}
	for _, a := range m.assets {
		if a.DraftID != nil && *a.DraftID == draftID && a.OriginalPickPosition == nil {
			if pos, ok := position[a.OriginalRosterID]; ok {
				p := pos
				a.OriginalPickPosition = &p
			}
		}
	}
	return nil
}

func (m *memStore) InsertSelection(ctx context.Context, tx pgx.Tx, req store.InsertSelectionRequest) (*models.VetPickSelection, error) {
	if _, dup := m.selections[req.PickNumber]; dup {
		return nil, errs.Conflict(errs.CodePickAlreadyMade, "pick %d already made", req.PickNumber)
	}
	for _, sel := range m.selections {
		if sel.DraftPickAssetID == req.DraftPickAssetID {
			return nil, errs.Conflict(errs.CodeAssetAlreadySelected, "asset already selected")
		}
	}
	sel := &models.VetPickSelection{
		ID:                    m.id(),
		DraftID:               req.DraftID,
		PickNumber:            req.PickNumber,
		DraftPickAssetID:      req.DraftPickAssetID,
		RosterID:              req.RosterID,
		PreviousOwnerRosterID: req.PreviousOwnerRosterID,
		PickedAt:              m.now,
	}
	m.selections[req.PickNumber] = sel
	out := *sel
	return &out, nil
}

func (m *memStore) AssetSelected(ctx context.Context, q store.Querier, draftID, assetID int64) (bool, error) {
	for _, sel := range m.selections {
		if sel.DraftPickAssetID == assetID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) MaxSelectionPickNumber(ctx context.Context, q store.Querier, draftID int64) (int, error) {
	max := 0
	for n := range m.selections {
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (m *memStore) GetSelectionByAsset(ctx context.Context, q store.Querier, draftID, assetID int64) (*models.VetPickSelection, error) {
	for _, sel := range m.selections {
		if sel.DraftPickAssetID == assetID {
			out := *sel
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetSelectionByPickNumber(ctx context.Context, q store.Querier, draftID int64, pickNumber int) (*models.VetPickSelection, error) {
	sel, ok := m.selections[pickNumber]
	if !ok {
		return nil, nil
	}
	out := *sel
	return &out, nil
}

func (m *memStore) DeleteSelectionByPickNumber(ctx context.Context, tx pgx.Tx, draftID int64, pickNumber int) error {
	delete(m.selections, pickNumber)
	return nil
}

func (m *memStore) ListQueue(ctx context.Context, q store.Querier, draftID, rosterID int64) ([]models.QueueEntry, error) {
	out := make([]models.QueueEntry, len(m.queues[rosterID]))
	copy(out, m.queues[rosterID])
	return out, nil
}

func (m *memStore) AddQueueEntry(ctx context.Context, tx pgx.Tx, draftID, rosterID int64, playerID, pickAssetID *int64) (*models.QueueEntry, error) {
	entry := models.QueueEntry{
		ID:            m.id(),
		DraftID:       draftID,
		RosterID:      rosterID,
		PlayerID:      playerID,
		PickAssetID:   pickAssetID,
		QueuePosition: len(m.queues[rosterID]) + 1,
	}
	m.queues[rosterID] = append(m.queues[rosterID], entry)
	out := entry
	return &out, nil
}

func (m *memStore) RemoveQueueEntry(ctx context.Context, tx pgx.Tx, draftID, rosterID, entryID int64) (bool, error) {
	queue := m.queues[rosterID]
	for i, e := range queue {
		if e.ID == entryID {
			m.queues[rosterID] = renumber(append(queue[:i:i], queue[i+1:]...))
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ReorderQueue(ctx context.Context, tx pgx.Tx, draftID, rosterID int64, entryIDs []int64) error {
	byID := make(map[int64]models.QueueEntry, len(m.queues[rosterID]))
	for _, e := range m.queues[rosterID] {
		byID[e.ID] = e
	}
	var out []models.QueueEntry
	for _, id := range entryIDs {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	m.queues[rosterID] = renumber(out)
	return nil
}

func (m *memStore) RemovePlayerFromQueues(ctx context.Context, tx pgx.Tx, draftID, playerID int64) error {
	for rosterID, queue := range m.queues {
		var kept []models.QueueEntry
		for _, e := range queue {
			if e.PlayerID == nil || *e.PlayerID != playerID {
				kept = append(kept, e)
			}
		}
		m.queues[rosterID] = renumber(kept)
	}
	return nil
}

func (m *memStore) RemoveAssetFromQueues(ctx context.Context, tx pgx.Tx, draftID, assetID int64) error {
	for rosterID, queue := range m.queues {
		var kept []models.QueueEntry
		for _, e := range queue {
			if e.PickAssetID == nil || *e.PickAssetID != assetID {
				kept = append(kept, e)
			}
		}
		m.queues[rosterID] = renumber(kept)
	}
	return nil
}

func renumber(queue []models.QueueEntry) []models.QueueEntry {
	for i := range queue {
		queue[i].QueuePosition = i + 1
	}
	return queue
}

func (m *memStore) InitChessClocks(ctx context.Context, tx pgx.Tx, draftID int64, totalSeconds int) error {
	for _, e := range m.entries {
		m.clocks[e.RosterID] = totalSeconds
	}
	return nil
}

func (m *memStore) GetChessClock(ctx context.Context, q store.Querier, draftID, rosterID int64) (*models.ChessClock, error) {
	remaining, ok := m.clocks[rosterID]
	if !ok {
		return nil, nil
	}
	return &models.ChessClock{DraftID: draftID, RosterID: rosterID, RemainingSeconds: remaining}, nil
}

func (m *memStore) ListChessClocks(ctx context.Context, q store.Querier, draftID int64) ([]models.ChessClock, error) {
	var out []models.ChessClock
	for rosterID, remaining := range m.clocks {
		out = append(out, models.ChessClock{DraftID: draftID, RosterID: rosterID, RemainingSeconds: remaining})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RosterID < out[j].RosterID })
	return out, nil
}

func (m *memStore) SpendChessClock(ctx context.Context, tx pgx.Tx, draftID, rosterID int64, seconds int) error {
	if remaining, ok := m.clocks[rosterID]; ok {
		remaining -= seconds
		if remaining < 0 {
			remaining = 0
		}
		m.clocks[rosterID] = remaining
	}
	return nil
}

func (m *memStore) FindOperation(ctx context.Context, q store.Querier, key string, userID int64, opType models.OperationType) (*models.OperationRecord, error) {
	for _, rec := range m.operations {
		if rec.IdempotencyKey == key && rec.UserID == userID && rec.OperationType == opType && rec.ExpiresAt.After(m.now) {
			out := *rec
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memStore) PutOperation(ctx context.Context, tx pgx.Tx, key string, userID int64, opType models.OperationType, draftID int64, result json.RawMessage, ttlSeconds int) error {
	m.operations = append(m.operations, &models.OperationRecord{
		IdempotencyKey: key,
		UserID:         userID,
		OperationType:  opType,
		DraftID:        draftID,
		Result:         result,
		CreatedAt:      m.now,
		ExpiresAt:      m.now.Add(time.Duration(ttlSeconds) * time.Second),
	})
	return nil
}

type memPlayers struct {
	byID map[int64]*models.Player
}

func (m *memPlayers) Reader() players.Querier { return nil }

func (m *memPlayers) GetPlayer(ctx context.Context, q players.Querier, id int64) (*models.Player, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, errs.NotFound(errs.CodePlayerNotFound, "player not found")
	}
	out := *p
	return &out, nil
}

type memRosters struct {
	byID            map[int64]*models.Roster
	populatedDraft  int64
	populatedSeason int
}

func (m *memRosters) Reader() rosters.Querier { return nil }

func (m *memRosters) GetByLeagueAndUser(ctx context.Context, q rosters.Querier, leagueID, userID int64) (*models.Roster, error) {
	for _, r := range m.byID {
		if r.LeagueID == leagueID && r.UserID != nil && *r.UserID == userID {
			out := *r
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memRosters) ListByLeague(ctx context.Context, q rosters.Querier, leagueID int64) ([]models.Roster, error) {
	var out []models.Roster
	for _, r := range m.byID {
		if r.LeagueID == leagueID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRosters) PopulateFromDraftPicks(ctx context.Context, tx pgx.Tx, draftID int64, season int) error {
	m.populatedDraft = draftID
	m.populatedSeason = season
	return nil
}

type memLeagues struct {
	league  *models.League
	members map[int64]bool
}

func (m *memLeagues) Reader() leagues.Querier { return nil }

func (m *memLeagues) GetLeague(ctx context.Context, q leagues.Querier, id int64) (*models.League, error) {
	if m.league == nil || m.league.ID != id {
		return nil, errs.NotFound(errs.CodeLeagueNotFound, "league not found")
	}
	out := *m.league
	return &out, nil
}

func (m *memLeagues) RequireMember(ctx context.Context, q leagues.Querier, leagueID, userID int64) error {
	if userID == m.league.CommissionerUserID || m.members[userID] {
		return nil
	}
	return errs.Forbidden(errs.CodeNotLeagueMember, "not a league member")
}

func (m *memLeagues) RequireCommissioner(ctx context.Context, q leagues.Querier, leagueID, userID int64) error {
	if userID != m.league.CommissionerUserID {
		return errs.Forbidden(errs.CodeNotCommissioner, "not the commissioner")
	}
	return nil
}

func (m *memLeagues) SetStatus(ctx context.Context, tx pgx.Tx, leagueID int64, status models.LeagueStatus) error {
	m.league.Status = status
	return nil
}

type memSchedule struct {
	calls []int64
	err   error
}

func (m *memSchedule) GenerateSchedule(ctx context.Context, leagueID int64, season int) error {
	m.calls = append(m.calls, leagueID)
	return m.err
}

type memPublisher struct {
	batches []*bus.Batch
}

func (m *memPublisher) PublishBatch(ctx context.Context, batch *bus.Batch) {
	if batch.Len() > 0 {
		m.batches = append(m.batches, batch)
	}
}

type fixture struct {
	svc      *Service
	runner   *fakeRunner
	store    *memStore
	players  *memPlayers
	rosters  *memRosters
	leagues  *memLeagues
	schedule *memSchedule
	pub      *memPublisher
}

// newFixture builds a 3-roster snake draft in progress at pick 1 with roster
// 101 (user 201, also the commissioner) on the clock.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	started := stateNow.Add(-10 * time.Minute)
	draft := &models.Draft{
		ID:              10,
		LeagueID:        1,
		DraftType:       models.DraftTypeSnake,
		Status:          models.DraftStatusInProgress,
		Rounds:          2,
		PickTimeSeconds: 90,
		CurrentPick:     1,
		CurrentRound:    1,
		CurrentRosterID: int64Ptr(101),
		PickDeadline:    timePtr(stateNow.Add(90 * time.Second)),
		OrderConfirmed:  true,
		StartedAt:       &started,
		State:           models.DraftState{TurnStartedAt: timePtr(stateNow)},
	}
	entries := []models.DraftOrderEntry{
		{DraftID: 10, RosterID: 101, DraftPosition: 1},
		{DraftID: 10, RosterID: 102, DraftPosition: 2},
		{DraftID: 10, RosterID: 103, DraftPosition: 3},
	}
	ms := newMemStore(stateNow, draft, entries)

	exp := 3
	zero := 0
	pl := &memPlayers{byID: map[int64]*models.Player{
		21: {ID: 21, FullName: "Queue One", Class: models.PlayerClassNFL, Position: "RB", YearsExp: &exp, Active: true},
		22: {ID: 22, FullName: "Queue Two", Class: models.PlayerClassNFL, Position: "WR", YearsExp: &exp, Active: true},
		55: {ID: 55, FullName: "Best Available", Class: models.PlayerClassNFL, Position: "QB", YearsExp: &exp, Active: true},
		60: {ID: 60, FullName: "College Kid", Class: models.PlayerClassCollege, Position: "QB", Active: true},
		61: {ID: 61, FullName: "Rookie Prospect", Class: models.PlayerClassNFL, Position: "WR", YearsExp: &zero, Active: true},
	}}
	ro := &memRosters{byID: map[int64]*models.Roster{
		101: {ID: 101, LeagueID: 1, Name: "Alpha", UserID: int64Ptr(201)},
		102: {ID: 102, LeagueID: 1, Name: "Bravo", UserID: int64Ptr(202)},
		103: {ID: 103, LeagueID: 1, Name: "Charlie", UserID: int64Ptr(203)},
	}}
	le := &memLeagues{
		league: &models.League{
			ID:                 1,
			Name:               "Test League",
			Mode:               models.LeagueModeDynasty,
			Status:             models.LeagueStatusDrafting,
			Season:             2026,
			CommissionerUserID: 201,
		},
		members: map[int64]bool{201: true, 202: true, 203: true},
	}
	sched := &memSchedule{}
	pub := &memPublisher{}
	runner := &fakeRunner{}

	svc := NewService(runner, ms, pl, ro, le, sched, pub)
	svc.clock = clockwork.NewFakeClockAt(stateNow)

	return &fixture{
		svc:      svc,
		runner:   runner,
		store:    ms,
		players:  pl,
		rosters:  ro,
		leagues:  le,
		schedule: sched,
		pub:      pub,
	}
}

// eventTypes flattens a published batch for order assertions.
func eventTypes(batch *bus.Batch) []events.Type {
	var out []events.Type
	for _, item := range batch.Items() {
		out = append(out, item.Type)
	}
	return out
}

func wantTypes(t *testing.T, batch *bus.Batch, want ...events.Type) {
	t.Helper()
	got := eventTypes(batch)
	if len(got) != len(want) {
		t.Fatalf("got events %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %s, want %s (all: %v)", i, got[i], want[i], got)
		}
	}
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if got := errs.CodeOf(err); got != code {
		t.Fatalf("error code = %s, want %s (err: %v)", got, code, err)
	}
}
