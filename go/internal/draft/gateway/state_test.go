package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/openleague/draftroom/go/internal/draft/events"
	"github.com/openleague/draftroom/go/internal/models"
)

var gwNow = time.Date(2026, 8, 20, 19, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

// memCache is an in-memory StateCache standing in for Redis.
type memCache struct {
	mu      sync.Mutex
	states  map[int64]*DraftState
	deleted []int64
}

func newMemCache() *memCache {
	return &memCache{states: make(map[int64]*DraftState)}
}

func (c *memCache) Get(ctx context.Context, draftID int64) (*DraftState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[draftID]
	if !ok {
		return nil, nil
	}
	return state.clone(), nil
}

func (c *memCache) Put(ctx context.Context, state *DraftState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[state.DraftID] = state.clone()
	return nil
}

func (c *memCache) Delete(ctx context.Context, draftID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, draftID)
	c.deleted = append(c.deleted, draftID)
	return nil
}

var eventSeq int

func envelope(t *testing.T, typ events.Type, draftID int64, payload any) *events.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	eventSeq++
	return &events.Envelope{
		EventID:   fmt.Sprintf("evt-%d", eventSeq),
		EventType: typ,
		DraftID:   draftID,
		Timestamp: gwNow,
		Payload:   data,
	}
}

func apply(t *testing.T, sm *StateManager, envs ...*events.Envelope) {
	t.Helper()
	for _, env := range envs {
		if err := sm.Apply(context.Background(), env); err != nil {
			t.Fatalf("Apply(%s): %v", env.EventType, err)
		}
	}
}

func snapshot(t *testing.T, sm *StateManager, draftID int64) *DraftState {
	t.Helper()
	state, err := sm.Snapshot(context.Background(), draftID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return state
}

func startedEnv(t *testing.T, draftID int64, totalPicks int) *events.Envelope {
	t.Helper()
	return envelope(t, events.TypeDraftStarted, draftID, events.DraftStartedPayload{
		DraftID:     draftID,
		DraftType:   string(models.DraftTypeSnake),
		StartedAt:   gwNow,
		TotalRounds: 15,
		TotalPicks:  totalPicks,
	})
}

func nextPickEnv(t *testing.T, draftID int64, pickNumber int, rosterID int64, deadline *time.Time) *events.Envelope {
	t.Helper()
	return envelope(t, events.TypeDraftNextPick, draftID, events.DraftNextPickPayload{
		DraftID:         draftID,
		CurrentPick:     pickNumber,
		CurrentRound:    (pickNumber-1)/3 + 1,
		CurrentRosterID: int64Ptr(rosterID),
		PickDeadline:    deadline,
	})
}

func pickEnv(t *testing.T, draftID int64, pickNumber int, rosterID int64, playerID int64, name string) *events.Envelope {
	t.Helper()
	return envelope(t, events.TypeDraftPick, draftID, events.DraftPickPayload{
		DraftID:     draftID,
		PickNumber:  pickNumber,
		Round:       (pickNumber-1)/3 + 1,
		PickInRound: (pickNumber-1)%3 + 1,
		RosterID:    rosterID,
		PlayerID:    int64Ptr(playerID),
		PlayerName:  name,
		PickedAt:    gwNow,
	})
}

func TestStateFollowsDraftLifecycle(t *testing.T) {
	sm := NewStateManager(newMemCache())
	deadline := gwNow.Add(90 * time.Second)

	apply(t, sm,
		envelope(t, events.TypeDraftCreated, 7, events.DraftCreatedPayload{DraftID: 7, LeagueID: 1, DraftType: string(models.DraftTypeSnake), Rounds: 15}),
	)
	state := snapshot(t, sm, 7)
	if state == nil {
		t.Fatal("expected state after draft_created")
	}
	if state.Status != models.DraftStatusNotStarted {
		t.Fatalf("Status = %s, want NOT_STARTED", state.Status)
	}

	apply(t, sm,
		startedEnv(t, 7, 45),
		nextPickEnv(t, 7, 1, 101, &deadline),
	)
	state = snapshot(t, sm, 7)
	if state.Status != models.DraftStatusInProgress {
		t.Fatalf("Status = %s, want IN_PROGRESS", state.Status)
	}
	if state.TotalPicks != 45 {
		t.Fatalf("TotalPicks = %d, want 45", state.TotalPicks)
	}
	if state.StartedAt == nil || !state.StartedAt.Equal(gwNow) {
		t.Fatalf("StartedAt = %v, want %v", state.StartedAt, gwNow)
	}
	if state.CurrentPick == nil {
		t.Fatal("expected a current pick")
	}
	if state.CurrentPick.PickNumber != 1 || *state.CurrentPick.RosterID != 101 {
		t.Fatalf("CurrentPick = %+v", state.CurrentPick)
	}
	if state.CurrentPick.Deadline == nil || !state.CurrentPick.Deadline.Equal(deadline) {
		t.Fatalf("Deadline = %v, want %v", state.CurrentPick.Deadline, deadline)
	}

	apply(t, sm,
		pickEnv(t, 7, 1, 101, 501, "Justin Jefferson"),
		nextPickEnv(t, 7, 2, 102, &deadline),
	)
	state = snapshot(t, sm, 7)
	if state.CompletedPicks != 1 {
		t.Fatalf("CompletedPicks = %d, want 1", state.CompletedPicks)
	}
	if state.CurrentPick.PickNumber != 2 {
		t.Fatalf("CurrentPick.PickNumber = %d, want 2", state.CurrentPick.PickNumber)
	}
	if len(state.RecentPicks) != 1 || state.RecentPicks[0].PlayerName != "Justin Jefferson" {
		t.Fatalf("RecentPicks = %+v", state.RecentPicks)
	}

	apply(t, sm,
		envelope(t, events.TypeDraftCompleted, 7, events.DraftCompletedPayload{DraftID: 7, CompletedAt: gwNow.Add(time.Hour), TotalPicks: 45}),
	)
	state = snapshot(t, sm, 7)
	if state.Status != models.DraftStatusCompleted {
		t.Fatalf("Status = %s, want COMPLETED", state.Status)
	}
	if state.CurrentPick != nil {
		t.Fatalf("CurrentPick = %+v, want nil after completion", state.CurrentPick)
	}
	if state.CompletedAt == nil {
		t.Fatal("expected CompletedAt")
	}
}

func TestStatePauseClearsDeadlineResumeRestoresIt(t *testing.T) {
	sm := NewStateManager(newMemCache())
	deadline := gwNow.Add(90 * time.Second)

	apply(t, sm,
		startedEnv(t, 7, 45),
		nextPickEnv(t, 7, 1, 101, &deadline),
		envelope(t, events.TypeDraftPaused, 7, events.DraftPausedPayload{DraftID: 7, PausedAt: gwNow, Reason: "COMMISSIONER"}),
	)
	state := snapshot(t, sm, 7)
	if state.Status != models.DraftStatusPaused {
		t.Fatalf("Status = %s, want PAUSED", state.Status)
	}
	if state.PausedAt == nil {
		t.Fatal("expected PausedAt")
	}
	// The slot stays on the clock but the old deadline is void.
	if state.CurrentPick == nil {
		t.Fatal("expected current pick to survive the pause")
	}
	if state.CurrentPick.Deadline != nil {
		t.Fatalf("Deadline = %v, want nil while paused", state.CurrentPick.Deadline)
	}

	resumed := gwNow.Add(10 * time.Minute)
	newDeadline := resumed.Add(90 * time.Second)
	apply(t, sm,
		envelope(t, events.TypeDraftResumed, 7, events.DraftResumedPayload{DraftID: 7, ResumedAt: resumed, PickDeadline: &newDeadline}),
	)
	state = snapshot(t, sm, 7)
	if state.Status != models.DraftStatusInProgress {
		t.Fatalf("Status = %s, want IN_PROGRESS", state.Status)
	}
	if state.PausedAt != nil {
		t.Fatalf("PausedAt = %v, want nil after resume", state.PausedAt)
	}
	if state.CurrentPick.Deadline == nil || !state.CurrentPick.Deadline.Equal(newDeadline) {
		t.Fatalf("Deadline = %v, want %v", state.CurrentPick.Deadline, newDeadline)
	}
}

func TestStateUndoRemovesPick(t *testing.T) {
	sm := NewStateManager(newMemCache())

	apply(t, sm,
		startedEnv(t, 7, 45),
		pickEnv(t, 7, 1, 101, 501, "Justin Jefferson"),
		pickEnv(t, 7, 2, 102, 502, "Bijan Robinson"),
		envelope(t, events.TypeDraftPickUndone, 7, events.DraftPickUndonePayload{
			DraftID:    7,
			PickNumber: 2,
			RosterID:   102,
			PlayerID:   int64Ptr(502),
			UndoneBy:   201,
		}),
	)

	state := snapshot(t, sm, 7)
	if state.CompletedPicks != 1 {
		t.Fatalf("CompletedPicks = %d, want 1", state.CompletedPicks)
	}
	if len(state.RecentPicks) != 1 {
		t.Fatalf("RecentPicks len = %d, want 1", len(state.RecentPicks))
	}
	if state.RecentPicks[0].PickNumber != 1 {
		t.Fatalf("RecentPicks[0].PickNumber = %d, want 1", state.RecentPicks[0].PickNumber)
	}
}

func TestStateDeleteDropsSnapshot(t *testing.T) {
	cache := newMemCache()
	sm := NewStateManager(cache)

	apply(t, sm,
		startedEnv(t, 7, 45),
		envelope(t, events.TypeDraftDeleted, 7, events.DraftDeletedPayload{DraftID: 7, LeagueID: 1}),
	)

	state := snapshot(t, sm, 7)
	if state != nil {
		t.Fatalf("Snapshot = %+v, want nil after delete", state)
	}
	if len(cache.deleted) != 1 || cache.deleted[0] != 7 {
		t.Fatalf("cache deletes = %v, want [7]", cache.deleted)
	}
}

func TestSnapshotReadsThroughCache(t *testing.T) {
	cache := newMemCache()
	deadline := gwNow.Add(90 * time.Second)

	// One instance builds state and writes it through.
	first := NewStateManager(cache)
	apply(t, first,
		startedEnv(t, 7, 45),
		nextPickEnv(t, 7, 3, 103, &deadline),
	)

	// A fresh instance, as after a restart, serves joiners from the cache.
	second := NewStateManager(cache)
	state := snapshot(t, second, 7)
	if state == nil {
		t.Fatal("expected cached state")
	}
	if state.Status != models.DraftStatusInProgress {
		t.Fatalf("Status = %s, want IN_PROGRESS", state.Status)
	}
	if state.CurrentPick == nil || state.CurrentPick.PickNumber != 3 {
		t.Fatalf("CurrentPick = %+v", state.CurrentPick)
	}
}

func TestApplyResumesFromCachedState(t *testing.T) {
	cache := newMemCache()

	first := NewStateManager(cache)
	apply(t, first,
		startedEnv(t, 7, 45),
		pickEnv(t, 7, 1, 101, 501, "Justin Jefferson"),
	)

	// The next event after a restart lands on the cached state, not a blank one.
	second := NewStateManager(cache)
	apply(t, second, pickEnv(t, 7, 2, 102, 502, "Bijan Robinson"))

	state := snapshot(t, second, 7)
	if state.TotalPicks != 45 {
		t.Fatalf("TotalPicks = %d, want 45 from cached state", state.TotalPicks)
	}
	if state.CompletedPicks != 2 {
		t.Fatalf("CompletedPicks = %d, want 2", state.CompletedPicks)
	}
	if len(state.RecentPicks) != 2 {
		t.Fatalf("RecentPicks len = %d, want 2", len(state.RecentPicks))
	}
}

func TestRecentPicksNewestFirstAndCapped(t *testing.T) {
	sm := NewStateManager(newMemCache())

	apply(t, sm, startedEnv(t, 7, 45))
	for i := 1; i <= maxRecentPicks+2; i++ {
		apply(t, sm, pickEnv(t, 7, i, 101, int64(500+i), fmt.Sprintf("Player %d", i)))
	}

	state := snapshot(t, sm, 7)
	if len(state.RecentPicks) != maxRecentPicks {
		t.Fatalf("RecentPicks len = %d, want %d", len(state.RecentPicks), maxRecentPicks)
	}
	if state.RecentPicks[0].PickNumber != maxRecentPicks+2 {
		t.Fatalf("newest pick = %d, want %d", state.RecentPicks[0].PickNumber, maxRecentPicks+2)
	}
	if state.RecentPicks[maxRecentPicks-1].PickNumber != 3 {
		t.Fatalf("oldest kept pick = %d, want 3", state.RecentPicks[maxRecentPicks-1].PickNumber)
	}
}

func TestPickRedeliveryIsIdempotent(t *testing.T) {
	sm := NewStateManager(newMemCache())

	pick := pickEnv(t, 7, 1, 101, 501, "Justin Jefferson")
	apply(t, sm, startedEnv(t, 7, 45), pick, pick)

	state := snapshot(t, sm, 7)
	if state.CompletedPicks != 1 {
		t.Fatalf("CompletedPicks = %d, want 1", state.CompletedPicks)
	}
	if len(state.RecentPicks) != 1 {
		t.Fatalf("RecentPicks len = %d, want 1 after redelivery", len(state.RecentPicks))
	}
}

func TestChessClocksCarriedOnCurrentPick(t *testing.T) {
	sm := NewStateManager(newMemCache())
	deadline := gwNow.Add(10 * time.Minute)

	apply(t, sm,
		startedEnv(t, 7, 45),
		envelope(t, events.TypeDraftNextPick, 7, events.DraftNextPickPayload{
			DraftID:         7,
			CurrentPick:     1,
			CurrentRound:    1,
			CurrentRosterID: int64Ptr(101),
			PickDeadline:    &deadline,
			ChessClocks:     map[int64]int{101: 600, 102: 480, 103: 120},
		}),
	)

	state := snapshot(t, sm, 7)
	if state.CurrentPick == nil {
		t.Fatal("expected current pick")
	}
	if got := state.CurrentPick.ChessClocks[102]; got != 480 {
		t.Fatalf("ChessClocks[102] = %d, want 480", got)
	}

	// Snapshots are copies; mutating one must not leak into the manager.
	state.CurrentPick.ChessClocks[102] = 0
	again := snapshot(t, sm, 7)
	if got := again.CurrentPick.ChessClocks[102]; got != 480 {
		t.Fatalf("ChessClocks[102] = %d after mutating a snapshot, want 480", got)
	}
}

func TestSettingsAndQueueEventsLeaveSnapshotAlone(t *testing.T) {
	cache := newMemCache()
	sm := NewStateManager(cache)

	apply(t, sm, startedEnv(t, 7, 45))
	before := snapshot(t, sm, 7)

	// Later timestamps would show up in UpdatedAt if these events wrote.
	settings := envelope(t, events.TypeDraftSettingsUpdated, 7, events.DraftSettingsUpdatedPayload{DraftID: 7, PickTimeSeconds: 120, TimerMode: "PER_PICK"})
	queue := envelope(t, events.TypeDraftQueueUpdated, 7, events.DraftQueueUpdatedPayload{DraftID: 7, RosterID: 101, Action: events.QueueActionAdded, PlayerID: int64Ptr(501)})
	toggle := envelope(t, events.TypeAutodraftToggled, 7, events.AutodraftToggledPayload{DraftID: 7, RosterID: 101, Enabled: true})
	for _, env := range []*events.Envelope{settings, queue, toggle} {
		env.Timestamp = gwNow.Add(time.Hour)
	}
	apply(t, sm, settings, queue, toggle)

	after := snapshot(t, sm, 7)
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("UpdatedAt changed from %v to %v", before.UpdatedAt, after.UpdatedAt)
	}
	if after.Status != before.Status || after.CompletedPicks != before.CompletedPicks {
		t.Fatalf("snapshot changed: before %+v, after %+v", before, after)
	}
}
