package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/openleague/draftroom/go/internal/draft/events"
	"github.com/openleague/draftroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// TypeStateSnapshot wraps the room snapshot pushed to a client right after it
// joins. It never appears on the bus; only the gateway emits it.
const TypeStateSnapshot events.Type = "draft_state_snapshot"

// maxRecentPicks bounds the pick history carried in a snapshot. Clients that
// want the full board fetch it from the draft API.
const maxRecentPicks = 10

// DraftState is the room snapshot a joining client receives before live
// events take over. Clients dedupe the overlap between the snapshot and the
// live stream on (draft_id, pick_number).
type DraftState struct {
	DraftID        int64              `json:"draft_id"`
	Status         models.DraftStatus `json:"status"`
	TotalPicks     int                `json:"total_picks"`
	CompletedPicks int                `json:"completed_picks"`
	CurrentPick    *CurrentPick       `json:"current_pick,omitempty"`
	RecentPicks    []RecentPick       `json:"recent_picks,omitempty"`
	StartedAt      *time.Time         `json:"started_at,omitempty"`
	PausedAt       *time.Time         `json:"paused_at,omitempty"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// CurrentPick describes the slot on the clock. The deadline is authoritative;
// clients render their own countdown from it and the pause events clear it.
type CurrentPick struct {
	PickNumber  int           `json:"pick_number"`
	Round       int           `json:"round"`
	RosterID    *int64        `json:"roster_id"`
	Deadline    *time.Time    `json:"deadline,omitempty"`
	ChessClocks map[int64]int `json:"chess_clocks,omitempty"`
}

// RecentPick is one entry of the short pick history in a snapshot.
type RecentPick struct {
	PickNumber  int    `json:"pick_number"`
	Round       int    `json:"round"`
	RosterID    int64  `json:"roster_id"`
	PlayerID    *int64 `json:"player_id,omitempty"`
	PlayerName  string `json:"player_name,omitempty"`
	PickAssetID *int64 `json:"pick_asset_id,omitempty"`
	IsAutoPick  bool   `json:"is_auto_pick"`
}

func (s *DraftState) clone() *DraftState {
	out := *s
	if s.CurrentPick != nil {
		cp := *s.CurrentPick
		if s.CurrentPick.ChessClocks != nil {
			cp.ChessClocks = make(map[int64]int, len(s.CurrentPick.ChessClocks))
			for rosterID, remaining := range s.CurrentPick.ChessClocks {
				cp.ChessClocks[rosterID] = remaining
			}
		}
		out.CurrentPick = &cp
	}
	out.RecentPicks = append([]RecentPick(nil), s.RecentPicks...)
	return &out
}

// StateManager folds the event stream into per-draft snapshots. Every update
// is written through to the cache so a restarted gateway, or another
// instance, can serve joiners for drafts it has not seen events for.
type StateManager struct {
	mu     sync.RWMutex
	states map[int64]*DraftState
	cache  StateCache
}

// NewStateManager creates a state manager backed by the given cache.
func NewStateManager(cache StateCache) *StateManager {
	return &StateManager{
		states: make(map[int64]*DraftState),
		cache:  cache,
	}
}

// Apply updates the snapshot for the event's draft. Applying the same event
// twice is harmless, which keeps JetStream redelivery safe.
func (sm *StateManager) Apply(ctx context.Context, env *events.Envelope) error {
	switch env.EventType {
	case events.TypeDraftSettingsUpdated, events.TypeDraftQueueUpdated, events.TypeAutodraftToggled:
		// Nothing in the snapshot changes; clients consume these live.
		return nil
	case events.TypeDraftDeleted:
		sm.mu.Lock()
		delete(sm.states, env.DraftID)
		sm.mu.Unlock()
		if err := sm.cache.Delete(ctx, env.DraftID); err != nil {
			log.Warn().Err(err).Int64("draft_id", env.DraftID).Msg("failed to drop cached draft state")
		}
		return nil
	}

	sm.mu.Lock()
	state, err := sm.loadLocked(ctx, env.DraftID)
	if err != nil {
		sm.mu.Unlock()
		return err
	}
	if err := applyEvent(state, env); err != nil {
		sm.mu.Unlock()
		return err
	}
	state.UpdatedAt = env.Timestamp
	sm.states[env.DraftID] = state
	snapshot := state.clone()
	sm.mu.Unlock()

	if err := sm.cache.Put(ctx, snapshot); err != nil {
		// The local copy is current, so joiners on this instance still get a
		// snapshot. Only other instances miss out until the next write.
		log.Warn().Err(err).Int64("draft_id", env.DraftID).Msg("failed to cache draft state")
	}
	return nil
}

// Snapshot returns the current state for a draft, falling back to the cache
// for drafts this instance has not seen events for. Returns nil when no state
// exists at all.
func (sm *StateManager) Snapshot(ctx context.Context, draftID int64) (*DraftState, error) {
	sm.mu.RLock()
	state := sm.states[draftID]
	if state != nil {
		out := state.clone()
		sm.mu.RUnlock()
		return out, nil
	}
	sm.mu.RUnlock()

	cached, err := sm.cache.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return nil, nil
	}

	sm.mu.Lock()
	// An event may have arrived while we were reading the cache.
	if state := sm.states[draftID]; state != nil {
		cached = state
	} else {
		sm.states[draftID] = cached
	}
	out := cached.clone()
	sm.mu.Unlock()
	return out, nil
}

// loadLocked finds or creates the working state for a draft. Callers hold the
// write lock.
func (sm *StateManager) loadLocked(ctx context.Context, draftID int64) (*DraftState, error) {
	if state := sm.states[draftID]; state != nil {
		return state, nil
	}
	cached, err := sm.cache.Get(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached draft state: %w", err)
	}
	if cached != nil {
		return cached, nil
	}
	return &DraftState{DraftID: draftID}, nil
}

func applyEvent(state *DraftState, env *events.Envelope) error {
	switch env.EventType {
	case events.TypeDraftCreated:
		state.Status = models.DraftStatusNotStarted

	case events.TypeDraftStarted:
		var p events.DraftStartedPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		state.Status = models.DraftStatusInProgress
		state.TotalPicks = p.TotalPicks
		state.StartedAt = &p.StartedAt

	case events.TypeDraftNextPick:
		var p events.DraftNextPickPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		state.CurrentPick = &CurrentPick{
			PickNumber:  p.CurrentPick,
			Round:       p.CurrentRound,
			RosterID:    p.CurrentRosterID,
			Deadline:    p.PickDeadline,
			ChessClocks: p.ChessClocks,
		}

	case events.TypeDraftPick:
		var p events.DraftPickPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		state.CompletedPicks = p.PickNumber
		state.CurrentPick = nil
		recordPick(state, p)

	case events.TypeDraftPickUndone:
		var p events.DraftPickUndonePayload
		if err := decode(env, &p); err != nil {
			return err
		}
		state.CompletedPicks = p.PickNumber - 1
		removePick(state, p.PickNumber)

	case events.TypeDraftPaused:
		var p events.DraftPausedPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		state.Status = models.DraftStatusPaused
		state.PausedAt = &p.PausedAt
		if state.CurrentPick != nil {
			// The deadline is void while paused; resume carries the new one.
			state.CurrentPick.Deadline = nil
		}

	case events.TypeDraftResumed:
		var p events.DraftResumedPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		state.Status = models.DraftStatusInProgress
		state.PausedAt = nil
		if state.CurrentPick != nil {
			state.CurrentPick.Deadline = p.PickDeadline
		}

	case events.TypeDraftCompleted:
		var p events.DraftCompletedPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		state.Status = models.DraftStatusCompleted
		state.CompletedAt = &p.CompletedAt
		state.CurrentPick = nil
	}
	return nil
}

func decode(env *events.Envelope, v any) error {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", env.EventType, err)
	}
	return nil
}

func recordPick(state *DraftState, p events.DraftPickPayload) {
	removePick(state, p.PickNumber)
	pick := RecentPick{
		PickNumber:  p.PickNumber,
		Round:       p.Round,
		RosterID:    p.RosterID,
		PlayerID:    p.PlayerID,
		PlayerName:  p.PlayerName,
		PickAssetID: p.PickAssetID,
		IsAutoPick:  p.IsAutoPick,
	}
	state.RecentPicks = append([]RecentPick{pick}, state.RecentPicks...)
	if len(state.RecentPicks) > maxRecentPicks {
		state.RecentPicks = state.RecentPicks[:maxRecentPicks]
	}
}

func removePick(state *DraftState, pickNumber int) {
	kept := state.RecentPicks[:0]
	for _, rp := range state.RecentPicks {
		if rp.PickNumber != pickNumber {
			kept = append(kept, rp)
		}
	}
	state.RecentPicks = kept
}
