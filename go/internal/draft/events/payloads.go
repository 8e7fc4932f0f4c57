package events

import (
	"time"
)

// Event payload types shared between the draft services and the gateway.

// DraftCreatedPayload is the payload for a draft_created event.
type DraftCreatedPayload struct {
	DraftID   int64  `json:"draft_id"`
	LeagueID  int64  `json:"league_id"`
	DraftType string `json:"draft_type"`
	Rounds    int    `json:"rounds"`
}

// DraftStartedPayload is the payload for a draft_started event.
type DraftStartedPayload struct {
	DraftID     int64     `json:"draft_id"`
	DraftType   string    `json:"draft_type"`
	StartedAt   time.Time `json:"started_at"`
	TotalRounds int       `json:"total_rounds"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftPausedPayload is the payload for a draft_paused event.
type DraftPausedPayload struct {
	DraftID  int64     `json:"draft_id"`
	PausedAt time.Time `json:"paused_at"`
	PausedBy *int64    `json:"paused_by,omitempty"`
	Reason   string    `json:"reason"`
}

// DraftResumedPayload is the payload for a draft_resumed event.
type DraftResumedPayload struct {
	DraftID      int64      `json:"draft_id"`
	ResumedAt    time.Time  `json:"resumed_at"`
	PickDeadline *time.Time `json:"pick_deadline,omitempty"`
}

// DraftCompletedPayload is the payload for a draft_completed event.
type DraftCompletedPayload struct {
	DraftID     int64     `json:"draft_id"`
	CompletedAt time.Time `json:"completed_at"`
	Duration    string    `json:"duration,omitempty"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftSettingsUpdatedPayload is the payload for a draft_settings_updated
// event.
type DraftSettingsUpdatedPayload struct {
	DraftID         int64  `json:"draft_id"`
	PickTimeSeconds int    `json:"pick_time_seconds"`
	TimerMode       string `json:"timer_mode"`
}

// DraftDeletedPayload is the payload for a draft_deleted event.
type DraftDeletedPayload struct {
	DraftID  int64 `json:"draft_id"`
	LeagueID int64 `json:"league_id"`
}

// DraftNextPickPayload is the payload for a draft_next_pick event. It names
// the roster on the clock; OriginalRosterID differs from CurrentRosterID only
// when the slot changed hands in a trade.
type DraftNextPickPayload struct {
	DraftID          int64         `json:"draft_id"`
	CurrentPick      int           `json:"current_pick"`
	CurrentRound     int           `json:"current_round"`
	CurrentRosterID  *int64        `json:"current_roster_id"`
	OriginalRosterID *int64        `json:"original_roster_id,omitempty"`
	IsTraded         bool          `json:"is_traded"`
	PickDeadline     *time.Time    `json:"pick_deadline"`
	ChessClocks      map[int64]int `json:"chess_clocks,omitempty"`
}

// DraftPickPayload is the payload for a draft_pick event, enriched with
// player identity for player picks or asset identity for rookie-pick
// selections.
type DraftPickPayload struct {
	DraftID        int64     `json:"draft_id"`
	PickNumber     int       `json:"pick_number"`
	Round          int       `json:"round"`
	PickInRound    int       `json:"pick_in_round"`
	RosterID       int64     `json:"roster_id"`
	PlayerID       *int64    `json:"player_id,omitempty"`
	PlayerName     string    `json:"player_name,omitempty"`
	PlayerPosition string    `json:"player_position,omitempty"`
	PlayerTeam     string    `json:"player_team,omitempty"`
	PickAssetID    *int64    `json:"pick_asset_id,omitempty"`
	AssetSeason    *int      `json:"asset_season,omitempty"`
	AssetRound     *int      `json:"asset_round,omitempty"`
	Week           *int      `json:"week,omitempty"`
	OpponentRoster *int64    `json:"opponent_roster_id,omitempty"`
	IsAutoPick     bool      `json:"is_auto_pick"`
	PickedAt       time.Time `json:"picked_at"`
}

// DraftPickUndonePayload is the payload for a draft_pick_undone event.
type DraftPickUndonePayload struct {
	DraftID     int64  `json:"draft_id"`
	PickNumber  int    `json:"pick_number"`
	RosterID    int64  `json:"roster_id"`
	PlayerID    *int64 `json:"player_id,omitempty"`
	PickAssetID *int64 `json:"pick_asset_id,omitempty"`
	UndoneBy    int64  `json:"undone_by"`
}

// QueueAction says what changed in a roster's queue.
type QueueAction string

const (
	QueueActionAdded     QueueAction = "added"
	QueueActionRemoved   QueueAction = "removed"
	QueueActionReordered QueueAction = "reordered"
)

// DraftQueueUpdatedPayload is the payload for a draft_queue_updated event.
// RosterID is absent when a completed pick swept the referent out of every
// queue in the draft rather than one roster editing its own.
type DraftQueueUpdatedPayload struct {
	DraftID     int64       `json:"draft_id"`
	RosterID    int64       `json:"roster_id,omitempty"`
	Action      QueueAction `json:"action"`
	PlayerID    *int64      `json:"player_id,omitempty"`
	PickAssetID *int64      `json:"pick_asset_id,omitempty"`
}

// AutodraftToggledPayload is the payload for a draft_autodraft_toggled event.
// Forced marks the scheduler flipping the flag on after a timeout.
type AutodraftToggledPayload struct {
	DraftID  int64 `json:"draft_id"`
	RosterID int64 `json:"roster_id"`
	Enabled  bool  `json:"enabled"`
	Forced   bool  `json:"forced"`
}
