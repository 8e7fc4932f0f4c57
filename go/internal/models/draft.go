package models

import (
	"encoding/json"
	"time"
)

// DraftType defines the type of draft.
type DraftType string

const (
	DraftTypeSnake    DraftType = "SNAKE"
	DraftTypeLinear   DraftType = "LINEAR"
	DraftTypeMatchups DraftType = "MATCHUPS"
	DraftTypeAuction  DraftType = "AUCTION"
)

// DraftStatus defines the status of a draft.
type DraftStatus string

const (
	DraftStatusNotStarted DraftStatus = "NOT_STARTED"
	DraftStatusInProgress DraftStatus = "IN_PROGRESS"
	DraftStatusPaused     DraftStatus = "PAUSED"
	DraftStatusCompleted  DraftStatus = "COMPLETED"
)

// TimerMode defines how pick deadlines are computed.
type TimerMode string

const (
	TimerModePerPick    TimerMode = "PER_PICK"
	TimerModeChessClock TimerMode = "CHESS_CLOCK"
)

// PlayerPool identifies a class of draftable players.
type PlayerPool string

const (
	PlayerPoolVeteran PlayerPool = "VETERAN"
	PlayerPoolRookie  PlayerPool = "ROOKIE"
	PlayerPoolCollege PlayerPool = "COLLEGE"
)

const (
	DefaultRookiePicksRounds        = 5
	DefaultChessClockMinPickSeconds = 10
)

// DraftSettings holds JSONB configuration for drafts.
type DraftSettings struct {
	PlayerPool               []PlayerPool    `json:"player_pool,omitempty"`
	IncludeRookiePicks       bool            `json:"include_rookie_picks,omitempty"`
	RookiePicksSeason        *int            `json:"rookie_picks_season,omitempty"`
	RookiePicksRounds        *int            `json:"rookie_picks_rounds,omitempty"`
	TimerMode                TimerMode       `json:"timer_mode,omitempty"`
	ChessClockTotalSeconds   *int            `json:"chess_clock_total_seconds,omitempty"`
	ChessClockMinPickSeconds *int            `json:"chess_clock_min_pick_seconds,omitempty"`
	AuctionSettings          json.RawMessage `json:"auction_settings,omitempty"` // delegated
}

// EffectivePool returns the configured player pool, defaulting to veteran+rookie.
func (s DraftSettings) EffectivePool() []PlayerPool {
	if len(s.PlayerPool) == 0 {
		return []PlayerPool{PlayerPoolVeteran, PlayerPoolRookie}
	}
	return s.PlayerPool
}

// PoolIncludes reports whether the effective pool contains the given class.
func (s DraftSettings) PoolIncludes(pool PlayerPool) bool {
	for _, p := range s.EffectivePool() {
		if p == pool {
			return true
		}
	}
	return false
}

// EffectiveTimerMode returns the configured timer mode, defaulting to per-pick.
func (s DraftSettings) EffectiveTimerMode() TimerMode {
	if s.TimerMode == "" {
		return TimerModePerPick
	}
	return s.TimerMode
}

// EffectiveRookiePicksRounds returns how many rookie-asset rounds are draftable.
func (s DraftSettings) EffectiveRookiePicksRounds() int {
	if s.RookiePicksRounds == nil || *s.RookiePicksRounds <= 0 {
		return DefaultRookiePicksRounds
	}
	return *s.RookiePicksRounds
}

// EffectiveChessClockMinPickSeconds returns the floor granted to an exhausted clock.
func (s DraftSettings) EffectiveChessClockMinPickSeconds() int {
	if s.ChessClockMinPickSeconds == nil || *s.ChessClockMinPickSeconds <= 0 {
		return DefaultChessClockMinPickSeconds
	}
	return *s.ChessClockMinPickSeconds
}

// DraftState holds JSONB transient fields that only matter mid-lifecycle.
type DraftState struct {
	PausedAt         *time.Time `json:"paused_at,omitempty"`
	PausedBy         *int64     `json:"paused_by,omitempty"`
	RemainingSeconds *int       `json:"remaining_seconds,omitempty"`
	TurnStartedAt    *time.Time `json:"turn_started_at,omitempty"`
}

// Draft represents a draft instance.
type Draft struct {
	ID              int64         `json:"id"`
	LeagueID        int64         `json:"league_id"`
	DraftType       DraftType     `json:"draft_type"`
	Status          DraftStatus   `json:"status"`
	Rounds          int           `json:"rounds"`
	PickTimeSeconds int           `json:"pick_time_seconds"`
	CurrentPick     int           `json:"current_pick"`
	CurrentRound    int           `json:"current_round"`
	CurrentRosterID *int64        `json:"current_roster_id,omitempty"`
	PickDeadline    *time.Time    `json:"pick_deadline,omitempty"`
	ScheduledStart  *time.Time    `json:"scheduled_start,omitempty"`
	OrderConfirmed  bool          `json:"order_confirmed"`
	Settings        DraftSettings `json:"settings"`
	State           DraftState    `json:"draft_state"`

	OvernightPauseEnabled  bool   `json:"overnight_pause_enabled"`
	OvernightPauseStart    string `json:"overnight_pause_start,omitempty"`    // "HH:MM"
	OvernightPauseEnd      string `json:"overnight_pause_end,omitempty"`      // "HH:MM"
	OvernightPauseTimezone string `json:"overnight_pause_timezone,omitempty"` // IANA name

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
