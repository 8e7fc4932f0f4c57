package models

import "time"

// ChessClock tracks a roster's remaining time budget in chess-clock drafts.
type ChessClock struct {
	DraftID          int64     `json:"draft_id"`
	RosterID         int64     `json:"roster_id"`
	RemainingSeconds int       `json:"remaining_seconds"`
	UpdatedAt        time.Time `json:"updated_at"`
}
