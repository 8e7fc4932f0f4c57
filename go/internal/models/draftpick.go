package models

import "time"

// PickMetadata carries matchup details on a pick row.
type PickMetadata struct {
	Week             *int   `json:"week,omitempty"`
	OpponentRosterID *int64 `json:"opponent_roster_id,omitempty"`
}

// DraftPick represents one consumed slot in a draft. Matchup reciprocal rows
// carry a negated pick number and never advance the draft's counter.
type DraftPick struct {
	ID             int64         `json:"id"`
	DraftID        int64         `json:"draft_id"`
	PickNumber     int           `json:"pick_number"`
	Round          int           `json:"round"`
	PickInRound    int           `json:"pick_in_round"`
	RosterID       int64         `json:"roster_id"`
	PlayerID       *int64        `json:"player_id,omitempty"`
	IsAutoPick     bool          `json:"is_auto_pick"`
	IdempotencyKey *string       `json:"idempotency_key,omitempty"`
	Metadata       *PickMetadata `json:"pick_metadata,omitempty"`
	PickedAt       time.Time     `json:"picked_at"`
}
