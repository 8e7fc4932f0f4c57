package models

import "time"

// Roster is a league franchise, the unit that holds draft slots. UserID is
// nil for orphaned franchises, which the tick scheduler drafts for
// immediately.
type Roster struct {
	ID        int64     `json:"id"`
	LeagueID  int64     `json:"league_id"`
	Name      string    `json:"name"`
	UserID    *int64    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AcquisitionType represents how a player was acquired.
type AcquisitionType string

const (
	AcquisitionTypeDraft     AcquisitionType = "DRAFT"
	AcquisitionTypeWaiver    AcquisitionType = "WAIVER"
	AcquisitionTypeTrade     AcquisitionType = "TRADE"
	AcquisitionTypeFreeAgent AcquisitionType = "FREE_AGENT"
)

// RosterPlayer is a player's membership on a roster for a season/week.
// Draft completion writes week-zero rows.
type RosterPlayer struct {
	ID              int64           `json:"id"`
	RosterID        int64           `json:"roster_id"`
	PlayerID        int64           `json:"player_id"`
	Season          int             `json:"season"`
	Week            int             `json:"week"`
	AcquisitionType AcquisitionType `json:"acquisition_type"`
	AcquiredAt      time.Time       `json:"acquired_at"`
}
