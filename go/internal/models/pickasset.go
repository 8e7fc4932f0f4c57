package models

import "time"

// PickAsset is a tradeable representation of a future or current draft slot.
// The original roster never changes; ownership moves through trades and
// vet-draft asset selections.
type PickAsset struct {
	ID                   int64     `json:"id"`
	LeagueID             int64     `json:"league_id"`
	DraftID              *int64    `json:"draft_id,omitempty"`
	Season               int       `json:"season"`
	Round                int       `json:"round"`
	OriginalRosterID     int64     `json:"original_roster_id"`
	CurrentOwnerRosterID int64     `json:"current_owner_roster_id"`
	OriginalPickPosition *int      `json:"original_pick_position,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// IsTraded reports whether the asset has left its original roster.
func (a PickAsset) IsTraded() bool {
	return a.CurrentOwnerRosterID != a.OriginalRosterID
}

// VetPickSelection records a veteran-draft slot spent on a rookie pick asset
// instead of a player. PreviousOwnerRosterID allows undo to revert ownership.
type VetPickSelection struct {
	ID                    int64     `json:"id"`
	DraftID               int64     `json:"draft_id"`
	PickNumber            int       `json:"pick_number"`
	DraftPickAssetID      int64     `json:"draft_pick_asset_id"`
	RosterID              int64     `json:"roster_id"`
	PreviousOwnerRosterID int64     `json:"previous_owner_roster_id"`
	PickedAt              time.Time `json:"picked_at"`
}
