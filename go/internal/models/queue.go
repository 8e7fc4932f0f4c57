package models

// QueueEntry is one slot in a roster's pick queue. Exactly one of PlayerID
// and PickAssetID is set.
type QueueEntry struct {
	ID            int64  `json:"id"`
	DraftID       int64  `json:"draft_id"`
	RosterID      int64  `json:"roster_id"`
	PlayerID      *int64 `json:"player_id,omitempty"`
	PickAssetID   *int64 `json:"pick_asset_id,omitempty"`
	QueuePosition int    `json:"queue_position"`
}
