package models

// DraftOrderEntry is one roster's slot in a draft's order.
type DraftOrderEntry struct {
	DraftID            int64 `json:"draft_id"`
	RosterID           int64 `json:"roster_id"`
	DraftPosition      int   `json:"draft_position"`
	IsAutodraftEnabled bool  `json:"is_autodraft_enabled"`
}
