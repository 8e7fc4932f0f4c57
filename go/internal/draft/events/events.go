package events

import (
	"encoding/json"
	"time"
)

// Type identifies a draft event on the wire.
type Type string

const (
	TypeDraftCreated         Type = "draft_created"
	TypeDraftStarted         Type = "draft_started"
	TypeDraftPaused          Type = "draft_paused"
	TypeDraftResumed         Type = "draft_resumed"
	TypeDraftCompleted       Type = "draft_completed"
	TypeDraftSettingsUpdated Type = "draft_settings_updated"
	TypeDraftDeleted         Type = "draft_deleted"
	TypeDraftNextPick        Type = "draft_next_pick"
	TypeDraftPick            Type = "draft_pick"
	TypeDraftPickUndone      Type = "draft_pick_undone"
	TypeDraftQueueUpdated    Type = "draft_queue_updated"
	TypeAutodraftToggled     Type = "draft_autodraft_toggled"
)

// Envelope is the published wrapper around every payload. EventID doubles as
// the broker-side dedupe key.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType Type            `json:"event_type"`
	DraftID   int64           `json:"draft_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}
