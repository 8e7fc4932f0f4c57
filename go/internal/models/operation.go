package models

import (
	"encoding/json"
	"time"
)

// OperationType names an idempotent commissioner action.
type OperationType string

const (
	OperationStartDraft    OperationType = "START_DRAFT"
	OperationPauseDraft    OperationType = "PAUSE_DRAFT"
	OperationResumeDraft   OperationType = "RESUME_DRAFT"
	OperationCompleteDraft OperationType = "COMPLETE_DRAFT"
	OperationUndoPick      OperationType = "UNDO_PICK"
)

// OperationRecord stores the result of a keyed commissioner action so a
// retried call inside the TTL returns the original outcome.
type OperationRecord struct {
	IdempotencyKey string          `json:"idempotency_key"`
	UserID         int64           `json:"user_id"`
	OperationType  OperationType   `json:"operation_type"`
	DraftID        int64           `json:"draft_id"`
	Result         json.RawMessage `json:"result"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
}
