package bus

import (
	"github.com/openleague/draftroom/go/internal/draft/events"
)

// Item is one collected event awaiting publication.
type Item struct {
	Type    events.Type
	Payload any
}

// Batch collects events inside a draft transaction. Nothing leaves the
// process until the transaction commits and the caller hands the batch to
// the publisher; a rollback simply drops it.
type Batch struct {
	draftID int64
	items   []Item
}

// NewBatch starts an empty collection for one draft.
func NewBatch(draftID int64) *Batch {
	return &Batch{draftID: draftID}
}

// Add appends an event. Publication order follows collection order.
func (b *Batch) Add(t events.Type, payload any) {
	b.items = append(b.items, Item{Type: t, Payload: payload})
}

// DraftID returns the draft the batch belongs to.
func (b *Batch) DraftID() int64 {
	return b.draftID
}

// Items returns the collected events in collection order.
func (b *Batch) Items() []Item {
	return b.items
}

// Len returns the number of collected events.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}
