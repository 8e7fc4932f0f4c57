package bus

import (
	"testing"

	"github.com/openleague/draftroom/go/internal/draft/events"
)

func TestBatchKeepsCollectionOrder(t *testing.T) {
	b := NewBatch(42)
	b.Add(events.TypeDraftPick, events.DraftPickPayload{DraftID: 42, PickNumber: 7})
	b.Add(events.TypeDraftQueueUpdated, events.DraftQueueUpdatedPayload{DraftID: 42, Action: events.QueueActionRemoved})
	b.Add(events.TypeDraftNextPick, events.DraftNextPickPayload{DraftID: 42, CurrentPick: 8})

	if b.DraftID() != 42 {
		t.Errorf("DraftID() = %d, want 42", b.DraftID())
	}
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}

	want := []events.Type{
		events.TypeDraftPick,
		events.TypeDraftQueueUpdated,
		events.TypeDraftNextPick,
	}
	for i, item := range b.Items() {
		if item.Type != want[i] {
			t.Errorf("item %d: type %s, want %s", i, item.Type, want[i])
		}
	}
}

func TestBatchPayloadsSurviveCollection(t *testing.T) {
	b := NewBatch(7)
	b.Add(events.TypeDraftPick, events.DraftPickPayload{DraftID: 7, PickNumber: 3, RosterID: 101})

	item := b.Items()[0]
	payload, ok := item.Payload.(events.DraftPickPayload)
	if !ok {
		t.Fatalf("payload type %T, want events.DraftPickPayload", item.Payload)
	}
	if payload.PickNumber != 3 || payload.RosterID != 101 {
		t.Errorf("payload = %+v, want pick 3 for roster 101", payload)
	}
}

func TestEmptyAndNilBatches(t *testing.T) {
	if NewBatch(1).Len() != 0 {
		t.Error("new batch should be empty")
	}
	var b *Batch
	if b.Len() != 0 {
		t.Error("nil batch should report zero length")
	}
}
