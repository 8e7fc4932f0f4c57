package state

import (
	"context"
	"testing"

	"github.com/openleague/draftroom/go/internal/draft/events"
	"github.com/openleague/draftroom/go/internal/errs"
)

func TestAddPlayerToQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.AddToQueue(ctx, AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PlayerID: int64Ptr(21)})
	if err != nil {
		t.Fatalf("AddToQueue: %v", err)
	}
	if first.RosterID != 102 || *first.PlayerID != 21 || first.QueuePosition != 1 {
		t.Fatalf("first entry = %+v", first)
	}
	second, err := f.svc.AddToQueue(ctx, AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PlayerID: int64Ptr(22)})
	if err != nil {
		t.Fatalf("second AddToQueue: %v", err)
	}
	if second.QueuePosition != 2 {
		t.Fatalf("second entry position = %d", second.QueuePosition)
	}

	queue, err := f.svc.GetQueue(ctx, 1, 10, 202)
	if err != nil {
		t.Fatalf("GetQueue: %v", err)
	}
	if len(queue) != 2 || *queue[0].PlayerID != 21 || *queue[1].PlayerID != 22 {
		t.Fatalf("queue = %+v", queue)
	}

	wantTypes(t, f.pub.batches[0], events.TypeDraftQueueUpdated)
	payload := f.pub.batches[0].Items()[0].Payload.(events.DraftQueueUpdatedPayload)
	if payload.Action != events.QueueActionAdded || *payload.PlayerID != 21 {
		t.Fatalf("queue payload = %+v", payload)
	}
}

func TestAddToQueueExactlyOneReferent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddToQueue(ctx, AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202})
	wantCode(t, err, errs.CodeInvalidSettings)

	_, err = f.svc.AddToQueue(ctx, AddToQueueRequest{
		LeagueID: 1, DraftID: 10, UserID: 202,
		PlayerID: int64Ptr(21), PickAssetID: int64Ptr(900),
	})
	wantCode(t, err, errs.CodeInvalidSettings)
}

func TestAddDraftedPlayerToQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Pick(ctx, PickRequest{LeagueID: 1, DraftID: 10, UserID: 201, PlayerID: 55}); err != nil {
		t.Fatalf("Pick: %v", err)
	}
	_, err := f.svc.AddToQueue(ctx, AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PlayerID: int64Ptr(55)})
	wantCode(t, err, errs.CodePlayerAlreadyDrafted)
}

func TestAddIneligiblePlayerToQueue(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddToQueue(context.Background(), AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PlayerID: int64Ptr(60)})
	wantCode(t, err, errs.CodePoolIneligible)
}

func TestAddAssetToQueue(t *testing.T) {
	f := newFixture(t)
	rookieAssetFixture(f)

	entry, err := f.svc.AddToQueue(context.Background(), AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PickAssetID: int64Ptr(900)})
	if err != nil {
		t.Fatalf("AddToQueue: %v", err)
	}
	if entry.PickAssetID == nil || *entry.PickAssetID != 900 || entry.PlayerID != nil {
		t.Fatalf("asset entry = %+v", entry)
	}
}

func TestAddSelectedAssetToQueue(t *testing.T) {
	f := newFixture(t)
	rookieAssetFixture(f)
	ctx := context.Background()

	if _, err := f.svc.PickAsset(ctx, PickAssetRequest{LeagueID: 1, DraftID: 10, UserID: 201, DraftPickAssetID: 900}); err != nil {
		t.Fatalf("PickAsset: %v", err)
	}
	_, err := f.svc.AddToQueue(ctx, AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PickAssetID: int64Ptr(900)})
	wantCode(t, err, errs.CodeAssetAlreadySelected)
}

func TestRemoveFromQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.AddToQueue(ctx, AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PlayerID: int64Ptr(21)})
	if err != nil {
		t.Fatalf("AddToQueue: %v", err)
	}
	if err := f.svc.RemoveFromQueue(ctx, 1, 10, 202, entry.ID); err != nil {
		t.Fatalf("RemoveFromQueue: %v", err)
	}
	if len(f.store.queues[102]) != 0 {
		t.Fatalf("queue not emptied: %+v", f.store.queues[102])
	}

	err = f.svc.RemoveFromQueue(ctx, 1, 10, 202, entry.ID)
	wantCode(t, err, errs.CodeQueueEntryNotFound)
}

func TestRemoveFromQueueScopedToCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.AddToQueue(ctx, AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PlayerID: int64Ptr(21)})
	if err != nil {
		t.Fatalf("AddToQueue: %v", err)
	}
	// User 203 cannot remove 202's entry.
	err = f.svc.RemoveFromQueue(ctx, 1, 10, 203, entry.ID)
	wantCode(t, err, errs.CodeQueueEntryNotFound)
	if len(f.store.queues[102]) != 1 {
		t.Fatalf("entry removed across rosters")
	}
}

func TestReorderQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _ := f.svc.AddToQueue(ctx, AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PlayerID: int64Ptr(21)})
	second, _ := f.svc.AddToQueue(ctx, AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PlayerID: int64Ptr(22)})

	if err := f.svc.ReorderQueue(ctx, 1, 10, 202, []int64{second.ID, first.ID}); err != nil {
		t.Fatalf("ReorderQueue: %v", err)
	}
	queue := f.store.queues[102]
	if *queue[0].PlayerID != 22 || queue[0].QueuePosition != 1 {
		t.Fatalf("queue head = %+v", queue[0])
	}
	if *queue[1].PlayerID != 21 || queue[1].QueuePosition != 2 {
		t.Fatalf("queue tail = %+v", queue[1])
	}

	last := f.pub.batches[len(f.pub.batches)-1]
	payload := last.Items()[0].Payload.(events.DraftQueueUpdatedPayload)
	if payload.Action != events.QueueActionReordered {
		t.Fatalf("reorder payload = %+v", payload)
	}
}

func TestReorderQueueMustCoverAllEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _ := f.svc.AddToQueue(ctx, AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PlayerID: int64Ptr(21)})
	if _, err := f.svc.AddToQueue(ctx, AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PlayerID: int64Ptr(22)}); err != nil {
		t.Fatalf("AddToQueue: %v", err)
	}

	err := f.svc.ReorderQueue(ctx, 1, 10, 202, []int64{first.ID})
	wantCode(t, err, errs.CodeInvalidSettings)

	err = f.svc.ReorderQueue(ctx, 1, 10, 202, []int64{first.ID, 9999})
	wantCode(t, err, errs.CodeInvalidSettings)
}

func TestQueueUsableBeforeStart(t *testing.T) {
	f := notStartedFixture(t)

	if _, err := f.svc.AddToQueue(context.Background(), AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PlayerID: int64Ptr(21)}); err != nil {
		t.Fatalf("queueing before start: %v", err)
	}
}

func TestGetQueueIsPerRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddToQueue(ctx, AddToQueueRequest{LeagueID: 1, DraftID: 10, UserID: 202, PlayerID: int64Ptr(21)}); err != nil {
		t.Fatalf("AddToQueue: %v", err)
	}
	queue, err := f.svc.GetQueue(ctx, 1, 10, 203)
	if err != nil {
		t.Fatalf("GetQueue: %v", err)
	}
	if len(queue) != 0 {
		t.Fatalf("roster 103 sees roster 102's queue: %+v", queue)
	}
}

func TestQueueRequiresMembership(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetQueue(context.Background(), 1, 10, 999)
	wantCode(t, err, errs.CodeNotLeagueMember)
}
