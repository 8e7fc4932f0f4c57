package pickstate

import (
	"testing"
	"time"

	"github.com/openleague/draftroom/go/internal/draft/order"
	"github.com/openleague/draftroom/go/internal/models"
)

var testNow = time.Date(2026, 8, 20, 19, 0, 0, 0, time.UTC)

func testDraft(currentPick int) *models.Draft {
	return &models.Draft{
		ID:              1,
		DraftType:       models.DraftTypeSnake,
		Status:          models.DraftStatusInProgress,
		Rounds:          2,
		PickTimeSeconds: 90,
		CurrentPick:     currentPick,
	}
}

func testEntries() []models.DraftOrderEntry {
	return []models.DraftOrderEntry{
		{DraftID: 1, RosterID: 101, DraftPosition: 1},
		{DraftID: 1, RosterID: 102, DraftPosition: 2},
		{DraftID: 1, RosterID: 103, DraftPosition: 3},
	}
}

func TestComputeAdvancesThroughSnakeOrder(t *testing.T) {
	wantRosters := []int64{101, 102, 103, 103, 102, 101}
	for current := 0; current < 6; current++ {
		next, err := Compute(testDraft(current), testEntries(), nil, nil, testNow)
		if err != nil {
			t.Fatalf("Compute from pick %d: %v", current, err)
		}
		if next.Completed {
			t.Fatalf("Compute from pick %d: unexpected terminal state", current)
		}
		if next.PickNumber != current+1 {
			t.Errorf("next pick = %d, want %d", next.PickNumber, current+1)
		}
		if next.RosterID == nil || *next.RosterID != wantRosters[current] {
			t.Errorf("pick %d roster = %v, want %d", current+1, next.RosterID, wantRosters[current])
		}
		if next.Status != models.DraftStatusInProgress {
			t.Errorf("pick %d status = %s, want in progress", current+1, next.Status)
		}
	}
}

func TestComputeTerminalState(t *testing.T) {
	// Six picks on a 3x2 board: consuming the sixth ends the draft.
	next, err := Compute(testDraft(6), testEntries(), nil, nil, testNow)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !next.Completed {
		t.Fatal("expected terminal state")
	}
	if next.Status != models.DraftStatusCompleted {
		t.Errorf("status = %s, want completed", next.Status)
	}
	if next.RosterID != nil || next.Deadline != nil {
		t.Errorf("terminal state carries picker %v deadline %v, want nils", next.RosterID, next.Deadline)
	}
	if next.CompletedAt == nil || !next.CompletedAt.Equal(testNow) {
		t.Errorf("completedAt = %v, want %v", next.CompletedAt, testNow)
	}
}

func TestComputePerPickDeadline(t *testing.T) {
	next, err := Compute(testDraft(0), testEntries(), nil, nil, testNow)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := testNow.Add(90 * time.Second)
	if next.Deadline == nil || !next.Deadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", next.Deadline, want)
	}
}

func TestComputeChessClockDeadline(t *testing.T) {
	d := testDraft(0)
	d.Settings.TimerMode = models.TimerModeChessClock

	next, err := Compute(d, testEntries(), nil, Clocks{101: 300}, testNow)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := testNow.Add(300 * time.Second)
	if next.Deadline == nil || !next.Deadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", next.Deadline, want)
	}
}

func TestComputeChessClockExhaustedGetsFloor(t *testing.T) {
	d := testDraft(0)
	d.Settings.TimerMode = models.TimerModeChessClock

	next, err := Compute(d, testEntries(), nil, Clocks{101: 0}, testNow)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := testNow.Add(time.Duration(models.DefaultChessClockMinPickSeconds) * time.Second)
	if next.Deadline == nil || !next.Deadline.Equal(want) {
		t.Errorf("deadline = %v, want the %ds floor (%v)", next.Deadline, models.DefaultChessClockMinPickSeconds, want)
	}
}

func TestComputeTradedSlot(t *testing.T) {
	assets := order.BuildAssetLookup([]models.PickAsset{
		{Round: 1, OriginalRosterID: 102, CurrentOwnerRosterID: 103},
	})
	next, err := Compute(testDraft(1), testEntries(), assets, nil, testNow)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if next.RosterID == nil || *next.RosterID != 103 {
		t.Errorf("actual picker = %v, want 103", next.RosterID)
	}
	if next.OriginalRosterID == nil || *next.OriginalRosterID != 102 {
		t.Errorf("original picker = %v, want 102", next.OriginalRosterID)
	}
	if !next.Traded {
		t.Error("expected traded flag")
	}
}

func TestComputeIsPure(t *testing.T) {
	d := testDraft(2)
	first, err := Compute(d, testEntries(), nil, nil, testNow)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	second, err := Compute(d, testEntries(), nil, nil, testNow)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if *first.RosterID != *second.RosterID || first.PickNumber != second.PickNumber ||
		!first.Deadline.Equal(*second.Deadline) {
		t.Errorf("repeated compute diverged: %+v vs %+v", first, second)
	}
}
