package pickstate

import (
	"time"

	"github.com/openleague/draftroom/go/internal/draft/order"
	"github.com/openleague/draftroom/go/internal/models"
)

// Clocks is the chess-clock context keyed by roster id. Nil is fine for
// per-pick drafts.
type Clocks map[int64]int

// Next describes the draft row after a pick is consumed. Either Completed is
// set with nil pick fields, or the pick fields describe the slot now on the
// clock.
type Next struct {
	Status           models.DraftStatus
	Completed        bool
	PickNumber       int
	Round            int
	RosterID         *int64
	OriginalRosterID *int64
	Traded           bool
	Deadline         *time.Time
	CompletedAt      *time.Time
}

// Compute emits the state that follows the draft's current pick. Pure: all
// tie-breaks and the deadline recipe live here, and the same inputs always
// produce the same output relative to now.
func Compute(d *models.Draft, entries []models.DraftOrderEntry, assets order.AssetLookup, clocks Clocks, now time.Time) (Next, error) {
	return ForPick(d, entries, assets, clocks, d.CurrentPick+1, now)
}

// ForPick emits the state with the given pick number on the clock, or the
// terminal state when the number runs past the board.
func ForPick(d *models.Draft, entries []models.DraftOrderEntry, assets order.AssetLookup, clocks Clocks, pickNumber int, now time.Time) (Next, error) {
	totalPicks := len(entries) * d.Rounds
	if pickNumber > totalPicks {
		completedAt := now
		return Next{
			Status:      models.DraftStatusCompleted,
			Completed:   true,
			CompletedAt: &completedAt,
		}, nil
	}

	picker, err := order.ActualPickerFor(entries, d.DraftType, pickNumber, assets)
	if err != nil {
		return Next{}, err
	}

	slot := order.SlotFor(pickNumber, len(entries))
	deadline := deadlineFor(d, picker.RosterID, clocks, now)
	rosterID := picker.RosterID
	originalRosterID := picker.OriginalRosterID
	return Next{
		Status:           models.DraftStatusInProgress,
		PickNumber:       pickNumber,
		Round:            slot.Round,
		RosterID:         &rosterID,
		OriginalRosterID: &originalRosterID,
		Traded:           picker.Traded,
		Deadline:         &deadline,
	}, nil
}

// deadlineFor applies the timer mode: per-pick grants the full window, chess
// clock grants whatever budget remains with a small floor once exhausted.
func deadlineFor(d *models.Draft, rosterID int64, clocks Clocks, now time.Time) time.Time {
	if d.Settings.EffectiveTimerMode() == models.TimerModeChessClock {
		if remaining, ok := clocks[rosterID]; ok && remaining > 0 {
			return now.Add(time.Duration(remaining) * time.Second)
		}
		return now.Add(time.Duration(d.Settings.EffectiveChessClockMinPickSeconds()) * time.Second)
	}
	return now.Add(time.Duration(d.PickTimeSeconds) * time.Second)
}
