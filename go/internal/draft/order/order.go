package order

import (
	"fmt"

	"github.com/openleague/draftroom/go/internal/models"
)

// Slot is a pick's coordinates within the order grid.
type Slot struct {
	Round       int
	PickInRound int
}

// SlotFor maps an overall pick number onto its round and within-round pick.
func SlotFor(pickNumber, numRosters int) Slot {
	return Slot{
		Round:       (pickNumber-1)/numRosters + 1,
		PickInRound: (pickNumber-1)%numRosters + 1,
	}
}

// PositionFor returns the 1-based draft position that originally owns the
// pick. Snake reverses even rounds; matchups use the snake pick order;
// linear never reverses.
func PositionFor(draftType models.DraftType, pickNumber, numRosters int) (int, error) {
	if pickNumber < 1 {
		return 0, fmt.Errorf("pick number must be positive, got %d", pickNumber)
	}
	if numRosters < 1 {
		return 0, fmt.Errorf("draft order is empty")
	}
	slot := SlotFor(pickNumber, numRosters)
	switch draftType {
	case models.DraftTypeLinear:
		return slot.PickInRound, nil
	case models.DraftTypeSnake, models.DraftTypeMatchups:
		if slot.Round%2 == 1 {
			return slot.PickInRound, nil
		}
		return numRosters - slot.PickInRound + 1, nil
	default:
		return 0, fmt.Errorf("unsupported draft type for order policy: %s", draftType)
	}
}

// validateSorted rejects unsorted input. Callers must pass positions in
// strictly increasing order.
func validateSorted(entries []models.DraftOrderEntry) error {
	for i := 1; i < len(entries); i++ {
		if entries[i].DraftPosition <= entries[i-1].DraftPosition {
			return fmt.Errorf("draft order entries not sorted by position at index %d", i)
		}
	}
	return nil
}

// PickerFor returns the order entry that originally owns the pick.
func PickerFor(entries []models.DraftOrderEntry, draftType models.DraftType, pickNumber int) (models.DraftOrderEntry, error) {
	if err := validateSorted(entries); err != nil {
		return models.DraftOrderEntry{}, err
	}
	pos, err := PositionFor(draftType, pickNumber, len(entries))
	if err != nil {
		return models.DraftOrderEntry{}, err
	}
	return entries[pos-1], nil
}

// AssetKey identifies the pick-asset row that can rewrite one slot.
type AssetKey struct {
	Round            int
	OriginalRosterID int64
}

// AssetLookup maps an original slot to its current owner.
type AssetLookup map[AssetKey]int64

// BuildAssetLookup indexes the draft's pick assets for actual-picker
// resolution.
func BuildAssetLookup(assets []models.PickAsset) AssetLookup {
	lookup := make(AssetLookup, len(assets))
	for _, a := range assets {
		lookup[AssetKey{Round: a.Round, OriginalRosterID: a.OriginalRosterID}] = a.CurrentOwnerRosterID
	}
	return lookup
}

// Picker resolves who exercises a pick slot.
type Picker struct {
	RosterID         int64
	OriginalRosterID int64
	Traded           bool
}

// ActualPickerFor applies traded-pick rewriting on top of the original
// picker. A missing asset row means the slot was never materialised as an
// asset and the original picker drafts.
func ActualPickerFor(entries []models.DraftOrderEntry, draftType models.DraftType, pickNumber int, assets AssetLookup) (Picker, error) {
	entry, err := PickerFor(entries, draftType, pickNumber)
	if err != nil {
		return Picker{}, err
	}
	slot := SlotFor(pickNumber, len(entries))
	picker := Picker{RosterID: entry.RosterID, OriginalRosterID: entry.RosterID}
	if owner, ok := assets[AssetKey{Round: slot.Round, OriginalRosterID: entry.RosterID}]; ok {
		picker.RosterID = owner
		picker.Traded = owner != entry.RosterID
	}
	return picker, nil
}
