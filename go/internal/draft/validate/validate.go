package validate

import (
	"time"

	"github.com/openleague/draftroom/go/internal/errs"
	"github.com/openleague/draftroom/go/internal/models"
)

// Snapshot carries the draft fields pick validation reads. Callers fill it
// from a row re-read under the DRAFT lock.
type Snapshot struct {
	Status          models.DraftStatus
	DraftType       models.DraftType
	ScheduledStart  *time.Time
	OrderConfirmed  bool
	CurrentPick     int
	PickDeadline    *time.Time
	CurrentRosterID *int64
}

// Violation is one failed pre-condition.
type Violation struct {
	Code    string
	Message string
}

// Pick returns the ordered pre-condition violations for a pick attempt.
// A draft that is not in progress is terminal: no further checks run.
// Auto-picks skip the turn and deadline checks since the scheduler acts for
// the roster after expiry.
func Pick(snap Snapshot, rosterID int64, now time.Time, isAutoPick bool) []Violation {
	if snap.Status != models.DraftStatusInProgress {
		return []Violation{{
			Code:    errs.CodeDraftNotInProgress,
			Message: "draft is not in progress",
		}}
	}

	var violations []Violation
	if snap.ScheduledStart != nil && now.Before(*snap.ScheduledStart) {
		violations = append(violations, Violation{
			Code:    errs.CodeDraftNotStartedYet,
			Message: "draft has not reached its scheduled start",
		})
	}
	if snap.DraftType != models.DraftTypeAuction && !snap.OrderConfirmed {
		violations = append(violations, Violation{
			Code:    errs.CodeOrderNotConfirmed,
			Message: "draft order has not been confirmed",
		})
	}
	if !isAutoPick {
		if snap.CurrentRosterID == nil || *snap.CurrentRosterID != rosterID {
			violations = append(violations, Violation{
				Code:    errs.CodeNotYourTurn,
				Message: "not this roster's turn",
			})
		}
		if snap.PickDeadline != nil && now.After(*snap.PickDeadline) {
			violations = append(violations, Violation{
				Code:    errs.CodePickDeadlinePassed,
				Message: "pick deadline has passed",
			})
		}
	}
	return violations
}

// FirstError converts the leading violation into its domain error, nil when
// clean.
func FirstError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	v := violations[0]
	return errs.Validation(v.Code, "%s", v.Message)
}
