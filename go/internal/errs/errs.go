package errs

import (
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies an error for callers: it decides the transport status and
// whether a retry can help.
type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"
	KindForbidden  Kind = "FORBIDDEN"
	KindValidation Kind = "VALIDATION"
	KindConflict   Kind = "CONFLICT"
	KindTransient  Kind = "TRANSIENT"
	KindFatal      Kind = "FATAL"
)

// Stable machine-readable codes surfaced to clients.
const (
	CodeDraftNotFound      = "DRAFT_NOT_FOUND"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodePickAssetNotFound  = "PICK_ASSET_NOT_FOUND"
	CodeLeagueNotFound     = "LEAGUE_NOT_FOUND"
	CodeRosterNotFound     = "ROSTER_NOT_FOUND"
	CodeQueueEntryNotFound = "QUEUE_ENTRY_NOT_FOUND"

	CodeNotLeagueMember = "NOT_LEAGUE_MEMBER"
	CodeNotCommissioner = "NOT_COMMISSIONER"
	CodeNotInLeague     = "NOT_IN_LEAGUE"

	CodeDraftNotInProgress = "DRAFT_NOT_IN_PROGRESS"
	CodeDraftNotStartedYet = "DRAFT_NOT_STARTED_YET"
	CodeOrderNotConfirmed  = "ORDER_NOT_CONFIRMED"
	CodeNotYourTurn        = "NOT_YOUR_TURN"
	CodePickDeadlinePassed = "PICK_DEADLINE_PASSED"
	CodeInvalidWeek        = "INVALID_WEEK"
	CodePoolIneligible     = "POOL_INELIGIBLE"
	CodeInvalidSettings    = "INVALID_SETTINGS"
	CodeNothingToUndo      = "NOTHING_TO_UNDO"

	CodePickAlreadyMade           = "PICK_ALREADY_MADE"
	CodePickConflict              = "PICK_CONFLICT"
	CodeTurnConflict              = "TURN_CONFLICT"
	CodePlayerAlreadyDrafted      = "PLAYER_ALREADY_DRAFTED"
	CodeAssetAlreadySelected      = "ASSET_ALREADY_SELECTED"
	CodeTimerModeLockedAfterStart = "TIMER_MODE_LOCKED_AFTER_START"
	CodeStatusConflict            = "STATUS_CONFLICT"

	CodeInternal = "INTERNAL"
)

// Error is the domain error carried across layers.
type Error struct {
	Kind Kind
	Code string
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// Is matches on kind and code so callers can compare against template errors.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

func newError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, msg: fmt.Sprintf(format, args...)}
}

func NotFound(code, format string, args ...any) *Error {
	return newError(KindNotFound, code, format, args...)
}

func Forbidden(code, format string, args ...any) *Error {
	return newError(KindForbidden, code, format, args...)
}

func Validation(code, format string, args ...any) *Error {
	return newError(KindValidation, code, format, args...)
}

func Conflict(code, format string, args ...any) *Error {
	return newError(KindConflict, code, format, args...)
}

// Transient wraps err with a retryable marker.
func Transient(err error, format string, args ...any) *Error {
	return &Error{Kind: KindTransient, Code: CodeInternal, msg: fmt.Sprintf(format, args...), err: err}
}

// Fatal wraps err as a non-retryable internal failure.
func Fatal(err error, format string, args ...any) *Error {
	return &Error{Kind: KindFatal, Code: CodeInternal, msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf returns the kind of err, or KindFatal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// CodeOf returns the stable code of err, or INTERNAL for unclassified errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsRetryable reports whether a retry of the whole operation can succeed.
// Postgres serialization failures and deadlocks (class 40), connection-level
// failures, and anything already marked transient qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindTransient
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "40" {
			return true
		}
		// 08xxx connection exceptions
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return true
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
