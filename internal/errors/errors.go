package errors

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind classifies a failure the way the API surfaces it. The taxonomy is:
// bad input is rejected and never retried, rate limits are surfaced
// distinctly, idempotent replays are conflicts (success-with-no-op at the
// handler level), transient remote failures are retryable, and invariant
// breaches indicate a bug or an unguarded race.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindRateLimited
	KindConflict
	KindUnavailable
	KindNotFound
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindNotFound:
		return "not_found"
	case KindInvariant:
		return "invariant"
	default:
		return "internal"
	}
}

// Error is a classified domain error.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

func newError(kind Kind, msg string) *Error { return &Error{kind: kind, msg: msg} }

// Validation rejects malformed or self-targeting input.
func Validation(msg string) error { return newError(KindValidation, msg) }

func Validationf(format string, args ...any) error {
	return newError(KindValidation, fmt.Sprintf(format, args...))
}

// RateLimited signals the caller should slow down rather than retry.
func RateLimited(msg string) error { return newError(KindRateLimited, msg) }

// Conflict marks an idempotent replay: the state the caller asked for
// already holds.
func Conflict(msg string) error { return newError(KindConflict, msg) }

// Unavailable wraps a transient remote failure that the caller may retry.
func Unavailable(msg string, err error) error {
	return &Error{kind: KindUnavailable, msg: msg, err: err}
}

// NotFound reports a missing record.
func NotFound(msg string) error { return newError(KindNotFound, msg) }

// Invariant reports a guarded-against state that should have been
// unreachable. Callers log these as unexpected.
func Invariant(msg string) error { return newError(KindInvariant, msg) }

// KindOf classifies any error, mapping infra errors from the storage and
// context layers onto the taxonomy. Unknown errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}

	var de *Error
	if errors.As(err, &de) {
		return de.kind
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindUnavailable
	default:
		return KindInternal
	}
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }
