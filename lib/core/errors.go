package core

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// ErrKind classifies every failure the core can report. The values are
// stable: they are part of the caller contract and must never be renumbered.
type ErrKind uint8

const (
	KindNotFound           ErrKind = iota + 1 // 1: chunk/entry/guardian/session absent
	KindCapacityExceeded                      // 2: arena, vault, or registry at limit
	KindUnauthorized                          // 3: caller is not the resource's owner/guardian
	KindInvalidState                          // 4: operation attempted from wrong lifecycle state
	KindTimingViolation                       // 5: time-lock not elapsed, cooldown active, or expiry passed
	KindIntegrityViolation                    // 6: arithmetic overflow/underflow on offsets or sizes
	KindValidationError                       // 7: malformed input (zero share index, oversized payload, ...)
)

func (k ErrKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindCapacityExceeded:
		return "CapacityExceeded"
	case KindUnauthorized:
		return "Unauthorized"
	case KindInvalidState:
		return "InvalidState"
	case KindTimingViolation:
		return "TimingViolation"
	case KindIntegrityViolation:
		return "IntegrityViolation"
	case KindValidationError:
		return "ValidationError"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the typed error returned by every component. Besides the kind and
// message it carries optional numeric context so a caller can explain *why*:
// Remaining holds the seconds left on a cooldown or time-lock
// (TimingViolation), Available the free bytes or slots (CapacityExceeded).
type Error struct {
	Kind      ErrKind // The failure class
	Msg       string  // The error message
	Remaining uint64  // TimingViolation: seconds until the operation is permitted
	Available uint64  // CapacityExceeded: space or slots still free
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindTimingViolation:
		return fmt.Sprintf("LockboxError (%s): %s (retry in %d s)", e.Kind, e.Msg, e.Remaining)
	case KindCapacityExceeded:
		return fmt.Sprintf("LockboxError (%s): %s (%d available)", e.Kind, e.Msg, e.Available)
	default:
		return fmt.Sprintf("LockboxError (%s): %s", e.Kind, e.Msg)
	}
}

// NewError creates a new Error with the given kind and message.
func NewError(kind ErrKind, format string, args ...interface{}) *Error {
	return &Error{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// NewTimingError creates a TimingViolation error carrying the remaining wait.
func NewTimingError(remaining uint64, format string, args ...interface{}) *Error {
	return &Error{
		Kind:      KindTimingViolation,
		Msg:       fmt.Sprintf(format, args...),
		Remaining: remaining,
	}
}

// NewCapacityError creates a CapacityExceeded error carrying the free space.
func NewCapacityError(available uint64, format string, args ...interface{}) *Error {
	return &Error{
		Kind:      KindCapacityExceeded,
		Msg:       fmt.Sprintf(format, args...),
		Available: available,
	}
}

// KindOf returns the kind of an error, or 0 if err is nil or not an *Error.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
