package booking

import (
	"errors"
	"fmt"
)

// Kind classifies a coordinator failure.
type Kind string

const (
	// KindInvalidInput: malformed or out of range request fields.  No side effects.
	KindInvalidInput Kind = "invalid_input"
	// KindNotFound: the referenced movie, show or booking does not exist.
	KindNotFound Kind = "not_found"
	// KindInsufficientSeats: the reservation was denied.  No side effects.
	KindInsufficientSeats Kind = "insufficient_seats"
	// KindStorage: the store failed before any seat was reserved.
	KindStorage Kind = "storage_error"
	// KindPartialFailure: seats were reserved but no booking was recorded.
	KindPartialFailure Kind = "partial_failure"
)

// State is a step of the booking state machine.
type State int

const (
	StateValidating State = iota
	StatePricing
	StateReserving
	StateRecording
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StatePricing:
		return "pricing"
	case StateReserving:
		return "reserving"
	case StateRecording:
		return "recording"
	case StateCommitted:
		return "committed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Error is returned by every Coordinator operation that fails.  ShowID,
// Quantity and Compensated are only set for KindPartialFailure.
type Error struct {
	Kind  Kind
	State State
	Msg   string
	Err   error

	ShowID      uint64
	Quantity    int
	Compensated bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or "" when err is not a booking error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsKind reports whether err is a booking error of kind k.
func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }

func invalid(msg string) *Error {
	return &Error{Kind: KindInvalidInput, State: StateValidating, Msg: msg}
}

func notFound(st State, msg string, err error) *Error {
	return &Error{Kind: KindNotFound, State: st, Msg: msg, Err: err}
}

func storage(st State, msg string, err error) *Error {
	return &Error{Kind: KindStorage, State: st, Msg: msg, Err: err}
}
