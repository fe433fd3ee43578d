// Package ledger implements the payment state machine and the debt and
// credit rules applied when a payment is confirmed. Everything here is pure:
// callers pass the current payment and a clock reading, and persist the
// result themselves.
package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies an expected domain failure.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindInvalidState  Kind = "invalid_state"
	KindInvalidAmount Kind = "invalid_amount"
	KindConflict      Kind = "conflict"
	// KindInvalidInput covers malformed catalog data such as an empty name
	// or an out of range billing day.
	KindInvalidInput  Kind = "invalid_input"
)

// Error is a routine domain failure callers are expected to branch on.
// Anything that is not an *Error is an infrastructure failure.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// Is matches on Kind so errors.Is(err, ErrNotFound) works for any op.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// Sentinels for errors.Is.
var (
	ErrNotFound      = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrInvalidState  = &Error{Kind: KindInvalidState, Msg: "invalid state"}
	ErrInvalidAmount = &Error{Kind: KindInvalidAmount, Msg: "invalid amount"}
	ErrConflict      = &Error{Kind: KindConflict, Msg: "concurrent modification"}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput, Msg: "invalid input"}
)

// NewError builds an *Error.
func NewError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of a domain error, or false for anything else.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsDomain reports whether err is an expected domain failure.
func IsDomain(err error) bool {
	_, ok := KindOf(err)
	return ok
}
