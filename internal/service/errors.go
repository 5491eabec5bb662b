package service

import (
	"errors"
	"fmt"

	"github.com/punchamoorthee/bankrecon/internal/store"
)

// Error kinds. Callers test with errors.Is; the message of the wrapping *Error is what
// gets shown to the user.
var (
	ErrUnauthorized  = errors.New("not allowed")
	ErrNotFound      = errors.New("not found")
	ErrStateConflict = errors.New("state conflict")
	ErrValidation    = errors.New("invalid input")
	ErrBusinessRule  = errors.New("business rule violated")
	ErrConfiguration = errors.New("configuration error")
)

// Error is a classified, user-facing failure.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func notFound(entity string) error {
	return newError(ErrNotFound, "%s not found", entity)
}

func finalized() error {
	return newError(ErrStateConflict, "reconciliation is finalized; no further changes are allowed")
}

// lookupErr maps a store miss to a not-found error for entity and passes everything
// else through.
func lookupErr(err error, entity string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(entity)
	}
	return err
}

// KindOf names the class of err for transport layers: "authorization", "not_found",
// "state_conflict", "validation", "business_rule", "configuration" or "internal".
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "authorization"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStateConflict):
		return "state_conflict"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrBusinessRule):
		return "business_rule"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	}
	return "internal"
}

// Message returns the text safe to show a user. Unclassified errors are not echoed.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error; try again later"
}
