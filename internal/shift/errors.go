package shift

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is against these; every error returned by the
// ledger and history wraps exactly one of them.
var (
	// ErrConflict is returned when a shift is already open on the register.
	ErrConflict = errors.New("conflict")

	// ErrPrecondition is returned when an operation needs an open shift and there is none.
	ErrPrecondition = errors.New("precondition failed")

	// ErrValidation is returned for malformed input (non-positive amount, empty description...).
	ErrValidation = errors.New("validation failed")

	// ErrForbidden is returned when mutating a movement whose shift is closed
	// or belongs to another register.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned for unknown shift or movement ids.
	ErrNotFound = errors.New("not found")

	// ErrTransient is returned when the store is unavailable. Safe to retry.
	ErrTransient = errors.New("store unavailable")
)

// Error carries a human-readable reason alongside its kind.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the sentinel kind wrapped by err, or nil for unclassified errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrConflict, ErrPrecondition, ErrValidation, ErrForbidden, ErrNotFound, ErrTransient} {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return nil
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
