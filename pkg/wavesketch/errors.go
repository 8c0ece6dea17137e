package wavesketch

import (
	"errors"
	"fmt"

	"github.com/mdobak/go-xerrors"
)

// Kind tags an Error with the taxonomy every public boundary converts
// exceptions and backend failures into.
type Kind string

const (
	AudioTooShort  Kind = "AudioTooShort"
	StoreRead      Kind = "StoreRead"
	StoreWrite     Kind = "StoreWrite"
	SchemaMismatch Kind = "SchemaMismatch"
	InvalidConfig  Kind = "InvalidConfig"
	Cancelled      Kind = "Cancelled"
)

// Error is a tagged failure crossing a public boundary of the facade.
// Cause, when present, is wrapped with go-xerrors before being
// re-tagged so a caller that unwraps far enough still finds a captured
// stack trace.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so
// callers can write errors.Is(err, &wavesketch.Error{Kind: wavesketch.SchemaMismatch})
// style checks, or use KindOf (or errors.As) for the Kind itself.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

func newError(kind Kind, msg string, cause error) *Error {
	if cause != nil {
		cause = xerrors.New(cause)
	}
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// KindOf extracts the Kind of err if it (or something it wraps) is a
// *Error, returning ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
