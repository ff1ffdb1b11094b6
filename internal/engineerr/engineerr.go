// Package engineerr defines the seven error kinds the engine's
// components surface to callers (spec.md §7), generalizing the
// teacher's sentinel-error-plus-typed-struct pattern
// (entity.ErrInvalidVersionStateTransition, repository.NotFoundError,
// repository.IsNotFound) into one struct with a closed Kind enum and a
// machine-actionable Details map.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error kinds a component may return.
type Kind string

const (
	// KindInvariant: a write was rejected because a domain invariant
	// would be broken. Never retried. Surfaced verbatim.
	KindInvariant Kind = "INVARIANT"
	// KindNotFound: a referenced entity is missing. Surfaced verbatim.
	KindNotFound Kind = "NOT_FOUND"
	// KindConflict: optimistic-lock mismatch, overlapping generation or
	// swap, or idempotency-key mismatch. Caller may retry after the
	// other operation completes.
	KindConflict Kind = "CONFLICT"
	// KindInfeasible: no Tier-1-satisfying schedule exists.
	KindInfeasible Kind = "INFEASIBLE"
	// KindTimeout: solver deadline elapsed before a feasible incumbent
	// was found.
	KindTimeout Kind = "TIMEOUT"
	// KindUnauthorized: a collaborator concern, reserved for transport
	// layers; the core never raises it itself.
	KindUnauthorized Kind = "UNAUTHORIZED"
	// KindForbidden: as KindUnauthorized, reserved for collaborators.
	KindForbidden Kind = "FORBIDDEN"
	// KindTransient: temporary I/O or resource error. Nothing in this
	// module raises it, and no operation retries internally before
	// returning an error.
	KindTransient Kind = "TRANSIENT"
)

// Error is the structured error value every component-level operation
// returns. Details carries machine-actionable context (entity ids,
// offending values, recovery hints); Message is human-readable but not
// part of the contract.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, engineerr.Invariant) (and the other kind
// sentinels below): two *Error values match if their Kind matches,
// regardless of Message/Details/Cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// New constructs an Error of the given kind with details.
func New(kind Kind, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Wrap constructs an Error that carries cause as its wrapped error,
// matching the teacher's fmt.Errorf("...: %w", err) wrapping depth by
// depth through repository -> service -> caller.
func Wrap(kind Kind, message string, cause error, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details, Cause: cause}
}

// sentinel returns a bare *Error used only as an errors.Is() target.
func sentinel(k Kind) *Error { return &Error{Kind: k} }

// Sentinels for errors.Is(err, engineerr.Invariant) style comparisons.
var (
	Invariant    = sentinel(KindInvariant)
	NotFound     = sentinel(KindNotFound)
	Conflict     = sentinel(KindConflict)
	Infeasible   = sentinel(KindInfeasible)
	Timeout      = sentinel(KindTimeout)
	Unauthorized = sentinel(KindUnauthorized)
	Forbidden    = sentinel(KindForbidden)
	Transient    = sentinel(KindTransient)
)

// KindOf extracts the Kind from err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
