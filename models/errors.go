package models

import (
	"errors"
	"strings"
)

// Kind classifies failures surfaced to the presentation layer.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConnectivity: ledger or network unreachable. Retrying the read may succeed.
	KindConnectivity
	// KindNotFound: stale event handle or ticket index out of range.
	KindNotFound
	// KindSubmission: a mutating call was rejected by the ledger.
	KindSubmission
	// KindValidation: a client-side precondition failed before anything was sent.
	KindValidation
	// KindAuthorization: no connected identity or signer.
	KindAuthorization
	// KindConflict: another mutating operation is still in flight.
	KindConflict
	// KindState: the intent is not valid in the current session state.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindNotFound:
		return "not_found"
	case KindSubmission:
		return "submission"
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Error carries a Kind together with the operation that failed and, when the ledger
// supplied one, the rejection reason.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
	Err    error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrConnectivity  = &Error{Kind: KindConnectivity}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrSubmission    = &Error{Kind: KindSubmission}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrState         = &Error{Kind: KindState}
)

func NewError(kind Kind, op, reason string, err error) *Error {
	return &Error{Kind: kind, Op: op, Reason: reason, Err: err}
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return e.Kind.String() + " error"
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Reason == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
