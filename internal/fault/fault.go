// Package fault defines the error taxonomy returned by treasury operations.
//
// Every rejected operation returns a *Error carrying one of four kinds. Callers
// branch with errors.Is against the Err* sentinels or with KindOf.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthorization
	KindValidation
	KindState
	KindNotFound
)

// Sentinels usable with errors.Is.
var (
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrState         = &Error{Kind: KindState}
	ErrNotFound      = &Error{Kind: KindNotFound}
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "AuthorizationError"
	case KindValidation:
		return "ValidationError"
	case KindState:
		return "StateError"
	case KindNotFound:
		return "NotFoundError"
	default:
		return "UnknownError"
	}
}

// Code returns the stable machine-readable code for the kind.
func (k Kind) Code() string {
	switch k {
	case KindAuthorization:
		return "unauthorized"
	case KindValidation:
		return "invalid_argument"
	case KindState:
		return "failed_precondition"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a rejected operation.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Code returns the stable code of the error kind.
func (e *Error) Code() string { return e.Kind.Code() }

// Is matches any *Error of the same kind, so sentinels compare by kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Unauthorized(op, reason string) error {
	return &Error{Kind: KindAuthorization, Op: op, Reason: reason}
}

func Invalid(op, reason string) error {
	return &Error{Kind: KindValidation, Op: op, Reason: reason}
}

func State(op, reason string) error {
	return &Error{Kind: KindState, Op: op, Reason: reason}
}

func NotFound(op, reason string) error {
	return &Error{Kind: KindNotFound, Op: op, Reason: reason}
}

// Wrap returns an error of kind k that keeps cause reachable through errors.Is/As.
func Wrap(k Kind, op, reason string, cause error) error {
	return &Error{Kind: k, Op: op, Reason: reason, Cause: cause}
}

// KindOf returns the kind of err, or KindUnknown if err is not a *Error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
