// Package protoerr defines the error taxonomy shared by the parser,
// registry, executor, and bus: kinds, not types, so callers can assert on
// the taxonomy without string matching while every error still satisfies
// the standard error interface and composes with fmt.Errorf("...: %w").
package protoerr

import "fmt"

// Kind is one of the fixed error kinds a caller may switch on.
type Kind string

const (
	KindValidationFailed        Kind = "validation_failed"
	KindBusy                    Kind = "busy"
	KindUnknownAction           Kind = "unknown_action"
	KindMissingParameter        Kind = "missing_parameter"
	KindUnknownParameter        Kind = "unknown_parameter"
	KindMissingVariable         Kind = "missing_variable"
	KindUndefinedMacro          Kind = "undefined_macro"
	KindCircularDependency      Kind = "circular_dependency"
	KindHandlerFailed           Kind = "handler_failed"
	KindUserInterrupted         Kind = "user_interrupted"
	KindDangerousActionBlocked  Kind = "dangerous_action_blocked"
	KindCommunicationError      Kind = "communication_error"
	KindVerificationFailed      Kind = "verification_failed"
	KindTimeout                 Kind = "timeout"
)

// Error is a kind-carrying error. Every error this repository raises that
// maps onto the taxonomy in spec.md §7 is constructed here rather than as a
// sentinel or a bespoke type, so tests and callers can do a single type
// assertion (`var e *protoerr.Error; errors.As(err, &e)`) and switch on Kind.
type Error struct {
	kind    Kind
	message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

// Kind returns the taxonomy kind of this error.
func (e *Error) Kind() Kind { return e.kind }

// Unwrap lets errors.Is/errors.As see through to a wrapped underlying error.
func (e *Error) Unwrap() error { return e.wrapped }

// New constructs a kind-carrying error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

// Wrap constructs a kind-carrying error around an underlying error.
func Wrap(kind Kind, underlying error, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...), wrapped: underlying}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.kind == kind
}
