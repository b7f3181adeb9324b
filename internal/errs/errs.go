// Package errs defines the typed error kinds used throughout the agent.
// Every kind wraps an optional cause and carries a human-readable message
// that never includes secret material.
package errs

import "fmt"

// Kind enumerates the error taxonomy. Callers match on Kind via errors.As
// against *Error, not on message text.
type Kind string

const (
	KindConfig           Kind = "ConfigError"
	KindTransport        Kind = "TransportError"
	KindQuote            Kind = "QuoteError"
	KindNoRoute          Kind = "NoRouteError"
	KindSubmission       Kind = "SubmissionError"
	KindExecutionTimeout Kind = "ExecutionTimeout"
	KindCancelled        Kind = "CancelledError"
)

// Error is the concrete error type carrying a Kind, message, and optional
// wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on Kind when target is an *Error, so
// errors.Is(err, &errs.Error{Kind: errs.KindQuote}) finds any KindQuote
// error in the chain; a bare Kind value is not an error and cannot be a
// target. errors.As or KindOf give direct access to the Kind field.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(k Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func Config(cause error, format string, args ...any) *Error {
	return newErr(KindConfig, cause, format, args...)
}

func Transport(cause error, format string, args ...any) *Error {
	return newErr(KindTransport, cause, format, args...)
}

func Quote(cause error, format string, args ...any) *Error {
	return newErr(KindQuote, cause, format, args...)
}

func NoRoute(cause error, format string, args ...any) *Error {
	return newErr(KindNoRoute, cause, format, args...)
}

func Submission(cause error, format string, args ...any) *Error {
	return newErr(KindSubmission, cause, format, args...)
}

func ExecutionTimeout(cause error, format string, args ...any) *Error {
	return newErr(KindExecutionTimeout, cause, format, args...)
}

func Cancelled(cause error, format string, args ...any) *Error {
	return newErr(KindCancelled, cause, format, args...)
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, and the empty string otherwise.
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return ""
	}
	return e.Kind
}
