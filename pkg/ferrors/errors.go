// Package ferrors implements the error taxonomy described in spec.md §7,
// generalized from the teacher's pkg/errors.AppError: a single struct
// carrying a fixed Kind, the component/operation that raised it, an
// optional cause, and free-form metadata for diagnostics.
package ferrors

import (
	"errors"
	"fmt"
)

// Kind is one of the taxonomy entries from spec.md §7.
type Kind string

const (
	KindAlreadyExists          Kind = "ALREADY_EXISTS"
	KindNotFound               Kind = "NOT_FOUND"
	KindInvalidConfiguration   Kind = "INVALID_CONFIGURATION"
	KindInitializationFailure  Kind = "INITIALIZATION_FAILURE"
	KindRetryExhausted         Kind = "RETRY_EXHAUSTED"
	KindCircuitOpen            Kind = "CIRCUIT_OPEN"
	KindRateLimited            Kind = "RATE_LIMITED"
	KindSerializationError     Kind = "SERIALIZATION_ERROR"
	KindSinkWriteError         Kind = "SINK_WRITE_ERROR"
)

// Error is the foundation library's standardized error shape.
type Error struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Cause     error
	Metadata  map[string]interface{}
}

// New constructs an Error. component/operation identify where the failure
// originated (e.g. "registry", "register"), matching the teacher's
// AppError shape.
func New(kind Kind, component, operation, message string) *Error {
	return &Error{
		Kind:      kind,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Component, e.Operation, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Kind, e.Message)
}

// Unwrap enables errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error { return e.Cause }

// Wrap attaches a cause and returns the receiver for chaining.
func (e *Error) Wrap(cause error) *Error {
	e.Cause = cause
	return e
}

// WithMeta attaches a metadata key/value pair and returns the receiver.
func (e *Error) WithMeta(key string, value interface{}) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Is supports errors.Is(err, ferrors.KindX) style checks via a sentinel
// comparison on Kind, so callers can write:
//
//	if errors.Is(err, ferrors.New(ferrors.KindNotFound, "", "", "")) { ... }
//
// More idiomatically, use Of(err) == ferrors.KindNotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Of extracts the Kind from err, returning "" if err is not (or does not
// wrap) a *Error.
func Of(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Convenience constructors matching the taxonomy entries directly.

func AlreadyExists(component, operation, message string) *Error {
	return New(KindAlreadyExists, component, operation, message)
}

func NotFound(component, operation, message string) *Error {
	return New(KindNotFound, component, operation, message)
}

func InvalidConfiguration(component, operation, message string) *Error {
	return New(KindInvalidConfiguration, component, operation, message)
}

func InitializationFailure(component, operation, message string) *Error {
	return New(KindInitializationFailure, component, operation, message)
}

// RetryExhausted carries the attempts made and the last observed error, per
// spec.md §4.5/§7.
type RetryExhaustedError struct {
	Base      *Error
	Attempts  int
	LastError error
}

func (e *RetryExhaustedError) Error() string { return e.Base.Error() }

// Unwrap exposes Base, so Of and errors.Is/As see both the KindRetryExhausted
// *Error and, through it, the last error.
func (e *RetryExhaustedError) Unwrap() error { return e.Base }

func RetryExhausted(component, operation string, attempts int, lastErr error) *RetryExhaustedError {
	base := New(KindRetryExhausted, component, operation,
		fmt.Sprintf("retry exhausted after %d attempts", attempts)).Wrap(lastErr)
	return &RetryExhaustedError{Base: base, Attempts: attempts, LastError: lastErr}
}

func CircuitOpen(component, operation string) *Error {
	return New(KindCircuitOpen, component, operation, "circuit breaker is open")
}

func RateLimited(component, operation string) *Error {
	return New(KindRateLimited, component, operation, "rate limit exceeded")
}

func SerializationError(component, operation, message string) *Error {
	return New(KindSerializationError, component, operation, message)
}

func SinkWriteError(component, operation, message string) *Error {
	return New(KindSinkWriteError, component, operation, message)
}
