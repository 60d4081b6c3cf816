package errors

import (
	stderrors "errors"
	"maps"
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Internal message (for logs)
	Metadata map[string]string // Additional context for message templates
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil && e.Message != "" {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata for message templating.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: maps.Clone(metadata),
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// As returns the first domain error in err's chain.
func As(err error) (*Error, bool) {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// CodeOf returns the domain code of err, or CodeUnknown.
func CodeOf(err error) Code {
	if domainErr, ok := As(err); ok {
		return domainErr.Code
	}
	return CodeUnknown
}

// ClassOf returns the recovery class of err.
func ClassOf(err error) Class {
	return CodeOf(err).Class()
}

// IsValidation reports whether err is a score or input validation failure.
func IsValidation(err error) bool { return ClassOf(err) == ClassValidation }

// IsLifecycle reports whether err was refused by the result lifecycle.
func IsLifecycle(err error) bool { return ClassOf(err) == ClassLifecycle }

// IsAuth reports whether err is a credential or session failure.
func IsAuth(err error) bool { return ClassOf(err) == ClassAuth }

// IsRemote reports whether err came from the remote boundary.
func IsRemote(err error) bool { return ClassOf(err) == ClassRemote }

// IsNotFound reports whether err names a missing entity.
func IsNotFound(err error) bool { return ClassOf(err) == ClassNotFound }
