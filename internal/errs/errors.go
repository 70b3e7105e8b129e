// Package errs provides the unified error type used across the DSN editor.
//
// Every subsystem (codec, validators, probe, DSN store, …) wraps its native
// errors into *errs.Error before returning them to callers. The Message field
// is always safe to show to the person editing the DSN; Cause keeps the
// low-level detail for the logs.
//
// Usage:
//
//	// In a validator, report a user-facing failure:
//	return errs.New(errs.ErrKindFileNotFound, "Certificate file invalid")
//
//	// In a frontend, check error kind:
//	if errs.IsAlreadyExists(err) {
//	    askOverwrite()
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
type ErrKind int

const (
	ErrKindUnknown           ErrKind = iota
	ErrKindNotFound                  // no DSN, no object, no bucket
	ErrKindConnectionFailed          // cannot reach the backend
	ErrKindTimeout                   // context deadline / cancellation
	ErrKindInvalidInput              // bad arguments from the caller
	ErrKindPermissionDenied          // access denied / auth failure
	ErrKindParseFailed               // malformed connection string
	ErrKindInvalidLength             // value too long (DSN name)
	ErrKindInvalidCharacter          // forbidden character (backslash in DSN name)
	ErrKindFileNotFound              // certificate file missing
	ErrKindEmptyFile                 // certificate file has no content
	ErrKindDirectoryNotFound         // log directory missing
	ErrKindAlreadyExists             // DSN with the same name is stored
	ErrKindQueryFailed               // SQL or storage operation error
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindParseFailed:
		return "parse_failed"
	case ErrKindInvalidLength:
		return "invalid_length"
	case ErrKindInvalidCharacter:
		return "invalid_character"
	case ErrKindFileNotFound:
		return "file_not_found"
	case ErrKindEmptyFile:
		return "empty_file"
	case ErrKindDirectoryNotFound:
		return "directory_not_found"
	case ErrKindAlreadyExists:
		return "already_exists"
	case ErrKindQueryFailed:
		return "query_failed"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original low-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a formatted message.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Accessors ---

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// Message returns the user-facing message of the first *Error in the chain,
// or err.Error() for foreign errors. It returns "" for a nil error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsParseFailed reports whether err comes from a malformed connection string.
func IsParseFailed(err error) bool {
	return KindOf(err) == ErrKindParseFailed
}

// IsAlreadyExists reports whether err signals a DSN name collision.
func IsAlreadyExists(err error) bool {
	return KindOf(err) == ErrKindAlreadyExists
}

// IsQueryFailed reports whether err is a storage execution error.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsValidation reports whether err is one of the local input-validation
// kinds (name, certificate file, log directory).
func IsValidation(err error) bool {
	switch KindOf(err) {
	case ErrKindInvalidLength, ErrKindInvalidCharacter, ErrKindFileNotFound,
		ErrKindEmptyFile, ErrKindDirectoryNotFound, ErrKindInvalidInput:
		return true
	}
	return false
}
