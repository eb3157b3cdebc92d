// Package ledgererr defines the error taxonomy shared by the store, repository,
// codec, backup and transfer packages.
//
// Every failure that crosses a package boundary is an *Error carrying a Code.
// Callers branch on the code with errors.Is against the sentinels below, or
// with CodeOf when they need to map it (the CLI maps codes to exit codes).
package ledgererr

import (
	"errors"
	"fmt"
)

// Code categorizes ledger errors.
type Code string

const (
	// CodeStorageUnavailable indicates the local store is unreachable or corrupted.
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"

	// CodeNotFound indicates an update or lookup on a missing identity.
	CodeNotFound Code = "NOT_FOUND"

	// CodeInvalidBackupFormat indicates a snapshot candidate failed validation.
	CodeInvalidBackupFormat Code = "INVALID_BACKUP_FORMAT"

	// CodeMalformedEncoding indicates image text that is not valid base64.
	CodeMalformedEncoding Code = "MALFORMED_ENCODING"

	// CodeNoRemoteBackup indicates a download from an empty remote slot.
	CodeNoRemoteBackup Code = "NO_REMOTE_BACKUP"

	// CodeNetworkOrAuthUnavailable indicates a cloud operation without
	// reachability or identity.
	CodeNetworkOrAuthUnavailable Code = "NETWORK_OR_AUTH_UNAVAILABLE"

	// CodeInvalidInput indicates a create or update payload that fails validation.
	CodeInvalidInput Code = "INVALID_INPUT"
)

// Codes lists every error code.
var Codes = []Code{
	CodeStorageUnavailable,
	CodeNotFound,
	CodeInvalidBackupFormat,
	CodeMalformedEncoding,
	CodeNoRemoteBackup,
	CodeNetworkOrAuthUnavailable,
	CodeInvalidInput,
}

// Sentinels for errors.Is. An *Error matches the sentinel with the same code.
var (
	ErrStorageUnavailable       = &Error{Code: CodeStorageUnavailable}
	ErrNotFound                 = &Error{Code: CodeNotFound}
	ErrInvalidBackupFormat      = &Error{Code: CodeInvalidBackupFormat}
	ErrMalformedEncoding        = &Error{Code: CodeMalformedEncoding}
	ErrNoRemoteBackup           = &Error{Code: CodeNoRemoteBackup}
	ErrNetworkOrAuthUnavailable = &Error{Code: CodeNetworkOrAuthUnavailable}
	ErrInvalidInput             = &Error{Code: CodeInvalidInput}
)

// Error is a coded ledger error.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op names the operation that failed (e.g. "update customer").
	Op string

	// Message is an optional human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates an *Error with a message.
func New(code Code, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

// Newf creates an *Error with a formatted message.
func Newf(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a code. Returns nil if err is nil.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsSafeFailure reports whether err is known to have aborted before any
// mutation of the local store (validation, precondition and lookup failures).
func IsSafeFailure(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidBackupFormat, CodeNoRemoteBackup, CodeNetworkOrAuthUnavailable,
		CodeNotFound, CodeInvalidInput:
		return true
	}
	return false
}
