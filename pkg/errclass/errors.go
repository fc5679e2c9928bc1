// Package errclass defines the stable, machine-readable error classes used by treeclone.
package errclass

import (
	"errors"
	"fmt"
)

// Error is a classified error. Two errors match under errors.Is when their codes match.
type Error struct {
	Code    string
	Message string
	Path    string // offending path, if any
	Err     error  // underlying cause
}

func (e *Error) Error() string {
	msg := e.Code
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithMessage returns a new Error with the same Code but a specific message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg}
}

// WithMessagef returns a new Error with a formatted message.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// WithPath returns a new Error carrying the offending path and its cause.
func (e *Error) WithPath(path string, cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Path: path, Err: cause}
}

var (
	ErrInvalidPath   = &Error{Code: "E_INVALID_PATH"}
	ErrIO            = &Error{Code: "E_IO"}
	ErrConflict      = &Error{Code: "E_CONFLICT"}
	ErrNameInvalid   = &Error{Code: "E_NAME_INVALID"}
	ErrLockConflict  = &Error{Code: "E_LOCK_CONFLICT"}
	ErrLockNotHeld   = &Error{Code: "E_LOCK_NOT_HELD"}
	ErrConfigInvalid = &Error{Code: "E_CONFIG_INVALID"}
	ErrJournalBroken = &Error{Code: "E_JOURNAL_BROKEN"}
)

// InvalidPath reports a path that violates the path algebra contract.
func InvalidPath(path, format string, args ...any) *Error {
	return &Error{Code: ErrInvalidPath.Code, Message: fmt.Sprintf(format, args...), Path: path}
}

// IO wraps a backend failure on path. An error that is already classified is
// returned unchanged so causes are not wrapped twice.
func IO(path, op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return &Error{Code: ErrIO.Code, Message: op, Path: path, Err: err}
}

// Conflict reports an existing destination file that may not be overwritten.
func Conflict(path string) *Error {
	return &Error{Code: ErrConflict.Code, Message: "destination exists", Path: path}
}

// Fatal reports whether err must abort a clone regardless of ContinueOnError.
func Fatal(err error) bool {
	if errors.Is(err, ErrInvalidPath) {
		return true
	}
	return !errors.Is(err, ErrIO) && !errors.Is(err, ErrConflict)
}
