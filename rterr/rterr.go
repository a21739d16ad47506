// Package rterr wraps github.com/cockroachdb/errors with the runtime's
// wire-visible error taxonomy (spec.md §7).
package rterr

import (
	crdb "github.com/cockroachdb/errors"
)

// Core construction and wrapping, re-exported the way errors/errors.go
// re-exports cockroachdb/errors.
var (
	New    = crdb.New
	Newf   = crdb.Newf
	Wrap   = crdb.Wrap
	Wrapf  = crdb.Wrapf
	Errorf = crdb.Newf

	WithHint   = crdb.WithHint
	WithHintf  = crdb.WithHintf
	WithDetail = crdb.WithDetail

	Is = crdb.Is
	As = crdb.As

	GetStack = crdb.GetReportableStackTrace
)

// Kind is the wire-visible error taxonomy from spec.md §7.
type Kind string

const (
	NotFoundError    Kind = "NotFoundError"
	BadRequestError  Kind = "BadRequestError"
	NotSupportedError Kind = "NotSupportedError"
	RangeError       Kind = "RangeError"
	AbortError       Kind = "AbortError"
	InternalError    Kind = "InternalError"
	ErrnoError       Kind = "ErrnoError"
)

// WireError is the {"type":..., "message":...} shape from spec.md §6.2,
// with an optional errno code for ErrnoError.
type WireError struct {
	Kind    Kind   `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

func (e *WireError) Error() string { return e.Message }

// New-style constructors used by route handlers. Internal detail (hints,
// stack traces) is attached via crdb wrapping but never leaks into the
// wire message.
func NotFound(format string, args ...interface{}) *WireError {
	return &WireError{Kind: NotFoundError, Message: crdb.Newf(format, args...).Error()}
}

func BadRequest(format string, args ...interface{}) *WireError {
	return &WireError{Kind: BadRequestError, Message: crdb.Newf(format, args...).Error()}
}

func NotSupported(format string, args ...interface{}) *WireError {
	return &WireError{Kind: NotSupportedError, Message: crdb.Newf(format, args...).Error()}
}

func OutOfRange(format string, args ...interface{}) *WireError {
	return &WireError{Kind: RangeError, Message: crdb.Newf(format, args...).Error()}
}

func Aborted(format string, args ...interface{}) *WireError {
	return &WireError{Kind: AbortError, Message: crdb.Newf(format, args...).Error()}
}

func Internal(format string, args ...interface{}) *WireError {
	return &WireError{Kind: InternalError, Message: crdb.Newf(format, args...).Error()}
}

// Errno wraps a negative I/O-backend return code the way spec.md §7
// describes: {code: -errno, message: strerror(-errno)}.
func Errno(code int, message string) *WireError {
	return &WireError{Kind: ErrnoError, Code: code, Message: message}
}

// MissingParam reports a required-but-absent route parameter
// (router step 3, "Expecting 'X'").
func MissingParam(name string) *WireError {
	return BadRequest("Expecting '%s'", name)
}

// InvalidParam reports a parameter that failed numeric parsing
// (router step 4, "Invalid 'X'").
func InvalidParam(name string) *WireError {
	return BadRequest("Invalid '%s'", name)
}
