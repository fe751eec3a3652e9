// Package errors provides the unified error type and factory functions used by
// every layer of the RInChI toolkit. Domain code (hashing, reaction model,
// parser), infrastructure adapters and the HTTP/CLI surfaces all report failures
// as *AppError so that callers get a stable machine-readable code together with
// a message that names the offending input fragment.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Stack capture
// ─────────────────────────────────────────────────────────────────────────────

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting above the caller.
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type of the toolkit. It satisfies
// the error interface and supports wrapping, so errors.Is / errors.As work
// across layers.
//
// Usage:
//
//	return errors.NewFormatError("RInChI string must start with 'RInChI=1.00.1S/'")
//	return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert reaction")
//	return errors.NewValidationError("invalid InChI").WithDetail("component 2 of group 1")
type AppError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description. For parser and
	// validation failures it carries the malformed fragment.
	Message string

	// Detail carries supplementary context.
	Detail string

	// Cause is the underlying error, if any.
	Cause error

	// Stack is the call stack captured at creation time. It is not part of
	// Error() output.
	Stack string
}

// Error implements the error interface.
// Format: "[<code>] <message>: <detail>: <cause>" with empty segments omitted.
func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(e.Code.String())
	sb.WriteString("] ")
	sb.WriteString(e.Message)
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *AppError with the same code. This lets
// package-level sentinel errors be matched with errors.Is even after Wrap.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// WithDetail returns a copy of the receiver with Detail set. Safe on nil.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a copy of the receiver with Cause set. Safe on nil.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Factories
// ─────────────────────────────────────────────────────────────────────────────

// New constructs an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError around err. A nil err yields nil. When code is
// CodeUnknown and err already carries an AppError, the original code is kept.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// ─────────────────────────────────────────────────────────────────────────────
// RInChI error kinds
// ─────────────────────────────────────────────────────────────────────────────
// Three kinds surface from the reaction core: malformed strings (format),
// identifiers rejected by the structure engine (validation) and API misuse
// (precondition). None of them is transient.

// NewFormatError reports a malformed RInChI, RAuxInfo, InChI or file fragment.
func NewFormatError(message string) *AppError {
	return &AppError{Code: ErrCodeFormat, Message: message, Stack: captureStack(1)}
}

// NewFormatErrorf is NewFormatError with a format string.
func NewFormatErrorf(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrCodeFormat, Message: fmt.Sprintf(format, args...), Stack: captureStack(1)}
}

// NewValidationError reports an identifier or identifier/aux-info pair the
// structure engine could not accept.
func NewValidationError(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Stack: captureStack(1)}
}

// NewValidationErrorf is NewValidationError with a format string.
func NewValidationErrorf(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...), Stack: captureStack(1)}
}

// NewPreconditionError reports API misuse.
func NewPreconditionError(message string) *AppError {
	return &AppError{Code: ErrCodePrecondition, Message: message, Stack: captureStack(1)}
}

// NewPreconditionErrorf is NewPreconditionError with a format string.
func NewPreconditionErrorf(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrCodePrecondition, Message: fmt.Sprintf(format, args...), Stack: captureStack(1)}
}

// NotFound constructs an ErrCodeNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message, Stack: captureStack(1)}
}

// InvalidParam constructs an ErrCodeBadRequest AppError.
func InvalidParam(message string) *AppError {
	return &AppError{Code: ErrCodeBadRequest, Message: message, Stack: captureStack(1)}
}

// Internal constructs an ErrCodeInternal AppError.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message, Stack: captureStack(1)}
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the code of the first *AppError in err's chain.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// IsFormat reports whether err is a format error.
func IsFormat(err error) bool { return IsCode(err, ErrCodeFormat) }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return IsCode(err, ErrCodeValidation) }

// IsPrecondition reports whether err is a precondition error.
func IsPrecondition(err error) bool { return IsCode(err, ErrCodePrecondition) }

// IsNotFound reports whether err carries one of the not-found codes.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound) || IsCode(err, ErrCodeReactionNotFound) || IsCode(err, ErrCodeObjectNotFound)
}

// Is and As re-export the standard library helpers so callers need a single
// errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

// As is errors.As.
func As(err error, target interface{}) bool { return errors.As(err, target) }
