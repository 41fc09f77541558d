// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides the typed error values used across the Braid
// runtime. Every failure in core logic is one of these kinds; there is no
// panic path.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code classifies runtime errors for callers and monitoring.
type Code string

const (
	// CodeToolNotFound indicates a tool name is not registered.
	CodeToolNotFound Code = "TOOL_NOT_FOUND"

	// CodeToolInvocation wraps a failure inside a tool implementation.
	CodeToolInvocation Code = "TOOL_FAILURE"

	// CodeLanguageModel indicates a model transport or parse failure.
	CodeLanguageModel Code = "LLM_ERROR"

	// CodeProtocol indicates a state-machine contract violation: malformed
	// directive, authorization denial, step-limit exhaustion, unknown task
	// or workflow name, loop budget exceeded.
	CodeProtocol Code = "PROTOCOL_ERROR"

	// CodeStorage indicates a persistence I/O failure.
	CodeStorage Code = "STORAGE_ERROR"

	// CodeInternal is the fallback for wrapped foreign errors.
	CodeInternal Code = "INTERNAL_ERROR"
)

// Error is a typed, inspectable error value with optional context.
type Error struct {
	Code    Code
	Message string
	Err     error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As traversal.
func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that carries a cause.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Err: cause}
}

// WithContext attaches a key-value pair and returns the error for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf returns the code of err, or CodeInternal when err is not an *Error.
func CodeOf(err error) Code {
	var be *Error
	if stderrors.As(err, &be) {
		return be.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	var be *Error
	if stderrors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// As re-exports the standard errors.As.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Is re-exports the standard errors.Is.
func Is(err, target error) bool { return stderrors.Is(err, target) }
