// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed errors for the action knowledge base.
//
// Lookups that find nothing are not errors: they return empty results and log.
// The codes here cover malformed input, invalid entries and broken index
// invariants, plus the codes the remote adapters need to report outcomes.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies knowledge base errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid (e.g. unparsable predicate text).
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates a lookup produced no match.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeInvalidEntry indicates a nil or malformed action entry.
	CodeInvalidEntry ErrorCode = "INVALID_ENTRY"

	// CodeInconsistentState indicates an index invariant was violated.
	CodeInconsistentState ErrorCode = "INCONSISTENT_STATE"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeUnavailable indicates a remote knowledge base could not be reached.
	CodeUnavailable ErrorCode = "UNAVAILABLE"

	// CodeForbidden indicates a policy rule denied the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"
)

// KBError is a typed error with context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type KBError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
	StatusCode  int // For MCP/gRPC responses
}

// Error implements the error interface.
func (e *KBError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *KBError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *KBError) MarshalJSON() ([]byte, error) {
	out := struct {
		Message     string                 `json:"message"`
		Code        string                 `json:"code"`
		Err         string                 `json:"error,omitempty"`
		Context     map[string]interface{} `json:"context,omitempty"`
		Recoverable bool                   `json:"recoverable"`
		StatusCode  int                    `json:"status_code"`
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Context:     e.Context,
		Recoverable: e.Recoverable,
		StatusCode:  e.StatusCode,
	}
	if e.Err != nil {
		out.Err = e.Err.Error()
	}
	return json.Marshal(out)
}

// New creates a new KBError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *KBError {
	return &KBError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		StatusCode: codeToStatusCode(code),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *KBError) WithContext(key string, value interface{}) *KBError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
func (e *KBError) WithRecoverable(recoverable bool) *KBError {
	e.Recoverable = recoverable
	return e
}

// AsKBError converts an error to a KBError, wrapping unknown errors as internal.
func AsKBError(err error) *KBError {
	if err == nil {
		return nil
	}
	var ke *KBError
	if stderrors.As(err, &ke) {
		return ke
	}
	return New(CodeInternal, "wrapped error", err)
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	var ke *KBError
	if !stderrors.As(err, &ke) {
		return false
	}
	return ke.Code == code
}

// codeToStatusCode maps error codes to HTTP-style status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeInvalidInput, CodeInvalidEntry:
		return 400
	case CodeForbidden:
		return 403
	case CodeTimeout:
		return 408
	case CodeUnavailable:
		return 503
	default:
		return 500
	}
}
