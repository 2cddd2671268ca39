// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jllopis/actionkb/pkg/errors"
)

// CLIError wraps KBError with a hint for the user.
type CLIError struct {
	*errors.KBError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(ke *errors.KBError, hint string) *CLIError {
	return &CLIError{KBError: ke, Hint: hint}
}

// Error returns the message followed by the hint.
func (e *CLIError) Error() string {
	if e.KBError == nil {
		return "unknown error"
	}
	msg := e.KBError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the KBError to errors.As.
func (e *CLIError) Unwrap() error {
	return e.KBError
}

// PrintError writes the error to w.
func (e *CLIError) PrintError(w io.Writer, asJSON bool) {
	if asJSON {
		payload, _ := json.Marshal(map[string]any{
			"error": map[string]string{
				"code":    string(e.Code),
				"message": e.Message,
				"hint":    e.Hint,
			},
		})
		fmt.Fprintln(w, string(payload))
		return
	}
	fmt.Fprintf(w, "Error [%s]: %s\n", FormatErrorCode(e.Code), e.Message)
	if e.Err != nil {
		fmt.Fprintf(w, "  Cause: %v\n", e.Err)
	}
	if e.Hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", e.Hint)
	}
}

// WrapConnectionError wraps a connection error with CLI hints.
func WrapConnectionError(err error, addr string) *CLIError {
	ke := errors.New(errors.CodeUnavailable, "connection failed", err).
		WithContext("address", addr).
		WithRecoverable(true)
	return NewCLIError(ke, fmt.Sprintf("check that 'actionkb serve' is running with mcp.transport=http at %s", addr))
}

// WrapTimeoutError wraps a timeout error with CLI hints.
func WrapTimeoutError(err error, operation string) *CLIError {
	ke := errors.New(errors.CodeTimeout, operation+" timed out", err).
		WithContext("operation", operation).
		WithRecoverable(true)
	return NewCLIError(ke, "try increasing the timeout with --timeout")
}

// NewNotFoundError creates a not found error with CLI hints.
func NewNotFoundError(resource, name string) *CLIError {
	ke := errors.New(errors.CodeNotFound, fmt.Sprintf("%s '%s' not found", resource, name), nil).
		WithContext("resource", resource).
		WithContext("name", name)
	return NewCLIError(ke, "list the known actions with 'actionkb query list'")
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	ke := errors.New(errors.CodeInvalidInput, fmt.Sprintf("invalid argument: %s", reason), nil).
		WithContext("argument", arg).
		WithContext("reason", reason)
	return NewCLIError(ke, "run 'actionkb help' for usage information")
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	ke := errors.New(errors.CodeInvalidInput, "configuration error", err).
		WithContext("config_path", configPath)
	hint := "check the ACTIONKB_ environment and --set overrides"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(ke, hint)
}

// NewDefinitionError reports action definitions that failed to load.
func NewDefinitionError(err error) *CLIError {
	ke := errors.AsKBError(err)
	return NewCLIError(ke, "run 'actionkb check <path>' to see every invalid definition")
}

// remoteError maps an error from the remote client to a CLIError.
func remoteError(err error, addr, operation string) error {
	ke := errors.AsKBError(err)
	switch ke.Code {
	case errors.CodeUnavailable:
		return WrapConnectionError(err, addr)
	case errors.CodeTimeout:
		return WrapTimeoutError(err, operation)
	case errors.CodeNotFound:
		return NewCLIError(ke, "list the known actions with 'actionkb query list'")
	case errors.CodeForbidden:
		return NewCLIError(ke, "the server policy denies this tool; check mcp.policies in its config")
	case errors.CodeInvalidInput:
		return NewCLIError(ke, "predicates look like name(arg,...); variables start with '?'")
	default:
		return NewCLIError(ke, "")
	}
}

// ReportError prints err, using the CLIError form when there is one.
func ReportError(w io.Writer, err error, asJSON bool) {
	if ce, ok := err.(*CLIError); ok {
		ce.PrintError(w, asJSON)
		return
	}
	PrintSimpleError(w, err, asJSON)
}

// PrintSimpleError prints an error that carries no code.
func PrintSimpleError(w io.Writer, err error, asJSON bool) {
	if asJSON {
		payload, _ := json.Marshal(map[string]any{
			"error": map[string]string{"code": "UNKNOWN", "message": err.Error()},
		})
		fmt.Fprintln(w, string(payload))
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err.Error())
}

// FormatErrorCode returns a user-friendly name for error codes.
func FormatErrorCode(code errors.ErrorCode) string {
	switch code {
	case errors.CodeInternal:
		return "Internal Error"
	case errors.CodeInvalidInput:
		return "Invalid Input"
	case errors.CodeNotFound:
		return "Not Found"
	case errors.CodeInvalidEntry:
		return "Invalid Action"
	case errors.CodeInconsistentState:
		return "Inconsistent State"
	case errors.CodeTimeout:
		return "Timeout"
	case errors.CodeUnavailable:
		return "Unavailable"
	case errors.CodeForbidden:
		return "Forbidden"
	default:
		return string(code)
	}
}
