// Package errors provides structured error types for the GDB-MCP server.
// These errors include hints that tell the LLM driving the debugger how to
// recover when something goes wrong.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a category of error for programmatic handling
type ErrorCode string

const (
	// Session errors
	CodeNotConnected    ErrorCode = "NOT_CONNECTED"
	CodeConnectFailed   ErrorCode = "CONNECT_FAILED"
	CodeTransportClosed ErrorCode = "TRANSPORT_CLOSED"

	// GDB errors
	CodeGDBError       ErrorCode = "GDB_ERROR"
	CodeCommandTimeout ErrorCode = "COMMAND_TIMEOUT"
	CodeCommandFailed  ErrorCode = "COMMAND_FAILED"

	// Parameter errors
	CodeMissingParameter ErrorCode = "MISSING_PARAMETER"

	// Configuration errors
	CodeConfigInvalid ErrorCode = "CONFIG_INVALID"
)

// DebugError is a structured error type that includes helpful information
// for the LLM to understand what went wrong and how to fix it.
type DebugError struct {
	// Code is a machine-readable error category
	Code ErrorCode `json:"code"`

	// Message is a human/LLM-readable description of what went wrong
	Message string `json:"message"`

	// Hint provides actionable guidance on how to fix the error
	Hint string `json:"hint,omitempty"`

	// Details contains additional context (e.g., the target, the command)
	Details map[string]interface{} `json:"details,omitempty"`

	// Cause is the underlying error, if any
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *DebugError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Hint != "" {
		sb.WriteString(" | Hint: ")
		sb.WriteString(e.Hint)
	}

	return sb.String()
}

// Unwrap returns the underlying error for error chaining
func (e *DebugError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to the error
func (e *DebugError) WithDetails(key string, value interface{}) *DebugError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *DebugError) WithCause(err error) *DebugError {
	e.Cause = err
	return e
}

// --- Session Errors ---

// NotConnected creates an error for commands issued without a session
func NotConnected() *DebugError {
	return &DebugError{
		Code:    CodeNotConnected,
		Message: "Not connected to a GDB session.",
		Hint:    "Use connect with a gdbserver address such as 'localhost:1234' first.",
	}
}

// ConnectFailed creates an error when GDB could not be started or the
// remote target could not be selected
func ConnectFailed(target string, err error) *DebugError {
	return &DebugError{
		Code:    CodeConnectFailed,
		Message: fmt.Sprintf("Connection failed: %v", err),
		Hint:    "Check that gdb is installed and that a gdbserver is listening on the target address.",
		Cause:   err,
		Details: map[string]interface{}{
			"target": target,
		},
	}
}

// TransportClosed creates an error when GDB exits underneath a session
func TransportClosed(err error) *DebugError {
	return &DebugError{
		Code:    CodeTransportClosed,
		Message: "GDB process exited; the session has been closed.",
		Hint:    "Use connect to start a new session.",
		Cause:   err,
	}
}

// --- GDB Errors ---

// GDBError creates an error from a message already extracted from GDB's
// response records. The message is used as is.
func GDBError(message string) *DebugError {
	return &DebugError{
		Code:    CodeGDBError,
		Message: message,
	}
}

// CommandTimeout creates an error for a command that got no result in time
func CommandTimeout(command string, timeout time.Duration, err error) *DebugError {
	return &DebugError{
		Code:    CodeCommandTimeout,
		Message: fmt.Sprintf("command %q got no result within %s", command, timeout),
		Hint:    "The target may be running. Retry with wait_for_done=false, or interrupt it with '-exec-interrupt'.",
		Cause:   err,
		Details: map[string]interface{}{
			"command": command,
		},
	}
}

// CommandFailed creates an error for a command that could not be delivered
func CommandFailed(command string, err error) *DebugError {
	return &DebugError{
		Code:    CodeCommandFailed,
		Message: fmt.Sprintf("command %q failed: %v", command, err),
		Hint:    "Use disconnect and connect again if the session is unusable.",
		Cause:   err,
		Details: map[string]interface{}{
			"command": command,
		},
	}
}

// --- Parameter Errors ---

// MissingParameter creates an error for missing required parameters
func MissingParameter(paramName, description string) *DebugError {
	return &DebugError{
		Code:    CodeMissingParameter,
		Message: fmt.Sprintf("required parameter '%s' is missing", paramName),
		Hint:    description,
		Details: map[string]interface{}{
			"parameter": paramName,
		},
	}
}

// --- Configuration Errors ---

// ConfigInvalid creates an error for an invalid configuration value
func ConfigInvalid(key, reason string) *DebugError {
	return &DebugError{
		Code:    CodeConfigInvalid,
		Message: fmt.Sprintf("configuration key '%s' is invalid: %s", key, reason),
		Hint:    "Fix the value in the configuration file or remove it to use the default.",
		Details: map[string]interface{}{
			"key":    key,
			"reason": reason,
		},
	}
}

// --- Helper for wrapping generic errors ---

// Wrap wraps a generic error with context
func Wrap(code ErrorCode, message string, hint string, err error) *DebugError {
	return &DebugError{
		Code:    code,
		Message: message,
		Hint:    hint,
		Cause:   err,
	}
}

// FromError creates a DebugError from a generic error, attempting to preserve any existing structure
func FromError(err error) *DebugError {
	var de *DebugError
	if stderrors.As(err, &de) {
		return de
	}
	return &DebugError{
		Code:    "UNKNOWN_ERROR",
		Message: err.Error(),
		Hint:    "An unexpected error occurred. Please check the error message for details.",
		Cause:   err,
	}
}

// HasCode reports whether err is a DebugError with the given code
func HasCode(err error, code ErrorCode) bool {
	var de *DebugError
	return stderrors.As(err, &de) && de.Code == code
}
