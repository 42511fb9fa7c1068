package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// NotFound indicates a referenced run, repository or idea does not exist
	NotFound ErrorCode = "NOT_FOUND"
	// ValidationError indicates malformed caller input (bad URL, bad payload, bad blob)
	ValidationError ErrorCode = "VALIDATION_ERROR"
	// TransientFetch indicates a metadata, README or search request failed
	TransientFetch ErrorCode = "TRANSIENT_FETCH"
	// EmbeddingBackendUnavailable indicates an embedding backend failed to load or infer
	EmbeddingBackendUnavailable ErrorCode = "EMBEDDING_BACKEND_UNAVAILABLE"
	// StorageError indicates the knowledge store could not complete an operation
	StorageError ErrorCode = "STORAGE_ERROR"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// SetEnv suggests exporting an environment variable
	SetEnv FixActionType = "set-env"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Variable    string        `json:"variable,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// ScoutError carries a stable code, a message and optional fix suggestions.
type ScoutError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a ScoutError with the default fixes for its code.
func New(code ErrorCode, message string) *ScoutError {
	return &ScoutError{
		Code:           code,
		Message:        message,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *ScoutError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a ScoutError around an underlying cause.
func Wrap(code ErrorCode, message string, cause error) *ScoutError {
	e := New(code, message)
	e.cause = cause
	return e
}

// Error implements the error interface
func (e *ScoutError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ScoutError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *ScoutError) WithDetails(details interface{}) *ScoutError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first ScoutError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var se *ScoutError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Is reports whether err's chain contains a ScoutError with the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	NotFound: {
		{
			Type:        RunCommand,
			Command:     "scout run list",
			Safe:        true,
			Description: "List existing runs",
		},
	},
	TransientFetch: {
		{
			Type:        SetEnv,
			Variable:    "GITHUB_TOKEN",
			Description: "Authenticate GitHub requests to raise rate limits",
		},
	},
	EmbeddingBackendUnavailable: {
		{
			Type:        RunCommand,
			Command:     "ollama pull nomic-embed-text",
			Safe:        true,
			Description: "Install the default local embedding model",
		},
		{
			Type:        SetEnv,
			Variable:    "SCOUT_EMBEDDER",
			Description: "Set to 'hash' to skip model backends",
		},
	},
	StorageError: {
		{
			Type:        SetEnv,
			Variable:    "SCOUT_DB_PATH",
			Description: "Point scout at a writable database file",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
