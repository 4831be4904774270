package core

import (
	"errors"
	"fmt"
)

// AppError carries a machine-readable reason code next to the human message.
// Internal detail stays in Cause and is logged, never surfaced.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func NewError(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func WrapError(err error, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: err}
}

// Reason codes
const (
	CodeAlreadyRunning       = "ALREADY_RUNNING"
	CodeCancelled            = "CANCELLED"
	CodeIndexEmpty           = "INDEX_EMPTY"
	CodeIndexStale           = "INDEX_STALE"
	CodeAudioUnreadable      = "AUDIO_UNREADABLE"
	CodeTranscriptionTimeout = "TRANSCRIPTION_TIMEOUT"
	CodeEmptyTranscript      = "EMPTY_TRANSCRIPT"
	CodeInputTooLong         = "INPUT_TOO_LONG"
	CodeModelUnavailable     = "MODEL_UNAVAILABLE"
	CodeRenderFailed         = "RENDER_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeInvalidArgument      = "INVALID_ARGUMENT"
	CodeTransientBackend     = "TRANSIENT_BACKEND"
	CodeStateConflict        = "STATE_CONFLICT"
	CodeInternal             = "INTERNAL_ERROR"
)

// CodeOf extracts the reason code from an error chain, or INTERNAL_ERROR.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

var transientCodes = map[string]bool{
	CodeTransientBackend:     true,
	CodeTranscriptionTimeout: true,
	CodeModelUnavailable:     true,
}

var conflictCodes = map[string]bool{
	CodeAlreadyRunning: true,
	CodeStateConflict:  true,
	CodeIndexStale:     true,
}

// IsTransient reports whether a retry with backoff may succeed.
func IsTransient(err error) bool { return transientCodes[CodeOf(err)] }

// IsStateConflict reports whether the operation was attempted in a wrong
// state; such errors are rejected synchronously, never retried or queued.
func IsStateConflict(err error) bool { return conflictCodes[CodeOf(err)] }
