package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failure of provisioning or conversion.
type ErrorKind string

const (
	KindRuntimeUnavailable   ErrorKind = "runtime_unavailable"
	KindLibraryMissing       ErrorKind = "library_missing"
	KindInstallFailed        ErrorKind = "install_failed"
	KindScriptNotFound       ErrorKind = "script_not_found"
	KindProcessSpawnFailed   ErrorKind = "process_spawn_failed"
	KindProcessExitedNonZero ErrorKind = "process_exited_nonzero"
	KindEmptyResult          ErrorKind = "empty_result"
	KindInvalidInput         ErrorKind = "invalid_input"
	KindTimeout              ErrorKind = "timeout"
)

// Sentinel errors, one per ErrorKind. A *ConversionError matches the
// sentinel of its kind with errors.Is.
var (
	ErrRuntimeUnavailable   = errors.New("runtime unavailable")
	ErrLibraryMissing       = errors.New("library missing")
	ErrInstallFailed        = errors.New("install failed")
	ErrScriptNotFound       = errors.New("script not found")
	ErrProcessSpawnFailed   = errors.New("process spawn failed")
	ErrProcessExitedNonZero = errors.New("process exited with non-zero status")
	ErrEmptyResult          = errors.New("empty result")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTimeout              = errors.New("timeout")
)

var sentinels = map[ErrorKind]error{
	KindRuntimeUnavailable:   ErrRuntimeUnavailable,
	KindLibraryMissing:       ErrLibraryMissing,
	KindInstallFailed:        ErrInstallFailed,
	KindScriptNotFound:       ErrScriptNotFound,
	KindProcessSpawnFailed:   ErrProcessSpawnFailed,
	KindProcessExitedNonZero: ErrProcessExitedNonZero,
	KindEmptyResult:          ErrEmptyResult,
	KindInvalidInput:         ErrInvalidInput,
	KindTimeout:              ErrTimeout,
}

// Sentinel returns the sentinel error of the kind, or nil for unknown kinds.
func (k ErrorKind) Sentinel() error {
	return sentinels[k]
}

// ConversionError is the single failure value surfaced to callers.
type ConversionError struct {
	Kind    ErrorKind
	Message string

	// ExitCode is set for ProcessExitedNonZero.
	ExitCode *int

	// Stderr holds the worker's or installer's captured error stream.
	Stderr string

	// Attempted lists the candidate paths tried for ScriptNotFound.
	Attempted []string

	// Err is the underlying error, if any.
	Err error
}

// NewError builds a ConversionError of the given kind.
func NewError(kind ErrorKind, msg string) *ConversionError {
	return &ConversionError{Kind: kind, Message: msg}
}

func (e *ConversionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if s := e.Kind.Sentinel(); s != nil {
		return s.Error()
	}
	return string(e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *ConversionError) Is(target error) bool {
	s := e.Kind.Sentinel()
	return s != nil && target == s
}

// KindOf extracts the ErrorKind from err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// ScriptNotFoundError reports every candidate path the locator tried.
func ScriptNotFoundError(script string, attempted []string) *ConversionError {
	return &ConversionError{
		Kind:      KindScriptNotFound,
		Message:   fmt.Sprintf("cannot find worker script %s (tried: %s)", script, strings.Join(attempted, ", ")),
		Attempted: attempted,
	}
}
