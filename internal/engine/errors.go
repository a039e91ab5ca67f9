package engine

import (
	"errors"
	"fmt"
)

// DispatchError represents a failure while dispatching one action.
//
// Dispatch errors never stop the engine: the failing dispatch is logged and
// the loop moves on to the next event. Other origins are unaffected.
type DispatchError struct {
	// Code identifies the error category.
	Code DispatchErrorCode

	// Message is a human-readable description.
	Message string

	// Origin identifies the affected action.
	Origin string

	// Definition is the matched definition id, if any.
	Definition string

	// Err is the underlying cause.
	Err error
}

// DispatchErrorCode categorizes dispatch errors.
type DispatchErrorCode string

const (
	// ErrCodeConfig indicates an unusable configuration snapshot.
	ErrCodeConfig DispatchErrorCode = "CONFIG_ERROR"

	// ErrCodeRender indicates the renderer rejected a batch or sound.
	ErrCodeRender DispatchErrorCode = "RENDER_FAILED"

	// ErrCodeStore indicates the dispatch log could not be written.
	ErrCodeStore DispatchErrorCode = "STORE_FAILED"

	// ErrCodeInvalidEvent indicates a malformed loop event.
	ErrCodeInvalidEvent DispatchErrorCode = "INVALID_EVENT"
)

// Error implements the error interface.
func (e *DispatchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Origin != "" && e.Definition != "" {
		msg = fmt.Sprintf("%s (origin=%s, definition=%s)", msg, e.Origin, e.Definition)
	} else if e.Origin != "" {
		msg = fmt.Sprintf("%s (origin=%s)", msg, e.Origin)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code DispatchErrorCode) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsConfigError returns true if the error is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	return hasCode(err, ErrCodeConfig)
}

// IsRenderError returns true if the renderer failed.
func IsRenderError(err error) bool {
	return hasCode(err, ErrCodeRender)
}

// IsStoreError returns true if the dispatch log write failed.
func IsStoreError(err error) bool {
	return hasCode(err, ErrCodeStore)
}

func newConfigError(format string, args ...any) *DispatchError {
	return &DispatchError{Code: ErrCodeConfig, Message: fmt.Sprintf(format, args...)}
}

func newRenderError(origin, definition string, err error) *DispatchError {
	return &DispatchError{
		Code:       ErrCodeRender,
		Message:    "renderer rejected batch",
		Origin:     origin,
		Definition: definition,
		Err:        err,
	}
}

func newStoreError(origin string, err error) *DispatchError {
	return &DispatchError{
		Code:    ErrCodeStore,
		Message: "dispatch log write failed",
		Origin:  origin,
		Err:     err,
	}
}
