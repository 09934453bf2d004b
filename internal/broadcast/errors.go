package broadcast

import (
	"errors"
	"fmt"
)

// Common broadcast errors
var (
	// ErrMissingDialogue indicates a payload without a dialogue field
	ErrMissingDialogue = errors.New("payload missing 'dialogue'")

	// ErrEmptyDialogue indicates a payload whose dialogue has no lines
	ErrEmptyDialogue = errors.New("payload has empty 'dialogue'")

	// ErrMissingStreamKey indicates the stream destination key is not set
	ErrMissingStreamKey = errors.New("stream key not set")

	// ErrEncoderNotFound indicates the encoder binary is not on PATH
	ErrEncoderNotFound = errors.New("encoder binary not found")

	// ErrSinkClosed indicates a write after the frame sink was closed
	ErrSinkClosed = errors.New("frame sink is closed")
)

// ErrorCode identifies the class of a broadcast error
type ErrorCode string

const (
	// ErrorCodeNetwork is a failed or timed out story request
	ErrorCodeNetwork ErrorCode = "NETWORK"

	// ErrorCodeSchema is a malformed payload or missing required field
	ErrorCodeSchema ErrorCode = "SCHEMA"

	// ErrorCodeAsset is a single audio download or decode failure
	ErrorCodeAsset ErrorCode = "ASSET"

	// ErrorCodePipe is a broken encoder pipe
	ErrorCodePipe ErrorCode = "PIPE"

	// ErrorCodeConfig is a missing secret or unusable configuration
	ErrorCodeConfig ErrorCode = "CONFIG"
)

// Error is a broadcast error with a classification code
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsFatal returns true if the error must end the broadcast session
func (e *Error) IsFatal() bool {
	switch e.Code {
	case ErrorCodePipe, ErrorCodeConfig:
		return true
	default:
		return false
	}
}

// NewError creates a new broadcast error
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NetworkError wraps a story request failure
func NetworkError(message string, cause error) *Error {
	return NewError(ErrorCodeNetwork, message, cause)
}

// SchemaError wraps a payload validation failure
func SchemaError(message string, cause error) *Error {
	return NewError(ErrorCodeSchema, message, cause)
}

// AssetError wraps a per-line audio failure
func AssetError(message string, cause error) *Error {
	return NewError(ErrorCodeAsset, message, cause)
}

// PipeError wraps a broken encoder pipe
func PipeError(message string, cause error) *Error {
	return NewError(ErrorCodePipe, message, cause)
}

// ConfigError wraps a startup configuration failure
func ConfigError(message string, cause error) *Error {
	return NewError(ErrorCodeConfig, message, cause)
}

// IsCode reports whether err is, or wraps, a broadcast error with the code.
func IsCode(err error, code ErrorCode) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// IsFatal reports whether err is, or wraps, a fatal broadcast error.
func IsFatal(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.IsFatal()
	}
	return false
}
