// ABOUTME: Error taxonomy for hub communication
// ABOUTME: Sentinels and typed errors usable with errors.Is and errors.As
package protocol

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotConnected is returned when an operation needs a live connection
	ErrNotConnected = errors.New("not connected to server")

	// ErrInvalidResponse is returned when a reply has an unexpected shape
	ErrInvalidResponse = errors.New("invalid response from server")
)

// ConnectionFailedError wraps a failed dial or handshake
type ConnectionFailedError struct {
	Err error
}

func (e *ConnectionFailedError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionFailedError) Unwrap() error { return e.Err }

// CommandTimeoutError is returned when no reply arrived in time
type CommandTimeoutError struct {
	ID      int
	Timeout time.Duration
}

func (e *CommandTimeoutError) Error() string {
	return fmt.Sprintf("command %d timed out after %s", e.ID, e.Timeout)
}

// ServerError carries an ErrorResponse from the hub
type ServerError struct {
	Code    *int
	Message string
	Details map[string]any
}

func (e *ServerError) Error() string {
	if e.Code != nil {
		return fmt.Sprintf("server error %d: %s", *e.Code, e.Message)
	}
	return fmt.Sprintf("server error: %s", e.Message)
}

// NewServerError converts a wire ErrorResponse
func NewServerError(resp *ErrorResponse) *ServerError {
	return &ServerError{
		Code:    resp.ErrorCode,
		Message: resp.Error,
		Details: resp.Details,
	}
}

// DecodingError wraps a failure to decode a reply payload
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decoding failed: %v", e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }
