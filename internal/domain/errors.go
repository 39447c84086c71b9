package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFollowList    = errors.New("follow list is empty")
	ErrInvalidFollowID    = errors.New("invalid follow id")
	ErrMissingCredentials = errors.New("stream credentials are missing")
	ErrNotRunning         = errors.New("no stream session is running")
	ErrAlreadyRunning     = errors.New("a stream session is already running")
)

// ConfigError rejects a start request before any connection is attempted.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "config error: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// ConnectError is a handshake or authentication failure. It is never retried.
type ConnectError struct {
	StatusCode int
	Err        error
}

func (e *ConnectError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("connect error (status %d): %v", e.StatusCode, e.Err)
	}
	return "connect error: " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error { return e.Err }

// StreamError ends a running session: a disconnect, a transient connect
// rejection or an unrecoverable framing failure.
type StreamError struct {
	// RateLimited is set when the provider asked us to slow down.
	RateLimited bool
	Err         error
}

func (e *StreamError) Error() string { return "stream error: " + e.Err.Error() }
func (e *StreamError) Unwrap() error { return e.Err }

// DecodeError covers a single frame. The session logs it and moves on.
type DecodeError struct {
	Frame string
	Err   error
}

func (e *DecodeError) Error() string { return "decode error: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }
