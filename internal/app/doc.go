// Package app owns the stream session lifecycle.
//
// Controller is the single entry point for starting and stopping the relay.
// It enforces that at most one session is pending or running, supervises the
// session goroutine, and reconnects with exponential backoff when the session
// was started with restart intent. HTTP handlers and chat commands reach it
// through domain.ControlSurface.
package app
