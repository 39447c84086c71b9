package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle position of the stream session.
type SessionState string

const (
	StateIdle      SessionState = "idle"
	StatePending   SessionState = "pending"
	StateRunning   SessionState = "running"
	StateCancelled SessionState = "cancelled"
	StateFailed    SessionState = "failed"
)

// Active reports whether a session in this state still owns the stream.
func (s SessionState) Active() bool {
	return s == StatePending || s == StateRunning
}

// SessionStatus is a point-in-time view of the controller.
type SessionStatus struct {
	State     SessionState `json:"state"`
	SessionID uuid.UUID    `json:"session_id,omitzero"`
	Follows   FollowList   `json:"follows,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Attempt   int          `json:"attempt,omitempty"`
	StartedAt time.Time    `json:"started_at,omitzero"`
	EndedAt   time.Time    `json:"ended_at,omitzero"`
}

// ControlSurface is what the command layer uses to drive streaming.
type ControlSurface interface {
	StartStreaming(ctx context.Context, followIDs []int64) error
	StopStreaming() error
	Status() SessionStatus
}
