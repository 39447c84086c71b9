// Package retry holds the backoff rules shared by the stream supervisor and
// one-shot startup calls such as the Redis ping.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Action is what a Classify decides to do with a failure.
type Action int

const (
	Stop  Action = iota // permanent error, abort immediately
	Retry               // transient error, use normal backoff
	After               // rate-limited, use longer backoff
)

type Policy struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration // zero means uncapped
	RateLimitBackoff time.Duration
	OnRetry          func(attempt int, err error, backoff time.Duration)
}

type Classify func(err error) Action

// Do calls op until it succeeds, classify says Stop, MaxAttempts is used up
// or ctx ends. A Stop result is returned wrapped in *PermanentError.
func Do[T any](ctx context.Context, p Policy, classify Classify, op func() (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	b := NewBackoff(p)

	var lastErr error
	for attempt := 1; ; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}
		lastErr = err

		action := classify(err)
		switch {
		case action == Stop:
			return zero, &PermanentError{Err: err}
		case attempt >= p.MaxAttempts:
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, lastErr)
		}

		wait := b.Next(action)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, fmt.Errorf("context cancelled during retry: %w", err)
		}
	}
}

func DoVoid(ctx context.Context, p Policy, classify Classify, op func() error) error {
	_, err := Do(ctx, p, classify, func() (struct{}, error) { return struct{}{}, op() })
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff yields the wait before each retry for callers that own their own
// loop, like the supervisor that must watch for stop requests while waiting.
// Not safe for concurrent use.
type Backoff struct {
	policy Policy
	next   time.Duration
}

func NewBackoff(p Policy) *Backoff {
	return &Backoff{policy: p, next: p.InitialBackoff}
}

// Next returns the wait for a failure classified as action. Retry waits
// double up to MaxBackoff; After waits at least RateLimitBackoff.
func (b *Backoff) Next(action Action) time.Duration {
	d := b.next
	if action == After && d < b.policy.RateLimitBackoff {
		d = b.policy.RateLimitBackoff
	}
	d = b.capped(d)
	b.next = b.capped(d * 2)
	return d
}

// Reset starts the sequence over at InitialBackoff.
func (b *Backoff) Reset() {
	b.next = b.policy.InitialBackoff
}

func (b *Backoff) capped(d time.Duration) time.Duration {
	if b.policy.MaxBackoff > 0 && d > b.policy.MaxBackoff {
		return b.policy.MaxBackoff
	}
	return d
}

type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
