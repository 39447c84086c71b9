package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tweetrelay/internal/domain"
	"github.com/pscheid92/tweetrelay/internal/metrics"
	"github.com/pscheid92/tweetrelay/internal/platform/correlation"
	"github.com/pscheid92/tweetrelay/internal/platform/retry"
)

const (
	defaultStopGracePeriod = 5 * time.Second
	defaultStableAfter     = time.Minute
)

// DefaultRetryPolicy is used for any zero field of ControllerConfig.Retry.
var DefaultRetryPolicy = retry.Policy{
	MaxAttempts:      5,
	InitialBackoff:   time.Second,
	MaxBackoff:       2 * time.Minute,
	RateLimitBackoff: time.Minute,
}

// Runner is one connection attempt. Run returns nil when ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// SessionFactory builds the runner for one attempt. onConnected must be
// called from Run once the stream is established.
type SessionFactory func(id uuid.UUID, follows domain.FollowList, onConnected func()) Runner

type CredentialValidator interface {
	Validate() error
}

type ControllerConfig struct {
	// RestartOnFailure reconnects after a StreamError instead of failing.
	RestartOnFailure bool
	// Retry.MaxAttempts bounds consecutive reconnects.
	Retry retry.Policy
	// StableAfter is how long a connection must last to reset the backoff.
	StableAfter     time.Duration
	StopGracePeriod time.Duration
}

// Controller owns the single active stream session.
type Controller struct {
	newSession  SessionFactory
	credentials CredentialValidator
	cfg         ControllerConfig
	clock       clockwork.Clock

	mu     sync.Mutex
	status domain.SessionStatus
	active *Handle
}

var _ domain.ControlSurface = (*Controller)(nil)

func NewController(newSession SessionFactory, credentials CredentialValidator, cfg ControllerConfig, clock clockwork.Clock) *Controller {
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if cfg.Retry.InitialBackoff <= 0 {
		cfg.Retry.InitialBackoff = DefaultRetryPolicy.InitialBackoff
	}
	if cfg.Retry.MaxBackoff <= 0 {
		cfg.Retry.MaxBackoff = DefaultRetryPolicy.MaxBackoff
	}
	if cfg.Retry.RateLimitBackoff <= 0 {
		cfg.Retry.RateLimitBackoff = DefaultRetryPolicy.RateLimitBackoff
	}
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = defaultStableAfter
	}
	if cfg.StopGracePeriod <= 0 {
		cfg.StopGracePeriod = defaultStopGracePeriod
	}

	return &Controller{
		newSession:  newSession,
		credentials: credentials,
		cfg:         cfg,
		clock:       clock,
		status:      domain.SessionStatus{State: domain.StateIdle},
	}
}

// Start validates follows and launches a session in the background. It
// returns domain.ErrAlreadyRunning while another session is pending or running.
func (c *Controller) Start(ctx context.Context, follows domain.FollowList) (*Handle, error) {
	follows, err := domain.NewFollowList(follows)
	if err != nil {
		return nil, err
	}
	if c.credentials != nil {
		if err := c.credentials.Validate(); err != nil {
			var configErr *domain.ConfigError
			if !errors.As(err, &configErr) {
				err = &domain.ConfigError{Err: err}
			}
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, domain.ErrAlreadyRunning
	}

	id := uuid.New()
	// The session outlives the request that started it.
	sessionCtx, cancel := context.WithCancel(correlation.WithID(context.WithoutCancel(ctx), correlation.ForSession(id)))
	h := &Handle{
		id:     id,
		ctrl:   c,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.active = h
	c.status = domain.SessionStatus{
		State:     domain.StatePending,
		SessionID: id,
		Follows:   follows.Clone(),
		Attempt:   1,
		StartedAt: c.clock.Now(),
	}
	metrics.SessionActive.Set(1)
	metrics.SessionTransitionsTotal.WithLabelValues(string(domain.StatePending)).Inc()
	slog.InfoContext(sessionCtx, "Stream session starting", "session_id", id, "follows", follows.Param(), "restart", c.cfg.RestartOnFailure)

	go c.supervise(sessionCtx, h, follows)

	return h, nil
}

// Stop cancels the active session and waits for it within the grace period.
func (c *Controller) Stop() error {
	c.mu.Lock()
	h := c.active
	c.mu.Unlock()

	if h == nil {
		return domain.ErrNotRunning
	}
	h.Stop()
	return nil
}

// Status returns a snapshot of the current or most recent session.
func (c *Controller) Status() domain.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.status
	status.Follows = c.status.Follows.Clone()
	return status
}

// Shutdown stops any active session, giving up when ctx ends first.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	h := c.active
	c.mu.Unlock()

	if h == nil {
		return nil
	}

	stopped := make(chan struct{})
	go func() {
		h.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stream session did not stop: %w", ctx.Err())
	}
}

func (c *Controller) StartStreaming(ctx context.Context, followIDs []int64) error {
	_, err := c.Start(ctx, followIDs)
	return err
}

func (c *Controller) StopStreaming() error {
	return c.Stop()
}

func (c *Controller) supervise(ctx context.Context, h *Handle, follows domain.FollowList) {
	defer close(h.done)

	backoff := retry.NewBackoff(c.cfg.Retry)
	failures := 0

	for attempt := 1; ; attempt++ {
		var connectedAt time.Time
		runner := c.newSession(h.id, follows, func() {
			connectedAt = c.clock.Now()
			c.transition(h, domain.StateRunning, attempt, "")
		})

		err := runner.Run(ctx)
		if err == nil || ctx.Err() != nil {
			c.finish(ctx, h, domain.StateCancelled, "")
			return
		}

		var streamErr *domain.StreamError
		if !c.cfg.RestartOnFailure || !errors.As(err, &streamErr) {
			c.finish(ctx, h, domain.StateFailed, err.Error())
			return
		}

		if !connectedAt.IsZero() && c.clock.Since(connectedAt) >= c.cfg.StableAfter {
			backoff.Reset()
			failures = 0
		}
		failures++
		if failures > c.cfg.Retry.MaxAttempts {
			c.finish(ctx, h, domain.StateFailed, fmt.Sprintf("giving up after %d reconnect attempts: %v", c.cfg.Retry.MaxAttempts, err))
			return
		}

		action := retry.Retry
		if streamErr.RateLimited {
			action = retry.After
		}
		wait := backoff.Next(action)

		metrics.SessionReconnectsTotal.Inc()
		c.transition(h, domain.StatePending, attempt+1, err.Error())
		slog.WarnContext(ctx, "Stream session failed, reconnecting", "session_id", h.id, "error", err, "attempt", failures, "backoff", wait)

		timer := c.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.finish(ctx, h, domain.StateCancelled, "")
			return
		case <-timer.Chan():
		}
	}
}

// transition updates the status while h is still the active session.
func (c *Controller) transition(h *Handle, state domain.SessionState, attempt int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != h {
		return
	}
	c.status.State = state
	c.status.Attempt = attempt
	c.status.Reason = reason
	metrics.SessionTransitionsTotal.WithLabelValues(string(state)).Inc()
}

// finish moves h to a terminal state and releases the active slot.
func (c *Controller) finish(ctx context.Context, h *Handle, state domain.SessionState, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != h {
		return
	}
	c.active = nil
	c.status.State = state
	c.status.Reason = reason
	c.status.EndedAt = c.clock.Now()
	metrics.SessionActive.Set(0)
	metrics.SessionTransitionsTotal.WithLabelValues(string(state)).Inc()

	if state == domain.StateFailed {
		slog.ErrorContext(ctx, "Stream session failed", "session_id", h.id, "reason", reason)
	} else {
		slog.InfoContext(ctx, "Stream session ended", "session_id", h.id, "state", state)
	}
}

// Handle is the owner's reference to one started session.
type Handle struct {
	id     uuid.UUID
	ctrl   *Controller
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (h *Handle) ID() uuid.UUID { return h.id }

// Done is closed once the session goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Stop cancels the session and waits up to the grace period for it to exit.
// Safe to call any number of times, also after the session ended.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)

	select {
	case <-h.done:
	case <-h.ctrl.clock.After(h.ctrl.cfg.StopGracePeriod):
		metrics.SessionStopTimeoutsTotal.Inc()
		slog.Warn("Stream session did not exit within grace period", "session_id", h.id, "grace_period", h.ctrl.cfg.StopGracePeriod)
		// Release the slot; the lingering goroutine can no longer touch the status.
		h.ctrl.finish(context.Background(), h, domain.StateCancelled, "")
	}
}
