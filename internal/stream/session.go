// Package stream runs one live subscription: it connects, reads delimited
// frames, and turns every decoded tweet into a RenderedOutput for the sink.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/tweetrelay/internal/domain"
	"github.com/pscheid92/tweetrelay/internal/metrics"
)

const (
	DefaultMaxFrameBytes = 1 << 20
	initialFrameBuffer   = 64 * 1024
)

// Connector opens the provider stream. The returned body is closed by the session.
type Connector interface {
	Connect(ctx context.Context, follows domain.FollowList) (io.ReadCloser, error)
}

type Decoder interface {
	Decode(frame []byte) (domain.StreamEvent, error)
}

type Deps struct {
	Connector Connector
	Decoder   Decoder
	Renderer  domain.Renderer
	Sink      domain.OutputSink
}

type Options struct {
	MaxFrameBytes int
	// OnConnected runs once the handshake succeeded, before the first frame is read.
	OnConnected func()
}

// Session owns one subscription. Run may be called once.
type Session struct {
	id      uuid.UUID
	follows domain.FollowList
	deps    Deps
	opts    Options
}

func New(id uuid.UUID, follows domain.FollowList, deps Deps, opts Options) *Session {
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = DefaultMaxFrameBytes
	}
	return &Session{id: id, follows: follows.Clone(), deps: deps, opts: opts}
}

func (s *Session) ID() uuid.UUID { return s.id }

// Run connects and processes frames until ctx is cancelled or the stream
// ends. Cancellation returns nil. Otherwise the error is a *domain.ConnectError
// or a *domain.StreamError.
func (s *Session) Run(ctx context.Context) error {
	body, err := s.deps.Connector.Connect(ctx, s.follows)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return classify(err)
	}

	slog.InfoContext(ctx, "Stream session connected", "session_id", s.id, "follows", s.follows.Param())
	if s.opts.OnConnected != nil {
		s.opts.OnConnected()
	}

	frames := make(chan frame)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.read(body, frames, done)
	}()

	defer func() {
		close(done)
		_ = body.Close()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stream session cancelled", "session_id", s.id)
			return nil
		case f := <-frames:
			if ctx.Err() != nil {
				return nil
			}
			if f.err != nil {
				return f.err
			}
			s.handle(ctx, f.data)
		}
	}
}

type frame struct {
	data []byte
	err  error
}

// read forwards frames until the body fails or done is closed. The final
// send always carries an error.
func (s *Session) read(body io.Reader, frames chan<- frame, done <-chan struct{}) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, min(initialFrameBuffer, s.opts.MaxFrameBytes)), s.opts.MaxFrameBytes)

	send := func(f frame) bool {
		select {
		case frames <- f:
			return true
		case <-done:
			return false
		}
	}

	for scanner.Scan() {
		if !send(frame{data: bytes.Clone(scanner.Bytes())}) {
			return
		}
	}

	err := scanner.Err()
	switch {
	case err == nil:
		err = &domain.StreamError{Err: fmt.Errorf("stream closed by provider: %w", io.EOF)}
	case errors.Is(err, bufio.ErrTooLong):
		err = &domain.StreamError{Err: fmt.Errorf("frame exceeds %d bytes: %w", s.opts.MaxFrameBytes, err)}
	default:
		err = &domain.StreamError{Err: fmt.Errorf("stream read failed: %w", err)}
	}
	send(frame{err: err})
}

func (s *Session) handle(ctx context.Context, data []byte) {
	metrics.StreamFramesTotal.Inc()

	event, err := s.deps.Decoder.Decode(data)
	if err != nil {
		metrics.StreamDecodeErrorsTotal.Inc()
		slog.WarnContext(ctx, "Skipping undecodable frame", "session_id", s.id, "error", err)
		return
	}

	switch ev := event.(type) {
	case *domain.Tweet:
		s.emit(ctx, ev)
	case domain.Control:
		metrics.StreamControlMessagesTotal.WithLabelValues(string(ev.Kind)).Inc()
		if ev.Kind == domain.ControlKeepAlive {
			slog.DebugContext(ctx, "Keep-alive received", "session_id", s.id)
			return
		}
		slog.InfoContext(ctx, "Control message received", "session_id", s.id, "kind", ev.Kind, "detail", ev.Detail)
	}
}

func (s *Session) emit(ctx context.Context, t *domain.Tweet) {
	start := time.Now()
	defer func() { metrics.StreamRenderDuration.Observe(time.Since(start).Seconds()) }()

	lines := s.deps.Renderer.Render(t)
	if len(lines) == 0 {
		return
	}

	out := domain.RenderedOutput{SessionID: s.id, TweetID: t.ID, Lines: lines}
	if err := s.deps.Sink.Emit(ctx, out); err != nil {
		slog.WarnContext(ctx, "Failed to emit rendered tweet", "session_id", s.id, "tweet_id", t.ID, "error", err)
		return
	}
	metrics.StreamEventsRenderedTotal.Inc()
}

// classify keeps typed connect failures and treats anything else as a
// retryable stream failure.
func classify(err error) error {
	var connectErr *domain.ConnectError
	var streamErr *domain.StreamError
	var configErr *domain.ConfigError
	if errors.As(err, &connectErr) || errors.As(err, &streamErr) || errors.As(err, &configErr) {
		return err
	}
	return &domain.StreamError{Err: err}
}
