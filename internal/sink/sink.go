// Package sink composes output sinks: fan-out to several destinations,
// a circuit breaker for remote ones, and emission rate limiting.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/pscheid92/tweetrelay/internal/domain"
	"github.com/pscheid92/tweetrelay/internal/metrics"
)

// ErrUnavailable is returned instead of emitting while a sink is known to be down.
var ErrUnavailable = errors.New("sink unavailable")

type Named struct {
	Name string
	Sink domain.OutputSink
}

// Multi emits to every sink in order. A failing sink does not keep the
// output from the others.
type Multi struct {
	sinks []Named
}

var _ domain.OutputSink = (*Multi)(nil)

func NewMulti(sinks ...Named) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Len() int { return len(m.sinks) }

func (m *Multi) Emit(ctx context.Context, out domain.RenderedOutput) error {
	var errs []error
	for _, s := range m.sinks {
		err := s.Sink.Emit(ctx, out)
		metrics.SinkEmitsTotal.WithLabelValues(s.Name, result(err)).Inc()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

func result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnavailable):
		return "rejected"
	default:
		return "error"
	}
}

// Func adapts a function to domain.OutputSink.
type Func func(ctx context.Context, out domain.RenderedOutput) error

func (f Func) Emit(ctx context.Context, out domain.RenderedOutput) error { return f(ctx, out) }
