package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/tweetrelay/internal/domain"
	"github.com/pscheid92/tweetrelay/internal/metrics"
	"github.com/sony/gobreaker"
)

type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

var DefaultBreakerConfig = BreakerConfig{
	ConsecutiveFailures: 5,
	OpenTimeout:         30 * time.Second,
}

// Breaker stops calling a remote sink after repeated failures so a dead
// dependency cannot stall the stream loop.
type Breaker struct {
	name string
	next domain.OutputSink
	cb   *gobreaker.CircuitBreaker
}

var _ domain.OutputSink = (*Breaker)(nil)

func NewBreaker(name string, next domain.OutputSink, cfg BreakerConfig) *Breaker {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultBreakerConfig.ConsecutiveFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultBreakerConfig.OpenTimeout
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			// A cancelled emit says nothing about the sink's health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Breaker{name: name, next: next, cb: cb}
}

func (b *Breaker) Emit(ctx context.Context, out domain.RenderedOutput) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Emit(ctx, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w: %w", b.name, ErrUnavailable, err)
	}
	return err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
