package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stream Metrics
var (
	// StreamFramesTotal tracks frames read from the provider
	StreamFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_frames_total",
			Help: "Total frames read from the provider stream",
		},
	)

	// StreamEventsRenderedTotal tracks tweets rendered and handed to the sinks
	StreamEventsRenderedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_events_rendered_total",
			Help: "Total tweets rendered and emitted",
		},
	)

	// StreamDecodeErrorsTotal tracks frames skipped because they could not be decoded
	StreamDecodeErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_decode_errors_total",
			Help: "Total frames skipped due to decode errors",
		},
	)

	// StreamControlMessagesTotal tracks control messages by kind
	StreamControlMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_control_messages_total",
			Help: "Total control messages received by kind",
		},
		[]string{"kind"},
	)

	// StreamRenderDuration tracks render plus emit latency per tweet
	StreamRenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stream_render_duration_seconds",
			Help:    "Time to render and emit one tweet",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, 1},
		},
	)
)

// Session Metrics
var (
	// SessionTransitionsTotal tracks session state transitions by target state
	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Total session state transitions by new state",
		},
		[]string{"state"},
	)

	// SessionReconnectsTotal tracks reconnect attempts scheduled after a stream failure
	SessionReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_reconnects_total",
			Help: "Total reconnect attempts after stream failures",
		},
	)

	// SessionStopTimeoutsTotal tracks stops that exceeded the grace period
	SessionStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_stop_timeouts_total",
			Help: "Session stops that exceeded the grace period",
		},
	)

	// SessionActive is 1 while a session is pending or running
	SessionActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_active",
			Help: "1 if a stream session is pending or running, 0 otherwise",
		},
	)
)

// Sink Metrics
var (
	// SinkEmitsTotal tracks emits by sink and result
	SinkEmitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_emits_total",
			Help: "Total sink emits by sink and result (success/error/rejected)",
		},
		[]string{"sink", "result"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Redis Metrics
var (
	// RedisOpsTotal tracks Redis commands by operation and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis command latency
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks failed dials
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)
)

// Chat Metrics
var (
	// ChatClientsCurrent tracks connected chat websocket clients
	ChatClientsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_clients_current",
			Help: "Current number of connected chat clients",
		},
	)

	// ChatSlowClientsEvicted tracks clients dropped because their send buffer was full
	ChatSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_slow_clients_evicted_total",
			Help: "Total chat clients evicted due to full send buffer",
		},
	)

	// ChatCommandsTotal tracks chat commands by name and result
	ChatCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_commands_total",
			Help: "Total chat commands by command and result",
		},
		[]string{"command", "result"},
	)
)

// Handler serves the default registry, which the promauto collectors above register with.
func Handler() http.Handler {
	return promhttp.Handler()
}
