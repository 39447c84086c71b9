package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	metrics := []prometheus.Collector{
		StreamFramesTotal,
		StreamEventsRenderedTotal,
		StreamDecodeErrorsTotal,
		StreamControlMessagesTotal,
		StreamRenderDuration,

		SessionTransitionsTotal,
		SessionReconnectsTotal,
		SessionStopTimeoutsTotal,
		SessionActive,

		SinkEmitsTotal,
		CircuitBreakerState,

		RedisOpsTotal,
		RedisOpDuration,
		RedisConnectionErrors,

		ChatClientsCurrent,
		ChatSlowClientsEvicted,
		ChatCommandsTotal,
	}

	for _, metric := range metrics {
		desc := make(chan *prometheus.Desc, 1)
		metric.Describe(desc)
		close(desc)

		require.NotNil(t, <-desc, "metric should have a valid descriptor")
	}
}

func TestCounterVecMetrics(t *testing.T) {
	tests := []struct {
		name    string
		metric  *prometheus.CounterVec
		labels  prometheus.Labels
		incBy   int
		wantVal float64
	}{
		{
			name:    "control messages",
			metric:  StreamControlMessagesTotal,
			labels:  prometheus.Labels{"kind": "limit"},
			incBy:   3,
			wantVal: 3,
		},
		{
			name:    "session transitions",
			metric:  SessionTransitionsTotal,
			labels:  prometheus.Labels{"state": "running"},
			incBy:   2,
			wantVal: 2,
		},
		{
			name:    "sink emits",
			metric:  SinkEmitsTotal,
			labels:  prometheus.Labels{"sink": "console", "result": "success"},
			incBy:   5,
			wantVal: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.metric.Reset()

			for i := 0; i < tt.incBy; i++ {
				tt.metric.With(tt.labels).Inc()
			}

			assert.Equal(t, tt.wantVal, testutil.ToFloat64(tt.metric.With(tt.labels)))
		})
	}
}

func TestHandler_ServesCollectors(t *testing.T) {
	StreamFramesTotal.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stream_frames_total")
}
