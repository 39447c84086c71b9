package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pscheid92/tweetrelay/internal/platform/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retry.Action
	}{
		{"connection refused", errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"), retry.Retry},
		{"cancelled", context.Canceled, retry.Stop},
		{"wrapped deadline", fmt.Errorf("dial: %w", context.DeadlineExceeded), retry.Stop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyPing(tt.err))
		})
	}
}

func TestNewClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client, err := NewClient(ctx, "redis://127.0.0.1:1")

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to ping redis")
}
