// Package redis relays rendered tweets over Redis Pub/Sub so other
// processes can consume the stream.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/tweetrelay/internal/platform/retry"
	goredis "github.com/redis/go-redis/v9"
)

// pingPolicy covers Redis still starting up next to the relay, as in a
// compose stack.
var pingPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 250 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	OnRetry: func(attempt int, err error, wait time.Duration) {
		slog.Warn("Redis not reachable yet", "attempt", attempt, "retry_in", wait, "error", err)
	},
}

// NewClient connects to redisURL (e.g. "redis://localhost:6379") and verifies the connection.
func NewClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	rdb.AddHook(&MetricsHook{})

	ping := func() error { return rdb.Ping(ctx).Err() }
	if err := retry.DoVoid(ctx, pingPolicy, classifyPing, ping); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

func classifyPing(err error) retry.Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}
	return retry.Retry
}
