package redis

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tweetrelay/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

var testRedisURL string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}
	os.Exit(runWithContainer(m))
}

func runWithContainer(m *testing.M) int {
	ctx := context.Background()
	container, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		return 1
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate redis container: %v\n", err)
		}
	}()

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		return 1
	}
	testRedisURL = "redis://" + endpoint

	return m.Run()
}

func setupTestClient(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client, err := NewClient(context.Background(), testRedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewClient_Connects(t *testing.T) {
	client := setupTestClient(t)
	require.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not a url")
	assert.ErrorContains(t, err, "failed to parse redis URL")
}

func TestRelay_PublishSubscribeRoundTrip(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2020, 5, 17, 12, 30, 0, 0, time.UTC))
	relay := NewRelay(client, "tweetrelay:test:"+uuid.NewString(), clock)

	sub, err := relay.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	sessionID := uuid.New()
	out := domain.RenderedOutput{
		SessionID: sessionID,
		TweetID:   "1",
		Lines: []domain.Line{
			{Kind: domain.LineAuthor, Text: "alice (@alice) posted at 2020-05-17 12:30:00 UTC"},
			{Kind: domain.LineBody, Text: "hello world"},
			{Kind: domain.LineHeader, Text: "➜ Hashtags contained in the tweet:"},
			{Kind: domain.LineItem, Text: "  rust"},
		},
	}
	require.NoError(t, relay.Emit(ctx, out))

	select {
	case msg := <-sub.Ch:
		assert.Equal(t, sessionID.String(), msg.SessionID)
		assert.Equal(t, "1", msg.TweetID)
		assert.True(t, msg.PublishedAt.Equal(clock.Now()))
		require.Len(t, msg.Lines, 4)
		assert.Equal(t, RelayLine{Kind: "author", Text: "alice (@alice) posted at 2020-05-17 12:30:00 UTC"}, msg.Lines[0])
		assert.Equal(t, RelayLine{Kind: "item", Text: "  rust"}, msg.Lines[3])
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for relayed message")
	}
}

func TestRelay_DefaultChannel(t *testing.T) {
	relay := NewRelay(nil, "", clockwork.NewRealClock())
	assert.Equal(t, DefaultChannel, relay.Channel())
}

func TestRelay_EmitFailsWhenClosed(t *testing.T) {
	client := setupTestClient(t)
	relay := NewRelay(client, "tweetrelay:closed", clockwork.NewRealClock())
	require.NoError(t, client.Close())

	err := relay.Emit(context.Background(), domain.RenderedOutput{SessionID: uuid.New()})
	assert.ErrorContains(t, err, "failed to publish")
}
