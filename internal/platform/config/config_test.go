package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TWITTER_CONSUMER_KEY", "test-consumer-key")
	t.Setenv("TWITTER_CONSUMER_SECRET", "test-consumer-secret")
	t.Setenv("TWITTER_ACCESS_TOKEN", "test-access-token")
	t.Setenv("TWITTER_ACCESS_SECRET", "test-access-secret")
}

func TestLoad_AllRequiredVarsSet(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-consumer-key", cfg.TwitterConsumerKey)
	assert.Equal(t, "test-consumer-secret", cfg.TwitterConsumerSecret)
	assert.Equal(t, "test-access-token", cfg.TwitterAccessToken)
	assert.Equal(t, "test-access-secret", cfg.TwitterAccessSecret)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		skipEnv string
		wantErr string
	}{
		{"missing consumer key", "TWITTER_CONSUMER_KEY", "TWITTER_CONSUMER_KEY is required"},
		{"missing consumer secret", "TWITTER_CONSUMER_SECRET", "TWITTER_CONSUMER_SECRET is required"},
		{"missing access token", "TWITTER_ACCESS_TOKEN", "TWITTER_ACCESS_TOKEN is required"},
		{"missing access secret", "TWITTER_ACCESS_SECRET", "TWITTER_ACCESS_SECRET is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.skipEnv, "")

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://stream.twitter.com/1.1/statuses/filter.json", cfg.StreamEndpoint)
	assert.Equal(t, 5, cfg.RenderMaxDepth)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.True(t, cfg.RestartOnFailure)
	assert.Equal(t, 5, cfg.ReconnectMaxAttempts)
	assert.Equal(t, time.Second, cfg.ReconnectInitialBackoff)
	assert.Equal(t, 2*time.Minute, cfg.ReconnectMaxBackoff)
	assert.Equal(t, time.Minute, cfg.RateLimitBackoff)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.StopGracePeriod)
	assert.Equal(t, 1<<20, cfg.MaxFrameBytes)
	assert.Equal(t, "auto", cfg.ConsoleColor)
	assert.Equal(t, "tweetrelay:events", cfg.RedisChannel)
	assert.Equal(t, "=", cfg.CommandPrefix)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.FollowIDs)
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DISPLAY_TIMEZONE", "Europe/Berlin")
	t.Setenv("RENDER_MAX_DEPTH", "8")
	t.Setenv("RESTART_ON_FAILURE", "false")
	t.Setenv("RECONNECT_INITIAL_BACKOFF", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.Equal(t, 8, cfg.RenderMaxDepth)
	assert.False(t, cfg.RestartOnFailure)
	assert.Equal(t, 2*time.Second, cfg.ReconnectInitialBackoff)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"unknown timezone", "DISPLAY_TIMEZONE", "Mars/Olympus", "DISPLAY_TIMEZONE"},
		{"depth zero", "RENDER_MAX_DEPTH", "0", "RENDER_MAX_DEPTH must be between 1 and 32"},
		{"depth too large", "RENDER_MAX_DEPTH", "33", "RENDER_MAX_DEPTH must be between 1 and 32"},
		{"tiny frame limit", "MAX_FRAME_BYTES", "10", "MAX_FRAME_BYTES must be at least 1024"},
		{"zero attempts", "RECONNECT_MAX_ATTEMPTS", "0", "RECONNECT_MAX_ATTEMPTS must be at least 1"},
		{"zero connect timeout", "CONNECT_TIMEOUT", "0s", "CONNECT_TIMEOUT must be positive"},
		{"max below initial backoff", "RECONNECT_MAX_BACKOFF", "500ms", "RECONNECT_MAX_BACKOFF must not be lower"},
		{"bad color mode", "CONSOLE_COLOR", "sometimes", "CONSOLE_COLOR must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
