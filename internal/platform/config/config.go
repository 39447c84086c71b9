package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const maxRenderDepth = 32

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	TwitterConsumerKey    string `env:"TWITTER_CONSUMER_KEY"`
	TwitterConsumerSecret string `env:"TWITTER_CONSUMER_SECRET"`
	TwitterAccessToken    string `env:"TWITTER_ACCESS_TOKEN"`
	TwitterAccessSecret   string `env:"TWITTER_ACCESS_SECRET"`

	StreamEndpoint  string `env:"STREAM_ENDPOINT" default:"https://stream.twitter.com/1.1/statuses/filter.json"`
	FollowIDs       string `env:"FOLLOW_IDS"`
	DisplayTimezone string `env:"DISPLAY_TIMEZONE" default:"UTC"`
	RenderMaxDepth  int    `env:"RENDER_MAX_DEPTH" default:"5"`
	MaxFrameBytes   int    `env:"MAX_FRAME_BYTES" default:"1048576"`

	RestartOnFailure        bool          `env:"RESTART_ON_FAILURE" default:"true"`
	ReconnectMaxAttempts    int           `env:"RECONNECT_MAX_ATTEMPTS" default:"5"`
	ReconnectInitialBackoff time.Duration `env:"RECONNECT_INITIAL_BACKOFF" default:"1s"`
	ReconnectMaxBackoff     time.Duration `env:"RECONNECT_MAX_BACKOFF" default:"2m"`
	RateLimitBackoff        time.Duration `env:"RATE_LIMIT_BACKOFF" default:"60s"`
	ConnectTimeout          time.Duration `env:"CONNECT_TIMEOUT" default:"30s"`
	StopGracePeriod         time.Duration `env:"STOP_GRACE_PERIOD" default:"5s"`

	ConsoleOutput bool   `env:"CONSOLE_OUTPUT" default:"true"`
	ConsoleColor  string `env:"CONSOLE_COLOR" default:"auto"`

	RedisURL     string `env:"REDIS_URL"`
	RedisChannel string `env:"REDIS_CHANNEL" default:"tweetrelay:events"`

	CommandPrefix         string  `env:"COMMAND_PREFIX" default:"="`
	ChatMaxClients        int     `env:"CHAT_MAX_CLIENTS" default:"1000"`
	ChatMessagesPerSecond float64 `env:"CHAT_MESSAGES_PER_SECOND" default:"20"`

	location *time.Location
}

// Location is DisplayTimezone resolved during validation.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := []struct{ name, value string }{
		{"TWITTER_CONSUMER_KEY", cfg.TwitterConsumerKey},
		{"TWITTER_CONSUMER_SECRET", cfg.TwitterConsumerSecret},
		{"TWITTER_ACCESS_TOKEN", cfg.TwitterAccessToken},
		{"TWITTER_ACCESS_SECRET", cfg.TwitterAccessSecret},
		{"STREAM_ENDPOINT", cfg.StreamEndpoint},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE %q is not a known time zone: %w", cfg.DisplayTimezone, err)
	}
	cfg.location = loc

	if cfg.RenderMaxDepth < 1 || cfg.RenderMaxDepth > maxRenderDepth {
		return fmt.Errorf("RENDER_MAX_DEPTH must be between 1 and %d, got %d", maxRenderDepth, cfg.RenderMaxDepth)
	}
	if cfg.MaxFrameBytes < 1024 {
		return fmt.Errorf("MAX_FRAME_BYTES must be at least 1024, got %d", cfg.MaxFrameBytes)
	}
	if cfg.ReconnectMaxAttempts < 1 {
		return errors.New("RECONNECT_MAX_ATTEMPTS must be at least 1")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"RECONNECT_INITIAL_BACKOFF", cfg.ReconnectInitialBackoff},
		{"RECONNECT_MAX_BACKOFF", cfg.ReconnectMaxBackoff},
		{"RATE_LIMIT_BACKOFF", cfg.RateLimitBackoff},
		{"CONNECT_TIMEOUT", cfg.ConnectTimeout},
		{"STOP_GRACE_PERIOD", cfg.StopGracePeriod},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	if cfg.ReconnectMaxBackoff < cfg.ReconnectInitialBackoff {
		return errors.New("RECONNECT_MAX_BACKOFF must not be lower than RECONNECT_INITIAL_BACKOFF")
	}

	switch cfg.ConsoleColor {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("CONSOLE_COLOR must be one of auto, always, never, got %q", cfg.ConsoleColor)
	}

	if cfg.CommandPrefix == "" {
		return errors.New("COMMAND_PREFIX must not be empty")
	}
	if cfg.ChatMaxClients < 1 {
		return errors.New("CHAT_MAX_CLIENTS must be at least 1")
	}
	if cfg.ChatMessagesPerSecond <= 0 {
		return errors.New("CHAT_MESSAGES_PER_SECOND must be positive")
	}

	return nil
}
