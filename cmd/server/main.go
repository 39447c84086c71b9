package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tweetrelay/internal/adapter/chat"
	"github.com/pscheid92/tweetrelay/internal/adapter/console"
	"github.com/pscheid92/tweetrelay/internal/adapter/httpserver"
	"github.com/pscheid92/tweetrelay/internal/adapter/redis"
	"github.com/pscheid92/tweetrelay/internal/adapter/twitter"
	"github.com/pscheid92/tweetrelay/internal/app"
	"github.com/pscheid92/tweetrelay/internal/command"
	"github.com/pscheid92/tweetrelay/internal/domain"
	"github.com/pscheid92/tweetrelay/internal/platform/config"
	"github.com/pscheid92/tweetrelay/internal/platform/logging"
	"github.com/pscheid92/tweetrelay/internal/platform/retry"
	"github.com/pscheid92/tweetrelay/internal/platform/version"
	"github.com/pscheid92/tweetrelay/internal/render"
	"github.com/pscheid92/tweetrelay/internal/sink"
	goredis "github.com/redis/go-redis/v9"
)

func runGracefulShutdown(srv *httpserver.Server, controller *app.Controller, hub *chat.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := controller.Shutdown(shutdownCtx); err != nil {
			slog.Error("Stream shutdown error", "error", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		hub.Stop()

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupCredentials(cfg *config.Config) twitter.Credentials {
	creds, err := twitter.NewCredentials(cfg.TwitterConsumerKey, cfg.TwitterConsumerSecret, cfg.TwitterAccessToken, cfg.TwitterAccessSecret)
	if err != nil {
		slog.Error("Invalid stream credentials", "error", err)
		os.Exit(1)
	}
	return creds
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	if cfg.RedisURL == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

// setupSinks builds the fan-out every rendered tweet goes through. The chat
// hub is rate limited; the Redis relay sits behind a circuit breaker.
func setupSinks(cfg *config.Config, hub *chat.Hub, redisClient *goredis.Client, clock clockwork.Clock) domain.OutputSink {
	var sinks []sink.Named

	if cfg.ConsoleOutput {
		sinks = append(sinks, sink.Named{Name: "console", Sink: console.New(os.Stdout, console.ColorMode(cfg.ConsoleColor))})
	}

	burst := int(math.Ceil(cfg.ChatMessagesPerSecond))
	sinks = append(sinks, sink.Named{Name: "chat", Sink: sink.NewRateLimited(hub, cfg.ChatMessagesPerSecond, burst)})

	if redisClient != nil {
		relay := redis.NewRelay(redisClient, cfg.RedisChannel, clock)
		sinks = append(sinks, sink.Named{Name: "redis", Sink: sink.NewBreaker("redis_relay", relay, sink.DefaultBreakerConfig)})
	}

	return sink.NewMulti(sinks...)
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Version)

	creds := setupCredentials(cfg)
	streamClient := twitter.NewStreamClient(cfg.StreamEndpoint, creds, cfg.ConnectTimeout)
	renderer := render.NewRenderer(cfg.Location(), cfg.RenderMaxDepth)

	redisClient := setupRedis(context.Background(), cfg)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// The controller only builds sessions after Start, by which time out is set.
	var out domain.OutputSink
	newSession := func(id uuid.UUID, follows domain.FollowList, onConnected func()) app.Runner {
		return newStreamSession(id, follows, streamClient, renderer, out, cfg.MaxFrameBytes, onConnected)
	}

	controller := app.NewController(newSession, creds, app.ControllerConfig{
		RestartOnFailure: cfg.RestartOnFailure,
		Retry: retry.Policy{
			MaxAttempts:      cfg.ReconnectMaxAttempts,
			InitialBackoff:   cfg.ReconnectInitialBackoff,
			MaxBackoff:       cfg.ReconnectMaxBackoff,
			RateLimitBackoff: cfg.RateLimitBackoff,
		},
		StopGracePeriod: cfg.StopGracePeriod,
	}, clock)

	dispatcher := command.NewDispatcher(cfg.CommandPrefix, controller)
	hub := chat.NewHub(dispatcher, cfg.ChatMaxClients, clock)
	out = setupSinks(cfg, hub, redisClient, clock)

	var healthChecks []httpserver.HealthCheck
	if redisClient != nil {
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	srv := httpserver.NewServer(httpserver.Config{Port: cfg.Port}, controller, hub, healthChecks, clock)

	if cfg.FollowIDs != "" {
		autostart(controller, cfg.FollowIDs)
	}

	done := runGracefulShutdown(srv, controller, hub)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}

func autostart(controller *app.Controller, followIDs string) {
	follows, err := domain.ParseFollowList(followIDs)
	if err != nil {
		slog.Error("Invalid FOLLOW_IDS", "error", err)
		os.Exit(1)
	}

	h, err := controller.Start(context.Background(), follows)
	if err != nil {
		slog.Error("Failed to start stream", "error", err)
		os.Exit(1)
	}
	slog.Info("Stream started from configuration", "session_id", h.ID().String(), "follows", follows.Param())
}
