// Package httpserver exposes the stream controls, health probes, metrics
// and the chat websocket over HTTP.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/tweetrelay/internal/domain"
)

// ChatGateway serves one upgraded chat connection until it closes.
type ChatGateway interface {
	Serve(ctx context.Context, conn *websocket.Conn) error
}

type Config struct {
	Port string
	// APIRatePerSecond and APIBurst bound /api requests per client IP.
	APIRatePerSecond float64
	APIBurst         int
}

type Server struct {
	echo   *echo.Echo
	config Config

	control      domain.ControlSurface
	chat         ChatGateway
	upgrader     websocket.Upgrader
	healthChecks []HealthCheck

	clock     clockwork.Clock
	startTime time.Time
}

func NewServer(cfg Config, control domain.ControlSurface, chat ChatGateway, healthChecks []HealthCheck, clock clockwork.Clock) *Server {
	if cfg.APIRatePerSecond <= 0 {
		cfg.APIRatePerSecond = 5
	}
	if cfg.APIBurst <= 0 {
		cfg.APIBurst = 10
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		control:      control,
		chat:         chat,
		upgrader:     websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
		healthChecks: healthChecks,
		clock:        clock,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
