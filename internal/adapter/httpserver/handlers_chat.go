package httpserver

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/tweetrelay/internal/platform/errors"
)

func (s *Server) registerChatRoutes() {
	s.echo.GET("/ws/chat", s.handleChat)
}

// handleChat upgrades the request and hands the connection to the chat
// gateway. The connection outlives the request context.
func (s *Server) handleChat(c echo.Context) error {
	if s.chat == nil {
		return apperrors.NotFoundError("chat gateway disabled")
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		slog.WarnContext(c.Request().Context(), "Chat upgrade failed", "error", err)
		return nil
	}

	ctx := context.WithoutCancel(c.Request().Context())
	if err := s.chat.Serve(ctx, conn); err != nil {
		slog.InfoContext(ctx, "Chat connection rejected", "error", err)
	}
	return nil
}
