package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/tweetrelay/internal/domain"
	apperrors "github.com/pscheid92/tweetrelay/internal/platform/errors"
)

type startRequest struct {
	FollowIDs []int64 `json:"follow_ids"`
}

func (s *Server) registerStreamRoutes(rateLimiter echo.MiddlewareFunc) {
	g := s.echo.Group("/api/stream", rateLimiter)
	g.POST("/start", s.handleStart)
	g.POST("/stop", s.handleStop)
	g.GET("/status", s.handleStatus)
}

func (s *Server) handleStart(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.control.StartStreaming(c.Request().Context(), req.FollowIDs); err != nil {
		return controlError(err).WithField("follow_ids", req.FollowIDs)
	}

	if err := c.JSON(http.StatusAccepted, s.control.Status()); err != nil {
		return fmt.Errorf("failed to write start response: %w", err)
	}
	return nil
}

func (s *Server) handleStop(c echo.Context) error {
	if err := s.control.StopStreaming(); err != nil {
		return controlError(err)
	}

	if err := c.JSON(http.StatusOK, s.control.Status()); err != nil {
		return fmt.Errorf("failed to write stop response: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(c echo.Context) error {
	if err := c.JSON(http.StatusOK, s.control.Status()); err != nil {
		return fmt.Errorf("failed to write status response: %w", err)
	}
	return nil
}

// controlError maps ControlSurface errors onto HTTP error types.
func controlError(err error) *apperrors.Error {
	var configErr *domain.ConfigError
	switch {
	case errors.As(err, &configErr):
		return apperrors.ValidationError(configErr.Err.Error()).WithCause(err)
	case errors.Is(err, domain.ErrAlreadyRunning):
		return apperrors.ConflictError(err.Error())
	case errors.Is(err, domain.ErrNotRunning):
		return apperrors.NotFoundError(err.Error())
	default:
		return apperrors.InternalError("stream control failed", err)
	}
}
