package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// newRateLimiter throttles start/stop calls per client IP. Status reads are
// never limited.
func newRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(ratePerSecond),
		Burst:     burst,
		ExpiresIn: 5 * time.Minute,
	})

	deny := func(c echo.Context, identifier string, _ error) error {
		slog.InfoContext(c.Request().Context(), "Stream API rate limit exceeded", "ip", identifier, "path", c.Path())
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded", "type": "rate_limited"})
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodGet
		},
		IdentifierExtractor: func(c echo.Context) (string, error) { return c.RealIP(), nil },
		Store:               store,
		DenyHandler:         deny,
	})
}
