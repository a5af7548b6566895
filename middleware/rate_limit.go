package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the configuration for rate limiting
type RateLimitConfig struct {
	// Requests is the sustained number of requests allowed per Window
	Requests int
	// Burst is how many requests may arrive at once (defaults to Requests)
	Burst int
	// Window is the time window Requests refers to
	Window time.Duration
	// KeyFunc returns the limiting key (defaults to the actor, then the IP)
	KeyFunc func(c echo.Context) string
	// Message is the error message returned when rate limit is exceeded
	Message string
}

// NewRateLimiter returns a token bucket limiter keyed per actor
func NewRateLimiter(config RateLimitConfig) echo.MiddlewareFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = actorOrIP
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.Requests <= 0 {
		config.Requests = 60
	}
	if config.Burst <= 0 {
		config.Burst = config.Requests
	}

	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(config.Requests) / config.Window.Seconds()),
		Burst:     config.Burst,
		ExpiresIn: 3 * config.Window,
	})

	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return config.KeyFunc(c), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, config.Message)
		},
	})
}

func actorOrIP(c echo.Context) string {
	if id := c.Request().Header.Get(ActorHeader); id != "" {
		return "actor:" + id
	}
	return "ip:" + c.RealIP()
}

// APIRateLimiter limits API requests to 120 per minute per actor
func APIRateLimiter() echo.MiddlewareFunc {
	return NewRateLimiter(RateLimitConfig{
		Requests: 120,
		Burst:    30,
		Window:   time.Minute,
		Message:  "Rate limit exceeded. Please slow down your requests.",
	})
}
