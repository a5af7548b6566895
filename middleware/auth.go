package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"legal_matter_engine/models"
	"legal_matter_engine/services"

	"github.com/labstack/echo/v4"
)

const (
	// ActorHeader carries the ID of the user the upstream gateway authenticated
	ActorHeader = "X-Actor-ID"
	// ContextKeyUser is the context key for the acting user
	ContextKeyUser = "user"
)

// ActorResolver looks up the acting user
type ActorResolver interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// RequireActor resolves the X-Actor-ID header to an active user. Sessions are
// handled upstream; the engine only trusts the forwarded identity.
func RequireActor(users ActorResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actorID := c.Request().Header.Get(ActorHeader)
			if actorID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing "+ActorHeader+" header")
			}

			user, err := users.GetUser(c.Request().Context(), actorID)
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "unknown actor")
				}
				log.Printf("[WARNING] resolving actor %s: %v", actorID, err)
				return echo.NewHTTPError(http.StatusServiceUnavailable, "actor lookup unavailable")
			}
			if !user.IsActive {
				return echo.NewHTTPError(http.StatusForbidden, "actor is inactive")
			}

			c.Set(ContextKeyUser, user)
			return next(c)
		}
	}
}

// RequireRole is middleware that requires specific roles
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetCurrentUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "actor required")
			}

			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
		}
	}
}

// GetCurrentUser retrieves the acting user from context
func GetCurrentUser(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// IsStaff reports whether the actor works for the firm (not a client)
func IsStaff(c echo.Context) bool {
	user := GetCurrentUser(c)
	return user != nil && user.Role != models.RoleClient
}
