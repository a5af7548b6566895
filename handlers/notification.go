package handlers

import (
	"log"
	"net/http"
	"strconv"

	"legal_matter_engine/middleware"

	"github.com/labstack/echo/v4"
)

// GetNotificationsHandler returns the actor's unread notifications
func (a *API) GetNotificationsHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	limit := 20
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	notifications, err := a.Notifications.GetUnreadNotifications(user.ID, limit)
	if err != nil {
		log.Printf("Error fetching notifications for %s: %v", user.ID, err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Failed to fetch notifications")
	}
	count, err := a.Notifications.GetNotificationCount(user.ID)
	if err != nil {
		log.Printf("Error counting notifications for %s: %v", user.ID, err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Failed to fetch notifications")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"unread":        count,
	})
}

func (a *API) MarkNotificationReadHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	if err := a.Notifications.MarkAsRead(c.Param("id"), user.ID); err != nil {
		log.Printf("Error marking notification %s as read: %v", c.Param("id"), err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Error marking as read")
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *API) MarkAllNotificationsReadHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	if err := a.Notifications.MarkAllAsRead(user.ID); err != nil {
		log.Printf("Error marking all notifications as read for %s: %v", user.ID, err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Error marking all as read")
	}
	return c.NoContent(http.StatusNoContent)
}
