package handlers

import (
	"net/http"

	"legal_matter_engine/middleware"
	"legal_matter_engine/services"

	"github.com/labstack/echo/v4"
)

// CreateTaskHandler creates an ad hoc task
func (a *API) CreateTaskHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	var input services.CreateTaskInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	input.CreatedByID = actor.ID

	task, err := a.Cases.CreateTask(c.Request().Context(), input)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusCreated, task)
}

// UpdateTaskStatusHandler moves a task to a new status. Completing a task
// returns the follow-on tasks it produced.
func (a *API) UpdateTaskStatusHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	task, followOns, err := a.Cases.UpdateTaskStatus(c.Request().Context(), c.Param("id"), req.Status, actor.ID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"task":       task,
		"follow_ons": followOns,
	})
}

// AssignTaskHandler reassigns a task
func (a *API) AssignTaskHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	var req struct {
		AssigneeID string `json:"assignee_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	task, err := a.Cases.AssignTask(c.Request().Context(), c.Param("id"), req.AssigneeID, actor.ID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, task)
}
