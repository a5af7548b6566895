package handlers

import (
	"net/http"
	"strconv"

	"legal_matter_engine/middleware"
	"legal_matter_engine/services"

	"github.com/labstack/echo/v4"
)

// CreateCaseHandler opens a new case
func (a *API) CreateCaseHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	var input services.CreateCaseInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	input.CreatedBy = actor.ID

	created, err := a.Cases.CreateCase(c.Request().Context(), input)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// SearchCasesHandler lists cases matching q and the query filters. Clients
// only ever see their own cases.
func (a *API) SearchCasesHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	filter := services.CaseFilter{
		Status:       c.QueryParam("status"),
		PracticeArea: c.QueryParam("practice_area"),
		AttorneyID:   c.QueryParam("attorney_id"),
		ClientID:     c.QueryParam("client_id"),
	}
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		l, err := strconv.Atoi(limitParam)
		if err != nil || l <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid limit")
		}
		filter.Limit = l
	}
	var err error
	if filter.CreatedFrom, err = services.ParseDateBound(c.QueryParam("created_from"), false); err != nil {
		return apiError(err)
	}
	if filter.CreatedTo, err = services.ParseDateBound(c.QueryParam("created_to"), true); err != nil {
		return apiError(err)
	}
	if !middleware.IsStaff(c) {
		filter.ClientID = actor.ID
	}

	results, err := a.Cases.SearchCases(c.Request().Context(), c.QueryParam("q"), filter)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cases": results,
		"count": len(results),
	})
}

// GetCaseDetailsHandler returns the case with tasks, documents and metrics
func (a *API) GetCaseDetailsHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	details, err := a.Cases.GetCaseDetails(c.Request().Context(), c.Param("id"), actor.ID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, details)
}

// UpdateCaseHandler applies a partial update to a case
func (a *API) UpdateCaseHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	var patch services.CasePatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	updated, err := a.Cases.UpdateCase(c.Request().Context(), c.Param("id"), patch, actor.ID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// AssignAttorneyHandler sets the case attorney
func (a *API) AssignAttorneyHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	var req struct {
		AttorneyID string `json:"attorney_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	updated, err := a.Cases.AssignAttorney(c.Request().Context(), c.Param("id"), req.AttorneyID, actor.ID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// AddNoteHandler appends a note. Clients may only add public notes to their
// own cases.
func (a *API) AddNoteHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)
	ctx := c.Request().Context()
	caseID := c.Param("id")

	var req struct {
		Content   string `json:"content"`
		IsPrivate bool   `json:"is_private"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if !middleware.IsStaff(c) {
		if err := a.requireParty(c, caseID); err != nil {
			return err
		}
		req.IsPrivate = false
	}

	note, err := a.Cases.AddNote(ctx, caseID, req.Content, req.IsPrivate, actor.ID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusCreated, note)
}

// BulkUpdateStatusHandler moves several cases to one status atomically
func (a *API) BulkUpdateStatusHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	var req struct {
		CaseIDs []string `json:"case_ids"`
		Status  string   `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	updated, err := a.Cases.BulkUpdateStatus(c.Request().Context(), req.CaseIDs, req.Status, actor.ID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cases":   updated,
		"updated": len(updated),
	})
}

// CaseTimelineHandler returns the case activity, newest first
func (a *API) CaseTimelineHandler(c echo.Context) error {
	caseID := c.Param("id")
	if err := a.requireParty(c, caseID); err != nil {
		return err
	}

	timeline, err := a.Cases.GetCaseTimeline(c.Request().Context(), caseID)
	if err != nil {
		return apiError(err)
	}
	if !middleware.IsStaff(c) {
		timeline = publicTimeline(timeline)
	}
	return c.JSON(http.StatusOK, timeline)
}

// CaseMetricsHandler returns task, document and appointment counts
func (a *API) CaseMetricsHandler(c echo.Context) error {
	caseID := c.Param("id")
	if err := a.requireParty(c, caseID); err != nil {
		return err
	}

	metrics, err := a.Cases.CalculateMetrics(c.Request().Context(), caseID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, metrics)
}

// CaseStatisticsHandler aggregates cases matching the query filters
func (a *API) CaseStatisticsHandler(c echo.Context) error {
	filter, err := statisticsFilter(c)
	if err != nil {
		return err
	}

	stats, err := a.Cases.GetCaseStatistics(c.Request().Context(), filter)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// requireParty fails with 403 unless the actor is the client or attorney
func (a *API) requireParty(c echo.Context, caseID string) error {
	actor := middleware.GetCurrentUser(c)
	ok, err := a.Cases.HasAccess(c.Request().Context(), caseID, actor.ID)
	if err != nil {
		return apiError(err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	}
	return nil
}

func statisticsFilter(c echo.Context) (services.CaseFilter, error) {
	filter := services.CaseFilter{
		Status:       c.QueryParam("status"),
		PracticeArea: c.QueryParam("practice_area"),
		AttorneyID:   c.QueryParam("attorney_id"),
	}
	var err error
	if filter.CreatedFrom, err = services.ParseDateBound(c.QueryParam("created_from"), false); err != nil {
		return filter, apiError(err)
	}
	if filter.CreatedTo, err = services.ParseDateBound(c.QueryParam("created_to"), true); err != nil {
		return filter, apiError(err)
	}
	return filter, nil
}

// publicTimeline drops private entries
func publicTimeline(events []services.TimelineEvent) []services.TimelineEvent {
	out := make([]services.TimelineEvent, 0, len(events))
	for _, evt := range events {
		if evt.Private {
			continue
		}
		out = append(out, evt)
	}
	return out
}
