package handlers

import (
	"net/http"

	"legal_matter_engine/middleware"
	"legal_matter_engine/services"

	"github.com/labstack/echo/v4"
)

// RecordDocumentHandler stores metadata for a document the upload service
// already put in storage. The actor is recorded as the uploader.
func (a *API) RecordDocumentHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	var input services.DocumentInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	input.UploadedBy = actor.ID

	doc, err := a.Cases.RecordDocument(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusCreated, doc)
}

// UploadDocumentHandler accepts a multipart "file" field, stores it and
// records it on the case
func (a *API) UploadDocumentHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No file uploaded")
	}

	doc, err := a.Cases.UploadDocument(c.Request().Context(), c.Param("id"), fileHeader, c.FormValue("type"), actor.ID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusCreated, doc)
}

// GetDocumentHandler returns document metadata
func (a *API) GetDocumentHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	doc, err := a.Cases.GetDocument(c.Request().Context(), c.Param("id"), actor.ID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

// DocumentURLHandler returns a short lived download URL
func (a *API) DocumentURLHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	url, err := a.Cases.DocumentURL(c.Request().Context(), c.Param("id"), actor.ID)
	if err != nil {
		return apiError(err)
	}
	if c.QueryParam("redirect") == "true" {
		return c.Redirect(http.StatusTemporaryRedirect, url)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"url":        url,
		"expires_in": int(services.DocumentURLExpiry.Seconds()),
	})
}

// DeleteDocumentHandler removes a document. Only the uploader or the case
// attorney may delete.
func (a *API) DeleteDocumentHandler(c echo.Context) error {
	actor := middleware.GetCurrentUser(c)

	if err := a.Cases.DeleteDocument(c.Request().Context(), c.Param("id"), actor.ID); err != nil {
		return apiError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
