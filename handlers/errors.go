package handlers

import (
	"errors"
	"log"
	"net/http"

	"legal_matter_engine/services"

	"github.com/labstack/echo/v4"
)

// errorStatus maps engine error kinds to HTTP statuses
var errorStatus = []struct {
	kind   error
	status int
}{
	{services.ErrValidation, http.StatusBadRequest},
	{services.ErrUnauthorized, http.StatusForbidden},
	{services.ErrNotFound, http.StatusNotFound},
	{services.ErrInvalidTransition, http.StatusConflict},
	{services.ErrInvalidAttorney, http.StatusUnprocessableEntity},
	{services.ErrConstraintViolation, http.StatusConflict},
	{services.ErrStorageUnavailable, http.StatusServiceUnavailable},
}

// apiError converts a service error into an echo.HTTPError. The engine error
// text is safe to expose; anything else is logged and hidden.
func apiError(err error) error {
	for _, e := range errorStatus {
		if errors.Is(err, e.kind) {
			return echo.NewHTTPError(e.status, err.Error())
		}
	}
	log.Printf("[WARNING] unexpected handler error: %v", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
