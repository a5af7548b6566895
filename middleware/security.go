package middleware

import (
	"github.com/labstack/echo/v4"
)

// reportCSP allows the inline report stylesheet and nothing else. Rendered
// reports embed user supplied text, so scripts, frames and remote loads are
// all blocked.
const reportCSP = "default-src 'none'; style-src 'unsafe-inline'; img-src data:; base-uri 'none'; form-action 'none'; frame-ancestors 'none'"

// SetReportSecurityHeaders locks down a response that serves rendered HTML
func SetReportSecurityHeaders(c echo.Context) {
	h := c.Response().Header()
	h.Set("Content-Security-Policy", reportCSP)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Referrer-Policy", "no-referrer")
}

// APIHeaders marks every API response as uncacheable and unsniffable
func APIHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Cache-Control", "no-store")
			h.Set("X-Content-Type-Options", "nosniff")
			return next(c)
		}
	}
}
