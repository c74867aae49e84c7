package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// WantsJSON reports whether the client expects a JSON response rather than
// a redirect/page. True for requests under /api, requests that submitted a
// JSON body, and requests whose Accept header prefers application/json.
// Handlers use this to decide between a 303 redirect (browser form flow)
// and a JSON status object (fetch/AJAX flow).
func WantsJSON(c echo.Context) bool {
	req := c.Request()
	if strings.HasPrefix(req.URL.Path, "/api/") {
		return true
	}
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return true
	}
	accept := req.Header.Get("Accept")
	return strings.Contains(accept, echo.MIMEApplicationJSON) &&
		!strings.Contains(accept, echo.MIMETextHTML)
}
