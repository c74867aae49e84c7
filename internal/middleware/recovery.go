package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/solariq/solariq/internal/apperror"
)

// Recovery converts a handler panic into a logged 500 instead of tearing
// down the process. The panic value and stack go to the log; the client
// gets the generic internal-error response from the central error handler.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("handler panic",
						slog.Any("panic", r),
						slog.String("method", c.Request().Method),
						slog.String("path", c.Request().URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
					err = apperror.NewInternal(fmt.Errorf("panic: %v", r))
				}
			}()
			return next(c)
		}
	}
}
