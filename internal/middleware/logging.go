// Package middleware provides the HTTP middleware stack for the SolarIQ
// Echo server: request logging, panic recovery, security headers, CORS,
// CSRF and per-IP rate limiting. Registration order lives in internal/app.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger emits one structured log line per request after the
// response is written. 4xx responses log at warn, 5xx at error, so a noisy
// client or a failing route stands out at a glance.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Int64("bytes_out", res.Size),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
			}
			if q := req.URL.RawQuery; q != "" {
				attrs = append(attrs, slog.String("query", q))
			}

			var level slog.Level
			switch {
			case res.Status >= 500:
				level = slog.LevelError
			case res.Status >= 400:
				level = slog.LevelWarn
			default:
				level = slog.LevelInfo
			}
			slog.LogAttrs(req.Context(), level, "request", attrs...)

			return err
		}
	}
}
