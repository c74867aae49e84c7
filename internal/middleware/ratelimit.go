package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// visitor is one client's request count in the current window.
type visitor struct {
	seen  int
	since time.Time
}

// RateLimit caps requests per client IP inside a fixed window and answers
// 429 beyond the cap. State is in-memory per middleware instance, which is
// enough for a single-process deployment; the login and signup routes each
// get their own instance and budget.
func RateLimit(limit int, window time.Duration) echo.MiddlewareFunc {
	var mu sync.Mutex
	visitors := make(map[string]*visitor)

	// Evict stale windows so the map doesn't grow with every IP ever seen.
	go func() {
		ticker := time.NewTicker(window)
		for range ticker.C {
			mu.Lock()
			cutoff := time.Now().Add(-2 * window)
			for ip, v := range visitors {
				if v.since.Before(cutoff) {
					delete(visitors, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			mu.Lock()
			v, ok := visitors[ip]
			if !ok || time.Since(v.since) > window {
				visitors[ip] = &visitor{seen: 1, since: time.Now()}
				mu.Unlock()
				return next(c)
			}
			v.seen++
			over := v.seen > limit
			mu.Unlock()

			if over {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"status":  "error",
					"message": "Rate limit exceeded. Please try again later.",
				})
			}
			return next(c)
		}
	}
}
