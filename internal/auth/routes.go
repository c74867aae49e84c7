package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/solariq/solariq/internal/middleware"
)

// RegisterRoutes sets up all auth-related routes on the given Echo instance.
// Auth routes are public (no session required) -- RequireAuth is exported
// separately for the gated route groups.
//
// POST endpoints are rate-limited to slow down brute-force and credential
// stuffing attacks: 10 attempts per IP per minute for login, 5 for signup.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/login", h.LoginForm)
	e.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	e.GET("/signup", h.SignupForm)
	e.POST("/signup", h.Signup, middleware.RateLimit(5, time.Minute))

	// The original UI logs out via a plain link, so GET is supported
	// alongside POST.
	e.GET("/logout", h.Logout)
	e.POST("/logout", h.Logout)
}
