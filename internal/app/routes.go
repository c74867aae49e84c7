package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/solariq/solariq/internal/auth"
	"github.com/solariq/solariq/internal/profile"
	"github.com/solariq/solariq/internal/telemetry"
)

// RegisterRoutes constructs every feature's repository/service/handler chain
// and registers all routes. This is the single place where features are
// wired together.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Auth: user store, session store, service.
	userRepo := auth.NewUserRepository(a.DB)
	sessions := auth.NewSessionStore(a.Redis, a.Config.Auth.SessionTTL)
	authService := auth.NewService(userRepo, sessions)
	authHandler := auth.NewHandler(authService)

	// Telemetry: backend client doubles as reader and forecaster.
	client := telemetry.NewClient(a.Config.Telemetry)
	telemetryService := telemetry.NewService(client)
	telemetryHandler := telemetry.NewHandler(telemetryService, client)

	// Profile: patches the user store and refreshes the session snapshot.
	profileService := profile.NewService(userRepo, sessions)
	profileHandler := profile.NewHandler(profileService)

	// The landing page is the login page.
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/login")
	})

	// Liveness probe for container orchestration.
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public auth routes: login, signup, logout.
	auth.RegisterRoutes(e, authHandler)

	gate := auth.RequireAuth(authService)

	// Gated pages.
	e.GET("/dashboard", telemetryHandler.DashboardPage, gate)
	e.GET("/users", authHandler.ListUsers, gate)

	// Gated JSON API consumed by the dashboard chart client.
	api := e.Group("/api", gate)
	api.GET("/dashboard", telemetryHandler.Dashboard)
	api.GET("/solar-status", telemetryHandler.SolarStatusHandler)
	api.POST("/forecast", telemetryHandler.Forecast)
	api.PATCH("/profile", profileHandler.Update)
	api.POST("/profile", profileHandler.Update)
	api.GET("/users", authHandler.ListUsers)
}
