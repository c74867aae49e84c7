package telemetry

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/solariq/solariq/internal/apperror"
	"github.com/solariq/solariq/internal/auth"
)

// Forecaster is the subset of the telemetry client the forecast and
// billing endpoints need.
type Forecaster interface {
	Predict(ctx context.Context, startDate, endDate string) ([]ForecastPoint, error)
	SolarStatus(ctx context.Context, category string, avgPower float64) (*SolarStatus, error)
}

// Handler serves the session-gated dashboard data endpoints. All routes
// assume auth.RequireAuth has already run and a session is in context.
type Handler struct {
	service    *Service
	forecaster Forecaster
}

// NewHandler creates a telemetry handler.
func NewHandler(service *Service, forecaster Forecaster) *Handler {
	return &Handler{service: service, forecaster: forecaster}
}

// DashboardPage serves the dashboard page shell (GET /dashboard). The page
// JS then loads the actual data from /api/dashboard.
func (h *Handler) DashboardPage(c echo.Context) error {
	return c.File("static/dashboard.html")
}

// Dashboard returns the dashboard view model (GET /api/dashboard): the
// authenticated user's public profile plus the aggregated telemetry
// snapshot. The user fields come from the session snapshot, which reflects
// the record as of the last login or profile update.
func (h *Handler) Dashboard(c echo.Context) error {
	session := auth.GetSession(c)
	if session == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	snapshot := h.service.FetchDashboardData(c.Request().Context())

	return c.JSON(http.StatusOK, DashboardData{
		User: Profile{
			Username:  session.Username,
			Email:     session.Email,
			Latitude:  session.Latitude,
			Longitude: session.Longitude,
			AvgPower:  session.AvgPower,
		},
		Today:   snapshot.TodayData,
		History: snapshot.HistoryData,
		// Always present so the rendering layer sees a stable shape.
		Forecast: []ForecastPoint{},
	})
}

// forecastRequest is the JSON body for POST /api/forecast.
type forecastRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Forecast proxies a date-range forecast request to the telemetry service
// (POST /api/forecast). Like the dashboard reads, a failed upstream call
// degrades to an empty prediction list with an error discriminator instead
// of a server fault -- the charts render an empty series.
func (h *Handler) Forecast(c echo.Context) error {
	var req forecastRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.StartDate == "" || req.EndDate == "" {
		return apperror.NewValidation("start_date and end_date are required")
	}

	predictions, err := h.forecaster.Predict(c.Request().Context(), req.StartDate, req.EndDate)
	if err != nil {
		slog.Warn("telemetry forecast read failed", slog.Any("error", err))
		return c.JSON(http.StatusOK, map[string]any{
			"status":      "error",
			"message":     "forecast unavailable",
			"predictions": []ForecastPoint{},
		})
	}
	if predictions == nil {
		predictions = []ForecastPoint{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":      "success",
		"predictions": predictions,
	})
}

// SolarStatusHandler returns the billing breakdown (GET /api/solar-status).
// The tariff category defaults to "domestic" and the average power defaults
// to the user's stored profile value, like the original dashboard.
func (h *Handler) SolarStatusHandler(c echo.Context) error {
	session := auth.GetSession(c)
	if session == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	category := c.QueryParam("category")
	if category == "" {
		category = "domestic"
	}

	avgPower := 5.0
	if session.AvgPower != nil {
		avgPower = *session.AvgPower
	}

	status, err := h.forecaster.SolarStatus(c.Request().Context(), category, avgPower)
	if err != nil {
		slog.Warn("telemetry solar-status read failed", slog.Any("error", err))
		return c.JSON(http.StatusOK, map[string]any{
			"status":  "error",
			"message": "solar status unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":       "success",
		"solar_status": status,
	})
}
