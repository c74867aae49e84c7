package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/solariq/solariq/internal/apperror"
	"github.com/solariq/solariq/internal/auth"
)

// stubAuthService implements auth.Service, resolving a single fixed token
// to a canned session.
type stubAuthService struct {
	token   string
	session *auth.Session
}

func (s *stubAuthService) Signup(ctx context.Context, input auth.SignupInput) (*auth.User, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthService) Login(ctx context.Context, input auth.LoginInput) (string, *auth.User, error) {
	return "", nil, errors.New("not implemented")
}

func (s *stubAuthService) ValidateSession(ctx context.Context, token string) (*auth.Session, error) {
	if token == s.token {
		return s.session, nil
	}
	return nil, apperror.NewUnauthorized("session expired or invalid")
}

func (s *stubAuthService) Logout(ctx context.Context, token string) error { return nil }

func (s *stubAuthService) ListUsers(ctx context.Context) ([]auth.User, error) { return nil, nil }

// stubForecaster implements Forecaster with function fields.
type stubForecaster struct {
	predictFn     func(ctx context.Context, startDate, endDate string) ([]ForecastPoint, error)
	solarStatusFn func(ctx context.Context, category string, avgPower float64) (*SolarStatus, error)
}

func (s *stubForecaster) Predict(ctx context.Context, startDate, endDate string) ([]ForecastPoint, error) {
	if s.predictFn != nil {
		return s.predictFn(ctx, startDate, endDate)
	}
	return nil, errors.New("not configured")
}

func (s *stubForecaster) SolarStatus(ctx context.Context, category string, avgPower float64) (*SolarStatus, error) {
	if s.solarStatusFn != nil {
		return s.solarStatusFn(ctx, category, avgPower)
	}
	return nil, errors.New("not configured")
}

// newHandlerApp wires the gated telemetry routes onto a fresh Echo instance
// with a stub auth service that accepts the returned cookie.
func newHandlerApp(reader Reader, forecaster Forecaster, session *auth.Session) (*echo.Echo, *http.Cookie) {
	const token = "test-session-token"

	authSvc := &stubAuthService{token: token, session: session}
	handler := NewHandler(NewService(reader), forecaster)

	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			c.JSON(appErr.Code, map[string]string{"status": "error", "message": appErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, map[string]string{"status": "error"})
	}

	api := e.Group("/api", auth.RequireAuth(authSvc))
	api.GET("/dashboard", handler.Dashboard)
	api.GET("/solar-status", handler.SolarStatusHandler)
	api.POST("/forecast", handler.Forecast)

	return e, &http.Cookie{Name: "solariq_session", Value: token}
}

func sessionWithProfile() *auth.Session {
	lat, lon, power := 55.67, 12.56, 300.0
	return &auth.Session{
		UserID:    "user-123",
		Username:  "alice",
		Email:     "alice@example.com",
		Latitude:  &lat,
		Longitude: &lon,
		AvgPower:  &power,
	}
}

func TestDashboard_EmbedsProfileAndSnapshot(t *testing.T) {
	reader := &stubReader{
		todayFn: func(ctx context.Context) (*TodayStatus, error) {
			return &TodayStatus{Date: "2026-09-01", TotalEnergy: 42.5}, nil
		},
		historyFn: func(ctx context.Context) ([]Reading, error) {
			return []Reading{{Date: "2026-08-31", Solar: 38.1, Load: 41.0}}, nil
		},
	}
	e, cookie := newHandlerApp(reader, &stubForecaster{}, sessionWithProfile())

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		`"username":"alice"`,
		`"avg_power":300`,
		`"total_energy":42.5`,
		`"date":"2026-08-31"`,
		`"forecast":[]`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %s, got %s", want, body)
		}
	}
}

func TestDashboard_DegradedSnapshotStillStableShape(t *testing.T) {
	reader := &stubReader{
		todayFn: func(ctx context.Context) (*TodayStatus, error) {
			return nil, errors.New("connection refused")
		},
		historyFn: func(ctx context.Context) ([]Reading, error) {
			return nil, errors.New("connection refused")
		},
	}
	e, cookie := newHandlerApp(reader, &stubForecaster{}, sessionWithProfile())

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// Telemetry being down is not a dashboard failure.
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"today_data":null`) {
		t.Errorf("expected null today data, got %s", body)
	}
	if !strings.Contains(body, `"history_data":[]`) {
		t.Errorf("expected empty history array, got %s", body)
	}
	if !strings.Contains(body, `"username":"alice"`) {
		t.Errorf("expected profile to survive degradation, got %s", body)
	}
}

func TestDashboard_RequiresSession(t *testing.T) {
	e, _ := newHandlerApp(&stubReader{}, &stubForecaster{}, sessionWithProfile())

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a session, got %d", rec.Code)
	}
}

func TestForecast_Success(t *testing.T) {
	forecaster := &stubForecaster{
		predictFn: func(ctx context.Context, startDate, endDate string) ([]ForecastPoint, error) {
			if startDate != "2026-09-02" || endDate != "2026-09-08" {
				t.Errorf("unexpected range %s..%s", startDate, endDate)
			}
			return []ForecastPoint{{Date: "2026-09-02", Solar: 40.1, Load: 43.8}}, nil
		},
	}
	e, cookie := newHandlerApp(&stubReader{}, forecaster, sessionWithProfile())

	req := httptest.NewRequest(http.MethodPost, "/api/forecast",
		strings.NewReader(`{"start_date":"2026-09-02","end_date":"2026-09-08"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"success"`) {
		t.Errorf("expected success status, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"yhat_solar":40.1`) {
		t.Errorf("expected prediction in body, got %s", rec.Body.String())
	}
}

func TestForecast_MissingDates(t *testing.T) {
	e, cookie := newHandlerApp(&stubReader{}, &stubForecaster{}, sessionWithProfile())

	req := httptest.NewRequest(http.MethodPost, "/api/forecast",
		strings.NewReader(`{"start_date":"2026-09-02"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for missing end_date, got %d", rec.Code)
	}
}

func TestForecast_UpstreamFailureDegrades(t *testing.T) {
	forecaster := &stubForecaster{
		predictFn: func(ctx context.Context, startDate, endDate string) ([]ForecastPoint, error) {
			return nil, errors.New("model not trained")
		},
	}
	e, cookie := newHandlerApp(&stubReader{}, forecaster, sessionWithProfile())

	req := httptest.NewRequest(http.MethodPost, "/api/forecast",
		strings.NewReader(`{"start_date":"2026-09-02","end_date":"2026-09-08"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for degraded forecast, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"status":"error"`) {
		t.Errorf("expected error discriminator, got %s", body)
	}
	if !strings.Contains(body, `"predictions":[]`) {
		t.Errorf("expected empty predictions, got %s", body)
	}
}

func TestSolarStatus_DefaultsFromSession(t *testing.T) {
	var gotCategory string
	var gotPower float64
	forecaster := &stubForecaster{
		solarStatusFn: func(ctx context.Context, category string, avgPower float64) (*SolarStatus, error) {
			gotCategory = category
			gotPower = avgPower
			return &SolarStatus{Category: category, Savings: 120.5}, nil
		},
	}
	e, cookie := newHandlerApp(&stubReader{}, forecaster, sessionWithProfile())

	req := httptest.NewRequest(http.MethodGet, "/api/solar-status", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if gotCategory != "domestic" {
		t.Errorf("expected default category domestic, got %s", gotCategory)
	}
	// The session profile's average power is the default.
	if gotPower != 300 {
		t.Errorf("expected avg power 300 from session, got %f", gotPower)
	}
}

func TestSolarStatus_ExplicitCategory(t *testing.T) {
	var gotCategory string
	forecaster := &stubForecaster{
		solarStatusFn: func(ctx context.Context, category string, avgPower float64) (*SolarStatus, error) {
			gotCategory = category
			return &SolarStatus{Category: category}, nil
		},
	}
	e, cookie := newHandlerApp(&stubReader{}, forecaster, sessionWithProfile())

	req := httptest.NewRequest(http.MethodGet, "/api/solar-status?category=commercial", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotCategory != "commercial" {
		t.Errorf("expected category commercial, got %s", gotCategory)
	}
}
