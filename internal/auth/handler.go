package auth

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/solariq/solariq/internal/apperror"
	"github.com/solariq/solariq/internal/middleware"
)

// sessionCookieName is the HTTP cookie used to store the session token.
const sessionCookieName = "solariq_session"

// Handler handles HTTP requests for authentication (login, signup, logout).
// Handlers are thin: they bind the request, call the service, and shape the
// response. No business logic lives here.
type Handler struct {
	service Service
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// LoginForm serves the login page (GET /login).
func (h *Handler) LoginForm(c echo.Context) error {
	// If the user already has a valid session, go straight to the dashboard.
	if token := getSessionToken(c); token != "" {
		if _, err := h.service.ValidateSession(c.Request().Context(), token); err == nil {
			return c.Redirect(http.StatusSeeOther, "/dashboard")
		}
	}
	return c.File("static/login.html")
}

// SignupForm serves the signup page (GET /signup).
func (h *Handler) SignupForm(c echo.Context) error {
	if token := getSessionToken(c); token != "" {
		if _, err := h.service.ValidateSession(c.Request().Context(), token); err == nil {
			return c.Redirect(http.StatusSeeOther, "/dashboard")
		}
	}
	return c.File("static/signup.html")
}

// Login processes the login form submission (POST /login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Username == "" || req.Password == "" {
		return apperror.NewValidation("username and password are required")
	}

	token, _, err := h.service.Login(c.Request().Context(), LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	setSessionCookie(c, token)

	if middleware.WantsJSON(c) {
		return c.JSON(http.StatusOK, map[string]string{"status": "success"})
	}
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Signup processes the signup form submission (POST /signup).
func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	input, validationErr := validateSignupRequest(&req)
	if validationErr != "" {
		return apperror.NewValidation(validationErr)
	}

	if _, err := h.service.Signup(c.Request().Context(), input); err != nil {
		return err
	}

	// The original flow sends new users to the login page rather than
	// auto-logging them in. Keep that.
	if middleware.WantsJSON(c) {
		return c.JSON(http.StatusCreated, map[string]string{"status": "success"})
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Logout destroys the session and clears the cookie (GET or POST /logout).
func (h *Handler) Logout(c echo.Context) error {
	token := getSessionToken(c)
	if token != "" {
		// Ignore errors -- the cookie is cleared regardless, and ending an
		// already-ended session is not an error.
		_ = h.service.Logout(c.Request().Context(), token)
	}

	clearSessionCookie(c)

	if middleware.WantsJSON(c) {
		return c.JSON(http.StatusOK, map[string]string{"status": "success"})
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// ListUsers returns every registered account without credential data
// (GET /api/users). Session-gated.
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.service.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []User{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"users":  users,
	})
}

// --- Cookie helpers ---

// getSessionToken reads the session token from the cookie.
func getSessionToken(c echo.Context) string {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setSessionCookie sets the session cookie on the response. The cookie is
// HttpOnly (JS can't read it), Secure if behind TLS, and SameSite=Lax.
// No Max-Age: the cookie lives for the browser session, the server side
// decides how long the token stays valid.
func setSessionCookie(c echo.Context, token string) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie removes the session cookie by setting MaxAge to -1.
func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// --- Validation helpers ---

// validateSignupRequest performs server-side validation on the signup form.
// All fields are required (matching the signup form), passwords must match,
// and the location/power fields must parse as finite numbers. Returns the
// validated input or an error message.
func validateSignupRequest(req *SignupRequest) (SignupInput, string) {
	var input SignupInput

	if req.Username == "" || req.Email == "" || req.Password == "" ||
		req.Confirm == "" || req.Latitude == "" || req.Longitude == "" || req.AvgPower == "" {
		return input, "please fill all fields"
	}
	if !strings.Contains(req.Email, "@") {
		return input, "invalid email address"
	}
	if req.Password != req.Confirm {
		return input, "passwords do not match"
	}
	if len(req.Password) > 72 {
		return input, "password must be at most 72 characters"
	}

	lat, ok := parseFinite(req.Latitude)
	if !ok {
		return input, "latitude must be a number"
	}
	lon, ok := parseFinite(req.Longitude)
	if !ok {
		return input, "longitude must be a number"
	}
	avg, ok := parseFinite(req.AvgPower)
	if !ok {
		return input, "average power must be a number"
	}

	input = SignupInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Latitude:  &lat,
		Longitude: &lon,
		AvgPower:  &avg,
	}
	return input, ""
}

// parseFinite parses a decimal string into a finite float64. NaN and Inf
// are rejected -- those values must never reach a user record.
func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
