package profile

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/solariq/solariq/internal/apperror"
	"github.com/solariq/solariq/internal/auth"
)

// Handler serves the session-gated profile update endpoint.
type Handler struct {
	service Service
}

// NewHandler creates a profile handler with the given service.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Update applies a sparse profile patch for the authenticated user
// (PATCH /api/profile, also accepted as POST for older clients). The
// response carries an explicit status discriminator and the updated
// public record.
func (h *Handler) Update(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewUnauthorized("authentication required")
	}

	var req PatchRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	user, err := h.service.ApplyPatch(c.Request().Context(), userID, auth.GetToken(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"user":   user,
	})
}
