// Package profile implements the profile updater: best-effort sparse
// patches to a user's numeric profile fields (latitude, longitude, average
// power), with the caller's session snapshot refreshed after a successful
// commit.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/solariq/solariq/internal/apperror"
	"github.com/solariq/solariq/internal/auth"
)

// PatchRequest is the raw profile update body. Each field is optional and
// arrives as an unvalidated primitive -- the dashboard JS sends numbers,
// older form code sends strings, and both are accepted. Fields that fail
// numeric coercion are silently dropped, not errors: partial updates are
// best-effort by design.
type PatchRequest struct {
	Latitude  any `json:"latitude"`
	Longitude any `json:"longitude"`
	AvgPower  any `json:"avg_power"`
}

// Service defines the profile update contract.
type Service interface {
	// ApplyPatch validates and applies a sparse profile patch for the user,
	// then refreshes the session snapshot under the given token. Returns
	// the updated record.
	//
	// Fails with a validation error when no field survives coercion and
	// with not-found when the user no longer exists.
	ApplyPatch(ctx context.Context, userID, token string, req PatchRequest) (*auth.User, error)
}

// service implements Service over the user repository and session store.
type service struct {
	repo     auth.UserRepository
	sessions *auth.SessionStore
}

// NewService creates a profile service with the given dependencies.
func NewService(repo auth.UserRepository, sessions *auth.SessionStore) Service {
	return &service{repo: repo, sessions: sessions}
}

// ApplyPatch coerces the candidate fields, commits the surviving ones, and
// refreshes the caller's session snapshot. The store update must succeed
// before the snapshot is touched -- a failed update never refreshes.
func (s *service) ApplyPatch(ctx context.Context, userID, token string, req PatchRequest) (*auth.User, error) {
	patch := auth.ProfilePatch{
		Latitude:  coerceNumeric(req.Latitude),
		Longitude: coerceNumeric(req.Longitude),
		AvgPower:  coerceNumeric(req.AvgPower),
	}

	if patch.IsEmpty() {
		return nil, apperror.NewValidation("no valid fields in profile update")
	}

	user, err := s.repo.UpdateProfile(ctx, userID, patch)
	if err != nil {
		if _, ok := err.(*apperror.AppError); ok {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("updating profile: %w", err))
	}

	// Refresh the session snapshot so the dashboard sees the new values.
	// A missing token is a benign race with logout (Refresh no-ops); a
	// Redis failure is logged but doesn't undo a committed update.
	if err := s.sessions.Refresh(ctx, token, user); err != nil {
		slog.Warn("failed to refresh session after profile update",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	slog.Info("profile updated",
		slog.String("user_id", userID),
		slog.Bool("latitude", patch.Latitude != nil),
		slog.Bool("longitude", patch.Longitude != nil),
		slog.Bool("avg_power", patch.AvgPower != nil),
	)

	return user, nil
}

// coerceNumeric converts a raw candidate field to a finite float64, or nil
// when the field is absent or doesn't coerce. JSON numbers arrive as
// float64, form/legacy values as strings; anything else is dropped.
func coerceNumeric(v any) *float64 {
	var f float64
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
