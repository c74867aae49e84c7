// Package auth handles user authentication and session management for
// SolarIQ. It provides signup, login, logout, and session validation via
// opaque tokens stored in Redis, plus the user repository every other
// package goes through for account data.
package auth

import (
	"time"
)

// User represents a registered SolarIQ user. This is the domain model used
// throughout the application. Database scanning and JSON marshaling use this
// struct directly.
//
// The profile fields (Latitude, Longitude, AvgPower) are each independently
// optional -- a nil pointer means the user never provided the value. Once
// set they are always finite numbers; the profile updater never commits a
// NaN or Inf.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	AvgPower     *float64  `json:"avg_power,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProfilePatch is a sparse update to a user's profile. Only non-nil fields
// are written; nil fields leave the stored value untouched.
type ProfilePatch struct {
	Latitude  *float64
	Longitude *float64
	AvgPower  *float64
}

// IsEmpty reports whether the patch contains no fields at all.
func (p ProfilePatch) IsEmpty() bool {
	return p.Latitude == nil && p.Longitude == nil && p.AvgPower == nil
}

// --- Request DTOs (bound from HTTP requests) ---

// SignupRequest holds the data submitted by the signup form. The numeric
// fields arrive as strings (form encoding) or numbers (JSON) and are
// validated server-side before the account is created.
type SignupRequest struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
	Confirm   string `json:"confirmPassword" form:"confirmPassword"`
	Latitude  string `json:"latitude" form:"latitude"`
	Longitude string `json:"longitude" form:"longitude"`
	AvgPower  string `json:"avg_power" form:"avg_power"`
}

// LoginRequest holds the data submitted by the login form.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// --- Service Input DTOs (passed from handler to service) ---

// SignupInput is the validated input for creating a new user.
type SignupInput struct {
	Username  string
	Email     string
	Password  string
	Latitude  *float64
	Longitude *float64
	AvgPower  *float64
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Username string
	Password string
}

// --- Session ---

// Session is the authenticated-user snapshot stored in Redis. The session
// token is the key, and this struct is the value (JSON-encoded).
//
// The snapshot reflects the user record as of the last login or successful
// profile update -- it is not refreshed on every request. Callers that need
// live data must re-read the repository.
type Session struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	AvgPower  *float64  `json:"avg_power,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// snapshotOf builds a session snapshot from a user record.
func snapshotOf(user *User) Session {
	return Session{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Latitude:  user.Latitude,
		Longitude: user.Longitude,
		AvgPower:  user.AvgPower,
		CreatedAt: time.Now().UTC(),
	}
}
