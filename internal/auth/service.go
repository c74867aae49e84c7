package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solariq/solariq/internal/apperror"
)

// Service defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type Service interface {
	Signup(ctx context.Context, input SignupInput) (*User, error)
	Login(ctx context.Context, input LoginInput) (token string, user *User, err error)
	ValidateSession(ctx context.Context, token string) (*Session, error)
	Logout(ctx context.Context, token string) error
	ListUsers(ctx context.Context) ([]User, error)
}

// service implements Service with bcrypt hashing and Redis sessions.
type service struct {
	repo     UserRepository
	sessions *SessionStore
}

// NewService creates a new auth service with the given dependencies.
func NewService(repo UserRepository, sessions *SessionStore) Service {
	return &service{
		repo:     repo,
		sessions: sessions,
	}
}

// Signup creates a new user account. It checks username/email uniqueness,
// hashes the password with bcrypt, and persists the user. The plaintext
// password never appears in the stored record or in logs.
func (s *service) Signup(ctx context.Context, input SignupInput) (*User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// Check for an existing account before doing expensive hashing. The
	// unique keys on the users table remain the authoritative guard.
	_, err := s.repo.FindByUsernameOrEmail(ctx, username, email)
	if err == nil {
		return nil, apperror.NewConflict("username or email already exists")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != 404 {
		return nil, apperror.NewInternal(fmt.Errorf("checking existing user: %w", err))
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		AvgPower:     input.AvgPower,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login authenticates a user by username and password. On success it creates
// a new session and returns the token for the cookie.
//
// The response message is the same for an unknown username and a wrong
// password so the login form can't be used to enumerate accounts. The logs
// do distinguish the two cases for operators.
func (s *service) Login(ctx context.Context, input LoginInput) (string, *User, error) {
	username := strings.TrimSpace(input.Username)

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == 404 {
			slog.Warn("login failed: unknown username", slog.String("username", username))
			return "", nil, apperror.NewUnauthorized("invalid username or password")
		}
		return "", nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		slog.Warn("login failed: bad password", slog.String("user_id", user.ID))
		return "", nil, apperror.NewUnauthorized("invalid username or password")
	}

	token, err := s.sessions.Start(ctx, user)
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("creating session: %w", err))
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return token, user, nil
}

// ValidateSession looks up a session token and returns the snapshot if it
// resolves to an active session.
func (s *service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	return s.sessions.Get(ctx, token)
}

// Logout ends the session for the given token. Idempotent.
func (s *service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.End(ctx, token); err != nil {
		return apperror.NewInternal(fmt.Errorf("ending session: %w", err))
	}
	return nil
}

// ListUsers returns every registered user without credential data.
func (s *service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing users: %w", err))
	}
	return users, nil
}
