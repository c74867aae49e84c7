package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/solariq/solariq/internal/apperror"
)

// mysqlDuplicateEntry is the MySQL/MariaDB error number for a unique key
// violation (ER_DUP_ENTRY).
const mysqlDuplicateEntry = 1062

// UserRepository defines the data access contract for user operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
//
// All mutating calls are durably persisted before they return.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error)

	// UpdateProfile applies a sparse patch to a user's profile fields and
	// returns the updated record. Only non-nil patch fields are written.
	// Returns apperror.NotFound if no record matches the id.
	UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*User, error)

	// ListUsers returns all users ordered by creation date. Password hashes
	// are never included in the result.
	ListUsers(ctx context.Context) ([]User, error)
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user row into the users table.
// Returns apperror.Conflict if the username or email is already taken --
// the unique keys are the authoritative check, the service-level lookup is
// only there to give a friendlier early answer.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, username, email, password_hash, latitude, longitude, avg_power, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Latitude,
		user.Longitude,
		user.AvgPower,
		user.CreatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return apperror.NewConflict("username or email already exists")
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// FindByID retrieves a user by their UUID.
// Returns apperror.NotFound if no user exists with this ID.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, `WHERE id = ?`, id)
}

// FindByUsername retrieves a user by their username.
// Returns apperror.NotFound if no user exists with this username.
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, `WHERE username = ?`, username)
}

// FindByUsernameOrEmail retrieves a user matching either the username or the
// email. Used by signup to detect collisions before hashing the password.
// Returns apperror.NotFound if no user matches.
func (r *userRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error) {
	return r.findOne(ctx, `WHERE username = ? OR email = ?`, username, email)
}

// findOne runs a single-row user query with the given WHERE clause.
func (r *userRepository) findOne(ctx context.Context, where string, args ...any) (*User, error) {
	query := `SELECT id, username, email, password_hash, latitude, longitude, avg_power, created_at
	          FROM users ` + where

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Latitude,
		&user.Longitude,
		&user.AvgPower,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return user, nil
}

// UpdateProfile applies a sparse profile patch. The SET clause is built from
// the non-nil fields only, so absent fields are left untouched in the row.
func (r *userRepository) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*User, error) {
	var sets []string
	var args []any

	if patch.Latitude != nil {
		sets = append(sets, "latitude = ?")
		args = append(args, *patch.Latitude)
	}
	if patch.Longitude != nil {
		sets = append(sets, "longitude = ?")
		args = append(args, *patch.Longitude)
	}
	if patch.AvgPower != nil {
		sets = append(sets, "avg_power = ?")
		args = append(args, *patch.AvgPower)
	}

	if len(sets) > 0 {
		query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
		args = append(args, id)

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("updating profile: %w", err)
		}
	}

	// Re-read the row so the caller gets the committed state. This also
	// yields NotFound if the user vanished out-of-band.
	return r.FindByID(ctx, id)
}

// ListUsers returns all users ordered by creation date, newest first.
// Deliberately excludes password_hash from the query -- the user list view
// never needs credential data.
func (r *userRepository) ListUsers(ctx context.Context) ([]User, error) {
	query := `SELECT id, username, email, latitude, longitude, avg_power, created_at
	          FROM users ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email,
			&u.Latitude, &u.Longitude, &u.AvgPower, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}
