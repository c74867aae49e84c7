package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the bcrypt work factor. Fixed configuration, never
// caller-supplied. Cost 10 takes tens of milliseconds on current server
// hardware -- negligible for a login, expensive for a brute-forcer.
const bcryptCost = 10

// hashPassword creates a salted bcrypt hash of the given password. bcrypt
// embeds a fresh random salt in every hash, so two calls with the same
// password never produce the same digest. The output is self-contained
// ($2a$10$<salt><hash>) and can be stored directly.
func hashPassword(password string) (string, error) {
	if len(password) > 72 {
		// bcrypt silently truncates passwords longer than 72 bytes.
		// Reject them explicitly so callers aren't surprised.
		return "", fmt.Errorf("password must be 72 bytes or fewer")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	return string(hash), nil
}

// verifyPassword checks a plaintext password against a stored bcrypt hash.
// Returns true if the password matches. bcrypt's comparison is constant
// time internally, so this is safe against timing attacks.
func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
