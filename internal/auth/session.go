package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/solariq/solariq/internal/apperror"
)

// sessionKeyPrefix is the Redis key prefix for session data.
const sessionKeyPrefix = "session:"

// sessionTokenBytes is the number of random bytes in a session token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters. The token
// is pure randomness -- no session data is ever embedded in it.
const sessionTokenBytes = 32

// SessionStore maps opaque session tokens to authenticated-user snapshots,
// backed by Redis. Constructed once at process start and injected into the
// auth service and middleware -- there is no ambient global session state.
//
// A TTL of zero means sessions never expire; they live until explicit
// logout. That preserves the original product behavior and is a known
// policy gap (see config.AuthConfig.SessionTTL).
type SessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewSessionStore creates a session store over the given Redis client.
func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{redis: rdb, ttl: ttl}
}

// Start creates a new session holding a snapshot of the given user and
// returns the opaque token for the cookie.
func (s *SessionStore) Start(ctx context.Context, user *User) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	session := snapshotOf(user)
	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("marshaling session: %w", err)
	}

	if err := s.redis.Set(ctx, sessionKeyPrefix+token, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("storing session in Redis: %w", err)
	}

	return token, nil
}

// Get looks up a session token and returns the snapshot if the session is
// active. Returns apperror.Unauthorized when the token resolves to nothing.
func (s *SessionStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading session from Redis: %w", err))
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("unmarshaling session: %w", err))
	}

	return &session, nil
}

// Refresh replaces the snapshot stored under an existing token with a fresh
// snapshot of the given user. The old snapshot value is replaced wholesale,
// never mutated in place. If the token no longer exists -- a concurrent
// logout is a benign race -- Refresh is a silent no-op.
func (s *SessionStore) Refresh(ctx context.Context, token string, user *User) error {
	session := snapshotOf(user)
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	// SETXX only writes when the key exists, and KeepTTL preserves whatever
	// expiry the session already had. A false result means the session was
	// ended concurrently, which is not an error.
	err = s.redis.SetXX(ctx, sessionKeyPrefix+token, data, redis.KeepTTL).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("refreshing session in Redis: %w", err)
	}

	return nil
}

// End removes a session, logging the user out. Idempotent -- ending an
// already-ended or unknown token is not an error.
func (s *SessionStore) End(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("deleting session from Redis: %w", err)
	}
	return nil
}

// generateSessionToken creates a cryptographically random hex-encoded token.
func generateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
