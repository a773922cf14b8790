package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Session is an authenticated admin login.
// Sessions do not expire; they end only on logout or process restart
// (MemoryStore) or key eviction (RedisStore).
type Session struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Store maps opaque tokens to admin sessions.
type Store interface {
	Put(ctx context.Context, token string, s Session) error
	Get(ctx context.Context, token string) (Session, bool, error)
	Delete(ctx context.Context, token string) error
}

// tokenBytes is the entropy of a session token before hex encoding.
const tokenBytes = 32

// NewToken returns 64 hex characters from crypto/rand.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
