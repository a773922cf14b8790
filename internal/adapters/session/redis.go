package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces session keys in a shared Redis.
const keyPrefix = "frontporch:session:"

// RedisStore keeps sessions in Redis so several server processes can share logins.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps a connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient builds a client from connection settings.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func redisKey(token string) string {
	return keyPrefix + token
}

// Put stores the session as JSON with no TTL.
func (r *RedisStore) Put(ctx context.Context, token string, s Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(token), payload, 0).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get retrieves a session. A missing key is reported as not found, not an error.
func (r *RedisStore) Get(ctx context.Context, token string) (Session, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return s, true, nil
}

// Delete removes a session key.
func (r *RedisStore) Delete(ctx context.Context, token string) error {
	if _, err := r.client.Del(ctx, redisKey(token)).Result(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
