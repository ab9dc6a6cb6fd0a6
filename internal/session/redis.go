package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one string key per session with the session TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a store writing keys as <prefix><id>.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "boostify:session:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the session stored under id.
func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	raw, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return Decode(raw)
}

// Set writes the session and refreshes its expiry.
func (r *RedisStore) Set(ctx context.Context, s Session) error {
	if s.ID == "" {
		return errors.New("session id required")
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+s.ID, data, r.ttl).Err()
}

// Clear deletes the session key.
func (r *RedisStore) Clear(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.prefix+id).Err()
}
