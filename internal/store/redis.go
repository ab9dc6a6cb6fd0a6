package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// newRedis connects to redis with short timeouts; session reads sit on the
// request path.
func newRedis(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

func redisHealthy(ctx context.Context, client *redis.Client) bool {
	if client == nil {
		return false
	}
	return client.Ping(ctx).Err() == nil
}
