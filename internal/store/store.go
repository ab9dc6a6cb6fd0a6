package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"boostify/internal/config"
	"boostify/internal/session"
)

// Connections holds the external stores the configuration asks for. Fields are
// nil when the matching backend is not in use.
type Connections struct {
	DB    *sql.DB
	Redis *redis.Client
}

// Open connects the backends selected by SESSION_BACKEND and QUEUE_BACKEND.
func Open(ctx context.Context, cfg config.App) (*Connections, error) {
	conns := &Connections{}
	if cfg.SessionBackend == "redis" || cfg.QueueBackend == "redis" {
		conns.Redis = newRedis(cfg.RedisAddr)
		if !redisHealthy(ctx, conns.Redis) {
			_ = conns.Close()
			return nil, fmt.Errorf("redis %s not reachable", cfg.RedisAddr)
		}
	}
	if cfg.SessionBackend == "postgres" {
		db, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = conns.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		conns.DB = db
	}
	return conns, nil
}

// SessionStore builds the Token Store for the configured backend.
func (c *Connections) SessionStore(ctx context.Context, cfg config.App) (session.Store, error) {
	switch cfg.SessionBackend {
	case "memory":
		return session.NewMemoryStore(cfg.SessionTTL), nil
	case "redis":
		if c.Redis == nil {
			return nil, errors.New("redis session store requested without a redis connection")
		}
		return session.NewRedisStore(c.Redis, "", cfg.SessionTTL), nil
	case "postgres":
		return session.NewPostgresStore(ctx, c.DB, cfg.SessionTTL)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

// Health reports connectivity for every open backend.
func (c *Connections) Health(ctx context.Context) map[string]bool {
	out := map[string]bool{}
	if c == nil {
		return out
	}
	if c.Redis != nil {
		out["redis"] = redisHealthy(ctx, c.Redis)
	}
	if c.DB != nil {
		out["db"] = c.DB.PingContext(ctx) == nil
	}
	return out
}

// Close closes the underlying connections.
func (c *Connections) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
