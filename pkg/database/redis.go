package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the client behind the distributed rating lock.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	// OpTimeout bounds each command. Lock acquisition polls SET NX, so a
	// stalled server must not hold a request past the lock timeout.
	OpTimeout time.Duration
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c RedisConfig) options() *redis.Options {
	opts := &redis.Options{
		Addr:     c.Addr(),
		Password: c.Password,
		DB:       c.DB,
	}
	if c.OpTimeout > 0 {
		opts.DialTimeout = c.OpTimeout
		opts.ReadTimeout = c.OpTimeout
		opts.WriteTimeout = c.OpTimeout
	}
	return opts
}

// NewRedisClient connects to Redis, retrying the initial ping with the same
// backoff as the Postgres pool.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(cfg.options())

	var err error
	for attempt := 0; attempt < defaultRetryAttempts; attempt++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		if attempt == defaultRetryAttempts-1 {
			break
		}
		if werr := sleepCtx(ctx, RetryBackoff(attempt)); werr != nil {
			err = werr
			break
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr(), err)
}
