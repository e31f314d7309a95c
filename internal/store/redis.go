package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// BRPOP passes its own block timeout; these bound everything else.
const (
	redisDialTimeout = 2 * time.Second
	redisIOTimeout   = time.Second
)

// Redis holds the client behind the report queue when QUEUE_BACKEND=redis.
// A nil *Redis reports unhealthy and closes cleanly.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds a lazily connecting client for addr. Use Healthy to check it is reachable.
func NewRedis(addr string) *Redis {
	return &Redis{Client: redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisIOTimeout,
		WriteTimeout: redisIOTimeout,
	})}
}

// Healthy pings the server; /healthz reports the result.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the client.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
