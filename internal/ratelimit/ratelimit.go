// Package ratelimit provides redis-backed request limiting and
// per-shop locks. Without a redis address both degrade to no-ops so a
// single-node deployment needs no extra infrastructure.
package ratelimit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter is a fixed-window counter keyed per shop.
type Limiter struct {
	client *redis.Client
	log    *zap.Logger
}

func NewLimiter(client *redis.Client, log *zap.Logger) *Limiter {
	return &Limiter{client: client, log: log.Named("ratelimit")}
}

// Allow reports whether another request fits inside the window. Redis
// being unavailable fails open; generation must not depend on it.
func (l *Limiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) bool {
	if l.client == nil {
		return true
	}

	count, err := l.client.Incr(ctx, "rl:"+key).Result()
	if err != nil {
		l.log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
		return true
	}
	if count == 1 {
		l.client.Expire(ctx, "rl:"+key, window)
	}
	return count <= limit
}

// releaseScript deletes the lock only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes bulk jobs per shop across instances.
type Locker struct {
	client *redis.Client
	log    *zap.Logger
}

func NewLocker(client *redis.Client, log *zap.Logger) *Locker {
	return &Locker{client: client, log: log.Named("locker")}
}

// Acquire takes the named lock for ttl and returns the ownership token
// the holder must pass to Release. When the lock is held elsewhere it
// returns ok=false. The ttl only bounds a crashed holder; a live one
// releases explicitly.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool) {
	if l.client == nil {
		return "", true
	}

	token = uuid.NewString()
	acquired, err := l.client.SetNX(ctx, "lock:"+key, token, ttl).Result()
	if err != nil {
		l.log.Warn("lock acquire failed", zap.String("key", key), zap.Error(err))
		return "", true
	}
	if !acquired {
		return "", false
	}
	return token, true
}

// Release gives the lock back. The compare-and-delete script only
// removes the key while token still owns it, so releasing after a TTL
// expiry and re-acquisition by another holder is a no-op.
func (l *Locker) Release(ctx context.Context, key, token string) {
	if l.client == nil || token == "" {
		return
	}
	if _, err := releaseScript.Run(ctx, l.client, []string{"lock:" + key}, token).Result(); err != nil {
		l.log.Warn("lock release failed", zap.String("key", key), zap.Error(err))
	}
}
