package ratelimit

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/shopforge/invoicepress/internal/config"
)

// NewRedisClient returns nil when no address is configured; Limiter
// and Locker treat a nil client as "always allow".
func NewRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis disabled, rate limiting and locks run in-process")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

var Module = fx.Module("ratelimit",
	fx.Provide(
		NewRedisClient,
		NewLimiter,
		NewLocker,
	),
)
