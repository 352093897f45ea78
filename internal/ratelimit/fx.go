package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/showyourproject/backend/internal/config"
	socialdomain "github.com/showyourproject/backend/internal/socialshare/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient returns nil when no redis address is configured; every
// consumer in this package degrades gracefully on a nil client.
func NewRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Named("ratelimit").Info("redis not configured, rate limiting and sweep locks disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func providePostLimiter(bucket *TokenBucket, log *zap.Logger) socialdomain.RateLimiter {
	return NewPostLimiter(bucket, log)
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewTokenBucket),
	fx.Provide(NewLocker),
	fx.Provide(providePostLimiter),
)
