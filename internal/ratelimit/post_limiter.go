package ratelimit

import (
	"context"

	"go.uber.org/zap"
)

// PostLimiter throttles outbound social posts per platform. The limit is a
// courtesy to the platforms' APIs, so an absent or failing redis allows
// the post instead of blocking it.
type PostLimiter struct {
	bucket *TokenBucket
	log    *zap.Logger
}

func NewPostLimiter(bucket *TokenBucket, log *zap.Logger) *PostLimiter {
	return &PostLimiter{
		bucket: bucket,
		log:    log.Named("ratelimit.posts"),
	}
}

func (p *PostLimiter) Allow(ctx context.Context, key string, maxPerHour int) bool {
	if p == nil || p.bucket == nil {
		return true
	}
	if maxPerHour <= 0 {
		return true
	}

	rate := float64(maxPerHour) / 3600.0
	result, err := p.bucket.Allow(ctx, key, rate, maxPerHour)
	if err != nil {
		p.log.Warn("rate limit check failed, allowing", zap.String("key", key), zap.Error(err))
		return true
	}
	return result.Allowed
}
