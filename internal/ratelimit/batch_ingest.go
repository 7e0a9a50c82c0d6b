package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/healx/internal/config"
	"go.uber.org/fx"
)

const (
	keyBatchIngestUser = "healx:batch:user:%s"
	keyBatchIngestLock = "healx:batch:lock:%s:%s"
)

// BatchIngestLimiter throttles batch ingestion per user and serialises batches
// of one user for the same source. A nil limiter allows everything.
type BatchIngestLimiter struct {
	bucket *TokenBucket
	locker *Locker

	userRate  float64
	userBurst int
	lockTTL   time.Duration
}

func NewBatchIngestLimiter(lc fx.Lifecycle, cfg config.Config) (*BatchIngestLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return NewBatchIngestLimiterWithClient(
		client,
		limitCfg.BatchIngestUserRate,
		limitCfg.BatchIngestUserBurst,
		time.Duration(limitCfg.BatchIngestConcurrencyTTLSecs)*time.Second,
	)
}

func NewBatchIngestLimiterWithClient(client redis.UniversalClient, rate float64, burst int, lockTTL time.Duration) (*BatchIngestLimiter, error) {
	if rate <= 0 || burst <= 0 {
		return nil, errors.New("batch ingest user rate limit must be positive")
	}
	if lockTTL <= 0 {
		return nil, errors.New("batch ingest lock ttl must be positive")
	}
	return &BatchIngestLimiter{
		bucket:    NewTokenBucket(client),
		locker:    NewLocker(client),
		userRate:  rate,
		userBurst: burst,
		lockTTL:   lockTTL,
	}, nil
}

func (l *BatchIngestLimiter) Enabled() bool {
	return l != nil
}

func (l *BatchIngestLimiter) AllowUser(ctx context.Context, userID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyBatchIngestUser, strings.TrimSpace(userID)), l.userRate, l.userBurst)
}

func (l *BatchIngestLimiter) TryLockUserSource(ctx context.Context, userID, sourceName string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, lockKey(userID, sourceName), l.lockTTL)
}

func (l *BatchIngestLimiter) ReleaseUserSource(ctx context.Context, userID, sourceName, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, lockKey(userID, sourceName), token)
}

func lockKey(userID, sourceName string) string {
	return fmt.Sprintf(keyBatchIngestLock, strings.TrimSpace(userID), strings.TrimSpace(sourceName))
}
