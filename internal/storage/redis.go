package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/config"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// Redis wraps go-redis for caching a normalized-query's shortlist result,
// and also provides a distributed lock (AcquireLock/ReleaseLock) following
// the teacher's Redis adapter shape (internal/storage/redis.go). The search
// handler uses only the cache; no caller takes the lock, so duplicate
// in-flight searches for the same query are not suppressed.
type Redis struct {
	Client *redis.Client
	ttl    time.Duration
}

func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	})

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{Client: client, ttl: ttl}, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.Client.Close()
}

func shortlistKey(normalizedQuery string) string {
	return "shortlist:" + normalizedQuery
}

// CacheShortlist stores a query's result under its normalized-query key.
func (r *Redis) CacheShortlist(ctx context.Context, normalizedQuery string, result *types.ShortlistResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redis: marshal shortlist: %w", err)
	}
	return r.Client.Set(ctx, shortlistKey(normalizedQuery), data, r.ttl).Err()
}

// GetCachedShortlist returns the cached result for normalizedQuery, or nil
// if there was a cache miss.
func (r *Redis) GetCachedShortlist(ctx context.Context, normalizedQuery string) (*types.ShortlistResult, error) {
	data, err := r.Client.Get(ctx, shortlistKey(normalizedQuery)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get shortlist: %w", err)
	}
	var result types.ShortlistResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("redis: unmarshal shortlist: %w", err)
	}
	return &result, nil
}

// AcquireLock tries to take a distributed lock for lockKey, returning the
// holder token on success and "" if another holder already has it.
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	token := fmt.Sprintf("%d", time.Now().UnixNano())
	ok, err := r.Client.SetNX(ctx, lockKey, token, expiration).Result()
	if err != nil {
		return "", fmt.Errorf("redis: acquire lock: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

const releaseLockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end`

// ReleaseLock releases lockKey only if it is still held by token, via a Lua
// script so the check-and-delete is atomic.
func (r *Redis) ReleaseLock(ctx context.Context, lockKey, token string) (bool, error) {
	res, err := r.Client.Eval(ctx, releaseLockScript, []string{lockKey}, token).Result()
	if err != nil {
		return false, fmt.Errorf("redis: release lock: %w", err)
	}
	released, ok := res.(int64)
	return ok && released == 1, nil
}
