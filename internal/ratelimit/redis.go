// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the limiter with a shared Redis so that the count for a
// key is consistent across process instances. The window is a counter with
// a TTL anchored at the first increment; a block is a separate key whose
// remaining TTL is the retry time.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store using the given client. Keys are written
// under the "rl:" prefix.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "rl:"}
}

// Take implements Store.
func (s *RedisStore) Take(ctx context.Context, key string, cfg Config, now time.Time) (Result, error) {
	blockKey := s.prefix + "block:" + key
	countKey := s.prefix + "count:" + key

	ttl, err := s.client.PTTL(ctx, blockKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ttl > 0 {
		return Result{
			Limit:      cfg.MaxAttempts,
			RetryAfter: ttl,
			Reset:      now.Add(ttl),
		}, nil
	}

	count, err := s.client.Incr(ctx, countKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, countKey, cfg.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if count > int64(cfg.MaxAttempts) {
		pipe := s.client.TxPipeline()
		pipe.Set(ctx, blockKey, 1, cfg.BlockDuration)
		// Drop the counter so the unblocked client starts a fresh window.
		pipe.Del(ctx, countKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return Result{
			Limit:      cfg.MaxAttempts,
			RetryAfter: cfg.BlockDuration,
			Reset:      now.Add(cfg.BlockDuration),
		}, nil
	}

	windowLeft, err := s.client.PTTL(ctx, countKey).Result()
	if err != nil || windowLeft < 0 {
		windowLeft = cfg.Window
	}

	return Result{
		Allowed:   true,
		Limit:     cfg.MaxAttempts,
		Remaining: cfg.MaxAttempts - int(count),
		Reset:     now.Add(windowLeft),
	}, nil
}
