package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/amirulmuuminin/tahfidz-exam-api/pkg/errors"
)

// CacheRepository provides helpers around Redis for caching examiner
// rosters and search results. A nil client degrades to a no-op cache.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	return &CacheRepository{client: client, logger: logger}
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// DeleteByPattern removes cached entries matching the provided pattern.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}

	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

const slotLockRelease = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// SlotLocker serializes writers touching the same slot. Locks are held
// in Redis with SET NX so multiple API instances coordinate; without a
// Redis client it falls back to process-local mutual exclusion.
type SlotLocker struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.Mutex
	local map[string]string
}

// NewSlotLocker constructs a slot locker with the given lock TTL.
func NewSlotLocker(client *redis.Client, ttl time.Duration) *SlotLocker {
	return &SlotLocker{client: client, ttl: ttl, local: make(map[string]string)}
}

// SlotLockKey builds the lock key for a slot.
func SlotLockKey(dateKey, period string) string {
	return fmt.Sprintf("slotlock:%s:%s", dateKey, period)
}

// Acquire takes the lock for the given key. It returns ErrSlotLocked
// when another writer currently holds it.
func (l *SlotLocker) Acquire(ctx context.Context, key, token string) error {
	if l.client == nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, held := l.local[key]; held {
			return appErrors.ErrSlotLocked
		}
		l.local[key] = token
		return nil
	}

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire slot lock %s: %w", key, err)
	}
	if !ok {
		return appErrors.ErrSlotLocked
	}
	return nil
}

// Release drops the lock if the caller still owns it.
func (l *SlotLocker) Release(ctx context.Context, key, token string) error {
	if l.client == nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.local[key] == token {
			delete(l.local, key)
		}
		return nil
	}

	if err := l.client.Eval(ctx, slotLockRelease, []string{key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release slot lock %s: %w", key, err)
	}
	return nil
}
