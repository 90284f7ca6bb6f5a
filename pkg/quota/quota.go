// Package quota enforces the free tier's daily scan allowance. Counters
// live in Redis when available so every API instance sees the same count;
// the in-memory store covers single-instance and test setups.
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store increments a counter and returns its new value. The TTL only
// applies when the increment created the key.
type Store interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type Checker struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Checker {
	return &Checker{store: store, now: time.Now}
}

// Consume spends one scan from the user's daily budget. Returns whether
// the scan is allowed and how many scans remain after it.
func (c *Checker) Consume(ctx context.Context, userID string, limit int) (bool, int, error) {
	day := c.now().UTC().Format("2006-01-02")
	key := fmt.Sprintf("scans:%s:%s", day, userID)

	n, err := c.store.Incr(ctx, key, 24*time.Hour)
	if err != nil {
		return false, 0, fmt.Errorf("quota incr: %w", err)
	}
	if n > int64(limit) {
		return false, 0, nil
	}
	return true, limit - int(n), nil
}

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryStore() Store {
	return &memoryStore{entries: map[string]*memoryEntry{}, now: time.Now}
}

func (s *memoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || now.After(e.expiresAt) {
		// New day, new key: drop every counter whose TTL has lapsed so the
		// map does not accumulate one key per user per day forever.
		for k, v := range s.entries {
			if now.After(v.expiresAt) {
				delete(s.entries, k)
			}
		}
		e = &memoryEntry{expiresAt: now.Add(ttl)}
		s.entries[key] = e
	}
	e.count++
	return e.count, nil
}
