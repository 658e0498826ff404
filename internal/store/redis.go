package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/Kdotropez/loto-news-sub001/internal/model"
)

// CachedStore wraps a primary Store with a Redis read-through cache.
// Writes go to the primary store and invalidate the cache; reads check
// Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateSession(ctx context.Context, gs *model.GameSession) error {
	if err := s.primary.CreateSession(ctx, gs); err != nil {
		return err
	}
	s.cacheSession(ctx, gs)
	s.rdb.Del(ctx, spendKey())
	return nil
}

func (s *CachedStore) UpdateSessionResult(ctx context.Context, id, status string, result *model.GameResult, checkedAt time.Time) error {
	if err := s.primary.UpdateSessionResult(ctx, id, status, result, checkedAt); err != nil {
		return err
	}
	// Invalidate cache; next read will re-populate.
	s.rdb.Del(ctx, sessionKey(id))
	return nil
}

func (s *CachedStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.primary.DeleteSession(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, sessionKey(id), spendKey())
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetSession(ctx context.Context, id string) (*model.GameSession, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == nil {
		var gs model.GameSession
		if json.Unmarshal(data, &gs) == nil {
			return &gs, nil
		}
	}

	// Cache miss: read from primary.
	gs, err := s.primary.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheSession(ctx, gs)
	return gs, nil
}

func (s *CachedStore) GetSpendByGameDate(ctx context.Context) (map[string]decimal.Decimal, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, spendKey()).Bytes()
	if err == nil {
		var spend map[string]decimal.Decimal
		if json.Unmarshal(data, &spend) == nil {
			return spend, nil
		}
	}

	// Cache miss.
	spend, err := s.primary.GetSpendByGameDate(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(spend); err == nil {
		s.rdb.Set(ctx, spendKey(), data, s.ttl)
	}
	return spend, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListSessions(ctx context.Context) ([]model.GameSession, error) {
	return s.primary.ListSessions(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cacheSession(ctx context.Context, gs *model.GameSession) {
	if data, err := json.Marshal(gs); err == nil {
		s.rdb.Set(ctx, sessionKey(gs.ID), data, s.ttl)
	}
}

func sessionKey(id string) string { return fmt.Sprintf("loto:session:%s", id) }
func spendKey() string            { return "loto:spend_by_date" }

// RedisKV implements KV on a Redis client. Values do not expire.
type RedisKV struct {
	rdb *redis.Client
}

// NewRedisKV creates a Redis-backed KV.
func NewRedisKV(rdb *redis.Client) *RedisKV {
	return &RedisKV{rdb: rdb}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return data, err
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.rdb.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}
