package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"strategy-memory/internal/logging"
	"strategy-memory/internal/memory"
)

// SnapshotKey is the fixed Redis key holding the serialized trade log.
const SnapshotKey = "strategy-memory:trades"

// RedisStore persists the trade-log snapshot as a single JSON blob under a
// fixed key. When Redis is unavailable it falls back to an in-memory copy so
// recording continues without interruption; the next successful save writes
// the full accumulated log.
type RedisStore struct {
	client    *redis.Client
	logger    *logging.Logger
	available atomic.Bool

	fallbackMu sync.RWMutex
	fallback   *memory.Snapshot
}

// NewRedisStore creates a RedisStore and probes the connection. A failed
// probe is not fatal; the store starts in fallback mode and recovers on the
// next successful round trip.
func NewRedisStore(client *redis.Client, logger *logging.Logger) *RedisStore {
	s := &RedisStore{
		client: client,
		logger: logger.WithComponent("redis-store"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		s.logger.Warn("redis unavailable at startup, using in-memory fallback", "error", err)
		s.available.Store(false)
	} else {
		s.logger.Info("redis connected")
		s.available.Store(true)
	}

	return s
}

// Available reports whether the last Redis round trip succeeded.
func (s *RedisStore) Available() bool {
	return s.available.Load()
}

func (s *RedisStore) Load(ctx context.Context) (*memory.Snapshot, error) {
	data, err := s.client.Get(ctx, SnapshotKey).Result()
	if err != nil {
		if err == redis.Nil {
			s.available.Store(true)
			return s.loadFallback(), nil
		}
		s.available.Store(false)
		if fb := s.loadFallback(); fb != nil {
			s.logger.Warn("redis read failed, serving in-memory fallback", "error", err)
			return fb, nil
		}
		return nil, fmt.Errorf("failed to read snapshot from redis: %w", err)
	}
	s.available.Store(true)

	var snap memory.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	s.storeFallback(&snap)
	return &snap, nil
}

func (s *RedisStore) Save(ctx context.Context, snap *memory.Snapshot) error {
	// The fallback always holds the latest state, even when Redis is down.
	s.storeFallback(snap)

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, SnapshotKey, data, 0).Err(); err != nil {
		s.available.Store(false)
		return fmt.Errorf("failed to write snapshot to redis: %w", err)
	}

	s.available.Store(true)
	return nil
}

func (s *RedisStore) Delete(ctx context.Context) error {
	s.fallbackMu.Lock()
	s.fallback = nil
	s.fallbackMu.Unlock()

	if err := s.client.Del(ctx, SnapshotKey).Err(); err != nil {
		s.available.Store(false)
		return fmt.Errorf("failed to delete snapshot from redis: %w", err)
	}

	s.available.Store(true)
	return nil
}

func (s *RedisStore) loadFallback() *memory.Snapshot {
	s.fallbackMu.RLock()
	defer s.fallbackMu.RUnlock()

	if s.fallback == nil {
		return nil
	}
	return copySnapshot(s.fallback)
}

func (s *RedisStore) storeFallback(snap *memory.Snapshot) {
	s.fallbackMu.Lock()
	defer s.fallbackMu.Unlock()

	s.fallback = copySnapshot(snap)
}
