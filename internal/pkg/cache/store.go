package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Store is a TTL key/value store for JSON-serializable values.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get decodes the value stored under key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheMetrics tracks cache performance
type CacheMetrics struct {
	Hits   int64
	Misses int64
	Sets   int64
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps encoded values in process memory. Values are stored encoded so
// callers never share slices with the cache.
type MemoryStore struct {
	items  *gocache.Cache
	name   string
	logger *zap.Logger

	hits, misses, sets atomic.Int64
}

// NewMemoryStore creates a store whose expired items are purged every cleanup interval.
func NewMemoryStore(name string, cleanup time.Duration, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		items:  gocache.New(gocache.NoExpiration, cleanup),
		name:   name,
		logger: logger,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, found := m.items.Get(key)
	if !found {
		m.misses.Add(1)
		m.logger.Debug("Cache miss", zap.String("cache", m.name), zap.String("key", key))
		return false, nil
	}
	if err := json.Unmarshal(raw.([]byte), dest); err != nil {
		return false, fmt.Errorf("cache %s: decode %s: %w", m.name, key, err)
	}
	m.hits.Add(1)
	m.logger.Debug("Cache hit", zap.String("cache", m.name), zap.String("key", key))
	return true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache %s: encode %s: %w", m.name, key, err)
	}
	m.items.Set(key, raw, ttl)
	m.sets.Add(1)
	m.logger.Debug("Cache set",
		zap.String("cache", m.name),
		zap.String("key", key),
		zap.Duration("ttl", ttl),
	)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

// Flush removes all items from the cache
func (m *MemoryStore) Flush() {
	m.items.Flush()
	m.logger.Info("Cache cleared", zap.String("cache", m.name))
}

// GetMetrics returns current cache metrics
func (m *MemoryStore) GetMetrics() CacheMetrics {
	return CacheMetrics{Hits: m.hits.Load(), Misses: m.misses.Load(), Sets: m.sets.Load()}
}

func (m *MemoryStore) Size() int {
	return m.items.ItemCount()
}

// Key joins components into a namespaced cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
