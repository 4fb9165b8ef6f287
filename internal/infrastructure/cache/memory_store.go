package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/varejo/backend/internal/domain/entitlement"
	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// MemoryStore implements entitlement.CacheStore with in-process storage.
// Used by tests and single-node deployments where Redis is not available.
type MemoryStore struct {
	entries sync.Map // map[string]*memoryEntry
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

func (e *memoryEntry) isExpired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// MemoryStoreOption is a functional option for configuring the store
type MemoryStoreOption func(*MemoryStore)

// WithMemoryLogger sets the logger for the store
func WithMemoryLogger(logger *zap.Logger) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.logger = logger
	}
}

// NewMemoryStore creates an in-memory cache store with background cleanup
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	store := &MemoryStore{
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(store)
	}

	go store.cleanupExpired()

	return store
}

// Get retrieves a raw value, returning (nil, nil) on a miss
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if value, ok := s.entries.Load(key); ok {
		entry := value.(*memoryEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&s.hits, 1)
			return entry.value, nil
		}
		s.entries.Delete(key)
	}
	atomic.AddInt64(&s.misses, 1)
	return nil, nil
}

// Set stores a value with the given TTL
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := &memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries.Store(key, entry)
	return nil
}

// Delete removes a key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}

// Close stops the cleanup goroutine. Only the first call has effect.
func (s *MemoryStore) Close() error {
	if atomic.CompareAndSwapInt32(&s.stopped, 0, 1) {
		close(s.stopCh)
	}
	return nil
}

// Stats returns hit/miss counters for monitoring
func (s *MemoryStore) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&s.hits), atomic.LoadInt64(&s.misses)
}

// Count returns the number of live entries
func (s *MemoryStore) Count() int {
	count := 0
	s.entries.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// cleanupExpired periodically removes expired entries
func (s *MemoryStore) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			removed := 0
			s.entries.Range(func(key, value any) bool {
				if value.(*memoryEntry).isExpired() {
					s.entries.Delete(key)
					removed++
				}
				return true
			})
			if removed > 0 {
				s.logger.Debug("Cleaned up expired cache entries", zap.Int("removed", removed))
			}
		}
	}
}

// Ensure MemoryStore implements CacheStore
var _ entitlement.CacheStore = (*MemoryStore)(nil)
