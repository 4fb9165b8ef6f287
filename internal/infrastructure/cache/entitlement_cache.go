package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/varejo/backend/internal/domain/entitlement"
	"go.uber.org/zap"
)

// defaultEntryTTL is the store-level expiry for entitlement entries. It is
// deliberately much longer than the freshness TTL: the degradation policy
// interprets FetchedAt/FirstFailureAt, so the store must keep serving the last
// known-good document well past staleness.
const defaultEntryTTL = 24 * time.Hour

// EntitlementCache wraps a CacheStore with the typed entitlement entry codec.
// Freshness and failure interpretation live in entitlement.DegradePolicy; this
// type only moves documents in and out of the shared store.
type EntitlementCache struct {
	store    entitlement.CacheStore
	entryTTL time.Duration
	logger   *zap.Logger
}

// EntitlementCacheOption is a functional option for configuring the cache
type EntitlementCacheOption func(*EntitlementCache)

// WithEntryTTL overrides the store-level expiry for entries
func WithEntryTTL(ttl time.Duration) EntitlementCacheOption {
	return func(c *EntitlementCache) {
		c.entryTTL = ttl
	}
}

// WithEntitlementCacheLogger sets the logger for the cache
func WithEntitlementCacheLogger(logger *zap.Logger) EntitlementCacheOption {
	return func(c *EntitlementCache) {
		c.logger = logger
	}
}

// NewEntitlementCache creates an entitlement cache over the given store
func NewEntitlementCache(store entitlement.CacheStore, opts ...EntitlementCacheOption) *EntitlementCache {
	c := &EntitlementCache{
		store:    store,
		entryTTL: defaultEntryTTL,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves the entitlement entry for a tenant. Returns (nil, nil) on a
// miss. A corrupted entry is deleted and treated as a miss.
func (c *EntitlementCache) Get(ctx context.Context, tenantID string) (*entitlement.Entry, error) {
	key := entitlement.Key(tenantID, entitlement.KindEntry)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		c.logger.Debug("Cache miss for entitlement entry", zap.String("tenant_id", tenantID))
		return nil, nil
	}

	var entry entitlement.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Error("Failed to unmarshal entitlement entry",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		_ = c.store.Delete(ctx, key)
		return nil, nil
	}

	return &entry, nil
}

// Put stores the entitlement entry for a tenant
func (c *EntitlementCache) Put(ctx context.Context, entry *entitlement.Entry) error {
	if entry == nil {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entitlement entry: %w", err)
	}

	key := entitlement.Key(entry.TenantID, entitlement.KindEntry)
	if err := c.store.Set(ctx, key, data, c.entryTTL); err != nil {
		return err
	}

	c.logger.Debug("Cached entitlement entry",
		zap.String("tenant_id", entry.TenantID),
		zap.Int("modules", len(entry.Modules)),
		zap.Int("failure_count", entry.FailureCount))
	return nil
}

// Invalidate removes the tenant's entry so the next read forces a fresh fetch
// from the system of record.
func (c *EntitlementCache) Invalidate(ctx context.Context, tenantID string) error {
	if err := c.store.Delete(ctx, entitlement.Key(tenantID, entitlement.KindEntry)); err != nil {
		return err
	}
	c.logger.Debug("Invalidated entitlement entry", zap.String("tenant_id", tenantID))
	return nil
}
