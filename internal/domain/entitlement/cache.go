package entitlement

import (
	"context"
	"fmt"
	"time"
)

// CacheStore is an abstract TTL key/value store shared by all service
// instances. The Redis implementation backs production; an in-memory
// implementation backs tests and single-node deployments.
//
// Keys follow the pattern varejo:{tenant}:{kind}, see Key.
type CacheStore interface {
	// Get retrieves a raw value. Returns (nil, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A zero TTL means no expiry;
	// the entitlement layer always passes an explicit TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store
	Close() error
}

// EntryCache is the typed view over the cache store used by the validation
// service: one entitlement entry document per tenant.
type EntryCache interface {
	// Get retrieves the entry for a tenant, (nil, nil) on a miss
	Get(ctx context.Context, tenantID string) (*Entry, error)

	// Put stores the entry for a tenant
	Put(ctx context.Context, entry *Entry) error

	// Invalidate removes the tenant's entry so the next read forces a fetch
	Invalidate(ctx context.Context, tenantID string) error
}

// Cache key kinds, one per cached resource
const (
	KindActiveModules = "active-modules"
	KindActivePlan    = "active-plan"
	KindEntry         = "entitlement"

	keyPrefix = "varejo"
)

// Key builds a namespaced cache key: product prefix + tenant + resource kind
func Key(tenantID, kind string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, tenantID, kind)
}

// Entry is the cached entitlement document for one tenant. It carries the last
// known-good snapshot together with the failure bookkeeping that drives the
// degradation state machine.
type Entry struct {
	TenantID string   `json:"tenant_id"`
	Modules  []string `json:"modules"`
	Plan     *PlanSnapshot `json:"plan,omitempty"`

	// FetchedAt is when the snapshot was last successfully loaded from the
	// system of record
	FetchedAt time.Time `json:"fetched_at"`

	// FailureCount is the number of consecutive refresh failures since the
	// last success. Zero while healthy.
	FailureCount int `json:"failure_count"`

	// FirstFailureAt marks the start of the current uninterrupted failure
	// streak. Zero while healthy.
	FirstFailureAt time.Time `json:"first_failure_at,omitempty"`

	// NextRetryAt is the earliest instant the next background refresh may run,
	// per the backoff ladder
	NextRetryAt time.Time `json:"next_retry_at,omitempty"`
}

// Snapshot returns the last known-good snapshot held by the entry
func (e *Entry) Snapshot() *Snapshot {
	return &Snapshot{Modules: e.Modules, Plan: e.Plan}
}

// State is the degradation state of a cached entitlement entry
type State string

const (
	// StateFresh means the last fetch succeeded and the data is within the
	// base TTL; reads are served without refresh.
	StateFresh State = "fresh"

	// StateExpired means the data aged past the base TTL without any recorded
	// failure; a background refresh is due.
	StateExpired State = "expired"

	// StateStaleRetry means refreshes are failing; the last known-good value
	// is still served while retries follow the backoff ladder.
	StateStaleRetry State = "stale-retry"

	// StateSalesDisabled means refreshes have failed continuously for at least
	// the sales-disable threshold; sales gating fails closed.
	StateSalesDisabled State = "sales-disabled"
)

// DegradePolicy decides how long cached entitlement data is trusted and when
// the sales circuit breaker trips. Deployments may override any field through
// configuration.
type DegradePolicy struct {
	// BaseTTL is how long a successful fetch is served without refresh
	BaseTTL time.Duration

	// RetryLadder holds the escalating intervals between failed refresh
	// attempts. Each consecutive failure advances one rung; past the last rung
	// the final interval repeats.
	RetryLadder []time.Duration

	// SalesDisableAfter is the uninterrupted failure duration after which
	// sales-creation checks fail closed
	SalesDisableAfter time.Duration
}

// DefaultDegradePolicy returns the standard degradation policy: 2 minute base
// TTL, retry ladder 5/7/10/12/15/20/30 minutes, sales disabled after 30
// minutes of uninterrupted failure.
func DefaultDegradePolicy() DegradePolicy {
	return DegradePolicy{
		BaseTTL: 2 * time.Minute,
		RetryLadder: []time.Duration{
			5 * time.Minute,
			7 * time.Minute,
			10 * time.Minute,
			12 * time.Minute,
			15 * time.Minute,
			20 * time.Minute,
			30 * time.Minute,
		},
		SalesDisableAfter: 30 * time.Minute,
	}
}

// RetryInterval returns the backoff interval for the given consecutive failure
// count (1-based). Counts past the ladder stay on the last rung.
func (p DegradePolicy) RetryInterval(failures int) time.Duration {
	if len(p.RetryLadder) == 0 {
		return p.BaseTTL
	}
	if failures < 1 {
		failures = 1
	}
	if failures > len(p.RetryLadder) {
		failures = len(p.RetryLadder)
	}
	return p.RetryLadder[failures-1]
}

// StateOf classifies an entry at the given instant
func (p DegradePolicy) StateOf(e *Entry, now time.Time) State {
	if e == nil {
		return StateExpired
	}
	if e.FailureCount > 0 {
		if !e.FirstFailureAt.IsZero() && now.Sub(e.FirstFailureAt) >= p.SalesDisableAfter {
			return StateSalesDisabled
		}
		return StateStaleRetry
	}
	if now.Sub(e.FetchedAt) < p.BaseTTL {
		return StateFresh
	}
	return StateExpired
}

// RefreshDue reports whether a background refresh should be attempted for the
// entry at the given instant.
func (p DegradePolicy) RefreshDue(e *Entry, now time.Time) bool {
	switch p.StateOf(e, now) {
	case StateFresh:
		return false
	case StateExpired:
		return true
	default:
		// failing: honor the backoff ladder
		return !now.Before(e.NextRetryAt)
	}
}

// RecordSuccess resets an entry to FRESH with the new snapshot
func (e *Entry) RecordSuccess(snap *Snapshot, now time.Time) {
	e.Modules = snap.Modules
	e.Plan = snap.Plan
	e.FetchedAt = now
	e.FailureCount = 0
	e.FirstFailureAt = time.Time{}
	e.NextRetryAt = time.Time{}
}

// RecordFailure advances the entry one rung on the backoff ladder. The first
// failure of a streak anchors FirstFailureAt, which the sales breaker keys off.
func (e *Entry) RecordFailure(p DegradePolicy, now time.Time) {
	e.FailureCount++
	if e.FirstFailureAt.IsZero() {
		e.FirstFailureAt = now
	}
	e.NextRetryAt = now.Add(p.RetryInterval(e.FailureCount))
}
