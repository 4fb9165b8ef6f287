// Package entitlement implements the module/plan validation service: the
// store-aside entitlement cache with graduated degradation and the sales
// circuit breaker.
package entitlement

import (
	"context"
	"sync"
	"time"

	"github.com/varejo/backend/internal/domain/entitlement"
	"github.com/varejo/backend/internal/domain/shared"
	"github.com/varejo/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Service answers module and plan entitlement questions for tenants.
//
// Reads are served from the shared cache whenever any entry exists, even a
// stale one; only a true cold miss blocks the caller on a synchronous fetch.
// Refreshes are deduplicated per tenant, and an explicit invalidation (from
// Activate/Deactivate) always wins over an in-flight refresh that started
// before it.
type Service struct {
	repo   entitlement.Repository
	cache  entitlement.EntryCache
	policy entitlement.DegradePolicy
	logger *zap.Logger
	now    func() time.Time

	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64 // per-tenant invalidation generation
}

// ServiceOption is a functional option for configuring the service
type ServiceOption func(*Service)

// WithDegradePolicy overrides the default degradation policy
func WithDegradePolicy(policy entitlement.DegradePolicy) ServiceOption {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithLogger sets the service logger
func WithLogger(log *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = log
	}
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a module validation service
func NewService(repo entitlement.Repository, cache entitlement.EntryCache, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		cache:  cache,
		policy: entitlement.DefaultDegradePolicy(),
		logger: zap.NewNop(),
		now:    time.Now,
		gens:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the degradation policy in effect
func (s *Service) Policy() entitlement.DegradePolicy {
	return s.policy
}

// HasActiveModule reports whether the tenant has the module active.
//
// A cached entry is always answered from, triggering a background refresh when
// due; a cold miss blocks on a synchronous fetch and fails closed when that
// fetch fails.
func (s *Service) HasActiveModule(ctx context.Context, tenantID, moduleCode string) (bool, error) {
	entry, err := s.loadEntry(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return entry.Snapshot().HasModule(moduleCode), nil
}

// Entitlements returns the tenant's current module set and plan snapshot,
// following the same cache semantics as HasActiveModule.
func (s *Service) Entitlements(ctx context.Context, tenantID string) (*entitlement.Snapshot, error) {
	entry, err := s.loadEntry(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return entry.Snapshot(), nil
}

// ValidateCanSell is the sales circuit breaker. It returns false once
// entitlement refreshes have failed continuously for the configured threshold,
// regardless of the last known-good value; otherwise it answers from the
// module set like any other check.
func (s *Service) ValidateCanSell(ctx context.Context, tenantID string) (bool, error) {
	entry, err := s.loadEntry(ctx, tenantID)
	if err != nil {
		// no data was ever fetched: sales fail closed
		return false, nil
	}

	if s.policy.StateOf(entry, s.now()) == entitlement.StateSalesDisabled {
		logger.L(ctx).Warn("Sales disabled by entitlement circuit breaker",
			zap.String("tenant_id", tenantID),
			zap.Time("first_failure_at", entry.FirstFailureAt),
			zap.Int("failure_count", entry.FailureCount))
		return false, nil
	}

	return entry.Snapshot().HasModule(entitlement.ModuleSales), nil
}

// ActivateModule writes the activation through to the system of record and
// invalidates the tenant's cache entry so the next read fetches fresh data.
// Returns changed=false when the module was already active.
func (s *Service) ActivateModule(ctx context.Context, tenantID, moduleCode, reason string) (bool, error) {
	module, err := s.repo.FindModule(ctx, moduleCode)
	if err != nil {
		return false, err
	}
	if module == nil {
		return false, shared.ErrNotFound
	}

	changed, err := s.repo.SetModuleActive(ctx, tenantID, moduleCode, true, reason)
	if err != nil {
		return false, err
	}

	s.invalidate(ctx, tenantID)
	logger.L(ctx).Info("Module activated",
		zap.String("tenant_id", tenantID),
		zap.String("module", moduleCode),
		zap.Bool("changed", changed))
	return changed, nil
}

// DeactivateModule writes the deactivation through to the system of record and
// invalidates the tenant's cache entry. Deactivating an already inactive
// module is a no-op (changed=false), not an error. Essential modules cannot be
// deactivated.
func (s *Service) DeactivateModule(ctx context.Context, tenantID, moduleCode, reason string) (bool, error) {
	module, err := s.repo.FindModule(ctx, moduleCode)
	if err != nil {
		return false, err
	}
	if module == nil {
		return false, shared.ErrNotFound
	}
	if module.Essential {
		return false, shared.ErrInvalidInput
	}

	changed, err := s.repo.SetModuleActive(ctx, tenantID, moduleCode, false, reason)
	if err != nil {
		return false, err
	}

	s.invalidate(ctx, tenantID)
	logger.L(ctx).Info("Module deactivated",
		zap.String("tenant_id", tenantID),
		zap.String("module", moduleCode),
		zap.Bool("changed", changed))
	return changed, nil
}

// CheckPlanLimit verifies that the given usage fits the tenant's plan limit
// for a resource. Resources the plan does not constrain always pass.
func (s *Service) CheckPlanLimit(ctx context.Context, tenantID, resource string, usage int64) error {
	entry, err := s.loadEntry(ctx, tenantID)
	if err != nil {
		return err
	}

	limit, ok := entry.Plan.Limit(resource)
	if !ok {
		return nil
	}
	if usage >= limit {
		return &entitlement.PlanLimitError{
			TenantID: tenantID,
			Resource: resource,
			Limit:    limit,
			Usage:    usage,
		}
	}
	return nil
}

// RefreshTenant performs a synchronous, per-tenant deduplicated refresh from
// the system of record. Concurrent callers share one in-flight fetch.
func (s *Service) RefreshTenant(ctx context.Context, tenantID string) error {
	_, err := s.fetchShared(ctx, tenantID)
	return err
}

// ListModules returns the catalog of known modules
func (s *Service) ListModules(ctx context.Context) ([]entitlement.Module, error) {
	return s.repo.ListModules(ctx)
}

// TenantStatus is the observable entitlement state of a tenant
type TenantStatus struct {
	TenantID     string                    `json:"tenant_id"`
	State        entitlement.State         `json:"state"`
	Modules      []string                  `json:"modules"`
	Plan         *entitlement.PlanSnapshot `json:"plan,omitempty"`
	FetchedAt    time.Time                 `json:"fetched_at"`
	FailureCount int                       `json:"failure_count,omitempty"`
	NextRetryAt  *time.Time                `json:"next_retry_at,omitempty"`
}

// Status reports the tenant's entitlements together with the cache entry's
// degradation state
func (s *Service) Status(ctx context.Context, tenantID string) (*TenantStatus, error) {
	entry, err := s.loadEntry(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	snap := entry.Snapshot()
	status := &TenantStatus{
		TenantID:     tenantID,
		State:        s.policy.StateOf(entry, s.now()),
		Modules:      snap.Modules,
		Plan:         snap.Plan,
		FetchedAt:    entry.FetchedAt,
		FailureCount: entry.FailureCount,
	}
	if !entry.NextRetryAt.IsZero() {
		t := entry.NextRetryAt
		status.NextRetryAt = &t
	}
	return status, nil
}

// loadEntry returns the tenant's cache entry, fetching synchronously on a cold
// miss and scheduling a background refresh when the entry is due one.
func (s *Service) loadEntry(ctx context.Context, tenantID string) (*entitlement.Entry, error) {
	entry, err := s.cache.Get(ctx, tenantID)
	if err != nil {
		// shared store unreachable: fall through to a direct fetch
		logger.L(ctx).Warn("Entitlement cache read failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		entry = nil
	}

	if entry == nil {
		return s.fetchShared(ctx, tenantID)
	}

	if s.policy.RefreshDue(entry, s.now()) {
		s.refreshAsync(ctx, tenantID)
	}
	return entry, nil
}

// refreshAsync triggers a non-blocking refresh. The triggering request keeps
// the value it already has; singleflight collapses concurrent triggers.
func (s *Service) refreshAsync(ctx context.Context, tenantID string) {
	bg := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.fetchShared(bg, tenantID); err != nil {
			s.logger.Warn("Background entitlement refresh failed",
				zap.String("tenant_id", tenantID),
				zap.Error(err))
		}
	}()
}

// fetchShared deduplicates fetches per tenant: at most one outstanding fetch,
// concurrent callers await its result.
func (s *Service) fetchShared(ctx context.Context, tenantID string) (*entitlement.Entry, error) {
	v, err, _ := s.group.Do(tenantID, func() (any, error) {
		return s.fetchAndStore(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*entitlement.Entry), nil
}

// fetchAndStore fetches the snapshot from the system of record and records the
// outcome on the cached entry. The generation captured before the fetch makes
// invalidation win: if Activate/Deactivate invalidated the tenant while the
// fetch was in flight, the (possibly stale) result is discarded.
func (s *Service) fetchAndStore(ctx context.Context, tenantID string) (*entitlement.Entry, error) {
	gen := s.generation(tenantID)

	snap, fetchErr := s.repo.FetchSnapshot(ctx, tenantID)
	now := s.now()

	entry, err := s.cache.Get(ctx, tenantID)
	if err != nil || entry == nil {
		entry = &entitlement.Entry{TenantID: tenantID}
	}

	if fetchErr != nil {
		entry.RecordFailure(s.policy, now)
		if s.generation(tenantID) == gen {
			if putErr := s.cache.Put(ctx, entry); putErr != nil {
				s.logger.Warn("Failed to record entitlement fetch failure",
					zap.String("tenant_id", tenantID),
					zap.Error(putErr))
			}
		}
		s.logger.Warn("Entitlement fetch failed",
			zap.String("tenant_id", tenantID),
			zap.Int("failure_count", entry.FailureCount),
			zap.Time("next_retry_at", entry.NextRetryAt),
			zap.Error(fetchErr))
		return nil, &entitlement.FetchError{TenantID: tenantID, Err: fetchErr}
	}

	entry.RecordSuccess(snap, now)
	if s.generation(tenantID) == gen {
		if err := s.cache.Put(ctx, entry); err != nil {
			s.logger.Warn("Failed to store entitlement entry",
				zap.String("tenant_id", tenantID),
				zap.Error(err))
		}
	} else {
		s.logger.Debug("Discarding entitlement refresh superseded by invalidation",
			zap.String("tenant_id", tenantID))
	}
	return entry, nil
}

// invalidate bumps the tenant's generation, then removes the cached entry.
// Bumping first guarantees any refresh that started earlier cannot write back.
func (s *Service) invalidate(ctx context.Context, tenantID string) {
	s.mu.Lock()
	s.gens[tenantID]++
	s.mu.Unlock()

	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		logger.L(ctx).Warn("Failed to invalidate entitlement entry",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
	}
}

func (s *Service) generation(tenantID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[tenantID]
}
