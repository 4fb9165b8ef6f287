package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "varejo:farmacia-centro:entitlement", Key("farmacia-centro", KindEntry))
	assert.Equal(t, "varejo:loja1:active-modules", Key("loja1", KindActiveModules))
	assert.Equal(t, "varejo:loja1:active-plan", Key("loja1", KindActivePlan))
}

func TestRetryInterval(t *testing.T) {
	p := DefaultDegradePolicy()

	tests := []struct {
		failures int
		expected time.Duration
	}{
		{failures: 1, expected: 5 * time.Minute},
		{failures: 2, expected: 7 * time.Minute},
		{failures: 3, expected: 10 * time.Minute},
		{failures: 4, expected: 12 * time.Minute},
		{failures: 5, expected: 15 * time.Minute},
		{failures: 6, expected: 20 * time.Minute},
		{failures: 7, expected: 30 * time.Minute},
		// past the ladder the last rung repeats
		{failures: 8, expected: 30 * time.Minute},
		{failures: 100, expected: 30 * time.Minute},
		// defensive clamp for zero and negative counts
		{failures: 0, expected: 5 * time.Minute},
		{failures: -1, expected: 5 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, p.RetryInterval(tt.failures), "failures=%d", tt.failures)
	}

	empty := DegradePolicy{BaseTTL: time.Minute}
	assert.Equal(t, time.Minute, empty.RetryInterval(3))
}

func TestStateOf(t *testing.T) {
	p := DefaultDegradePolicy()
	base := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)

	t.Run("nil entry is expired", func(t *testing.T) {
		assert.Equal(t, StateExpired, p.StateOf(nil, base))
	})

	t.Run("fresh within base ttl", func(t *testing.T) {
		e := &Entry{FetchedAt: base}
		assert.Equal(t, StateFresh, p.StateOf(e, base.Add(119*time.Second)))
	})

	t.Run("expired past base ttl", func(t *testing.T) {
		e := &Entry{FetchedAt: base}
		assert.Equal(t, StateExpired, p.StateOf(e, base.Add(2*time.Minute)))
	})

	t.Run("stale-retry while failing", func(t *testing.T) {
		e := &Entry{FetchedAt: base, FailureCount: 3, FirstFailureAt: base.Add(2 * time.Minute)}
		assert.Equal(t, StateStaleRetry, p.StateOf(e, base.Add(20*time.Minute)))
	})

	t.Run("sales disabled after threshold of uninterrupted failure", func(t *testing.T) {
		firstFailure := base.Add(2 * time.Minute)
		e := &Entry{FetchedAt: base, FailureCount: 6, FirstFailureAt: firstFailure}

		assert.Equal(t, StateStaleRetry, p.StateOf(e, firstFailure.Add(29*time.Minute)))
		assert.Equal(t, StateSalesDisabled, p.StateOf(e, firstFailure.Add(30*time.Minute)))
		assert.Equal(t, StateSalesDisabled, p.StateOf(e, firstFailure.Add(2*time.Hour)))
	})
}

func TestRefreshDue(t *testing.T) {
	p := DefaultDegradePolicy()
	base := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)

	fresh := &Entry{FetchedAt: base}
	assert.False(t, p.RefreshDue(fresh, base.Add(time.Minute)))
	assert.True(t, p.RefreshDue(fresh, base.Add(3*time.Minute)))

	failing := &Entry{
		FetchedAt:      base,
		FailureCount:   1,
		FirstFailureAt: base.Add(2 * time.Minute),
		NextRetryAt:    base.Add(7 * time.Minute),
	}
	assert.False(t, p.RefreshDue(failing, base.Add(5*time.Minute)))
	assert.True(t, p.RefreshDue(failing, base.Add(7*time.Minute)))
}

// TestDegradationTimeline walks the documented incident timeline: a success at
// minute 0, the system of record going dark at minute 2, and retries escalating
// until sales are disabled at minute 32.
func TestDegradationTimeline(t *testing.T) {
	p := DefaultDegradePolicy()
	start := time.Date(2025, 8, 10, 9, 0, 0, 0, time.UTC)

	e := &Entry{TenantID: "farmacia-centro"}
	e.RecordSuccess(&Snapshot{Modules: []string{ModuleSales, ModuleProducts}}, start)
	assert.Equal(t, StateFresh, p.StateOf(e, start))

	// minute 2: ttl elapsed, refresh attempt fails
	now := start.Add(2 * time.Minute)
	require.True(t, p.RefreshDue(e, now))
	e.RecordFailure(p, now)
	assert.Equal(t, 1, e.FailureCount)
	assert.Equal(t, now, e.FirstFailureAt)
	assert.Equal(t, now.Add(5*time.Minute), e.NextRetryAt)
	assert.Equal(t, StateStaleRetry, p.StateOf(e, now))

	// retries follow the ladder: 5, then 7, then 10 minutes apart
	now = e.NextRetryAt
	require.True(t, p.RefreshDue(e, now))
	e.RecordFailure(p, now)
	assert.Equal(t, now.Add(7*time.Minute), e.NextRetryAt)

	now = e.NextRetryAt
	e.RecordFailure(p, now)
	assert.Equal(t, now.Add(10*time.Minute), e.NextRetryAt)

	// first failure was at minute 2; the breaker trips at minute 32
	assert.Equal(t, StateStaleRetry, p.StateOf(e, start.Add(31*time.Minute)))
	assert.Equal(t, StateSalesDisabled, p.StateOf(e, start.Add(32*time.Minute)))

	// one success resets the whole streak
	now = start.Add(40 * time.Minute)
	e.RecordSuccess(&Snapshot{Modules: []string{ModuleSales}}, now)
	assert.Equal(t, StateFresh, p.StateOf(e, now))
	assert.Zero(t, e.FailureCount)
	assert.True(t, e.FirstFailureAt.IsZero())
	assert.True(t, e.NextRetryAt.IsZero())
}

func TestSnapshotHasModule(t *testing.T) {
	snap := &Snapshot{Modules: []string{ModuleSales, ModuleProducts}}
	assert.True(t, snap.HasModule(ModuleSales))
	assert.False(t, snap.HasModule(ModuleStock))

	var nilSnap *Snapshot
	assert.False(t, nilSnap.HasModule(ModuleSales))
}

func TestPlanSnapshotLimit(t *testing.T) {
	plan := &PlanSnapshot{Code: "STARTER", Limits: map[string]int64{LimitMaxUsers: 3}}

	limit, ok := plan.Limit(LimitMaxUsers)
	assert.True(t, ok)
	assert.Equal(t, int64(3), limit)

	_, ok = plan.Limit(LimitMaxProducts)
	assert.False(t, ok)

	var nilPlan *PlanSnapshot
	_, ok = nilPlan.Limit(LimitMaxUsers)
	assert.False(t, ok)
}

func TestTenantPlanActiveAt(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 1, 0)

	windowed := &TenantPlan{ValidFrom: from, ValidUntil: &until}
	assert.False(t, windowed.ActiveAt(from.Add(-time.Second)))
	assert.True(t, windowed.ActiveAt(from))
	assert.True(t, windowed.ActiveAt(until.Add(-time.Second)))
	assert.False(t, windowed.ActiveAt(until))

	openEnded := &TenantPlan{ValidFrom: from}
	assert.True(t, openEnded.ActiveAt(from.AddDate(10, 0, 0)))
}
