// Package entitlement models commercial modules, plans and the per-tenant
// entitlement snapshot that gates paid functionality.
//
// The persistent store (module/plan tables) is the single source of truth.
// The cache layer in this package holds a derived, time-bounded copy and a
// degradation policy that decides how long that copy may be trusted.
package entitlement

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/varejo/backend/internal/domain/shared"
)

// Well-known module codes. The set of modules is data-driven; these constants
// exist for the codes the engine itself needs to reason about.
const (
	ModuleSales      = "SALES"
	ModuleProducts   = "PRODUCTS"
	ModuleStock      = "STOCK"
	ModulePromotions = "PROMOTIONS"
)

// Module is a named unit of paid functionality
type Module struct {
	ID        string
	Code      string // unique, upper-case, e.g. "SALES"
	Name      string
	Category  string
	Essential bool // essential modules cannot be deactivated
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks module invariants
func (m *Module) Validate() error {
	if m.Code == "" || m.Name == "" {
		return shared.ErrInvalidInput
	}
	return nil
}

// Plan is a named bundle of modules and usage limits contracted by a tenant
type Plan struct {
	ID           string
	Code         string // unique, e.g. "STARTER"
	Name         string
	Modules      []string // ordered list of included module codes
	Limits       map[string]int64
	MonthlyPrice decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Limit resource names understood by plan limit checks
const (
	LimitMaxUsers    = "max_users"
	LimitMaxProducts = "max_products"
)

// Includes reports whether the plan bundles the given module code
func (p *Plan) Includes(moduleCode string) bool {
	for _, code := range p.Modules {
		if code == moduleCode {
			return true
		}
	}
	return false
}

// TenantModule is the activation state of one module for one tenant.
// At most one row exists per (tenant, module); history is preserved through
// status transitions, never by deleting rows.
type TenantModule struct {
	TenantID      string
	ModuleCode    string
	Active        bool
	ActivatedAt   *time.Time
	DeactivatedAt *time.Time
	Reason        string
}

// TenantPlan is a plan contracted by a tenant for a validity window.
// At most one plan is active per tenant at any instant; expired plans are
// retained for audit.
type TenantPlan struct {
	TenantID   string
	PlanCode   string
	ValidFrom  time.Time
	ValidUntil *time.Time // nil = open-ended
	Trial      bool
}

// ActiveAt reports whether the plan window covers the given instant
func (tp *TenantPlan) ActiveAt(t time.Time) bool {
	if t.Before(tp.ValidFrom) {
		return false
	}
	return tp.ValidUntil == nil || t.Before(*tp.ValidUntil)
}

// PlanSnapshot is the cacheable projection of a tenant's active plan
type PlanSnapshot struct {
	Code       string           `json:"code"`
	Modules    []string         `json:"modules"`
	Limits     map[string]int64 `json:"limits"`
	Trial      bool             `json:"trial"`
	ValidUntil *time.Time       `json:"valid_until,omitempty"`
}

// Limit returns the configured limit for a resource, or (0, false) when the
// plan does not constrain it.
func (s *PlanSnapshot) Limit(resource string) (int64, bool) {
	if s == nil || s.Limits == nil {
		return 0, false
	}
	limit, ok := s.Limits[resource]
	return limit, ok
}
