package entitlement

import "context"

// Snapshot is the result of one system-of-record fetch for a tenant: the set
// of active module codes plus the active plan projection.
type Snapshot struct {
	Modules []string
	Plan    *PlanSnapshot
}

// HasModule reports whether the snapshot contains the module code
func (s *Snapshot) HasModule(code string) bool {
	if s == nil {
		return false
	}
	for _, m := range s.Modules {
		if m == code {
			return true
		}
	}
	return false
}

// Repository is the system-of-record for modules, plans and their tenant
// associations. It is the only write path for activation state.
type Repository interface {
	// FetchSnapshot loads the active module codes and active plan for a tenant
	// in a single round trip. Module codes bundled by the active plan and
	// per-tenant activations are merged; deactivated tenant modules are
	// excluded even when the plan bundles them.
	FetchSnapshot(ctx context.Context, tenantID string) (*Snapshot, error)

	// FindModule returns a module by code
	FindModule(ctx context.Context, code string) (*Module, error)

	// SetModuleActive transitions the (tenant, module) association to the
	// requested state, stamping timestamps and reason. Returns changed=false
	// when the association was already in the requested state.
	SetModuleActive(ctx context.Context, tenantID, moduleCode string, active bool, reason string) (changed bool, err error)

	// ListModules returns all known modules
	ListModules(ctx context.Context) ([]Module, error)
}
