package vertical

import (
	"context"
	"time"
)

// Activation records that a vertical is active for a tenant, along with the
// configuration it was activated with.
type Activation struct {
	TenantID      string
	VerticalName  string
	Active        bool
	Config        PropertyBag
	ActivatedAt   time.Time
	DeactivatedAt *time.Time
}

// Record is a generic tenant-scoped entity extended with vertical properties:
// a type tag, a schema-versioned property bag, a configuration bag and an
// active-for-vertical flag.
type Record struct {
	ID            string
	TenantID      string
	EntityType    string // e.g. "product", "sale"
	VerticalType  string // e.g. "PADARIA"
	SchemaVersion string
	Properties    PropertyBag
	Config        PropertyBag
	Active        bool
}

// ActivationRepository persists the per-tenant active-vertical set.
// Activation is a single atomic state mutation.
type ActivationRepository interface {
	// ListActive returns the verticals currently active for a tenant
	ListActive(ctx context.Context, tenantID string) ([]Activation, error)

	// IsActive reports whether the named vertical is active for the tenant
	IsActive(ctx context.Context, tenantID, verticalName string) (bool, error)

	// Activate marks the vertical active for the tenant with the given
	// configuration, atomically. Fails when already active.
	Activate(ctx context.Context, activation Activation) error

	// Deactivate marks the vertical inactive. Returns changed=false when it
	// was not active.
	Deactivate(ctx context.Context, tenantID, verticalName string) (bool, error)
}

// RecordRepository persists vertical entities
type RecordRepository interface {
	// ListByVersion returns all records of a vertical type bearing the given
	// schema version. System-level operation used by schema migration.
	ListByVersion(ctx context.Context, verticalType, schemaVersion string) ([]Record, error)

	// FindByID returns a record by ID
	FindByID(ctx context.Context, id string) (*Record, error)

	// Save persists a record
	Save(ctx context.Context, record *Record) error
}
