// Package tenant enforces multi-tenant isolation at the persistence layer.
//
// Every query against tenant-scoped tables is restricted to rows whose
// tenant_id equals the tenant resolved for the request; inserts are stamped
// with that tenant; updates that try to alter or forge the tenant column are
// rejected as consistency violations. A cross-tenant read therefore behaves
// exactly like "not found".
//
// Usage:
//
//	db := tenant.NewTenantDB(gormDB)
//	scopedDB := db.WithContext(ctx) // applies WHERE tenant_id = ?
//	scopedDB.Find(&products)
package tenant

import (
	"context"
	"fmt"

	"github.com/varejo/backend/internal/domain/shared"
	domaintenant "github.com/varejo/backend/internal/domain/tenant"
	"github.com/varejo/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

// ErrTenantRequired is returned when a tenant is required but not found in
// the request context
var ErrTenantRequired = fmt.Errorf("%w: tenant_id is required but not found in context", shared.ErrTenantNotIdentified)

// ErrInvalidTenantID is returned when the tenant identifier is not a
// normalized slug
var ErrInvalidTenantID = fmt.Errorf("%w: invalid tenant_id format", shared.ErrInvalidInput)

// ErrTenantMismatch is returned when a write carries a tenant identifier that
// differs from the resolved tenant. Never silently corrected.
var ErrTenantMismatch = fmt.Errorf("%w: record tenant differs from resolved tenant", shared.ErrConsistencyViolation)

// Scope applies tenant filtering to GORM queries
func Scope(tenantID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// TenantDB wraps GORM with automatic tenant scoping
type TenantDB struct {
	db           *gorm.DB
	tenantColumn string
	required     bool
}

// Config holds configuration for TenantDB
type Config struct {
	// TenantColumn is the name of the tenant ID column (default: "tenant_id")
	TenantColumn string
	// Required determines if a resolved tenant is mandatory (default: true)
	Required bool
}

// DefaultConfig returns default TenantDB configuration
func DefaultConfig() Config {
	return Config{
		TenantColumn: "tenant_id",
		Required:     true,
	}
}

// NewTenantDB creates a new TenantDB with default configuration
func NewTenantDB(db *gorm.DB) *TenantDB {
	return NewTenantDBWithConfig(db, DefaultConfig())
}

// NewTenantDBWithConfig creates a new TenantDB with custom configuration
func NewTenantDBWithConfig(db *gorm.DB, cfg Config) *TenantDB {
	if cfg.TenantColumn == "" {
		cfg.TenantColumn = "tenant_id"
	}
	return &TenantDB{
		db:           db,
		tenantColumn: cfg.TenantColumn,
		required:     cfg.Required,
	}
}

// WithContext returns a GORM DB scoped to the tenant resolved for the request.
// The tenant is read from the context (set by the tenant middleware) and an
// equality predicate on the tenant column is applied to every query.
//
// If no tenant is present and Required is true, the returned DB errors on any
// operation rather than running unscoped.
func (t *TenantDB) WithContext(ctx context.Context) *gorm.DB {
	tenantID := logger.GetTenantID(ctx)

	if tenantID == "" {
		db := t.db.WithContext(ctx)
		if t.required {
			_ = db.AddError(ErrTenantRequired)
		}
		return db
	}

	if tenantID != domaintenant.Normalize(tenantID) {
		db := t.db.WithContext(ctx)
		_ = db.AddError(ErrInvalidTenantID)
		return db
	}

	return t.db.WithContext(ctx).Scopes(Scope(tenantID))
}

// WithTenant returns a GORM DB scoped to a specific tenant identifier. Use
// this when the tenant is known directly rather than from context.
func (t *TenantDB) WithTenant(tenantID string) *gorm.DB {
	db := t.db.Session(&gorm.Session{})

	if tenantID == "" {
		if t.required {
			_ = db.AddError(ErrTenantRequired)
		}
		return db
	}

	if tenantID != domaintenant.Normalize(tenantID) {
		_ = db.AddError(ErrInvalidTenantID)
		return db
	}

	return db.Scopes(Scope(tenantID))
}

// Transaction executes a function within a database transaction with the
// tenant scope applied
func (t *TenantDB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tenantID := logger.GetTenantID(ctx)

	if tenantID == "" && t.required {
		return ErrTenantRequired
	}

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tenantID != "" {
			tx = tx.Scopes(Scope(tenantID))
		}
		return fn(tx)
	})
}

// Unscoped returns the underlying DB without any tenant scoping.
// Only for system-level operations and migrations.
func (t *TenantDB) Unscoped() *gorm.DB {
	return t.db
}
