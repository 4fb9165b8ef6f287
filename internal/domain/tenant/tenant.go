// Package tenant holds the tenant aggregate and the request-level tenant
// resolution rules. Resolution is a pure function of the request inputs so the
// HTTP middleware stays a thin adapter.
package tenant

import (
	"context"
	"time"

	"github.com/varejo/backend/internal/domain/shared"
)

// Tenant represents an isolated customer (store/pharmacy). The identifier is
// the normalized slug used in cache keys, subdomains and tenant_id columns.
type Tenant struct {
	ID        string
	Name      string
	Active    bool
	PlanCode  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks aggregate invariants
func (t *Tenant) Validate() error {
	if t.ID == "" || t.ID != Normalize(t.ID) {
		return shared.ErrInvalidInput
	}
	if t.Name == "" {
		return shared.ErrInvalidInput
	}
	return nil
}

// Repository defines persistence operations for tenants
type Repository interface {
	FindByID(ctx context.Context, id string) (*Tenant, error)
	Save(ctx context.Context, t *Tenant) error
}
