package persistence

import (
	"context"
	"errors"
	"fmt"

	domaintenant "github.com/varejo/backend/internal/domain/tenant"
	"github.com/varejo/backend/internal/domain/shared"
	"github.com/varejo/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTenantRepository implements tenant.Repository using GORM. Tenants are
// global rows, not tenant-scoped ones, so this repository uses the raw
// connection.
type GormTenantRepository struct {
	db *gorm.DB
}

var _ domaintenant.Repository = (*GormTenantRepository)(nil)

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID returns a tenant by its normalized slug
func (r *GormTenantRepository) FindByID(ctx context.Context, id string) (*domaintenant.Tenant, error) {
	var model models.TenantModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: tenant %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find tenant %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// Save persists a tenant, inserting or updating by slug
func (r *GormTenantRepository) Save(ctx context.Context, t *domaintenant.Tenant) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(models.TenantModelFromDomain(t)).Error; err != nil {
		return fmt.Errorf("save tenant %s: %w", t.ID, err)
	}
	return nil
}
