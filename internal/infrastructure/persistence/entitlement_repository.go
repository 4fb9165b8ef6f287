package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/varejo/backend/internal/domain/entitlement"
	"github.com/varejo/backend/internal/domain/shared"
	"github.com/varejo/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormEntitlementRepository implements entitlement.Repository using GORM.
// It is the system-of-record the entitlement cache hydrates from, so every
// read here is a cold-path round trip.
type GormEntitlementRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ entitlement.Repository = (*GormEntitlementRepository)(nil)

// NewGormEntitlementRepository creates a new GormEntitlementRepository
func NewGormEntitlementRepository(db *gorm.DB) *GormEntitlementRepository {
	return &GormEntitlementRepository{db: db, now: time.Now}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormEntitlementRepository) WithTx(tx *gorm.DB) *GormEntitlementRepository {
	return &GormEntitlementRepository{db: tx, now: r.now}
}

// FetchSnapshot loads the tenant's active module codes and plan in one pass.
// Plan-bundled modules and explicit tenant activations are merged; a tenant
// module row with active=false removes the code even when the plan bundles it.
func (r *GormEntitlementRepository) FetchSnapshot(ctx context.Context, tenantID string) (*entitlement.Snapshot, error) {
	planCode, err := r.activePlanCode(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	snapshot := &entitlement.Snapshot{}
	codes := make(map[string]bool)

	if planCode != "" {
		var planModel models.PlanModel
		err := r.db.WithContext(ctx).
			Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
			Where("code = ?", planCode).
			First(&planModel).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// contracted plan no longer exists; treat as no plan rather than
			// failing the whole snapshot
		case err != nil:
			return nil, fmt.Errorf("fetch plan %s: %w", planCode, err)
		default:
			plan := planModel.ToDomain()
			snapshot.Plan = &entitlement.PlanSnapshot{
				Code:    plan.Code,
				Modules: plan.Modules,
				Limits:  plan.Limits,
			}
			for _, code := range plan.Modules {
				codes[code] = true
			}
		}
	}

	var tenantModules []models.TenantModuleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&tenantModules).Error; err != nil {
		return nil, fmt.Errorf("fetch tenant modules for %s: %w", tenantID, err)
	}
	for _, tm := range tenantModules {
		codes[tm.ModuleCode] = tm.Active
	}

	for code, active := range codes {
		if active {
			snapshot.Modules = append(snapshot.Modules, code)
		}
	}
	sort.Strings(snapshot.Modules)
	return snapshot, nil
}

// activePlanCode resolves the plan in effect for the tenant: the contract
// whose validity window covers now, falling back to the plan code stamped on
// the tenant row.
func (r *GormEntitlementRepository) activePlanCode(ctx context.Context, tenantID string) (string, error) {
	now := r.now()

	var contract models.TenantPlanModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND valid_from <= ? AND (valid_until IS NULL OR valid_until > ?)", tenantID, now, now).
		Order("valid_from DESC").
		First(&contract).Error
	if err == nil {
		return contract.PlanCode, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("fetch plan contract for %s: %w", tenantID, err)
	}

	var t models.TenantModel
	err = r.db.WithContext(ctx).Where("id = ?", tenantID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: tenant %s", shared.ErrNotFound, tenantID)
	}
	if err != nil {
		return "", fmt.Errorf("fetch tenant %s: %w", tenantID, err)
	}
	return t.PlanCode, nil
}

// FindModule returns a module by code
func (r *GormEntitlementRepository) FindModule(ctx context.Context, code string) (*entitlement.Module, error) {
	var model models.ModuleModel
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find module %s: %w", code, err)
	}
	return model.ToDomain(), nil
}

// SetModuleActive transitions the (tenant, module) association. The row is
// upserted so a first-ever activation and a re-activation follow the same
// path; changed=false means the association was already in the requested
// state.
func (r *GormEntitlementRepository) SetModuleActive(ctx context.Context, tenantID, moduleCode string, active bool, reason string) (bool, error) {
	now := r.now()
	changed := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.TenantModuleModel
		err := tx.Where("tenant_id = ? AND module_code = ?", tenantID, moduleCode).
			First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			if !active {
				return nil
			}
			changed = true
			return tx.Create(&models.TenantModuleModel{
				TenantID:    tenantID,
				ModuleCode:  moduleCode,
				Active:      true,
				ActivatedAt: &now,
				Reason:      reason,
			}).Error
		}
		if err != nil {
			return fmt.Errorf("fetch tenant module %s/%s: %w", tenantID, moduleCode, err)
		}

		if existing.Active == active {
			return nil
		}
		changed = true

		updates := map[string]any{
			"active": active,
			"reason": reason,
		}
		if active {
			updates["activated_at"] = now
		} else {
			updates["deactivated_at"] = now
		}
		return tx.Model(&models.TenantModuleModel{}).
			Where("tenant_id = ? AND module_code = ?", tenantID, moduleCode).
			Updates(updates).Error
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// ListModules returns all known modules ordered by code
func (r *GormEntitlementRepository) ListModules(ctx context.Context) ([]entitlement.Module, error) {
	var rows []models.ModuleModel
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	modules := make([]entitlement.Module, len(rows))
	for i := range rows {
		modules[i] = *rows[i].ToDomain()
	}
	return modules, nil
}
