// Package models holds the GORM persistence models for the entitlement and
// vertical tables, with converters to and from the domain types.
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/varejo/backend/internal/domain/entitlement"
	"github.com/varejo/backend/internal/domain/tenant"
)

// TenantModel persists tenants
type TenantModel struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	Name      string `gorm:"size:255;not null"`
	Active    bool   `gorm:"not null;default:true"`
	PlanCode  string `gorm:"size:64;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name
func (TenantModel) TableName() string { return "tenants" }

// ToDomain converts the model to the domain tenant
func (m *TenantModel) ToDomain() *tenant.Tenant {
	return &tenant.Tenant{
		ID:        m.ID,
		Name:      m.Name,
		Active:    m.Active,
		PlanCode:  m.PlanCode,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// TenantModelFromDomain converts a domain tenant to the persistence model
func TenantModelFromDomain(t *tenant.Tenant) *TenantModel {
	return &TenantModel{
		ID:       t.ID,
		Name:     t.Name,
		Active:   t.Active,
		PlanCode: t.PlanCode,
	}
}

// ModuleModel persists commercial modules
type ModuleModel struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	Code      string `gorm:"size:64;uniqueIndex;not null"`
	Name      string `gorm:"size:255;not null"`
	Category  string `gorm:"size:64;index"`
	Essential bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name
func (ModuleModel) TableName() string { return "modules" }

// ToDomain converts the model to the domain module
func (m *ModuleModel) ToDomain() *entitlement.Module {
	return &entitlement.Module{
		ID:        m.ID,
		Code:      m.Code,
		Name:      m.Name,
		Category:  m.Category,
		Essential: m.Essential,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// PlanModel persists commercial plans
type PlanModel struct {
	ID           string          `gorm:"type:varchar(64);primaryKey"`
	Code         string          `gorm:"size:64;uniqueIndex;not null"`
	Name         string          `gorm:"size:255;not null"`
	MaxUsers     int64           `gorm:"not null;default:0"`
	MaxProducts  int64           `gorm:"not null;default:0"`
	MonthlyPrice decimal.Decimal `gorm:"type:numeric(12,2)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Modules []PlanModuleModel `gorm:"foreignKey:PlanID"`
}

// TableName returns the table name
func (PlanModel) TableName() string { return "plans" }

// ToDomain converts the model to the domain plan
func (m *PlanModel) ToDomain() *entitlement.Plan {
	codes := make([]string, len(m.Modules))
	for i, pm := range m.Modules {
		codes[i] = pm.ModuleCode
	}
	limits := map[string]int64{}
	if m.MaxUsers > 0 {
		limits[entitlement.LimitMaxUsers] = m.MaxUsers
	}
	if m.MaxProducts > 0 {
		limits[entitlement.LimitMaxProducts] = m.MaxProducts
	}
	return &entitlement.Plan{
		ID:           m.ID,
		Code:         m.Code,
		Name:         m.Name,
		Modules:      codes,
		Limits:       limits,
		MonthlyPrice: m.MonthlyPrice,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// PlanModuleModel is the ordered plan to module association
type PlanModuleModel struct {
	PlanID     string `gorm:"type:varchar(64);primaryKey"`
	ModuleCode string `gorm:"size:64;primaryKey"`
	Position   int    `gorm:"not null;default:0"`
}

// TableName returns the table name
func (PlanModuleModel) TableName() string { return "plan_modules" }

// TenantModuleModel persists per-tenant module activation state. At most one
// row exists per (tenant, module); history is preserved by status
// transitions, not row deletion.
type TenantModuleModel struct {
	TenantID      string `gorm:"type:varchar(64);primaryKey"`
	ModuleCode    string `gorm:"size:64;primaryKey"`
	Active        bool   `gorm:"not null;default:false"`
	ActivatedAt   *time.Time
	DeactivatedAt *time.Time
	Reason        string `gorm:"size:255"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name
func (TenantModuleModel) TableName() string { return "tenant_modules" }

// ToDomain converts the model to the domain association
func (m *TenantModuleModel) ToDomain() *entitlement.TenantModule {
	return &entitlement.TenantModule{
		TenantID:      m.TenantID,
		ModuleCode:    m.ModuleCode,
		Active:        m.Active,
		ActivatedAt:   m.ActivatedAt,
		DeactivatedAt: m.DeactivatedAt,
		Reason:        m.Reason,
	}
}

// TenantPlanModel persists plan contracts per tenant. Expired contracts are
// retained for audit; overlapping active windows are forbidden.
type TenantPlanModel struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	TenantID   string `gorm:"type:varchar(64);index;not null"`
	PlanCode   string `gorm:"size:64;not null"`
	ValidFrom  time.Time
	ValidUntil *time.Time
	Trial      bool `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name
func (TenantPlanModel) TableName() string { return "tenant_plans" }

// ToDomain converts the model to the domain contract
func (m *TenantPlanModel) ToDomain() *entitlement.TenantPlan {
	return &entitlement.TenantPlan{
		TenantID:   m.TenantID,
		PlanCode:   m.PlanCode,
		ValidFrom:  m.ValidFrom,
		ValidUntil: m.ValidUntil,
		Trial:      m.Trial,
	}
}

// TenantVerticalModel persists the per-tenant active-vertical set
type TenantVerticalModel struct {
	TenantID      string `gorm:"type:varchar(64);primaryKey"`
	VerticalName  string `gorm:"size:64;primaryKey"`
	Active        bool   `gorm:"not null;default:false"`
	Config        string `gorm:"type:text"` // JSON property bag
	ActivatedAt   time.Time
	DeactivatedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name
func (TenantVerticalModel) TableName() string { return "tenant_verticals" }

// VerticalRecordModel persists generic vertical entities: a tenant-scoped
// record extended with a vertical type tag and schema-versioned bags
type VerticalRecordModel struct {
	ID            string `gorm:"type:varchar(64);primaryKey"`
	TenantID      string `gorm:"type:varchar(64);not null;index"`
	EntityType    string `gorm:"size:64;not null;index"`
	VerticalType  string `gorm:"size:64;not null;index:idx_vertical_records_type_version"`
	SchemaVersion string `gorm:"size:32;not null;index:idx_vertical_records_type_version"`
	Properties    string `gorm:"type:text"` // JSON property bag
	Config        string `gorm:"type:text"` // JSON configuration bag
	Active        bool   `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name
func (VerticalRecordModel) TableName() string { return "vertical_records" }

// AllModels returns every model for auto-migration in tests and tooling
func AllModels() []any {
	return []any{
		&TenantModel{},
		&ModuleModel{},
		&PlanModel{},
		&PlanModuleModel{},
		&TenantModuleModel{},
		&TenantPlanModel{},
		&TenantVerticalModel{},
		&VerticalRecordModel{},
	}
}
