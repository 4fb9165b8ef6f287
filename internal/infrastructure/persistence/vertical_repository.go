package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/varejo/backend/internal/domain/shared"
	"github.com/varejo/backend/internal/domain/vertical"
	"github.com/varejo/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVerticalActivationRepository implements vertical.ActivationRepository
// using GORM
type GormVerticalActivationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ vertical.ActivationRepository = (*GormVerticalActivationRepository)(nil)

// NewGormVerticalActivationRepository creates a new activation repository
func NewGormVerticalActivationRepository(db *gorm.DB) *GormVerticalActivationRepository {
	return &GormVerticalActivationRepository{db: db, now: time.Now}
}

// ListActive returns the verticals currently active for a tenant
func (r *GormVerticalActivationRepository) ListActive(ctx context.Context, tenantID string) ([]vertical.Activation, error) {
	var rows []models.TenantVerticalModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("vertical_name ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list active verticals for %s: %w", tenantID, err)
	}

	activations := make([]vertical.Activation, 0, len(rows))
	for i := range rows {
		activation, err := activationFromModel(&rows[i])
		if err != nil {
			return nil, err
		}
		activations = append(activations, *activation)
	}
	return activations, nil
}

// IsActive reports whether the named vertical is active for the tenant
func (r *GormVerticalActivationRepository) IsActive(ctx context.Context, tenantID, verticalName string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TenantVerticalModel{}).
		Where("tenant_id = ? AND vertical_name = ? AND active = ?", tenantID, verticalName, true).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check vertical %s for %s: %w", verticalName, tenantID, err)
	}
	return count > 0, nil
}

// Activate marks the vertical active in a single upsert. The guard on
// active=false makes a concurrent double-activation lose with
// ErrAlreadyExists instead of silently overwriting configuration.
func (r *GormVerticalActivationRepository) Activate(ctx context.Context, activation vertical.Activation) error {
	encoded, err := activation.Config.Encode()
	if err != nil {
		return fmt.Errorf("encode vertical config: %w", err)
	}

	now := r.now()
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "vertical_name"}},
			Where:   clause.Where{Exprs: []clause.Expression{clause.Eq{Column: "tenant_verticals.active", Value: false}}},
			DoUpdates: clause.Assignments(map[string]any{
				"active":         true,
				"config":         string(encoded),
				"activated_at":   now,
				"deactivated_at": nil,
			}),
		}).
		Create(&models.TenantVerticalModel{
			TenantID:     activation.TenantID,
			VerticalName: activation.VerticalName,
			Active:       true,
			Config:       string(encoded),
			ActivatedAt:  now,
		})
	if result.Error != nil {
		return fmt.Errorf("activate vertical %s for %s: %w", activation.VerticalName, activation.TenantID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: vertical %s is already active", shared.ErrAlreadyExists, activation.VerticalName)
	}
	return nil
}

// Deactivate marks the vertical inactive, returning changed=false when it was
// not active
func (r *GormVerticalActivationRepository) Deactivate(ctx context.Context, tenantID, verticalName string) (bool, error) {
	now := r.now()
	result := r.db.WithContext(ctx).
		Model(&models.TenantVerticalModel{}).
		Where("tenant_id = ? AND vertical_name = ? AND active = ?", tenantID, verticalName, true).
		Updates(map[string]any{
			"active":         false,
			"deactivated_at": now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("deactivate vertical %s for %s: %w", verticalName, tenantID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func activationFromModel(m *models.TenantVerticalModel) (*vertical.Activation, error) {
	config, err := decodeBag(m.Config)
	if err != nil {
		return nil, fmt.Errorf("decode config for vertical %s: %w", m.VerticalName, err)
	}
	return &vertical.Activation{
		TenantID:      m.TenantID,
		VerticalName:  m.VerticalName,
		Active:        m.Active,
		Config:        config,
		ActivatedAt:   m.ActivatedAt,
		DeactivatedAt: m.DeactivatedAt,
	}, nil
}

// GormVerticalRecordRepository implements vertical.RecordRepository using GORM
type GormVerticalRecordRepository struct {
	db *gorm.DB
}

var _ vertical.RecordRepository = (*GormVerticalRecordRepository)(nil)

// NewGormVerticalRecordRepository creates a new record repository
func NewGormVerticalRecordRepository(db *gorm.DB) *GormVerticalRecordRepository {
	return &GormVerticalRecordRepository{db: db}
}

// ListByVersion returns all records of a vertical type bearing the given
// schema version. This is a system-level scan across tenants used by schema
// migration, so it deliberately does not go through the tenant-scoped
// connection.
func (r *GormVerticalRecordRepository) ListByVersion(ctx context.Context, verticalType, schemaVersion string) ([]vertical.Record, error) {
	var rows []models.VerticalRecordModel
	if err := r.db.WithContext(ctx).
		Where("vertical_type = ? AND schema_version = ?", verticalType, schemaVersion).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s records at version %s: %w", verticalType, schemaVersion, err)
	}

	records := make([]vertical.Record, 0, len(rows))
	for i := range rows {
		record, err := recordFromModel(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// FindByID returns a record by ID
func (r *GormVerticalRecordRepository) FindByID(ctx context.Context, id string) (*vertical.Record, error) {
	var row models.VerticalRecordModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: vertical record %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find vertical record %s: %w", id, err)
	}
	return recordFromModel(&row)
}

// Save persists a record, inserting or updating by primary key
func (r *GormVerticalRecordRepository) Save(ctx context.Context, record *vertical.Record) error {
	properties, err := record.Properties.Encode()
	if err != nil {
		return fmt.Errorf("encode record properties: %w", err)
	}
	config, err := record.Config.Encode()
	if err != nil {
		return fmt.Errorf("encode record config: %w", err)
	}

	model := &models.VerticalRecordModel{
		ID:            record.ID,
		TenantID:      record.TenantID,
		EntityType:    record.EntityType,
		VerticalType:  record.VerticalType,
		SchemaVersion: record.SchemaVersion,
		Properties:    string(properties),
		Config:        string(config),
		Active:        record.Active,
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("save vertical record %s: %w", record.ID, err)
	}
	return nil
}

func recordFromModel(m *models.VerticalRecordModel) (*vertical.Record, error) {
	properties, err := decodeBag(m.Properties)
	if err != nil {
		return nil, fmt.Errorf("decode properties of record %s: %w", m.ID, err)
	}
	config, err := decodeBag(m.Config)
	if err != nil {
		return nil, fmt.Errorf("decode config of record %s: %w", m.ID, err)
	}
	return &vertical.Record{
		ID:            m.ID,
		TenantID:      m.TenantID,
		EntityType:    m.EntityType,
		VerticalType:  m.VerticalType,
		SchemaVersion: m.SchemaVersion,
		Properties:    properties,
		Config:        config,
		Active:        m.Active,
	}, nil
}

func decodeBag(raw string) (vertical.PropertyBag, error) {
	if raw == "" {
		return vertical.PropertyBag{}, nil
	}
	return vertical.ParseBag([]byte(raw))
}
