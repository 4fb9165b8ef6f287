// Package vertical wires the vertical registry, the entitlement checks and
// the activation store into the tenant-facing vertical composition service.
package vertical

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/varejo/backend/internal/domain/entitlement"
	"github.com/varejo/backend/internal/domain/shared"
	"github.com/varejo/backend/internal/domain/vertical"
	"github.com/varejo/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ModuleChecker supplies the tenant's current entitlements. Implemented by
// the entitlement application service.
type ModuleChecker interface {
	Entitlements(ctx context.Context, tenantID string) (*entitlement.Snapshot, error)
}

// Status describes one vertical from a tenant's point of view
type Status struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	Active         bool     `json:"active"`
	CanActivate    bool     `json:"can_activate"`
	MissingModules []string `json:"missing_modules,omitempty"`
}

// Service manages per-tenant vertical activation and property validation
type Service struct {
	registry    *vertical.Registry
	migrator    *vertical.Migrator
	activations vertical.ActivationRepository
	records     vertical.RecordRepository
	modules     ModuleChecker
	logger      *zap.Logger
}

// NewService creates a vertical composition service
func NewService(
	registry *vertical.Registry,
	migrator *vertical.Migrator,
	activations vertical.ActivationRepository,
	records vertical.RecordRepository,
	modules ModuleChecker,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		registry:    registry,
		migrator:    migrator,
		activations: activations,
		records:     records,
		modules:     modules,
		logger:      log,
	}
}

// ListAvailable returns every registered vertical with the tenant's
// activation state and whether its module requirements are currently met.
func (s *Service) ListAvailable(ctx context.Context, tenantID string) ([]Status, error) {
	snap, err := s.modules.Entitlements(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	active, err := s.activations.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	activeSet := make(map[string]bool, len(active))
	for _, a := range active {
		activeSet[a.VerticalName] = true
	}

	defs := s.registry.List()
	statuses := make([]Status, 0, len(defs))
	for _, def := range defs {
		missing := def.MissingModules(snap.Modules)
		statuses = append(statuses, Status{
			Name:           def.Name,
			DisplayName:    def.DisplayName,
			Active:         activeSet[def.Name],
			CanActivate:    len(missing) == 0,
			MissingModules: missing,
		})
	}
	return statuses, nil
}

// ListActive returns the tenant's active verticals
func (s *Service) ListActive(ctx context.Context, tenantID string) ([]vertical.Activation, error) {
	return s.activations.ListActive(ctx, tenantID)
}

// CanActivate reports whether the tenant meets the vertical's module
// requirements, returning the missing codes when not.
func (s *Service) CanActivate(ctx context.Context, tenantID, verticalName string) (bool, []string, error) {
	def := s.registry.Get(verticalName)
	if def == nil {
		return false, nil, shared.ErrNotFound
	}

	snap, err := s.modules.Entitlements(ctx, tenantID)
	if err != nil {
		return false, nil, err
	}

	missing := def.MissingModules(snap.Modules)
	return len(missing) == 0, missing, nil
}

// Activate turns a vertical on for a tenant. It fails without partial effect
// when the vertical is unknown, already active, or the tenant lacks a
// required module; on success the active-vertical set gains the vertical in a
// single state mutation.
func (s *Service) Activate(ctx context.Context, tenantID, verticalName string, config vertical.PropertyBag) error {
	def := s.registry.Get(verticalName)
	if def == nil {
		return shared.ErrNotFound
	}

	active, err := s.activations.IsActive(ctx, tenantID, verticalName)
	if err != nil {
		return err
	}
	if active {
		return fmt.Errorf("%w: vertical %s is already active", shared.ErrAlreadyExists, verticalName)
	}

	snap, err := s.modules.Entitlements(ctx, tenantID)
	if err != nil {
		return err
	}
	if missing := def.MissingModules(snap.Modules); len(missing) > 0 {
		planCode := ""
		if snap.Plan != nil {
			planCode = snap.Plan.Code
		}
		return &entitlement.ModuleNotActiveError{
			TenantID: tenantID,
			Missing:  missing,
			PlanCode: planCode,
		}
	}

	merged := mergeConfig(def.DefaultConfig, config)
	if err := s.activations.Activate(ctx, vertical.Activation{
		TenantID:     tenantID,
		VerticalName: verticalName,
		Active:       true,
		Config:       merged,
	}); err != nil {
		return err
	}

	logger.L(ctx).Info("Vertical activated",
		zap.String("tenant_id", tenantID),
		zap.String("vertical", verticalName))
	return nil
}

// Deactivate turns a vertical off for a tenant. Deactivating an inactive
// vertical is a no-op (changed=false).
func (s *Service) Deactivate(ctx context.Context, tenantID, verticalName string) (bool, error) {
	if s.registry.Get(verticalName) == nil {
		return false, shared.ErrNotFound
	}

	changed, err := s.activations.Deactivate(ctx, tenantID, verticalName)
	if err != nil {
		return false, err
	}
	if changed {
		logger.L(ctx).Info("Vertical deactivated",
			zap.String("tenant_id", tenantID),
			zap.String("vertical", verticalName))
	}
	return changed, nil
}

// ValidateProperties validates a property bag against the vertical's schema.
// An empty schemaVersion means the vertical's current version. Ordinary
// violations come back in the result; only unknown verticals or versions are
// errors.
func (s *Service) ValidateProperties(ctx context.Context, verticalName, schemaVersion string, bag vertical.PropertyBag) (vertical.Result, error) {
	def := s.registry.Get(verticalName)
	if def == nil {
		return vertical.Result{}, shared.ErrNotFound
	}

	if schemaVersion == "" {
		schemaVersion = def.CurrentVersion
	}
	schema := def.Schema(schemaVersion)
	if schema == nil {
		return vertical.Result{}, fmt.Errorf("%w: vertical %s has no schema version %s", shared.ErrNotFound, verticalName, schemaVersion)
	}

	return schema.Validate(bag), nil
}

// MigrateSchema rewrites every record of the vertical bearing fromVersion to
// toVersion. Entities are migrated independently: one corrupt bag fails that
// entity alone and the batch reports per-entity errors.
func (s *Service) MigrateSchema(ctx context.Context, verticalName, fromVersion, toVersion string) (*vertical.Report, error) {
	def := s.registry.Get(verticalName)
	if def == nil {
		return nil, shared.ErrNotFound
	}

	target := def.Schema(toVersion)
	if target == nil {
		return nil, fmt.Errorf("%w: vertical %s has no schema version %s", shared.ErrNotFound, verticalName, toVersion)
	}

	migrate := s.migrator.Lookup(verticalName, fromVersion, toVersion)
	if migrate == nil {
		return nil, fmt.Errorf("%w: no migration registered for %s %s->%s", shared.ErrNotFound, verticalName, fromVersion, toVersion)
	}

	records, err := s.records.ListByVersion(ctx, verticalName, fromVersion)
	if err != nil {
		return nil, err
	}

	report := vertical.NewReport(verticalName, fromVersion, toVersion, len(records))
	for i := range records {
		record := records[i]

		migrated, err := migrate(record.Properties)
		if err != nil {
			report.RecordError(record.ID, err)
			continue
		}

		if result := target.Validate(migrated); !result.Valid {
			report.RecordError(record.ID, fmt.Errorf("migrated bag fails schema %s: %v", toVersion, result.Violations))
			continue
		}

		record.Properties = migrated
		record.SchemaVersion = toVersion
		if err := s.records.Save(ctx, &record); err != nil {
			report.RecordError(record.ID, err)
			continue
		}
		report.Migrated++
	}

	logger.L(ctx).Info("Schema migration finished",
		zap.String("vertical", verticalName),
		zap.String("from", fromVersion),
		zap.String("to", toVersion),
		zap.Int("migrated", report.Migrated),
		zap.Int("failed", report.Failed))
	return report, nil
}

// CreateRecord validates a property bag against the vertical's current schema
// and persists a new record for the tenant. A bag failing validation comes
// back in the result with no record created; only infrastructure problems are
// errors.
func (s *Service) CreateRecord(ctx context.Context, tenantID, verticalName, entityType string, props vertical.PropertyBag) (*vertical.Record, vertical.Result, error) {
	def := s.registry.Get(verticalName)
	if def == nil {
		return nil, vertical.Result{}, shared.ErrNotFound
	}

	active, err := s.activations.IsActive(ctx, tenantID, verticalName)
	if err != nil {
		return nil, vertical.Result{}, err
	}
	if !active {
		return nil, vertical.Result{}, fmt.Errorf("%w: vertical %s is not active for this tenant", shared.ErrInvalidInput, verticalName)
	}

	result := def.CurrentSchema().Validate(props)
	if !result.Valid {
		return nil, result, nil
	}

	record := &vertical.Record{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		EntityType:    entityType,
		VerticalType:  verticalName,
		SchemaVersion: def.CurrentVersion,
		Properties:    props,
		Active:        true,
	}
	if err := s.records.Save(ctx, record); err != nil {
		return nil, vertical.Result{}, err
	}
	return record, result, nil
}

// GetRecord returns a record visible to the tenant. A record belonging to
// another tenant behaves as not found.
func (s *Service) GetRecord(ctx context.Context, tenantID, recordID string) (*vertical.Record, error) {
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.TenantID != tenantID {
		return nil, fmt.Errorf("%w: vertical record %s", shared.ErrNotFound, recordID)
	}
	return record, nil
}

// mergeConfig overlays the provided configuration on the vertical defaults
func mergeConfig(defaults, overrides vertical.PropertyBag) vertical.PropertyBag {
	merged := defaults.Clone()
	if merged == nil {
		merged = vertical.PropertyBag{}
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
