package vertical

import (
	"fmt"
	"sync"

	"github.com/varejo/backend/internal/domain/shared"
)

// MigrationFunc rewrites a property bag from one schema version to the next.
// It must not mutate its input; it returns the migrated bag.
type MigrationFunc func(bag PropertyBag) (PropertyBag, error)

type migrationKey struct {
	vertical string
	from     string
	to       string
}

// Migrator holds the registered schema migrations per vertical
type Migrator struct {
	mu         sync.RWMutex
	migrations map[migrationKey]MigrationFunc
}

// NewMigrator creates an empty migrator
func NewMigrator() *Migrator {
	return &Migrator{migrations: make(map[migrationKey]MigrationFunc)}
}

// Register adds a migration for (vertical, fromVersion, toVersion)
func (m *Migrator) Register(verticalName, fromVersion, toVersion string, fn MigrationFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: migration function is required", shared.ErrInvalidInput)
	}
	key := migrationKey{vertical: verticalName, from: fromVersion, to: toVersion}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.migrations[key]; exists {
		return fmt.Errorf("%w: migration %s %s->%s already registered", shared.ErrAlreadyExists, verticalName, fromVersion, toVersion)
	}
	m.migrations[key] = fn
	return nil
}

// Lookup returns the migration for (vertical, from, to), nil when absent
func (m *Migrator) Lookup(verticalName, fromVersion, toVersion string) MigrationFunc {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.migrations[migrationKey{vertical: verticalName, from: fromVersion, to: toVersion}]
}

// Report summarizes a batch schema migration. A failure on one entity never
// aborts migration of the others; per-entity errors are collected instead.
type Report struct {
	VerticalName string            `json:"vertical"`
	FromVersion  string            `json:"from_version"`
	ToVersion    string            `json:"to_version"`
	Total        int               `json:"total"`
	Migrated     int               `json:"migrated"`
	Failed       int               `json:"failed"`
	Errors       map[string]string `json:"errors,omitempty"` // entity ID -> error
}

// NewReport creates a report for a batch of the given size
func NewReport(verticalName, fromVersion, toVersion string, total int) *Report {
	return &Report{
		VerticalName: verticalName,
		FromVersion:  fromVersion,
		ToVersion:    toVersion,
		Total:        total,
	}
}

// PartiallySuccessful reports whether the batch had both successes and
// failures
func (r *Report) PartiallySuccessful() bool {
	return r.Migrated > 0 && r.Failed > 0
}

// RecordError notes a per-entity failure
func (r *Report) RecordError(entityID string, err error) {
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	r.Errors[entityID] = err.Error()
	r.Failed++
}
