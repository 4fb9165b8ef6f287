package vertical

import (
	"fmt"
	"sort"
	"sync"

	"github.com/varejo/backend/internal/domain/shared"
)

// Definition describes a vertical: the modules it needs, its default
// configuration, and the property schemas it has carried over time.
type Definition struct {
	Name            string // e.g. "PADARIA", "FARMACIA"
	DisplayName     string
	RequiredModules []string
	OptionalModules []string
	DefaultConfig   PropertyBag
	// Schemas maps version string to schema; CurrentVersion names the one new
	// entities are validated against
	Schemas        map[string]*Schema
	CurrentVersion string
}

// Validate checks definition invariants at registration time
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: vertical name is required", shared.ErrInvalidInput)
	}
	if len(d.Schemas) == 0 {
		return fmt.Errorf("%w: vertical %s declares no schema", shared.ErrInvalidInput, d.Name)
	}
	if _, ok := d.Schemas[d.CurrentVersion]; !ok {
		return fmt.Errorf("%w: vertical %s current version %q has no schema", shared.ErrInvalidInput, d.Name, d.CurrentVersion)
	}
	return nil
}

// Schema returns the schema for a version, nil when unknown
func (d *Definition) Schema(version string) *Schema {
	return d.Schemas[version]
}

// CurrentSchema returns the schema entities are currently validated against
func (d *Definition) CurrentSchema() *Schema {
	return d.Schemas[d.CurrentVersion]
}

// CanActivate reports whether every required module code is present in the
// available set. Exact containment, no partial credit.
func (d *Definition) CanActivate(availableModules []string) bool {
	available := make(map[string]struct{}, len(availableModules))
	for _, code := range availableModules {
		available[code] = struct{}{}
	}
	for _, required := range d.RequiredModules {
		if _, ok := available[required]; !ok {
			return false
		}
	}
	return true
}

// MissingModules returns the required module codes absent from the available
// set, in definition order.
func (d *Definition) MissingModules(availableModules []string) []string {
	available := make(map[string]struct{}, len(availableModules))
	for _, code := range availableModules {
		available[code] = struct{}{}
	}
	var missing []string
	for _, required := range d.RequiredModules {
		if _, ok := available[required]; !ok {
			missing = append(missing, required)
		}
	}
	return missing
}

// Registry holds the known vertical definitions. Registration happens at
// startup; lookups are concurrent.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates an empty vertical registry
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition, rejecting duplicates and invalid definitions
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("%w: vertical %s already registered", shared.ErrAlreadyExists, def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Get returns a definition by name, nil when unknown
func (r *Registry) Get(name string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defs[name]
}

// List returns all definitions ordered by name
func (r *Registry) List() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*Definition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
