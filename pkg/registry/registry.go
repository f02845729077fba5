// Package registry holds the table metadata for every registered model.
// Metadata is computed once at registration and shared read-only, so
// repositories can look types up without reparsing tags.
package registry

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/keel-orm/keel/pkg/schema"
)

// Registry is a thread-safe table metadata registry keyed by Go type
// and by table name.
type Registry struct {
	mu     sync.RWMutex
	parser *schema.Parser
	tables map[reflect.Type]*schema.Table
	names  map[string]*schema.Table
}

// NewRegistry creates an empty Registry with its own parser.
func NewRegistry() *Registry {
	return &Registry{
		parser: schema.NewParser(),
		tables: make(map[reflect.Type]*schema.Table),
		names:  make(map[string]*schema.Table),
	}
}

// Register parses a model type and stores its metadata. Registering a
// type twice is a no-op; two types mapping to the same table name is an
// error.
func (r *Registry) Register(model any) error {
	modelType := reflect.TypeOf(model)
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tables[modelType]; ok {
		return nil
	}

	table, err := r.parser.Parse(modelType)
	if err != nil {
		return fmt.Errorf("failed to parse model %s: %w", modelType.Name(), err)
	}
	if existing, ok := r.names[table.Name]; ok && existing.GoType != modelType {
		return fmt.Errorf("table %s already registered by model %s", table.Name, existing.Model)
	}

	r.tables[modelType] = table
	r.names[table.Name] = table
	return nil
}

// Get retrieves metadata by Go type.
func (r *Registry) Get(modelType reflect.Type) (*schema.Table, error) {
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}

	r.mu.RLock()
	table, ok := r.tables[modelType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("model type %s not registered", modelType.Name())
	}
	return table, nil
}

// GetByName retrieves metadata by table name.
func (r *Registry) GetByName(tableName string) (*schema.Table, error) {
	r.mu.RLock()
	table, ok := r.names[tableName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("table %s not registered", tableName)
	}
	return table, nil
}

// GetOrRegister retrieves metadata for a model, registering it first
// when needed.
func (r *Registry) GetOrRegister(model any) (*schema.Table, error) {
	modelType := reflect.TypeOf(model)
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}

	r.mu.RLock()
	table, ok := r.tables[modelType]
	r.mu.RUnlock()
	if ok {
		return table, nil
	}

	if err := r.Register(model); err != nil {
		return nil, err
	}
	return r.Get(modelType)
}

// All returns all registered table metadata in no particular order.
func (r *Registry) All() []*schema.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tables := make([]*schema.Table, 0, len(r.tables))
	for _, table := range r.tables {
		tables = append(tables, table)
	}
	return tables
}

// TableNames returns all registered table names, sorted.
func (r *Registry) TableNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clear removes all registered models.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tables = make(map[reflect.Type]*schema.Table)
	r.names = make(map[string]*schema.Table)
}

// Has checks if a model type is registered.
func (r *Registry) Has(modelType reflect.Type) bool {
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}

	r.mu.RLock()
	_, ok := r.tables[modelType]
	r.mu.RUnlock()
	return ok
}

// HasTable checks if a table name is registered.
func (r *Registry) HasTable(tableName string) bool {
	r.mu.RLock()
	_, ok := r.names[tableName]
	r.mu.RUnlock()
	return ok
}

// globalRegistry is the default registry instance.
var globalRegistry = NewRegistry()

// Register registers a model in the global registry.
func Register(model any) error {
	return globalRegistry.Register(model)
}

// Get retrieves metadata from the global registry.
func Get(modelType reflect.Type) (*schema.Table, error) {
	return globalRegistry.Get(modelType)
}

// GetByName retrieves metadata by table name from the global registry.
func GetByName(tableName string) (*schema.Table, error) {
	return globalRegistry.GetByName(tableName)
}

// GetOrRegister retrieves or registers a model in the global registry.
func GetOrRegister(model any) (*schema.Table, error) {
	return globalRegistry.GetOrRegister(model)
}

// All returns all tables registered in the global registry.
func All() []*schema.Table {
	return globalRegistry.All()
}

// TableNames returns the table names registered in the global registry.
func TableNames() []string {
	return globalRegistry.TableNames()
}

// Has checks if a model type is registered in the global registry.
func Has(modelType reflect.Type) bool {
	return globalRegistry.Has(modelType)
}

// HasTable checks if a table name is registered in the global registry.
func HasTable(tableName string) bool {
	return globalRegistry.HasTable(tableName)
}

// Clear clears the global registry.
func Clear() {
	globalRegistry.Clear()
}
