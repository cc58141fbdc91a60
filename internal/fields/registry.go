// ABOUTME: Field registry mapping table names to ordered descriptor lists.
// ABOUTME: Tables register themselves in init(); lookups never fail, unknown tables are empty.

package fields

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry = make(map[string][]Descriptor)
	mu       sync.RWMutex
)

// Register adds the descriptor list for a table. It panics on a duplicate
// table, a duplicate or empty field name, an unknown kind, options on a kind
// that ignores them, or a relation without a target table.
func Register(table string, descriptors []Descriptor) {
	if table == "" {
		panic("fields: table name cannot be empty")
	}
	if err := check(descriptors); err != nil {
		panic(fmt.Sprintf("fields: table %q: %v", table, err))
	}

	mu.Lock()
	defer mu.Unlock()

	if _, exists := registry[table]; exists {
		panic(fmt.Sprintf("fields: table %q already registered", table))
	}
	registry[table] = clone(descriptors)
}

// GetFieldConfig returns a copy of the descriptors for table, or an empty
// list when the table has none.
func GetFieldConfig(table string) []Descriptor {
	mu.RLock()
	defer mu.RUnlock()
	return clone(registry[table])
}

// HasFieldConfig reports whether table has registered descriptors.
func HasFieldConfig(table string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[table]
	return ok
}

// Tables returns all registered table names, sorted.
func Tables() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func check(descriptors []Descriptor) error {
	seen := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		if d.Name == "" {
			return fmt.Errorf("field with empty name")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate field %q", d.Name)
		}
		seen[d.Name] = true

		if !d.Kind.Valid() {
			return fmt.Errorf("field %q has unknown kind %q", d.Name, d.Kind)
		}
		if len(d.Options) > 0 && !d.Kind.HasOptions() {
			return fmt.Errorf("field %q of kind %q cannot have options", d.Name, d.Kind)
		}
		if d.Kind == KindRelation && d.RelatedTable == "" {
			return fmt.Errorf("relation field %q has no related table", d.Name)
		}
	}
	return nil
}

func clone(descriptors []Descriptor) []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	for i := range out {
		if out[i].Options != nil {
			out[i].Options = append([]Option(nil), out[i].Options...)
		}
	}
	return out
}
