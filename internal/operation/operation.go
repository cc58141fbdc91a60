// ABOUTME: Registry of GraphQL operations per table: list, create, update, delete, bulk import.
// ABOUTME: Lookups return nil for operations a table does not support.

package operation

import (
	"fmt"
	"sort"
	"sync"
)

// Kind names what an operation does.
type Kind string

const (
	KindList       Kind = "list"
	KindCreate     Kind = "create"
	KindUpdate     Kind = "update"
	KindDelete     Kind = "delete"
	KindBulkImport Kind = "bulkImport"
)

// Operation is one GraphQL document bound to a table.
type Operation struct {
	Table    string
	Kind     Kind
	Name     string // operation name in the document
	Field    string // root field holding the result
	Document string
}

// Set holds the operations configured for one table. Nil entries are
// operations the backend does not offer.
type Set struct {
	List       *Operation
	Create     *Operation
	Update     *Operation
	Delete     *Operation
	BulkImport *Operation
}

var (
	registry = make(map[string]Set)
	mu       sync.RWMutex
)

// Register adds the operations for a table. It panics if the table is
// already registered or an operation is bound to another table or kind.
func Register(table string, set Set) {
	if table == "" {
		panic("operation: table name cannot be empty")
	}
	for kind, op := range map[Kind]*Operation{
		KindList:       set.List,
		KindCreate:     set.Create,
		KindUpdate:     set.Update,
		KindDelete:     set.Delete,
		KindBulkImport: set.BulkImport,
	} {
		if op == nil {
			continue
		}
		if op.Table != table || op.Kind != kind {
			panic(fmt.Sprintf("operation: %s/%s registered as %s/%s", op.Table, op.Kind, table, kind))
		}
		if op.Document == "" || op.Field == "" {
			panic(fmt.Sprintf("operation: %s/%s needs a document and a result field", table, kind))
		}
	}

	mu.Lock()
	defer mu.Unlock()

	if _, exists := registry[table]; exists {
		panic(fmt.Sprintf("operation: table %q already registered", table))
	}
	registry[table] = set
}

func lookup(table string) Set {
	mu.RLock()
	defer mu.RUnlock()
	return registry[table]
}

// GetListQuery returns the paginated list query for table, or nil.
func GetListQuery(table string) *Operation { return lookup(table).List }

// GetCreateMutation returns the create mutation for table, or nil.
func GetCreateMutation(table string) *Operation { return lookup(table).Create }

// GetUpdateMutation returns the update mutation for table, or nil.
func GetUpdateMutation(table string) *Operation { return lookup(table).Update }

// GetDeleteMutation returns the delete mutation for table, or nil.
func GetDeleteMutation(table string) *Operation { return lookup(table).Delete }

// GetBulkImportMutation returns the bulk import mutation for table, or nil.
func GetBulkImportMutation(table string) *Operation { return lookup(table).BulkImport }

// HasListQuery reports whether table has a list query.
func HasListQuery(table string) bool { return GetListQuery(table) != nil }

// HasCreateMutation reports whether table has a create mutation.
func HasCreateMutation(table string) bool { return GetCreateMutation(table) != nil }

// HasUpdateMutation reports whether table has an update mutation.
func HasUpdateMutation(table string) bool { return GetUpdateMutation(table) != nil }

// HasDeleteMutation reports whether table has a delete mutation.
func HasDeleteMutation(table string) bool { return GetDeleteMutation(table) != nil }

// HasBulkImportMutation reports whether table has a bulk import mutation.
func HasBulkImportMutation(table string) bool { return GetBulkImportMutation(table) != nil }

// Get returns the operation of the given kind for table, or nil.
func Get(table string, kind Kind) *Operation {
	set := lookup(table)
	switch kind {
	case KindList:
		return set.List
	case KindCreate:
		return set.Create
	case KindUpdate:
		return set.Update
	case KindDelete:
		return set.Delete
	case KindBulkImport:
		return set.BulkImport
	}
	return nil
}

// Tables returns every table with at least one operation, sorted.
func Tables() []string {
	mu.RLock()
	defer mu.RUnlock()

	tables := make([]string, 0, len(registry))
	for t := range registry {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}
