// ABOUTME: Backend contract for reading and mutating table rows.
// ABOUTME: Mutations take the registered operation that guards them and refuse nil.

package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/ekoru/admin/internal/operation"
	"github.com/ekoru/admin/internal/record"
	"github.com/ekoru/admin/internal/table"
)

// ErrNotConfigured is returned when a table has no operation of the requested kind.
var ErrNotConfigured = errors.New("operation not configured")

// ErrNotFound is returned when updating or deleting a row that does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when creating a row whose id is already taken.
var ErrConflict = errors.New("record already exists")

// Backend serves pages of rows and applies mutations.
type Backend interface {
	table.DataSource
	Create(ctx context.Context, op *operation.Operation, values record.Row) (record.Row, error)
	Update(ctx context.Context, op *operation.Operation, id string, values record.Row) (record.Row, error)
	Delete(ctx context.Context, op *operation.Operation, id string) error
	BulkCreate(ctx context.Context, op *operation.Operation, rows []record.Row) (BulkResult, error)
}

// BulkResult reports a bulk create. Rows not listed in Failures were created.
type BulkResult struct {
	Created  int          `json:"created"`
	Failures []RowFailure `json:"errors,omitempty"`
}

// RowFailure is one rejected row of a bulk create. Index is zero-based.
type RowFailure struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// NotConfigured wraps ErrNotConfigured with the table and operation kind.
func NotConfigured(table string, kind operation.Kind) error {
	return fmt.Errorf("%s %s: %w", table, kind, ErrNotConfigured)
}

// Create looks up the create mutation for table and runs it.
func Create(ctx context.Context, b Backend, tableName string, values record.Row) (record.Row, error) {
	op := operation.GetCreateMutation(tableName)
	if op == nil {
		return record.Row{}, NotConfigured(tableName, operation.KindCreate)
	}
	return b.Create(ctx, op, values)
}

// Update looks up the update mutation for table and runs it.
func Update(ctx context.Context, b Backend, tableName, id string, values record.Row) (record.Row, error) {
	op := operation.GetUpdateMutation(tableName)
	if op == nil {
		return record.Row{}, NotConfigured(tableName, operation.KindUpdate)
	}
	return b.Update(ctx, op, id, values)
}

// Delete looks up the delete mutation for table and runs it.
func Delete(ctx context.Context, b Backend, tableName, id string) error {
	op := operation.GetDeleteMutation(tableName)
	if op == nil {
		return NotConfigured(tableName, operation.KindDelete)
	}
	return b.Delete(ctx, op, id)
}

// BulkCreate looks up the bulk import mutation for table and runs it.
func BulkCreate(ctx context.Context, b Backend, tableName string, rows []record.Row) (BulkResult, error) {
	op := operation.GetBulkImportMutation(tableName)
	if op == nil {
		return BulkResult{}, NotConfigured(tableName, operation.KindBulkImport)
	}
	return b.BulkCreate(ctx, op, rows)
}

// Getter is implemented by sources that can load one row directly.
type Getter interface {
	Get(ctx context.Context, table, id string) (record.Row, error)
}

// Find returns the row of table with id, using Get when src offers it and
// scanning every page otherwise.
func Find(ctx context.Context, src table.DataSource, tableName, id string) (record.Row, error) {
	if g, ok := src.(Getter); ok {
		return g.Get(ctx, tableName, id)
	}
	rows, err := table.FetchAll(ctx, src, tableName, 100)
	if err != nil {
		return record.Row{}, err
	}
	for _, r := range rows {
		if r.ID() == id {
			return r, nil
		}
	}
	return record.Row{}, fmt.Errorf("%s %s: %w", tableName, id, ErrNotFound)
}
