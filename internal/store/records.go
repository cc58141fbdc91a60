// ABOUTME: Row storage for every admin table, implementing the backend contract.
// ABOUTME: Rows are JSON payloads that keep key order; password fields are never read back.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ekoru/admin/internal/backend"
	"github.com/ekoru/admin/internal/fields"
	"github.com/ekoru/admin/internal/operation"
	"github.com/ekoru/admin/internal/record"
	"github.com/ekoru/admin/internal/table"
)

// TableKey is the metadata key naming the table a stored row came from.
const TableKey = record.MetaPrefix + "table"

// columns the store manages itself; never stored in the payload
var managedKeys = []string{"id", "created_at", "updated_at"}

var _ backend.Backend = (*Store)(nil)

// Fetch returns one page of a table's rows in insertion order.
func (s *Store) Fetch(ctx context.Context, req table.Request) (table.Result, error) {
	if req.Table == "" {
		return table.Result{}, nil
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE table_name = ?", req.Table).Scan(&total); err != nil {
		return table.Result{}, fmt.Errorf("count %s: %w", req.Table, err)
	}

	pi := table.NewPageInfo(total, req.Page, req.PageSize)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data, created_at, updated_at FROM records
		WHERE table_name = ?
		ORDER BY seq
		LIMIT ? OFFSET ?
	`, req.Table, pi.PageSize, pi.Offset())
	if err != nil {
		return table.Result{}, fmt.Errorf("list %s: %w", req.Table, err)
	}
	defer rows.Close()

	secrets := secretFields(req.Table)
	var out []record.Row
	for rows.Next() {
		r, err := scanRow(rows, req.Table)
		if err != nil {
			return table.Result{}, err
		}
		out = append(out, redact(r, secrets))
	}
	if err := rows.Err(); err != nil {
		return table.Result{}, err
	}
	return table.Result{Rows: out, PageInfo: &pi}, nil
}

// Get returns one row by id, without its password fields.
func (s *Store) Get(ctx context.Context, tableName, id string) (record.Row, error) {
	r, err := s.get(ctx, tableName, id)
	if err != nil {
		return record.Row{}, err
	}
	return redact(r, secretFields(tableName)), nil
}

// get returns the stored row as written, secrets included.
func (s *Store) get(ctx context.Context, tableName, id string) (record.Row, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, data, created_at, updated_at FROM records
		WHERE table_name = ? AND id = ?
	`, tableName, id)
	r, err := scanRow(row, tableName)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Row{}, fmt.Errorf("%s %s: %w", tableName, id, backend.ErrNotFound)
	}
	return r, err
}

// Create inserts a row. A non-empty "id" value is kept, otherwise a UUID is assigned.
func (s *Store) Create(ctx context.Context, op *operation.Operation, values record.Row) (record.Row, error) {
	if op == nil {
		return record.Row{}, backend.ErrNotConfigured
	}
	id, err := insert(ctx, s.db, op.Table, values)
	if err != nil {
		return record.Row{}, err
	}
	return s.Get(ctx, op.Table, id)
}

// Update merges values into an existing row. Keys not in values are kept.
func (s *Store) Update(ctx context.Context, op *operation.Operation, id string, values record.Row) (record.Row, error) {
	if op == nil {
		return record.Row{}, backend.ErrNotConfigured
	}
	current, err := s.get(ctx, op.Table, id)
	if err != nil {
		return record.Row{}, err
	}

	merged := payload(current)
	for _, k := range payload(values).Keys() {
		merged.Set(k, values.Value(k))
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return record.Row{}, fmt.Errorf("encode %s %s: %w", op.Table, id, err)
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE records SET data = ?, updated_at = CURRENT_TIMESTAMP
		WHERE table_name = ? AND id = ?
	`, string(data), op.Table, id); err != nil {
		return record.Row{}, fmt.Errorf("update %s %s: %w", op.Table, id, err)
	}
	return s.Get(ctx, op.Table, id)
}

// Delete removes a row.
func (s *Store) Delete(ctx context.Context, op *operation.Operation, id string) error {
	if op == nil {
		return backend.ErrNotConfigured
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE table_name = ? AND id = ?", op.Table, id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", op.Table, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %s: %w", op.Table, id, backend.ErrNotFound)
	}
	return nil
}

// BulkCreate inserts rows through the table's bulk import operation.
func (s *Store) BulkCreate(ctx context.Context, op *operation.Operation, rows []record.Row) (backend.BulkResult, error) {
	if op == nil {
		return backend.BulkResult{}, backend.ErrNotConfigured
	}
	return s.InsertRows(ctx, op.Table, rows)
}

// InsertRows inserts rows in one transaction without an operation guard.
// Rows that fail are reported by index and skipped; the rest are committed.
func (s *Store) InsertRows(ctx context.Context, tableName string, rows []record.Row) (backend.BulkResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return backend.BulkResult{}, err
	}
	defer tx.Rollback()

	var res backend.BulkResult
	for i, r := range rows {
		// a savepoint per row lets one failure leave the others intact
		if _, err := tx.ExecContext(ctx, "SAVEPOINT bulk_row"); err != nil {
			return backend.BulkResult{}, err
		}
		if _, err := insert(ctx, tx, tableName, r); err != nil {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO bulk_row"); rbErr != nil {
				return backend.BulkResult{}, rbErr
			}
			res.Failures = append(res.Failures, backend.RowFailure{Index: i, Message: err.Error()})
			continue
		}
		if _, err := tx.ExecContext(ctx, "RELEASE bulk_row"); err != nil {
			return backend.BulkResult{}, err
		}
		res.Created++
	}

	if err := tx.Commit(); err != nil {
		return backend.BulkResult{}, fmt.Errorf("commit bulk insert into %s: %w", tableName, err)
	}
	return res, nil
}

// Count returns the number of rows stored for a table.
func (s *Store) Count(ctx context.Context, tableName string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE table_name = ?", tableName).Scan(&n)
	return n, err
}

// Options lists a table's rows as relation choices, labelled by labelField
// and falling back to the id when the label is missing.
func (s *Store) Options(ctx context.Context, tableName, labelField string) ([]fields.Option, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(json_extract(data, '$.' || ?), '') FROM records
		WHERE table_name = ?
		ORDER BY seq
	`, labelField, tableName)
	if err != nil {
		return nil, fmt.Errorf("options %s: %w", tableName, err)
	}
	defer rows.Close()

	var opts []fields.Option
	for rows.Next() {
		var id string
		var label any
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		if b, ok := label.([]byte); ok {
			label = string(b)
		}
		text := record.Stringify(label)
		if text == "" {
			text = id
		}
		opts = append(opts, fields.Option{Label: text, Value: id})
	}
	return opts, rows.Err()
}

// Reset deletes every stored row and the import history.
func (s *Store) Reset(ctx context.Context) error {
	for _, stmt := range []string{"DELETE FROM records", "DELETE FROM import_runs"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, db execer, tableName string, values record.Row) (string, error) {
	id := strings.TrimSpace(values.ID())
	if id == "" {
		id = uuid.NewString()
	}
	data, err := json.Marshal(payload(values))
	if err != nil {
		return "", fmt.Errorf("encode %s row: %w", tableName, err)
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO records (table_name, id, data) VALUES (?, ?, ?)",
		tableName, id, string(data)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", fmt.Errorf("%s %s: %w", tableName, id, backend.ErrConflict)
		}
		return "", fmt.Errorf("insert %s: %w", tableName, err)
	}
	return id, nil
}

// payload strips metadata and store-managed keys from a row.
func payload(r record.Row) record.Row {
	p := record.StripMeta(r)
	for _, k := range managedKeys {
		p.Delete(k)
	}
	return p
}

// secretFields names the password fields of a table. They are write-only.
func secretFields(tableName string) []string {
	var names []string
	for _, d := range fields.GetFieldConfig(tableName) {
		if d.Kind == fields.KindPassword {
			names = append(names, d.Name)
		}
	}
	return names
}

func redact(r record.Row, secrets []string) record.Row {
	for _, k := range secrets {
		r.Delete(k)
	}
	return r
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner, tableName string) (record.Row, error) {
	var id, data string
	var created, updated time.Time
	if err := sc.Scan(&id, &data, &created, &updated); err != nil {
		return record.Row{}, err
	}

	var p record.Row
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return record.Row{}, fmt.Errorf("decode %s %s: %w", tableName, id, err)
	}

	r := record.New(p.Len() + 4)
	r.Set("id", id)
	for _, k := range p.Keys() {
		r.Set(k, p.Value(k))
	}
	r.Set("created_at", created.UTC().Format(time.RFC3339))
	r.Set("updated_at", updated.UTC().Format(time.RFC3339))
	r.Set(TableKey, tableName)
	return r, nil
}
