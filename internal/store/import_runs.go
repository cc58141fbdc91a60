// ABOUTME: Import history storage operations.
// ABOUTME: Records each spreadsheet import and lists past runs per table.

package store

import (
	"context"
	"time"
)

// ImportRun is one import attempt against a table.
type ImportRun struct {
	ID        int64
	Timestamp time.Time
	TableName string
	Filename  string
	Format    string
	RowCount  int
	Created   int
	Failed    int
	Error     string
}

// LogImport inserts an import history entry.
func (s *Store) LogImport(ctx context.Context, run *ImportRun) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_runs (table_name, filename, format, row_count, created, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.TableName, run.Filename, run.Format, run.RowCount, run.Created, run.Failed, run.Error)
	if err != nil {
		return err
	}
	run.ID, _ = res.LastInsertId()
	return nil
}

// ImportRunQuery filters import history.
type ImportRunQuery struct {
	Limit     int
	Offset    int
	TableName string
}

// GetImportRuns lists import history newest first.
func (s *Store) GetImportRuns(ctx context.Context, q ImportRunQuery) ([]*ImportRun, error) {
	query := `SELECT id, timestamp, table_name, COALESCE(filename, ''), COALESCE(format, ''),
	          row_count, created, failed, COALESCE(error, '')
	          FROM import_runs WHERE 1=1`
	args := []any{}

	if q.TableName != "" {
		query += " AND table_name = ?"
		args = append(args, q.TableName)
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}

	query += " ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*ImportRun
	for rows.Next() {
		run := &ImportRun{}
		if err := rows.Scan(&run.ID, &run.Timestamp, &run.TableName, &run.Filename, &run.Format,
			&run.RowCount, &run.Created, &run.Failed, &run.Error); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
