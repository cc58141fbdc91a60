// ABOUTME: Column inference from fetched rows and cell display formatting.
// ABOUTME: Columns come from the first row's keys, never from a declared schema.

package table

import (
	"unicode/utf8"

	"github.com/ekoru/admin/internal/record"
)

const (
	// MaxCellDisplay is the longest cell text shown before truncation.
	MaxCellDisplay = 50

	// EmptyCell is shown for null values.
	EmptyCell = "-"
)

// Schema is the column set inferred from one page of rows.
type Schema struct {
	Columns []string
}

// InferSchema returns the first row's keys in order, minus metadata keys.
// No rows means no columns.
func InferSchema(rows []record.Row) Schema {
	if len(rows) == 0 {
		return Schema{}
	}
	var cols []string
	for _, k := range rows[0].Keys() {
		if record.IsMetaKey(k) {
			continue
		}
		cols = append(cols, k)
	}
	return Schema{Columns: cols}
}

// Empty reports whether the schema has no columns.
func (s Schema) Empty() bool {
	return len(s.Columns) == 0
}

// FormatCell renders a value for display in a table cell.
func FormatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return EmptyCell
	case bool:
		if t {
			return "✓"
		}
		return "✗"
	}
	return truncate(record.Stringify(v), MaxCellDisplay)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}
