// ABOUTME: Output formats and the per-cell export policy.
// ABOUTME: Oversized values and embedded images are emptied and counted, never truncated.

package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ekoru/admin/internal/record"
)

// DefaultMaxCellLength is the spreadsheet cell-size ceiling in characters.
const DefaultMaxCellLength = 32767

// ErrUnknownFormat is wrapped when a format name is not xlsx, csv or json.
var ErrUnknownFormat = errors.New("unknown format")

// Format is an export file format.
type Format string

const (
	FormatExcel Format = "xlsx"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat accepts a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "xlsx", "excel", "xls":
		return FormatExcel, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w %q (want xlsx, csv or json)", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of files in this format.
func (f Format) ContentType() string {
	switch f {
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/json"
	}
}

// cellPolicy converts record values into exportable cells.
type cellPolicy struct {
	maxLen     int
	trueLabel  string
	falseLabel string
}

// convert returns the cell value for v and whether a non-empty value was
// dropped. JSON output keeps native nulls, booleans and composites.
func (p cellPolicy) convert(v any, format Format) (any, bool) {
	native := format == FormatJSON

	switch t := v.(type) {
	case nil:
		if native {
			return nil, false
		}
		return "", false
	case bool:
		if native {
			return t, false
		}
		if t {
			return p.trueLabel, false
		}
		return p.falseLabel, false
	case string:
		if p.droppable(t) {
			return "", true
		}
		return t, false
	}

	if record.IsComposite(v) {
		b, err := json.Marshal(v)
		if err != nil || utf8.RuneCount(b) > p.maxLen {
			return "", true
		}
		if native {
			return v, false
		}
		return string(b), false
	}
	return v, false
}

// droppable reports whether a string is an embedded image payload or too
// long for a cell.
func (p cellPolicy) droppable(s string) bool {
	if strings.HasPrefix(strings.TrimSpace(s), "data:image") {
		return true
	}
	return utf8.RuneCountInString(s) > p.maxLen
}
