// ABOUTME: Import validation: required columns, column types and custom validators.
// ABOUTME: Also the default cell transform applied once validation has passed.

package transfer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ekoru/admin/internal/fields"
	"github.com/ekoru/admin/internal/record"
)

// ColumnType is a type check applied to every non-empty cell of a column.
type ColumnType string

const (
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
	TypeEmail   ColumnType = "email"
	TypeDate    ColumnType = "date"
)

// Validation describes what an import must satisfy. All parts are optional.
type Validation struct {
	RequiredColumns []string
	ColumnTypes     map[string]ColumnType
	// CustomValidators run for every row; a non-nil error fails that cell.
	CustomValidators map[string]func(value any, row record.Row) error
	// Transforms replace the default transform for their column.
	Transforms map[string]func(value any) any
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	truthy = map[string]bool{"true": true, "yes": true, "1": true}
	falsy  = map[string]bool{"false": true, "no": true, "0": true}

	dateLayouts = []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"02/01/2006",
		"01/02/2006",
	}
)

// ValidationFor derives an import validation from field descriptors:
// required visible fields become required columns, and number, boolean,
// email, date and datetime kinds become column type checks.
func ValidationFor(descriptors []fields.Descriptor) *Validation {
	v := &Validation{ColumnTypes: make(map[string]ColumnType)}
	for _, d := range descriptors {
		if d.Hidden {
			continue
		}
		if d.Required {
			v.RequiredColumns = append(v.RequiredColumns, d.Name)
		}
		switch d.Kind {
		case fields.KindNumber:
			v.ColumnTypes[d.Name] = TypeNumber
		case fields.KindBoolean:
			v.ColumnTypes[d.Name] = TypeBoolean
		case fields.KindEmail:
			v.ColumnTypes[d.Name] = TypeEmail
		case fields.KindDate, fields.KindDatetime:
			v.ColumnTypes[d.Name] = TypeDate
		}
	}
	return v
}

// validate returns every problem found in rows. A missing required column
// is reported once and stops further checks.
func (v *Validation) validate(rows []record.Row) []string {
	if v == nil || len(rows) == 0 {
		return nil
	}

	if len(v.RequiredColumns) > 0 {
		var missing []string
		for _, c := range v.RequiredColumns {
			if !rows[0].Has(c) {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			return []string{"Missing required columns: " + strings.Join(missing, ", ")}
		}
	}

	var errs []string
	for i, row := range rows {
		rowNum := i + 2 // 1-based, after the header row
		for _, col := range sortedKeys(v.ColumnTypes) {
			val := row.Value(col)
			if isBlank(val) {
				continue
			}
			if msg := checkType(v.ColumnTypes[col], val); msg != "" {
				errs = append(errs, fmt.Sprintf("Row %d: %s %s", rowNum, col, msg))
			}
		}
		for _, col := range sortedKeys(v.CustomValidators) {
			if err := v.CustomValidators[col](row.Value(col), row); err != nil {
				errs = append(errs, fmt.Sprintf("Row %d: %s %v", rowNum, col, err))
			}
		}
	}
	return errs
}

func checkType(t ColumnType, val any) string {
	switch t {
	case TypeNumber:
		if _, ok := toNumber(val); !ok {
			return "must be a number"
		}
	case TypeBoolean:
		if _, ok := toBool(val); !ok {
			return "must be a boolean (true/false, yes/no, 1/0)"
		}
	case TypeEmail:
		s, ok := val.(string)
		if !ok || !emailPattern.MatchString(strings.TrimSpace(s)) {
			return "must be a valid email"
		}
	case TypeDate:
		if !isDate(val) {
			return "must be a valid date"
		}
	}
	return ""
}

// transform applies custom transforms or the default transform to every cell.
// JSON values are already typed, so native skips the default transform.
func (v *Validation) transform(rows []record.Row, native bool) []record.Row {
	out := make([]record.Row, len(rows))
	for i, row := range rows {
		o := record.New(row.Len())
		for _, k := range row.Keys() {
			val := row.Value(k)
			switch {
			case v != nil && v.Transforms[k] != nil:
				val = v.Transforms[k](val)
			case !native:
				val = DefaultTransform(val)
			}
			o.Set(k, val)
		}
		out[i] = o
	}
	return out
}

// DefaultTransform coerces a raw cell: blank becomes nil, boolean words
// become bool, whole numbers become int64 and other numbers float64.
// Anything else is returned trimmed.
func DefaultTransform(val any) any {
	s, ok := val.(string)
	if !ok {
		return val
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if b, ok := toBool(s); ok {
		return b
	}
	if n, ok := parseNumber(s); ok {
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n)
		}
		return n
	}
	return s
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

func toNumber(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		return parseNumber(strings.TrimSpace(n))
	}
	return 0, false
}

func toBool(val any) (bool, bool) {
	switch b := val.(type) {
	case bool:
		return b, true
	case string:
		w := strings.ToLower(strings.TrimSpace(b))
		if truthy[w] {
			return true, true
		}
		if falsy[w] {
			return false, true
		}
	}
	return false, false
}

// isDate accepts common layouts and spreadsheet date serials.
func isDate(val any) bool {
	s, ok := val.(string)
	if !ok {
		if n, ok := toNumber(val); ok {
			_, err := excelize.ExcelDateToTime(n, false)
			return err == nil
		}
		return false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	if n, ok := parseNumber(s); ok && n > 0 {
		_, err := excelize.ExcelDateToTime(n, false)
		return err == nil
	}
	return false
}

func isBlank(val any) bool {
	if val == nil {
		return true
	}
	s, ok := val.(string)
	return ok && strings.TrimSpace(s) == ""
}
