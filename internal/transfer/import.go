// ABOUTME: Import of xlsx, csv and json files into validated, transformed rows.
// ABOUTME: Validation is all or nothing; the row count is reported either way.

package transfer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ekoru/admin/internal/record"
)

const utf8BOM = "\uFEFF"

// ImportResult is the outcome of one import attempt.
type ImportResult struct {
	Success  bool         `json:"success"`
	Data     []record.Row `json:"data,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
	RowCount int          `json:"rowCount"`
}

// Import reads r in format and runs the validation and transform stages.
func Import(ctx context.Context, r io.Reader, format Format, v *Validation) (*ImportResult, error) {
	switch format {
	case FormatExcel:
		return ImportExcel(ctx, r, v)
	case FormatCSV:
		return ImportCSV(ctx, r, v)
	case FormatJSON:
		return ImportJSON(ctx, r, v)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

// ImportExcel reads the first sheet of an xlsx workbook. The first row is
// the header; every cell is read as a string.
func ImportExcel(ctx context.Context, r io.Reader, v *Validation) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	grid, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	rows, err := gridRows(ctx, grid)
	if err != nil {
		return nil, err
	}
	return process(rows, v, false), nil
}

// ImportCSV reads a csv file whose first line is the header.
func ImportCSV(ctx context.Context, r io.Reader, v *Validation) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	grid, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(grid) > 0 && len(grid[0]) > 0 {
		grid[0][0] = strings.TrimPrefix(grid[0][0], utf8BOM)
	}

	rows, err := gridRows(ctx, grid)
	if err != nil {
		return nil, err
	}
	return process(rows, v, false), nil
}

// ImportJSON reads an array of objects. Values are already typed, so only
// custom transforms apply.
func ImportJSON(ctx context.Context, r io.Reader, v *Validation) (*ImportResult, error) {
	var rows []record.Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, row := range rows {
		rows[i] = record.StripMeta(row)
	}
	return process(rows, v, true), nil
}

// process validates rows and, when they pass, transforms them.
func process(rows []record.Row, v *Validation, native bool) *ImportResult {
	res := &ImportResult{RowCount: len(rows)}
	if len(rows) == 0 {
		res.Errors = []string{"The file contains no data rows"}
		return res
	}
	if errs := v.validate(rows); len(errs) > 0 {
		res.Errors = errs
		return res
	}
	res.Success = true
	res.Data = v.transform(rows, native)
	return res
}

// gridRows turns a header plus string cells into rows. Blank rows are
// skipped and empty cells are left out of their row.
func gridRows(ctx context.Context, grid [][]string) ([]record.Row, error) {
	if len(grid) == 0 {
		return nil, nil
	}
	header := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		header[i] = strings.TrimSpace(h)
	}

	var rows []record.Row
	for n, cells := range grid[1:] {
		if n%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := record.New(len(header))
		for i, cell := range cells {
			if i >= len(header) || header[i] == "" || record.IsMetaKey(header[i]) {
				continue
			}
			if strings.TrimSpace(cell) == "" {
				continue
			}
			row.Set(header[i], cell)
		}
		if row.Len() == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
