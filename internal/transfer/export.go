// ABOUTME: Export of row sets to xlsx, csv and json, plus blank import templates.
// ABOUTME: Metadata keys are stripped and every cell passes through the cell policy.

package transfer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/ekoru/admin/internal/record"
)

// ErrNoRows is returned when asked to export an empty row set. It is a
// usage error, not something to retry.
var ErrNoRows = errors.New("transfer: no rows to export")

// MaxColumnWidth caps auto-sized spreadsheet columns.
const MaxColumnWidth = 50

// Options configures an Exporter. Zero values get defaults.
type Options struct {
	MaxCellLength int
	TrueLabel     string
	FalseLabel    string
	Now           func() time.Time
}

// Exporter writes row sets in the supported formats.
type Exporter struct {
	policy cellPolicy
	now    func() time.Time
}

// Summary describes a finished export.
type Summary struct {
	Filename     string
	Rows         int
	Columns      []string
	DroppedCells int
}

// NewExporter creates an exporter with the given options.
func NewExporter(opts Options) *Exporter {
	if opts.MaxCellLength <= 0 {
		opts.MaxCellLength = DefaultMaxCellLength
	}
	if opts.TrueLabel == "" {
		opts.TrueLabel = "Yes"
	}
	if opts.FalseLabel == "" {
		opts.FalseLabel = "No"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Exporter{
		policy: cellPolicy{maxLen: opts.MaxCellLength, trueLabel: opts.TrueLabel, falseLabel: opts.FalseLabel},
		now:    opts.Now,
	}
}

// Filename returns "{table}_{YYYY-MM-DD}.{ext}".
func Filename(table string, format Format, t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", table, t.Format("2006-01-02"), format)
}

// TemplateFilename returns "{table}_template.xlsx".
func TemplateFilename(table string) string {
	return table + "_template.xlsx"
}

// Export writes rows in format. columns selects and orders the output
// columns; when empty the first row's keys are used.
func (e *Exporter) Export(w io.Writer, format Format, rows []record.Row, table string, columns []string) (Summary, error) {
	switch format {
	case FormatExcel:
		return e.ExportExcel(w, rows, table, columns)
	case FormatCSV:
		return e.ExportCSV(w, rows, table, columns)
	case FormatJSON:
		return e.ExportJSON(w, rows, table, columns)
	}
	return Summary{}, fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

// ExportExcel writes an xlsx workbook with a bold header row and
// auto-sized columns.
func (e *Exporter) ExportExcel(w io.Writer, rows []record.Row, table string, columns []string) (Summary, error) {
	cols, err := exportColumns(rows, columns)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Filename: Filename(table, FormatExcel, e.now()), Rows: len(rows), Columns: cols}

	f := excelize.NewFile()
	defer f.Close()

	sheet, err := prepareSheet(f, table)
	if err != nil {
		return Summary{}, err
	}
	if err := writeHeader(f, sheet, cols); err != nil {
		return Summary{}, err
	}

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = utf8.RuneCountInString(c)
	}

	for r, row := range rows {
		cells := make([]any, len(cols))
		for i, c := range cols {
			v, dropped := e.policy.convert(row.Value(c), FormatExcel)
			if dropped {
				sum.DroppedCells++
			}
			cells[i] = v
			if n := utf8.RuneCountInString(record.Stringify(v)); n > widths[i] {
				widths[i] = n
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return Summary{}, err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return Summary{}, fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	for i, width := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return Summary{}, err
		}
		if err := f.SetColWidth(sheet, name, name, float64(min(width+2, MaxColumnWidth))); err != nil {
			return Summary{}, fmt.Errorf("set width of column %s: %w", name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return Summary{}, fmt.Errorf("write workbook: %w", err)
	}
	e.report(sum)
	return sum, nil
}

// ExportCSV writes a header line followed by one line per row.
func (e *Exporter) ExportCSV(w io.Writer, rows []record.Row, table string, columns []string) (Summary, error) {
	cols, err := exportColumns(rows, columns)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Filename: Filename(table, FormatCSV, e.now()), Rows: len(rows), Columns: cols}

	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return Summary{}, fmt.Errorf("write header: %w", err)
	}
	line := make([]string, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			v, dropped := e.policy.convert(row.Value(c), FormatCSV)
			if dropped {
				sum.DroppedCells++
			}
			line[i] = record.Stringify(v)
		}
		if err := cw.Write(line); err != nil {
			return Summary{}, fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return Summary{}, fmt.Errorf("flush csv: %w", err)
	}
	e.report(sum)
	return sum, nil
}

// ExportJSON writes an indented array of objects. Booleans, nulls and
// nested values stay native.
func (e *Exporter) ExportJSON(w io.Writer, rows []record.Row, table string, columns []string) (Summary, error) {
	cols, err := exportColumns(rows, columns)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Filename: Filename(table, FormatJSON, e.now()), Rows: len(rows), Columns: cols}

	out := make([]record.Row, len(rows))
	for r, row := range rows {
		keys := cols
		if len(columns) == 0 {
			keys = row.Keys()
		}
		o := record.New(len(keys))
		for _, k := range keys {
			if record.IsMetaKey(k) {
				continue
			}
			v, dropped := e.policy.convert(row.Value(k), FormatJSON)
			if dropped {
				sum.DroppedCells++
			}
			o.Set(k, v)
		}
		out[r] = o
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return Summary{}, fmt.Errorf("encode json: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return Summary{}, err
	}
	e.report(sum)
	return sum, nil
}

// ExportTemplate writes a workbook holding only a bold header row.
// An empty column list yields an empty sheet.
func (e *Exporter) ExportTemplate(w io.Writer, table string, columns []string) (Summary, error) {
	cols := make([]string, 0, len(columns))
	for _, c := range columns {
		if !record.IsMetaKey(c) {
			cols = append(cols, c)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet, err := prepareSheet(f, table)
	if err != nil {
		return Summary{}, err
	}
	if err := writeHeader(f, sheet, cols); err != nil {
		return Summary{}, err
	}
	for i, c := range cols {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return Summary{}, err
		}
		width := min(utf8.RuneCountInString(c)+4, MaxColumnWidth)
		if err := f.SetColWidth(sheet, name, name, float64(width)); err != nil {
			return Summary{}, err
		}
	}
	if err := f.Write(w); err != nil {
		return Summary{}, fmt.Errorf("write template: %w", err)
	}
	return Summary{Filename: TemplateFilename(table), Columns: cols}, nil
}

func (e *Exporter) report(sum Summary) {
	if sum.DroppedCells > 0 {
		log.Printf("export: %s: %d cell(s) emptied for exceeding %d characters or holding image data",
			sum.Filename, sum.DroppedCells, e.policy.maxLen)
	}
}

// exportColumns resolves the output columns, failing on an empty row set.
func exportColumns(rows []record.Row, columns []string) ([]string, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	src := columns
	if len(src) == 0 {
		src = rows[0].Keys()
	}
	cols := make([]string, 0, len(src))
	for _, c := range src {
		if !record.IsMetaKey(c) {
			cols = append(cols, c)
		}
	}
	return cols, nil
}

// prepareSheet renames the default sheet after the table. Sheet names are
// limited to 31 characters.
func prepareSheet(f *excelize.File, table string) (string, error) {
	name := table
	if utf8.RuneCountInString(name) > 31 {
		name = string([]rune(name)[:31])
	}
	if name == "" {
		name = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return "", fmt.Errorf("name sheet %q: %w", name, err)
	}
	return name, nil
}

func writeHeader(f *excelize.File, sheet string, cols []string) error {
	if len(cols) == 0 {
		return nil
	}
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(cols), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	return nil
}
