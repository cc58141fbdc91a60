// ABOUTME: Data commands: seed, reset, tables, export, export-all, import and template.
// ABOUTME: Each command works against the configured backend or the local store.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/ekoru/admin/internal/backend"
	"github.com/ekoru/admin/internal/fields"
	"github.com/ekoru/admin/internal/operation"
	"github.com/ekoru/admin/internal/seed"
	"github.com/ekoru/admin/internal/store"
	"github.com/ekoru/admin/internal/table"
	"github.com/ekoru/admin/internal/transfer"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// exportWorkers bounds concurrent table exports.
const exportWorkers = 4

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	return seedData(cmd.Context(), s, args, seedCount)
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	log.Printf("Cleared %s", cfg.DBPath)
	return seedData(cmd.Context(), s, nil, seedCount)
}

func seedData(ctx context.Context, s *store.Store, tables []string, count int) error {
	if len(tables) > 0 {
		log.Printf("Seeding %s with sample rows...", strings.Join(tables, ", "))
	} else {
		log.Println("Seeding every table with sample rows...")
	}

	results, err := seed.NewGenerator().Seed(ctx, s, tables, count)
	if err != nil {
		log.Println("\nAvailable tables:")
		for _, t := range fields.Tables() {
			log.Printf("  - %s", t)
		}
		return err
	}

	total, failed := 0, 0
	for _, r := range results {
		log.Printf("%s: %d created, %d failed", r.Table, r.Created, r.Failed)
		total += r.Created
		failed += r.Failed
	}
	if failed > 0 {
		log.Println("\nNote: Some rows were rejected. Use 'ekoru-admin reset' to clear and reseed.")
	}
	log.Printf("\nSeeding complete! Created %d rows across %d tables", total, len(results))
	return nil
}

func runTables(cmd *cobra.Command, args []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tFIELDS\tOPERATIONS")
	for _, name := range fields.Tables() {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", name, len(fields.GetFieldConfig(name)), strings.Join(operationKinds(name), ","))
	}
	return tw.Flush()
}

func operationKinds(name string) []string {
	var kinds []string
	for _, k := range []operation.Kind{operation.KindList, operation.KindCreate, operation.KindUpdate, operation.KindDelete, operation.KindBulkImport} {
		if operation.Get(name, k) != nil {
			kinds = append(kinds, string(k))
		}
	}
	if len(kinds) == 0 {
		return []string{"-"}
	}
	return kinds
}

// withBackend opens the local store and the configured backend for one command.
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, b backend.Backend, s *store.Store, exp *transfer.Exporter) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	b, err := openBackend(cfg, s)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), b, s, newExporter(cfg))
}

func runExport(cmd *cobra.Command, args []string) error {
	f, err := transfer.ParseFormat(format)
	if err != nil {
		return err
	}
	if !fields.HasFieldConfig(args[0]) {
		return fmt.Errorf("unknown table %q", args[0])
	}
	return withBackend(cmd, func(ctx context.Context, b backend.Backend, _ *store.Store, exp *transfer.Exporter) error {
		sum, path, err := exportTable(ctx, b, exp, args[0], f, outDir)
		if err != nil {
			return err
		}
		log.Printf("Exported %d rows of %s to %s (%d cells emptied)", sum.Rows, args[0], path, sum.DroppedCells)
		return nil
	})
}

func runExportAll(cmd *cobra.Command, args []string) error {
	f, err := transfer.ParseFormat(format)
	if err != nil {
		return err
	}
	return withBackend(cmd, func(ctx context.Context, b backend.Backend, _ *store.Store, exp *transfer.Exporter) error {
		sums, err := exportAll(ctx, b, exp, f, outDir)
		for _, sum := range sums {
			log.Printf("%s: %d rows, %d cells emptied", sum.Filename, sum.Rows, sum.DroppedCells)
		}
		return err
	})
}

// exportTable writes every row of name into dir and returns the file path.
func exportTable(ctx context.Context, src table.DataSource, exp *transfer.Exporter, name string, f transfer.Format, dir string) (transfer.Summary, string, error) {
	if !operation.HasListQuery(name) {
		return transfer.Summary{}, "", backend.NotConfigured(name, operation.KindList)
	}
	rows, err := table.FetchAll(ctx, src, name, 100)
	if err != nil {
		return transfer.Summary{}, "", err
	}

	var buf bytes.Buffer
	sum, err := exp.Export(&buf, f, rows, name, nil)
	if err != nil {
		return transfer.Summary{}, "", fmt.Errorf("export %s: %w", name, err)
	}
	path := filepath.Join(dir, sum.Filename)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return transfer.Summary{}, "", err
	}
	return sum, path, nil
}

// exportAll exports every listable table concurrently. Empty tables are
// skipped. Summaries come back in table order.
func exportAll(ctx context.Context, src table.DataSource, exp *transfer.Exporter, f transfer.Format, dir string) ([]transfer.Summary, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var names []string
	for _, name := range operation.Tables() {
		if operation.HasListQuery(name) {
			names = append(names, name)
		}
	}

	results := make([]*transfer.Summary, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(exportWorkers)
	for i, name := range names {
		g.Go(func() error {
			sum, _, err := exportTable(ctx, src, exp, name, f, dir)
			if errors.Is(err, transfer.ErrNoRows) {
				log.Printf("Skipping %s: no rows", name)
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = &sum
			return nil
		})
	}
	err := g.Wait()

	var sums []transfer.Summary
	for _, sum := range results {
		if sum != nil {
			sums = append(sums, *sum)
		}
	}
	return sums, err
}

func runImport(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]
	if !fields.HasFieldConfig(name) {
		return fmt.Errorf("unknown table %q", name)
	}
	kind := format
	if kind == "" {
		kind = filepath.Ext(path)
	}
	f, err := transfer.ParseFormat(kind)
	if err != nil {
		return err
	}
	return withBackend(cmd, func(ctx context.Context, b backend.Backend, s *store.Store, _ *transfer.Exporter) error {
		run, err := importFile(ctx, b, s, name, path, f)
		if run != nil {
			log.Printf("Imported %s into %s: %d rows, %d created, %d failed", filepath.Base(path), name, run.RowCount, run.Created, run.Failed)
		}
		return err
	})
}

// importFile validates path and bulk creates its rows. Every attempt that
// reads the file is recorded in history.
func importFile(ctx context.Context, b backend.Backend, history *store.Store, name, path string, f transfer.Format) (*store.ImportRun, error) {
	if !operation.HasBulkImportMutation(name) {
		return nil, backend.NotConfigured(name, operation.KindBulkImport)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	run := &store.ImportRun{TableName: name, Filename: filepath.Base(path), Format: string(f)}
	importErr := func() error {
		res, err := transfer.Import(ctx, file, f, transfer.ValidationFor(fields.GetFieldConfig(name)))
		if err != nil {
			return err
		}
		run.RowCount = res.RowCount
		if !res.Success {
			for _, e := range res.Errors {
				log.Printf("  %s", e)
			}
			return fmt.Errorf("%s rejected: %s", run.Filename, strings.Join(res.Errors, "; "))
		}
		bulk, err := backend.BulkCreate(ctx, b, name, res.Data)
		if err != nil {
			return err
		}
		run.Created = bulk.Created
		run.Failed = len(bulk.Failures)
		for _, fail := range bulk.Failures {
			log.Printf("  row %d: %s", fail.Index+1, fail.Message)
		}
		return nil
	}()
	if importErr != nil {
		run.Error = importErr.Error()
	}
	if err := history.LogImport(ctx, run); err != nil {
		log.Printf("Warning: could not record import: %v", err)
	}
	return run, importErr
}

func runTemplate(cmd *cobra.Command, args []string) error {
	name := args[0]
	if !fields.HasFieldConfig(name) {
		return fmt.Errorf("unknown table %q", name)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path, err := writeTemplate(newExporter(cfg), name, outDir)
	if err != nil {
		return err
	}
	log.Printf("Wrote %s", path)
	return nil
}

func writeTemplate(exp *transfer.Exporter, name, dir string) (string, error) {
	var buf bytes.Buffer
	sum, err := exp.ExportTemplate(&buf, name, fields.Names(fields.GetFieldConfig(name)))
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, sum.Filename)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", err
	}
	return path, nil
}
