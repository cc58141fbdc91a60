// ABOUTME: Entry point for the Ekoru admin server and data tools.
// ABOUTME: Wires config, store, backend and admin handlers behind cobra commands.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ekoru/admin/internal/admin"
	"github.com/ekoru/admin/internal/backend"
	"github.com/ekoru/admin/internal/config"
	"github.com/ekoru/admin/internal/logging"
	"github.com/ekoru/admin/internal/metrics"
	"github.com/ekoru/admin/internal/seed"
	"github.com/ekoru/admin/internal/store"
	"github.com/ekoru/admin/internal/transfer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

var (
	configPath string
	port       string
	dbPath     string
	format     string
	outDir     string
	seedCount  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ekoru-admin",
		Short: "Ekoru Admin - generic CRUD back office for the Ekoru marketplace",
		Long: `Ekoru Admin serves CRUD screens over every table in the field registry:
admins, locations, product taxonomy, blog posts and sustainability metrics.

Features:
  • Forms and tables generated from field descriptors
  • Excel, CSV and JSON export, Excel import templates
  • Bulk import through the registered bulk mutation
  • SQLite store for local work, GraphQL backend for production
  • AI-generated sample rows when OPENAI_API_KEY is set

Quick Start:
  ekoru-admin seed          # Generate sample rows
  ekoru-admin serve         # Start server on port 9100
  ekoru-admin reset         # Wipe and reseed the local store`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default $EKORU_DB_PATH or the user data directory)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the admin HTTP server.

The server provides:
  • Admin UI at http://localhost:PORT/admin
  • Prometheus metrics at http://localhost:PORT/metrics
  • Health check at http://localhost:PORT/healthz

Environment Variables:
  EKORU_PORT               Server port (default: 9100)
  EKORU_BACKEND            sqlite or graphql
  EKORU_GRAPHQL_ENDPOINT   GraphQL endpoint for the graphql backend
  EKORU_GRAPHQL_TOKEN      Bearer token sent to the GraphQL endpoint
  OPENAI_API_KEY           Enable AI-generated sample rows`,
		RunE: runServe,
	}
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default from config)")

	seedCmd := &cobra.Command{
		Use:   "seed [table...]",
		Short: "Seed the local store with sample rows",
		Long: `Seed every registered table, or only the tables named, with sample rows.

Related tables are seeded first so relation fields point at real rows.
Set OPENAI_API_KEY to generate rows with AI; static Chilean sample data is
used otherwise.

Note: Seed is not idempotent. Use 'ekoru-admin reset' to clear data before reseeding.`,
		RunE: runSeed,
	}
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", seed.DefaultCount, "Rows per table")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the local store (wipe and reseed)",
		Long: `Delete every stored row and the import history, then seed all tables again.

Warning: This permanently deletes all data in the local store!`,
		RunE: runReset,
	}
	resetCmd.Flags().IntVarP(&seedCount, "count", "n", seed.DefaultCount, "Rows per table")

	tablesCmd := &cobra.Command{
		Use:   "tables",
		Short: "List registered tables and their operations",
		RunE:  runTables,
	}

	exportCmd := &cobra.Command{
		Use:   "export <table>",
		Short: "Export every row of a table to a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportAllCmd := &cobra.Command{
		Use:   "export-all",
		Short: "Export every listable table concurrently",
		RunE:  runExportAll,
	}
	for _, c := range []*cobra.Command{exportCmd, exportAllCmd} {
		c.Flags().StringVarP(&format, "format", "f", string(transfer.FormatExcel), "Output format: xlsx, csv or json")
		c.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	}

	importCmd := &cobra.Command{
		Use:   "import <table> <file>",
		Short: "Import rows from an Excel, CSV or JSON file",
		Long: `Validate a file against the table's fields and create its rows through
the bulk import mutation. The format follows the file extension unless
--format is given.`,
		Args: cobra.ExactArgs(2),
		RunE: runImport,
	}
	importCmd.Flags().StringVarP(&format, "format", "f", "", "Input format: xlsx, csv or json")

	templateCmd := &cobra.Command{
		Use:   "template <table>",
		Short: "Write an empty Excel import template for a table",
		Args:  cobra.ExactArgs(1),
		RunE:  runTemplate,
	}
	templateCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")

	rootCmd.AddCommand(serveCmd, seedCmd, resetCmd, tablesCmd, exportCmd, exportAllCmd, importCmd, templateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		cfg.Port = port
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = dbPath
	}
	if cfg.DBPath == "" {
		cfg.DBPath = getDefaultDBPath()
	}
	cfg.DBPath, err = validateAndCleanDBPath(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// openBackend returns the backend selected by cfg. The local store serves
// the sqlite backend itself.
func openBackend(cfg *config.Config, s *store.Store) (backend.Backend, error) {
	if cfg.Backend != config.BackendGraphQL {
		return s, nil
	}
	return backend.NewGraphQL(backend.Config{
		Endpoint:          cfg.GraphQL.Endpoint,
		Token:             cfg.GraphQL.Token,
		Timeout:           cfg.GraphQL.Timeout,
		RequestsPerSecond: cfg.GraphQL.RequestsPerSecond,
	})
}

func newExporter(cfg *config.Config) *transfer.Exporter {
	return transfer.NewExporter(transfer.Options{
		MaxCellLength: cfg.Export.MaxCellLength,
		TrueLabel:     cfg.Export.TrueLabel,
		FalseLabel:    cfg.Export.FalseLabel,
	})
}

// validateAndCleanDBPath validates and cleans a database path.
// Handles Unix/Linux, macOS, and Windows paths (including UNC and drive letters).
func validateAndCleanDBPath(path string) (string, error) {
	cleanPath := strings.TrimSpace(path)
	cleanPath = filepath.Clean(cleanPath)

	// Reject empty and root-like paths
	if cleanPath == "" || cleanPath == "." || cleanPath == "/" {
		return "", fmt.Errorf("database path cannot be empty, '.', or '/'")
	}

	// Windows: reject bare drive letters (e.g., "C:", "D:")
	if runtime.GOOS == "windows" && len(cleanPath) == 2 && cleanPath[1] == ':' {
		return "", fmt.Errorf("database path cannot be a bare drive letter")
	}

	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("database path cannot contain '..'")
	}

	badPatterns := []string{
		".git",
		".svn",
		"node_modules",
		".env",
		"credentials",
		"secret",
	}
	lowerPath := strings.ToLower(cleanPath)
	for _, pattern := range badPatterns {
		if strings.Contains(lowerPath, pattern) {
			return "", fmt.Errorf("database path cannot contain '%s' directory", pattern)
		}
	}

	return cleanPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.LogSummary()

	srv, closer, err := newServer(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	addr := ":" + cfg.Port
	log.Printf("Ekoru admin listening on %s", addr)
	log.Printf("Database: %s", cfg.DBPath)
	return http.ListenAndServe(addr, srv)
}

func newServer(cfg *config.Config) (http.Handler, io.Closer, error) {
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	b, err := openBackend(cfg, s)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	m, err := metrics.New()
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(m))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "backend": cfg.Backend})
	})
	r.Handle("/metrics", m.Handler())

	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusFound)
	})

	opts := []admin.Option{
		admin.WithHistory(s),
		admin.WithMetrics(m),
		admin.WithExporter(newExporter(cfg)),
		admin.WithPageSize(cfg.PageSize),
	}
	// sample rows only go into the local store
	if cfg.Backend == config.BackendSQLite {
		opts = append(opts, admin.WithSeeder(seed.NewGenerator(), s))
	}
	admin.NewHandlers(b, opts...).RegisterRoutes(r)

	return r, s, nil
}

// getDefaultDBPath returns the default database path following XDG Base Directory spec
// Priority: EKORU_DB_PATH env var > ./ekoru.db > XDG_DATA_HOME/ekoru/ekoru.db
func getDefaultDBPath() string {
	if envPath := os.Getenv("EKORU_DB_PATH"); envPath != "" {
		envPath = strings.TrimSpace(envPath)
		envPath = filepath.Clean(envPath)
		if envPath == "" || envPath == "." {
			log.Printf("Warning: EKORU_DB_PATH is invalid (empty or '.'), using default path")
		} else {
			return envPath
		}
	}

	cwdPath := "./ekoru.db"
	if _, err := os.Stat(cwdPath); err == nil {
		return cwdPath
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil || homeDir == "" || homeDir == "/" {
			log.Printf("Warning: Could not determine valid home directory (%q): %v, using ./ekoru.db", homeDir, err)
			return cwdPath
		}

		// Windows: %LOCALAPPDATA% or ~/AppData/Local
		// Unix/Linux/macOS: ~/.local/share (XDG spec)
		if runtime.GOOS == "windows" {
			dataHome = os.Getenv("LOCALAPPDATA")
			if dataHome == "" {
				dataHome = filepath.Join(homeDir, "AppData", "Local")
			}
		} else {
			dataHome = filepath.Join(homeDir, ".local", "share")
		}
	}

	dataDir := filepath.Join(dataHome, "ekoru")
	xdgDBPath := filepath.Join(dataDir, "ekoru.db")

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Printf("Warning: Could not create data directory %s: %v, using ./ekoru.db", dataDir, err)
		return cwdPath
	}

	// Verify we can write to the directory
	testFile := filepath.Join(dataDir, ".write-test")
	if f, err := os.Create(testFile); err != nil {
		log.Printf("Warning: Cannot write to data directory %s: %v, using ./ekoru.db", dataDir, err)
		return cwdPath
	} else {
		if err := f.Close(); err != nil {
			log.Printf("Warning: Error closing test file: %v", err)
		}
		if err := os.Remove(testFile); err != nil {
			log.Printf("Warning: Could not remove test file %s: %v", testFile, err)
		}
	}

	// Only log in debug mode to avoid polluting --help output
	if os.Getenv("EKORU_DEBUG") != "" {
		log.Printf("Using database location: %s", xdgDBPath)
	}

	return xdgDBPath
}
