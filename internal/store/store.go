// ABOUTME: Core SQLite store for the admin backend.
// ABOUTME: Handles database initialization, migrations, and connection management.

package store

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// Migration version constants
const (
	MigrationV1 = 1 // records table holding every admin table's rows
	MigrationV2 = 2 // import_runs history and lookup indexes
)

// CurrentSchemaVersion is the target version for the database schema
const CurrentSchemaVersion = MigrationV2

const dsnParams = "?_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate"

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	// pragmas go in the DSN so every pooled connection gets them
	db, err := sql.Open("sqlite3", dbPath+dsnParams)
	if err != nil {
		return nil, err
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pooling
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0) // Connections don't expire

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs all pending migrations
func (s *Store) migrate() error {
	if err := s.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := s.getCurrentMigrationVersion()
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	log.Printf("Database schema version: %d, target version: %d", currentVersion, CurrentSchemaVersion)

	if currentVersion < MigrationV1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migration v1 failed: %w", err)
		}
	}

	if currentVersion < MigrationV2 {
		if err := s.migrateV2(); err != nil {
			return fmt.Errorf("migration v2 failed: %w", err)
		}
	}

	return nil
}

// createMigrationsTable creates the schema_migrations tracking table
func (s *Store) createMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`)
	return err
}

// getCurrentMigrationVersion retrieves the current schema version
func (s *Store) getCurrentMigrationVersion() (int, error) {
	var version int
	err := s.db.QueryRow(`
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// recordMigration records a completed migration
func (s *Store) recordMigration(version int, description string) error {
	_, err := s.db.Exec(`
		INSERT INTO schema_migrations (version, description)
		VALUES (?, ?)
	`, version, description)
	return err
}

// migrateV1 creates the records table. Each admin table's rows live here
// keyed by (table_name, id); seq keeps insertion order for paging.
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		table_name TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (table_name, id)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	if err := s.recordMigration(MigrationV1, "Create records table"); err != nil {
		return err
	}

	log.Printf("Applied migration v%d: Create records table", MigrationV1)
	return nil
}

// migrateV2 adds the import history table and paging indexes
func (s *Store) migrateV2() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS import_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			table_name TEXT NOT NULL,
			filename TEXT DEFAULT '',
			format TEXT DEFAULT '',
			row_count INTEGER DEFAULT 0,
			created INTEGER DEFAULT 0,
			failed INTEGER DEFAULT 0,
			error TEXT DEFAULT ''
		)`,

		// Paging a table walks its rows in insertion order
		"CREATE INDEX IF NOT EXISTS idx_records_table_seq ON records(table_name, seq)",

		// Import history is listed newest first per table
		"CREATE INDEX IF NOT EXISTS idx_import_runs_table_timestamp ON import_runs(table_name, timestamp DESC)",
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply statement: %w", err)
		}
	}

	if err := s.recordMigration(MigrationV2, "Add import_runs table and paging indexes"); err != nil {
		return err
	}

	log.Printf("Applied migration v%d: Add import_runs table and paging indexes", MigrationV2)
	return nil
}
