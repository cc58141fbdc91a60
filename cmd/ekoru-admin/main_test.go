// ABOUTME: Tests for CLI commands and server wiring.
// ABOUTME: Verifies health check, metrics, path validation and the export/import commands.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ekoru/admin/internal/backend"
	"github.com/ekoru/admin/internal/config"
	"github.com/ekoru/admin/internal/record"
	"github.com/ekoru/admin/internal/store"
	"github.com/ekoru/admin/internal/transfer"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "test_main.db")
	return cfg
}

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	srv, closer, err := newServer(testConfig(t))
	if err != nil {
		t.Fatalf("newServer() error = %v", err)
	}
	t.Cleanup(func() { closer.Close() })
	return srv
}

func TestServer_Healthz(t *testing.T) {
	srv := setupServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, response body: %s", err, rr.Body.String())
	}
	if resp["ok"] != true {
		t.Errorf("ok = %v, want true", resp["ok"])
	}
	if resp["backend"] != config.BackendSQLite {
		t.Errorf("backend = %v, want sqlite", resp["backend"])
	}
}

func TestServer_MetricsCountAdminRequests(t *testing.T) {
	srv := setupServer(t)

	for _, path := range []string{"/admin/", "/admin/regions"} {
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()
	if !strings.Contains(body, `ekoru_admin_requests_total{method="GET",status="200",table="regions"} 1`) {
		t.Errorf("metrics missing regions request counter:\n%s", body)
	}
}

func TestServer_RootRedirectsToAdmin(t *testing.T) {
	srv := setupServer(t)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/admin/" {
		t.Errorf("GET / = %d %q, want 302 /admin/", rr.Code, rr.Header().Get("Location"))
	}
}

func TestServer_GraphQLBackendRequiresEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = config.BackendGraphQL

	if _, _, err := newServer(cfg); err == nil {
		t.Error("newServer() with graphql and no endpoint succeeded")
	}
}

func TestValidateAndCleanDBPath_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "simple relative path", input: "ekoru.db"},
		{name: "path with directory", input: "./data/ekoru.db"},
		{name: "path with multiple directories", input: "./path/to/data/ekoru.db"},
		{name: "absolute path on Unix", input: "/tmp/ekoru.db"},
		{name: "path with whitespace trimmed", input: "  ekoru.db  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validateAndCleanDBPath(tt.input)
			if err != nil {
				t.Errorf("validateAndCleanDBPath(%q) error = %v, want nil", tt.input, err)
			}
			if result == "" {
				t.Errorf("validateAndCleanDBPath(%q) returned empty string", tt.input)
			}
		})
	}
}

func TestValidateAndCleanDBPath_Invalid(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		shouldContain string
	}{
		{name: "empty string", input: "", shouldContain: "cannot be empty"},
		{name: "current directory dot", input: ".", shouldContain: "cannot be empty, '.', or '/'"},
		{name: "root directory", input: "/", shouldContain: "cannot be empty, '.', or '/'"},
		{name: "path traversal with dotdot", input: "../../etc/passwd", shouldContain: "cannot contain '..'"},
		{name: "dotdot in middle", input: "./data/../../../etc/passwd", shouldContain: "cannot contain '..'"},
		{name: "git directory blocked", input: ".git/ekoru.db", shouldContain: ".git"},
		{name: "node_modules directory blocked", input: "node_modules/ekoru.db", shouldContain: "node_modules"},
		{name: ".env in path blocked", input: ".env/ekoru.db", shouldContain: ".env"},
		{name: "case insensitive bad pattern", input: "CREDENTIALS/ekoru.db", shouldContain: "credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateAndCleanDBPath(tt.input)
			if err == nil {
				t.Fatalf("validateAndCleanDBPath(%q) error = nil, want error", tt.input)
			}
			if !strings.Contains(err.Error(), tt.shouldContain) {
				t.Errorf("validateAndCleanDBPath(%q) error = %v, should contain %q", tt.input, err, tt.shouldContain)
			}
		})
	}
}

func TestValidateAndCleanDBPath_Windows(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("Windows-specific test")
	}

	for _, input := range []string{"C:", "D:"} {
		if _, err := validateAndCleanDBPath(input); err == nil || !strings.Contains(err.Error(), "bare drive letter") {
			t.Errorf("validateAndCleanDBPath(%q) error = %v, want bare drive letter", input, err)
		}
	}
}

func TestGetDefaultDBPath(t *testing.T) {
	t.Run("env var wins", func(t *testing.T) {
		t.Setenv("EKORU_DB_PATH", "  /tmp/custom/ekoru.db ")
		if got := getDefaultDBPath(); got != "/tmp/custom/ekoru.db" {
			t.Errorf("getDefaultDBPath() = %q, want /tmp/custom/ekoru.db", got)
		}
	})

	t.Run("xdg data home", func(t *testing.T) {
		dataHome := t.TempDir()
		t.Setenv("EKORU_DB_PATH", "")
		t.Setenv("XDG_DATA_HOME", dataHome)
		t.Chdir(t.TempDir())

		want := filepath.Join(dataHome, "ekoru", "ekoru.db")
		if got := getDefaultDBPath(); got != want {
			t.Errorf("getDefaultDBPath() = %q, want %q", got, want)
		}
	})
}

func seedRegions(t *testing.T, s *store.Store) {
	t.Helper()
	rows := []record.Row{
		record.FromPairs("id", "cl", "name", "Chile", "code", "CL"),
	}
	if _, err := s.InsertRows(context.Background(), "countries", rows); err != nil {
		t.Fatalf("InsertRows(countries) error = %v", err)
	}
	rows = []record.Row{
		record.FromPairs("id", "r1", "name", "Valparaíso", "country_id", "cl"),
		record.FromPairs("id", "r2", "name", "Biobío", "country_id", "cl"),
	}
	if _, err := s.InsertRows(context.Background(), "regions", rows); err != nil {
		t.Fatalf("InsertRows(regions) error = %v", err)
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "cli.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var fixedExporter = transfer.NewExporter(transfer.Options{
	Now: func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
})

func TestExportTable(t *testing.T) {
	s := openStore(t)
	seedRegions(t, s)
	dir := t.TempDir()

	sum, path, err := exportTable(context.Background(), s, fixedExporter, "regions", transfer.FormatCSV, dir)
	if err != nil {
		t.Fatalf("exportTable() error = %v", err)
	}
	if want := filepath.Join(dir, "regions_2026-03-01.csv"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if sum.Rows != 2 {
		t.Errorf("Rows = %d, want 2", sum.Rows)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "Valparaíso") {
		t.Errorf("export missing row data:\n%s", data)
	}

	if _, _, err := exportTable(context.Background(), s, fixedExporter, "cities", transfer.FormatCSV, dir); !errors.Is(err, transfer.ErrNoRows) {
		t.Errorf("exportTable(empty) error = %v, want ErrNoRows", err)
	}
}

func TestExportAllSkipsEmptyTables(t *testing.T) {
	s := openStore(t)
	seedRegions(t, s)
	dir := filepath.Join(t.TempDir(), "out")

	sums, err := exportAll(context.Background(), s, fixedExporter, transfer.FormatJSON, dir)
	if err != nil {
		t.Fatalf("exportAll() error = %v", err)
	}
	var names []string
	for _, sum := range sums {
		names = append(names, sum.Filename)
	}
	want := []string{"countries_2026-03-01.json", "regions_2026-03-01.json"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("exported = %v, want %v", names, want)
	}
	for _, name := range want {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestImportFile(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		content string
		created int
		failed  int
		wantErr error
	}{
		{name: "rows created", table: "regions", content: "name,country_id\nMaule,cl\nÑuble,cl\n", created: 2},
		{name: "duplicate id fails one row", table: "regions", content: "id,name,country_id\nr1,Again,cl\nr9,Los Ríos,cl\n", created: 1, failed: 1},
		{name: "missing column rejects file", table: "regions", content: "name\nMaule\n"},
		{name: "table without bulk import", table: "admins", content: "email\na@ekoru.cl\n", wantErr: backend.ErrNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openStore(t)
			seedRegions(t, s)
			path := filepath.Join(t.TempDir(), "upload.csv")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			run, err := importFile(context.Background(), s, s, tt.table, path, transfer.FormatCSV)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("importFile() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if run == nil {
				t.Fatalf("importFile() run = nil, error = %v", err)
			}
			if run.Created != tt.created || run.Failed != tt.failed {
				t.Errorf("run = %+v, want %d created and %d failed", run, tt.created, tt.failed)
			}
			if tt.created == 0 && err == nil {
				t.Error("importFile() of a rejected file returned no error")
			}

			runs, err := s.GetImportRuns(context.Background(), store.ImportRunQuery{TableName: tt.table})
			if err != nil || len(runs) != 1 {
				t.Fatalf("GetImportRuns() = %d runs, %v; want 1", len(runs), err)
			}
			if runs[0].Filename != "upload.csv" {
				t.Errorf("Filename = %q, want upload.csv", runs[0].Filename)
			}
		})
	}
}

func TestWriteTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := writeTemplate(fixedExporter, "cities", dir)
	if err != nil {
		t.Fatalf("writeTemplate() error = %v", err)
	}
	if filepath.Base(path) != transfer.TemplateFilename("cities") {
		t.Errorf("path = %q", path)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("template file missing or empty: %v", err)
	}
}

func TestOperationKinds(t *testing.T) {
	tests := map[string]string{
		"regions":     "list,create,update,delete,bulkImport",
		"admins":      "list,create,update,delete",
		"eco_metrics": "list",
	}
	for table, want := range tests {
		if got := strings.Join(operationKinds(table), ","); got != want {
			t.Errorf("operationKinds(%q) = %q, want %q", table, got, want)
		}
	}
}
