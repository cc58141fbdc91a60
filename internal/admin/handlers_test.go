// ABOUTME: Tests for admin HTTP handlers.
// ABOUTME: Drives list, form, delete, export and import pages against a temp SQLite store.

package admin

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ekoru/admin/internal/fields"
	"github.com/ekoru/admin/internal/record"
	"github.com/ekoru/admin/internal/store"
	"github.com/ekoru/admin/internal/table"
	"github.com/ekoru/admin/internal/transfer"
	"github.com/go-chi/chi/v5"
)

func setupTestServer(t *testing.T) (*store.Store, http.Handler) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "admin.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	r := chi.NewRouter()
	NewHandlers(s, WithHistory(s), WithPageSize(5)).RegisterRoutes(r)
	return s, r
}

func insertRows(t *testing.T, s *store.Store, tableName string, rows ...record.Row) {
	t.Helper()
	res, err := s.InsertRows(context.Background(), tableName, rows)
	if err != nil || len(res.Failures) > 0 {
		t.Fatalf("InsertRows(%s) = %+v, %v", tableName, res, err)
	}
}

func seedChile(t *testing.T, s *store.Store, regions int) {
	t.Helper()
	insertRows(t, s, "countries", record.FromPairs("id", "cl", "name", "Chile", "code", "CL", "is_active", true))
	var rows []record.Row
	for i := 1; i <= regions; i++ {
		rows = append(rows, record.FromPairs("id", "r"+string(rune('0'+i)), "name", "Region "+string(rune('0'+i)), "country_id", "cl"))
	}
	if len(rows) > 0 {
		insertRows(t, s, "regions", rows...)
	}
}

func do(h http.Handler, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

var formHeaders = map[string]string{"Content-Type": "application/x-www-form-urlencoded"}

func TestDashboard(t *testing.T) {
	s, h := setupTestServer(t)
	seedChile(t, s, 3)

	w := do(h, http.MethodGet, "/admin/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /admin/ status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Blog posts", "Regions", "3 records", "bulkImport"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestUnknownTable(t *testing.T) {
	_, h := setupTestServer(t)

	for _, target := range []string{"/admin/widgets", "/admin/widgets/new", "/admin/widgets/export"} {
		t.Run(target, func(t *testing.T) {
			w := do(h, http.MethodGet, target, "", nil)
			if w.Code != http.StatusNotFound {
				t.Errorf("GET %s status = %d, want 404", target, w.Code)
			}
		})
	}
}

func TestListPaginates(t *testing.T) {
	s, h := setupTestServer(t)
	seedChile(t, s, 7)

	tests := []struct {
		name   string
		target string
		want   []string
		absent []string
	}{
		{name: "first page", target: "/admin/regions", want: []string{"Region 1", "Region 5", "Page 1 of 2", "Next"}, absent: []string{"Region 6"}},
		{name: "second page", target: "/admin/regions?page=2", want: []string{"Region 6", "Region 7", "Page 2 of 2", "Previous"}, absent: []string{"Region 1<"}},
		{name: "page past the end is clamped", target: "/admin/regions?page=9", want: []string{"Page 2 of 2", `name="page" value="2"`}, absent: []string{`name="page" value="9"`}},
		{name: "search filters the page", target: "/admin/regions?q=region+3", want: []string{"Region 3"}, absent: []string{"Region 4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodGet, tt.target, "", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			body := w.Body.String()
			for _, s := range tt.want {
				if !strings.Contains(body, s) {
					t.Errorf("body missing %q", s)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(body, s) {
					t.Errorf("body unexpectedly contains %q", s)
				}
			}
		})
	}
}

func TestListHTMXReturnsFragment(t *testing.T) {
	s, h := setupTestServer(t)
	seedChile(t, s, 2)

	w := do(h, http.MethodGet, "/admin/regions", "", map[string]string{"HX-Request": "true"})
	body := w.Body.String()
	if strings.Contains(body, "<html") {
		t.Error("htmx response contains the layout")
	}
	if !strings.Contains(body, "<table") {
		t.Error("htmx response is missing the table")
	}
}

func TestListHidesUnconfiguredActions(t *testing.T) {
	s, h := setupTestServer(t)
	insertRows(t, s, "eco_metrics", record.FromPairs("id", "m1", "name", "CO2"))

	body := do(h, http.MethodGet, "/admin/eco_metrics", "", nil).Body.String()
	for _, absent := range []string{"/admin/eco_metrics/new", "/admin/eco_metrics/import", "hx-delete", "/edit"} {
		if strings.Contains(body, absent) {
			t.Errorf("read-only table shows %q", absent)
		}
	}
}

func TestNewFormListsRelationOptions(t *testing.T) {
	s, h := setupTestServer(t)
	seedChile(t, s, 0)

	w := do(h, http.MethodGet, "/admin/regions/new", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `<option value="cl">Chile</option>`) {
		t.Error("form is missing the country option")
	}
}

func TestNotConfiguredPanels(t *testing.T) {
	_, h := setupTestServer(t)

	tests := []struct {
		method string
		target string
		status int
	}{
		{http.MethodGet, "/admin/eco_metrics/new", http.StatusOK},
		{http.MethodPost, "/admin/eco_metrics", http.StatusNotImplemented},
		{http.MethodGet, "/admin/admins/import", http.StatusOK},
		{http.MethodGet, "/admin/eco_metrics/m1/edit", http.StatusOK},
		{http.MethodDelete, "/admin/sustainability_criteria/c1", http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			w := do(h, tt.method, tt.target, "", formHeaders)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.method == http.MethodGet && !strings.Contains(w.Body.String(), "Not configured") {
				t.Error("page is missing the not configured panel")
			}
		})
	}
}

func TestCreate(t *testing.T) {
	s, h := setupTestServer(t)
	seedChile(t, s, 0)

	form := url.Values{"name": {"Valparaíso"}, "country_id": {"cl"}, "ordinal": {"5"}}
	w := do(h, http.MethodPost, "/admin/regions", form.Encode(), formHeaders)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/admin/regions?flash=created" {
		t.Errorf("Location = %q", loc)
	}

	rows, err := table.FetchAll(context.Background(), s, "regions", 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("FetchAll() = %d rows, %v; want 1", len(rows), err)
	}
	if rows[0].Value("name") != "Valparaíso" || rows[0].Value("ordinal") != float64(5) {
		t.Errorf("stored row = %v", rows[0].Map())
	}
}

func TestCreateValidationError(t *testing.T) {
	s, h := setupTestServer(t)
	seedChile(t, s, 0)

	form := url.Values{"name": {""}, "country_id": {"cl"}, "ordinal": {"0"}}
	w := do(h, http.MethodPost, "/admin/regions", form.Encode(), formHeaders)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Name is required", "Ordinal must be at least 1"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if n, _ := s.Count(context.Background(), "regions"); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestUpdate(t *testing.T) {
	s, h := setupTestServer(t)
	seedChile(t, s, 1)

	w := do(h, http.MethodGet, "/admin/regions/r1/edit", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `value="Region 1"`) {
		t.Fatalf("edit form status = %d, missing current value", w.Code)
	}

	form := url.Values{"name": {"Biobío"}, "country_id": {"cl"}}
	w = do(h, http.MethodPost, "/admin/regions/r1", form.Encode(), formHeaders)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("update status = %d, want 303", w.Code)
	}
	row, err := s.Get(context.Background(), "regions", "r1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if row.Value("name") != "Biobío" {
		t.Errorf("name = %v, want Biobío", row.Value("name"))
	}
}

func TestUpdateMissingRecord(t *testing.T) {
	_, h := setupTestServer(t)

	if w := do(h, http.MethodGet, "/admin/regions/nope/edit", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("edit status = %d, want 404", w.Code)
	}
	form := url.Values{"name": {"X"}, "country_id": {"cl"}}
	if w := do(h, http.MethodPost, "/admin/regions/nope", form.Encode(), formHeaders); w.Code != http.StatusNotFound {
		t.Errorf("update status = %d, want 404", w.Code)
	}
}

func TestUpdateKeepsPasswordWhenBlank(t *testing.T) {
	s, h := setupTestServer(t)

	create := url.Values{
		"email": {"ana@ekoru.cl"}, "first_name": {"Ana"}, "last_name": {"Rojas"},
		"password": {"s3cretpass"}, "role": {"admin"}, "is_active": {"true"},
	}
	if w := do(h, http.MethodPost, "/admin/admins", create.Encode(), formHeaders); w.Code != http.StatusSeeOther {
		t.Fatalf("create status = %d, want 303; body %s", w.Code, w.Body.String())
	}
	rows, err := table.FetchAll(context.Background(), s, "admins", 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("FetchAll() = %d rows, %v", len(rows), err)
	}
	id := rows[0].ID()

	edit := url.Values{
		"email": {"ana@ekoru.cl"}, "first_name": {"Ana María"}, "last_name": {"Rojas"},
		"password": {""}, "role": {"editor"},
	}
	if w := do(h, http.MethodPost, "/admin/admins/"+id, edit.Encode(), formHeaders); w.Code != http.StatusSeeOther {
		t.Fatalf("update status = %d, want 303; body %s", w.Code, w.Body.String())
	}

	row, err := s.Get(context.Background(), "admins", id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if row.Has("password") {
		t.Errorf("Get() returned password %v", row.Value("password"))
	}
	if row.Value("first_name") != "Ana María" || row.Value("is_active") != false {
		t.Errorf("row = %v", row.Map())
	}
}

func TestPasswordsNeverLeaveTheServer(t *testing.T) {
	_, h := setupTestServer(t)

	create := url.Values{
		"email": {"ana@ekoru.cl"}, "first_name": {"Ana"}, "last_name": {"Rojas"},
		"password": {"hunter2secret"}, "role": {"admin"}, "is_active": {"true"},
	}
	if w := do(h, http.MethodPost, "/admin/admins", create.Encode(), formHeaders); w.Code != http.StatusSeeOther {
		t.Fatalf("create status = %d, want 303; body %s", w.Code, w.Body.String())
	}

	tests := []struct {
		name   string
		path   string
		column string
	}{
		{"list", "/admin/admins", ">password<"},
		{"csv export", "/admin/admins/export?format=csv", "password"},
		{"json export", "/admin/admins/export?format=json", `"password"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodGet, tt.path, "", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("GET %s status = %d, want 200", tt.path, w.Code)
			}
			body := w.Body.String()
			if !strings.Contains(body, "ana@ekoru.cl") {
				t.Errorf("GET %s missing the admin row", tt.path)
			}
			if strings.Contains(body, "hunter2secret") || strings.Contains(body, tt.column) {
				t.Errorf("GET %s exposes the password: %s", tt.path, body)
			}
		})
	}
}

func TestDropEmptyPasswords(t *testing.T) {
	descriptors := fields.GetFieldConfig("admins")
	tests := []struct {
		name     string
		password any
		wantKept bool
	}{
		{"blank", "", false},
		{"nil", nil, false},
		{"set", "s3cretpass", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := dropEmptyPasswords(descriptors, record.FromPairs("email", "ana@ekoru.cl", "password", tt.password))
			if got := values.Has("password"); got != tt.wantKept {
				t.Errorf("dropEmptyPasswords() kept password = %v, want %v", got, tt.wantKept)
			}
			if !values.Has("email") {
				t.Error("dropEmptyPasswords() dropped email")
			}
		})
	}
}

func TestDelete(t *testing.T) {
	s, h := setupTestServer(t)
	seedChile(t, s, 2)

	w := do(h, http.MethodDelete, "/admin/regions/r1", "", map[string]string{"HX-Request": "true"})
	if w.Code != http.StatusOK || w.Header().Get("HX-Refresh") != "true" {
		t.Errorf("htmx delete = %d, HX-Refresh %q", w.Code, w.Header().Get("HX-Refresh"))
	}

	w = do(h, http.MethodDelete, "/admin/regions/r2", "", nil)
	if w.Code != http.StatusSeeOther {
		t.Errorf("delete status = %d, want 303", w.Code)
	}

	w = do(h, http.MethodDelete, "/admin/regions/r2", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
	if n, _ := s.Count(context.Background(), "regions"); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestExport(t *testing.T) {
	s, h := setupTestServer(t)
	seedChile(t, s, 2)

	tests := []struct {
		name        string
		target      string
		status      int
		contentType string
	}{
		{name: "csv", target: "/admin/regions/export?format=csv", status: http.StatusOK, contentType: "text/csv"},
		{name: "json", target: "/admin/regions/export?format=json", status: http.StatusOK, contentType: "application/json"},
		{name: "default excel", target: "/admin/regions/export", status: http.StatusOK, contentType: "spreadsheetml"},
		{name: "unknown format", target: "/admin/regions/export?format=pdf", status: http.StatusBadRequest},
		{name: "empty table", target: "/admin/cities/export?format=csv", status: http.StatusPreconditionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodGet, tt.target, "", nil)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d; body %s", w.Code, tt.status, w.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, tt.contentType) {
				t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
			}
			if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "regions_") {
				t.Errorf("Content-Disposition = %q", cd)
			}
			if w.Header().Get("X-Dropped-Cells") != "0" {
				t.Errorf("X-Dropped-Cells = %q, want 0", w.Header().Get("X-Dropped-Cells"))
			}
		})
	}
}

func TestExportCSVKeepsFirstRowColumnOrder(t *testing.T) {
	s, h := setupTestServer(t)
	seedChile(t, s, 1)

	w := do(h, http.MethodGet, "/admin/regions/export?format=csv", "", nil)
	header, _, _ := strings.Cut(w.Body.String(), "\n")
	if got := strings.TrimSpace(header); got != "id,name,country_id,created_at,updated_at" {
		t.Errorf("header = %q", got)
	}
}

func TestTemplateDownload(t *testing.T) {
	_, h := setupTestServer(t)

	w := do(h, http.MethodGet, "/admin/regions/template", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, transfer.TemplateFilename("regions")) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if w.Body.Len() == 0 {
		t.Error("template body is empty")
	}
}

func upload(t *testing.T, h http.Handler, target, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	part.Write([]byte(content))
	mw.Close()
	return do(h, http.MethodPost, target, buf.String(), map[string]string{"Content-Type": mw.FormDataContentType()})
}

func TestImport(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		status   int
		created  int
		failed   int
		want     string
	}{
		{
			name:     "csv rows are created",
			filename: "regions.csv",
			content:  "name,country_id,ordinal\nValparaíso,cl,5\nBiobío,cl,8\n",
			status:   http.StatusOK,
			created:  2,
			want:     "Imported 2 of 2 rows",
		},
		{
			name:     "json rows are created",
			filename: "regions.json",
			content:  `[{"name":"Maule","country_id":"cl","ordinal":7}]`,
			status:   http.StatusOK,
			created:  1,
			want:     "Imported 1 of 1 rows",
		},
		{
			name:     "duplicate id fails only that row",
			filename: "regions.csv",
			content:  "id,name,country_id\nr1,Again,cl\nr9,New,cl\n",
			status:   http.StatusOK,
			created:  1,
			failed:   1,
			want:     "Row 1:",
		},
		{
			name:     "missing required column rejects the file",
			filename: "regions.csv",
			content:  "name\nValparaíso\n",
			status:   http.StatusUnprocessableEntity,
			want:     "country_id",
		},
		{
			name:     "unsupported extension",
			filename: "regions.txt",
			content:  "name\n",
			status:   http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, h := setupTestServer(t)
			seedChile(t, s, 1)

			w := upload(t, h, "/admin/regions/import", tt.filename, tt.content)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d; body %s", w.Code, tt.status, w.Body.String())
			}
			if tt.want != "" && !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
			if tt.status == http.StatusBadRequest {
				return
			}

			n, _ := s.Count(context.Background(), "regions")
			if n != 1+tt.created {
				t.Errorf("Count() = %d, want %d", n, 1+tt.created)
			}
			runs, err := s.GetImportRuns(context.Background(), store.ImportRunQuery{TableName: "regions"})
			if err != nil || len(runs) != 1 {
				t.Fatalf("GetImportRuns() = %d runs, %v; want 1", len(runs), err)
			}
			if runs[0].Created != tt.created || runs[0].Failed != tt.failed || runs[0].Filename != tt.filename {
				t.Errorf("import run = %+v", runs[0])
			}
		})
	}
}

func TestImportRequiresFile(t *testing.T) {
	_, h := setupTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no file")
	mw.Close()
	w := do(h, http.MethodPost, "/admin/regions/import", buf.String(), map[string]string{"Content-Type": mw.FormDataContentType()})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestImportPageListsHistory(t *testing.T) {
	s, h := setupTestServer(t)
	if err := s.LogImport(context.Background(), &store.ImportRun{TableName: "regions", Filename: "old.xlsx", Format: "xlsx", RowCount: 3, Created: 3}); err != nil {
		t.Fatalf("LogImport() error = %v", err)
	}

	w := do(h, http.MethodGet, "/admin/regions/import", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"old.xlsx", "Recent imports", "name, country_id"} {
		if !strings.Contains(body, want) {
			t.Errorf("import page missing %q", want)
		}
	}
}

func TestTableLabel(t *testing.T) {
	tests := map[string]string{
		"blog_posts":              "Blog posts",
		"regions":                 "Regions",
		"sustainability_criteria": "Sustainability criteria",
		"":                        "",
	}
	for in, want := range tests {
		if got := tableLabel(in); got != want {
			t.Errorf("tableLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
