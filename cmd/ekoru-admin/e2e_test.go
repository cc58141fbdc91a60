// ABOUTME: End-to-end tests for the admin server.
// ABOUTME: Drives create, list, export, import and delete over HTTP against both backends.

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/ekoru/admin/internal/config"
)

func setupE2EServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	h, closer, err := newServer(cfg)
	if err != nil {
		t.Fatalf("newServer() error = %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		closer.Close()
	})
	return srv
}

// noRedirect keeps 303 responses visible to the test.
func noRedirect(srv *httptest.Server) *http.Client {
	c := srv.Client()
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return c
}

func TestE2E_RegionFlow(t *testing.T) {
	srv := setupE2EServer(t, testConfig(t))
	client := noRedirect(srv)

	// Create the country the regions point at
	resp, err := client.PostForm(srv.URL+"/admin/countries", url.Values{"name": {"Chile"}, "code": {"CL"}, "is_active": {"true"}})
	if err != nil {
		t.Fatalf("create country error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("create country status = %d, want 303", resp.StatusCode)
	}

	// Find its id through the JSON export
	resp, err = client.Get(srv.URL + "/admin/countries/export?format=json")
	if err != nil {
		t.Fatalf("export countries error: %v", err)
	}
	var countries []map[string]any
	json.NewDecoder(resp.Body).Decode(&countries)
	resp.Body.Close()
	if len(countries) != 1 {
		t.Fatalf("countries = %v, want one", countries)
	}
	countryID, _ := countries[0]["id"].(string)

	// Import two regions
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "regions.csv")
	io.WriteString(part, "name,country_id,ordinal\nValparaíso,"+countryID+",5\nBiobío,"+countryID+",8\n")
	mw.Close()
	resp, err = client.Post(srv.URL+"/admin/regions/import", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("import error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Imported 2 of 2 rows") {
		t.Fatalf("import status = %d, body %s", resp.StatusCode, body)
	}

	// List shows both
	resp, err = client.Get(srv.URL + "/admin/regions")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{"Valparaíso", "Biobío", "Page 1 of 1"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("list missing %q", want)
		}
	}

	// Export as CSV and delete the first region
	resp, err = client.Get(srv.URL + "/admin/regions/export?format=csv")
	if err != nil {
		t.Fatalf("export error: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want header and 2 rows", len(lines))
	}
	id, _, _ := strings.Cut(lines[1], ",")

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/admin/regions/"+id, nil)
	req.Header.Set("HX-Request", "true")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("delete error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("HX-Refresh") != "true" {
		t.Errorf("delete = %d, HX-Refresh %q", resp.StatusCode, resp.Header.Get("HX-Refresh"))
	}

	resp, err = client.Get(srv.URL + "/admin/regions/export?format=json")
	if err != nil {
		t.Fatalf("export error: %v", err)
	}
	var remaining []map[string]any
	json.NewDecoder(resp.Body).Decode(&remaining)
	resp.Body.Close()
	if len(remaining) != 1 || remaining[0]["name"] != "Biobío" {
		t.Errorf("remaining = %v, want only Biobío", remaining)
	}
}

func TestE2E_GraphQLBackend(t *testing.T) {
	var mu sync.Mutex
	var operations []string
	gql := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		var name string
		if f := strings.Fields(req.Query); len(f) > 1 {
			name, _, _ = strings.Cut(f[1], "(")
		}
		mu.Lock()
		operations = append(operations, name)
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"regions":{
			"data":[{"id":"r1","name":"Atacama","country_id":"cl"}],
			"pageInfo":{"totalCount":1,"totalPages":1,"currentPage":1,"pageSize":10,"hasNextPage":false,"hasPreviousPage":false}}}}`)
	}))
	t.Cleanup(gql.Close)

	cfg := testConfig(t)
	cfg.Backend = config.BackendGraphQL
	cfg.GraphQL.Endpoint = gql.URL
	cfg.GraphQL.Token = "token-1"
	cfg.GraphQL.RequestsPerSecond = 1000
	srv := setupE2EServer(t, cfg)

	resp, err := srv.Client().Get(srv.URL + "/admin/regions")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Atacama") {
		t.Errorf("list = %d, body %s", resp.StatusCode, body)
	}
	if strings.Contains(string(body), "/admin/regions/generate") {
		t.Error("sample generation offered for a remote backend")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(operations) == 0 || operations[0] != "ListRegions" {
		t.Errorf("operations = %v, want ListRegions", operations)
	}
}
