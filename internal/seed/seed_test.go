// ABOUTME: Tests for the sample-row generator.
// ABOUTME: Seeds a temporary SQLite store and checks static rows against field validation.

package seed

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ekoru/admin/internal/fields"
	"github.com/ekoru/admin/internal/form"
	"github.com/ekoru/admin/internal/store"
	"github.com/ekoru/admin/internal/table"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOrderPutsRelatedTablesFirst(t *testing.T) {
	got := Order([]string{"cities", "regions", "countries", "blog_posts", "admins"})

	before := func(a, b string) {
		t.Helper()
		if slices.Index(got, a) > slices.Index(got, b) {
			t.Errorf("Order() = %v, want %s before %s", got, a, b)
		}
	}
	before("countries", "regions")
	before("regions", "cities")
	before("admins", "blog_posts")
	if len(got) != 5 {
		t.Errorf("Order() returned %d tables, want 5", len(got))
	}
}

func TestOrderIgnoresTablesOutsideTheList(t *testing.T) {
	got := Order([]string{"cities"})
	if len(got) != 1 || got[0] != "cities" {
		t.Errorf("Order([cities]) = %v", got)
	}
}

func TestStaticRowsPassValidation(t *testing.T) {
	for _, name := range fields.Tables() {
		t.Run(name, func(t *testing.T) {
			descriptors := fields.GetFieldConfig(name)
			rows := StaticRows(name, descriptors, 7)
			if len(rows) != 7 {
				t.Fatalf("StaticRows() returned %d rows, want 7", len(rows))
			}
			for i, r := range rows {
				// relations are filled at seed time
				for _, d := range descriptors {
					if d.Kind == fields.KindRelation {
						r.Set(d.Name, "placeholder-id")
					}
				}
				if verr := form.Validate(descriptors, form.NewDraft(descriptors, r)); verr != nil {
					t.Errorf("row %d fails validation: %v", i, verr)
				}
			}
		})
	}
}

func TestStaticRowsAreDistinctAfterPoolWraps(t *testing.T) {
	rows := StaticRows("admins", fields.GetFieldConfig("admins"), 10)
	seen := make(map[any]bool)
	for _, r := range rows {
		email := r.Value("email")
		if seen[email] {
			t.Errorf("duplicate email %v", email)
		}
		seen[email] = true
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hogar y jardín", "hogar-y-jardin"},
		{"¿Qué significa la huella?", "que-significa-la-huella"},
		{"Moda circular 2", "moda-circular-2"},
		{"  Ñandú  ", "nandu"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSeedFillsRelations(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	results, err := NewStaticGenerator().Seed(ctx, s, []string{"cities", "regions", "countries"}, 3)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Seed() returned %d results, want 3", len(results))
	}
	for _, r := range results {
		if r.Created != 3 || r.Failed != 0 {
			t.Errorf("%s: created %d failed %d, want 3/0", r.Table, r.Created, r.Failed)
		}
	}

	regions, err := table.FetchAll(ctx, s, "regions", 10)
	if err != nil {
		t.Fatal(err)
	}
	countries, _ := table.FetchAll(ctx, s, "countries", 10)
	countryIDs := make(map[string]bool)
	for _, c := range countries {
		countryIDs[c.ID()] = true
	}
	for _, r := range regions {
		id, _ := r.Value("country_id").(string)
		if !countryIDs[id] {
			t.Errorf("region %v points at unknown country %q", r.Value("name"), id)
		}
	}
}

func TestSeedAllTables(t *testing.T) {
	s := newStore(t)
	results, err := NewStaticGenerator().Seed(context.Background(), s, nil, 0)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if len(results) != len(fields.Tables()) {
		t.Errorf("seeded %d tables, want %d", len(results), len(fields.Tables()))
	}
	n, _ := s.Count(context.Background(), "blog_posts")
	if n != DefaultCount {
		t.Errorf("blog_posts count = %d, want %d", n, DefaultCount)
	}
}

func TestSeedUnknownTable(t *testing.T) {
	s := newStore(t)
	if _, err := NewStaticGenerator().Seed(context.Background(), s, []string{"planets"}, 1); err == nil {
		t.Error("Seed(unknown) error = nil, want error")
	}
}
