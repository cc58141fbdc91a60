// ABOUTME: GraphQL documents for the admin tables, built from their field descriptors.
// ABOUTME: Tables that are only partly onboarded leave some operations unset.

package operation

import (
	"fmt"
	"strings"

	"github.com/ekoru/admin/internal/fields"
)

const pageInfoSelection = "pageInfo { totalCount totalPages currentPage pageSize hasNextPage hasPreviousPage }"

// Builder creates the standard documents for one table.
type Builder struct {
	Table string
	Type  string // GraphQL type name, e.g. "BlogPost"
	root  string // list field, e.g. "blogPosts"
}

// NewBuilder derives GraphQL names from a snake_case table name.
func NewBuilder(table, typeName string) Builder {
	return Builder{Table: table, Type: typeName, root: camel(table)}
}

func (b Builder) selection() string {
	names := append([]string{"id"}, fields.Names(fields.GetFieldConfig(b.Table))...)
	// passwords are write-only
	out := names[:0]
	for _, n := range names {
		if n != "password" {
			out = append(out, n)
		}
	}
	return strings.Join(out, " ")
}

// List returns the paginated list query.
func (b Builder) List() *Operation {
	name := "List" + pascal(b.Table)
	return &Operation{
		Table: b.Table,
		Kind:  KindList,
		Name:  name,
		Field: b.root,
		Document: fmt.Sprintf("query %s($page: Int!, $pageSize: Int!) {\n  %s(page: $page, pageSize: $pageSize) {\n    data { %s }\n    %s\n  }\n}",
			name, b.root, b.selection(), pageInfoSelection),
	}
}

// Create returns the create mutation.
func (b Builder) Create() *Operation {
	name := "Create" + b.Type
	field := "create" + b.Type
	return &Operation{
		Table: b.Table,
		Kind:  KindCreate,
		Name:  name,
		Field: field,
		Document: fmt.Sprintf("mutation %s($input: %sInput!) {\n  %s(input: $input) { %s }\n}",
			name, b.Type, field, b.selection()),
	}
}

// Update returns the update mutation.
func (b Builder) Update() *Operation {
	name := "Update" + b.Type
	field := "update" + b.Type
	return &Operation{
		Table: b.Table,
		Kind:  KindUpdate,
		Name:  name,
		Field: field,
		Document: fmt.Sprintf("mutation %s($id: ID!, $input: %sInput!) {\n  %s(id: $id, input: $input) { %s }\n}",
			name, b.Type, field, b.selection()),
	}
}

// Delete returns the delete mutation.
func (b Builder) Delete() *Operation {
	name := "Delete" + b.Type
	field := "delete" + b.Type
	return &Operation{
		Table:    b.Table,
		Kind:     KindDelete,
		Name:     name,
		Field:    field,
		Document: fmt.Sprintf("mutation %s($id: ID!) {\n  %s(id: $id)\n}", name, field),
	}
}

// BulkImport returns the bulk create mutation.
func (b Builder) BulkImport() *Operation {
	name := "BulkCreate" + pascal(b.Table)
	field := "bulkCreate" + pascal(b.Table)
	return &Operation{
		Table: b.Table,
		Kind:  KindBulkImport,
		Name:  name,
		Field: field,
		Document: fmt.Sprintf("mutation %s($inputs: [%sInput!]!) {\n  %s(inputs: $inputs) { created errors { index message } }\n}",
			name, b.Type, field),
	}
}

// Full returns every operation.
func (b Builder) Full() Set {
	return Set{List: b.List(), Create: b.Create(), Update: b.Update(), Delete: b.Delete(), BulkImport: b.BulkImport()}
}

func pascal(s string) string {
	c := camel(s)
	if c == "" {
		return c
	}
	return strings.ToUpper(c[:1]) + c[1:]
}

// camel converts snake_case to camelCase.
func camel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func init() {
	for _, t := range []struct{ table, typ string }{
		{"countries", "Country"},
		{"regions", "Region"},
		{"cities", "City"},
		{"categories", "Category"},
		{"subcategories", "Subcategory"},
		{"blog_posts", "BlogPost"},
	} {
		Register(t.table, NewBuilder(t.table, t.typ).Full())
	}

	// admins are never bulk imported
	admins := NewBuilder("admins", "Admin")
	Register("admins", Set{List: admins.List(), Create: admins.Create(), Update: admins.Update(), Delete: admins.Delete()})

	// edit only
	criteria := NewBuilder("sustainability_criteria", "SustainabilityCriterion")
	Register("sustainability_criteria", Set{List: criteria.List(), Update: criteria.Update()})

	// read only
	metrics := NewBuilder("eco_metrics", "EcoMetric")
	Register("eco_metrics", Set{List: metrics.List()})
}
