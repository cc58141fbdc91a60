// ABOUTME: Sample-row generator for the admin tables, driven by field descriptors.
// ABOUTME: Uses OpenAI when an API key is configured, falls back to static data otherwise.

package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/ekoru/admin/internal/backend"
	"github.com/ekoru/admin/internal/fields"
	"github.com/ekoru/admin/internal/form"
	"github.com/ekoru/admin/internal/record"
	"github.com/ekoru/admin/internal/table"
)

// DefaultCount is the number of rows seeded per table.
const DefaultCount = 5

// Target receives seeded rows. It is the local store in practice.
type Target interface {
	table.DataSource
	InsertRows(ctx context.Context, table string, rows []record.Row) (backend.BulkResult, error)
}

// Result reports one seeded table.
type Result struct {
	Table   string
	Created int
	Failed  int
}

// Generator creates sample rows.
type Generator struct {
	client *openai.Client
	useAI  bool
	model  string
}

// NewGenerator creates a generator from OPENAI_API_KEY and OPENAI_MODEL.
func NewGenerator() *Generator {
	g := &Generator{}

	// Get model from env, default to gpt-5-mini
	g.model = os.Getenv("OPENAI_MODEL")
	if g.model == "" {
		g.model = "gpt-5-mini"
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey != "" {
		g.client = openai.NewClient(apiKey)
		g.useAI = true
		log.Printf("OpenAI API key found, using AI-generated data with model: %s", g.model)
	} else {
		log.Println("No OPENAI_API_KEY found, using static fallback data")
	}

	return g
}

// NewStaticGenerator creates a generator that never calls OpenAI.
func NewStaticGenerator() *Generator {
	return &Generator{}
}

// Seed writes count rows into every table named, or into every registered
// table when tables is empty. Related tables are seeded first so relation
// fields point at real ids.
func (g *Generator) Seed(ctx context.Context, dst Target, tables []string, count int) ([]Result, error) {
	if count <= 0 {
		count = DefaultCount
	}
	if len(tables) == 0 {
		tables = fields.Tables()
	}
	for _, t := range tables {
		if !fields.HasFieldConfig(t) {
			return nil, fmt.Errorf("unknown table %q", t)
		}
	}
	ordered := Order(tables)

	generated, err := g.generateAll(ctx, ordered, count)
	if err != nil {
		return nil, err
	}

	ids := make(map[string][]string)
	var results []Result
	for _, t := range ordered {
		descriptors := fields.GetFieldConfig(t)
		rows := generated[t]
		for i := range rows {
			if err := fillRelations(ctx, dst, descriptors, &rows[i], i, ids); err != nil {
				return results, err
			}
		}
		rows = g.validated(t, descriptors, rows)

		res, err := dst.InsertRows(ctx, t, rows)
		if err != nil {
			return results, fmt.Errorf("seed %s: %w", t, err)
		}
		for _, f := range res.Failures {
			log.Printf("  ✗ %s row %d: %s", t, f.Index, f.Message)
		}
		log.Printf("  ✓ Seeded %d %s", res.Created, t)
		results = append(results, Result{Table: t, Created: res.Created, Failed: len(res.Failures)})
		delete(ids, t) // reload with the new rows if a later table refers here
	}
	return results, nil
}

// generateAll builds rows for every table concurrently. Relation fields are
// left empty.
func (g *Generator) generateAll(ctx context.Context, tables []string, count int) (map[string][]record.Row, error) {
	var mu sync.Mutex
	out := make(map[string][]record.Row, len(tables))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(3)
	for _, t := range tables {
		eg.Go(func() error {
			rows := g.Generate(ctx, t, count)
			mu.Lock()
			out[t] = rows
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Generate creates count rows for a table. AI output is laid over the
// static rows, so every descriptor field is present either way.
func (g *Generator) Generate(ctx context.Context, tableName string, count int) []record.Row {
	descriptors := fields.GetFieldConfig(tableName)
	rows := StaticRows(tableName, descriptors, count)
	if !g.useAI {
		return rows
	}

	log.Printf("  ⏳ Generating %d %s via AI...", count, tableName)
	generated, err := callOpenAI[[]map[string]any](ctx, g.client, g.model, prompt(tableName, descriptors, count))
	if err != nil {
		log.Printf("  ✗ Failed to generate %s: %v, using static data", tableName, err)
		return rows
	}

	for i := range rows {
		if i >= len(generated) {
			break
		}
		for _, d := range descriptors {
			if d.Kind == fields.KindRelation {
				continue
			}
			if v, ok := generated[i][d.Name]; ok && v != nil {
				rows[i].Set(d.Name, v)
			}
		}
	}
	return rows
}

// validated swaps rows that fail form validation for their static version.
func (g *Generator) validated(tableName string, descriptors []fields.Descriptor, rows []record.Row) []record.Row {
	if !g.useAI {
		return rows
	}
	static := StaticRows(tableName, descriptors, len(rows))
	for i, r := range rows {
		draft := form.NewDraft(descriptors, r)
		if verr := form.Validate(descriptors, draft); verr != nil {
			log.Printf("  ✗ AI row %d for %s rejected (%v), using static data", i, tableName, verr)
			for _, d := range descriptors {
				if d.Kind == fields.KindRelation {
					static[i].Set(d.Name, r.Value(d.Name))
				}
			}
			rows[i] = static[i]
		}
	}
	return rows
}

// fillRelations points each relation field at an existing row of its
// related table, cycling through the available ids.
func fillRelations(ctx context.Context, src table.DataSource, descriptors []fields.Descriptor, row *record.Row, i int, ids map[string][]string) error {
	for _, d := range descriptors {
		if d.Kind != fields.KindRelation {
			continue
		}
		related, ok := ids[d.RelatedTable]
		if !ok {
			rows, err := table.FetchAll(ctx, src, d.RelatedTable, 100)
			if err != nil {
				return fmt.Errorf("load %s ids: %w", d.RelatedTable, err)
			}
			for _, r := range rows {
				related = append(related, r.ID())
			}
			ids[d.RelatedTable] = related
		}
		if len(related) == 0 {
			continue
		}
		row.Set(d.Name, related[i%len(related)])
	}
	return nil
}

// Order sorts tables so each comes after the tables its relations point
// at. Relations to tables outside the list are ignored.
func Order(tables []string) []string {
	want := make(map[string]bool, len(tables))
	for _, t := range tables {
		want[t] = true
	}

	var out []string
	visited := make(map[string]bool)
	var visit func(t string)
	visit = func(t string) {
		if visited[t] {
			return
		}
		visited[t] = true
		for _, d := range fields.GetFieldConfig(t) {
			if d.Kind == fields.KindRelation && want[d.RelatedTable] && d.RelatedTable != t {
				visit(d.RelatedTable)
			}
		}
		out = append(out, t)
	}
	for _, t := range tables {
		visit(t)
	}
	return out
}

func prompt(tableName string, descriptors []fields.Descriptor, count int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Generate %d realistic rows for the %q table of Ekoru, a Chilean marketplace for sustainable products.
Return a JSON array of objects with these keys:
`, count, tableName)
	for _, d := range descriptors {
		if d.Kind == fields.KindRelation {
			continue
		}
		fmt.Fprintf(&sb, "- %s (%s)", d.Name, d.Kind)
		if len(d.Options) > 0 {
			vals := make([]string, len(d.Options))
			for i, o := range d.Options {
				vals[i] = fmt.Sprint(o.Value)
			}
			fmt.Fprintf(&sb, ", one of: %s", strings.Join(vals, ", "))
		}
		if d.Min != nil {
			fmt.Fprintf(&sb, ", min %g", *d.Min)
		}
		if d.Max != nil {
			fmt.Fprintf(&sb, ", max %g", *d.Max)
		}
		if d.Validation != nil && d.Validation.Pattern != "" {
			fmt.Fprintf(&sb, ", matching %s", d.Validation.Pattern)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(`Dates use YYYY-MM-DD, datetimes YYYY-MM-DDTHH:MM. Write text in Spanish where natural.`)
	return sb.String()
}

func callOpenAI[T any](ctx context.Context, client *openai.Client, model, prompt string) (T, error) {
	var result T

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a data generator. Always respond with valid JSON only, no markdown or explanation.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return result, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return result, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return result, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return result, nil
}
