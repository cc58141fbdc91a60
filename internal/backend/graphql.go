// ABOUTME: GraphQL implementation of Backend over HTTP with bearer auth.
// ABOUTME: Requests are rate limited and never retried; failures are logged and returned.

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/machinebox/graphql"
	"golang.org/x/time/rate"

	"github.com/ekoru/admin/internal/operation"
	"github.com/ekoru/admin/internal/record"
	"github.com/ekoru/admin/internal/table"
)

// Config configures the GraphQL client. Zero values get defaults:
// 30s timeout and 10 requests per second.
type Config struct {
	Endpoint          string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Transport         http.RoundTripper
}

// GraphQL sends registered operations to a GraphQL endpoint.
type GraphQL struct {
	client  *graphql.Client
	token   string
	limiter *rate.Limiter
}

// Error carries the messages of a failed GraphQL call.
type Error struct {
	Operation string
	Messages  []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("graphql %s: %s", e.Operation, strings.Join(e.Messages, "; "))
}

// NewGraphQL creates a client for cfg.Endpoint.
func NewGraphQL(cfg Config) (*GraphQL, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("graphql: endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	httpClient := &http.Client{Timeout: cfg.Timeout, Transport: transport}
	return &GraphQL{
		client:  graphql.NewClient(cfg.Endpoint, graphql.WithHTTPClient(httpClient)),
		token:   cfg.Token,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}, nil
}

// do runs op and decodes its result field into out.
func (g *GraphQL) do(ctx context.Context, op *operation.Operation, vars map[string]any, out any) error {
	if op == nil {
		return ErrNotConfigured
	}
	err := g.send(ctx, op, vars, out)
	if err != nil {
		log.Printf("graphql: %s on %s failed: %v", op.Name, op.Table, err)
	}
	return err
}

func (g *GraphQL) send(ctx context.Context, op *operation.Operation, vars map[string]any, out any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	req := graphql.NewRequest(op.Document)
	for k, v := range vars {
		req.Var(k, v)
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	var data map[string]json.RawMessage
	if err := g.client.Run(ctx, req, &data); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &Error{Operation: op.Name, Messages: []string{strings.TrimPrefix(err.Error(), "graphql: ")}}
	}
	if out == nil {
		return nil
	}
	result, ok := data[op.Field]
	if !ok || string(result) == "null" {
		return fmt.Errorf("response has no %q field", op.Field)
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("decode %s: %w", op.Field, err)
	}
	return nil
}

// Fetch runs the table's list query.
func (g *GraphQL) Fetch(ctx context.Context, req table.Request) (table.Result, error) {
	if req.Table == "" {
		return table.Result{}, nil
	}
	op := operation.GetListQuery(req.Table)
	if op == nil {
		return table.Result{}, NotConfigured(req.Table, operation.KindList)
	}

	var page struct {
		Data     []record.Row    `json:"data"`
		PageInfo *table.PageInfo `json:"pageInfo"`
	}
	vars := map[string]any{"page": req.Page, "pageSize": req.PageSize}
	if err := g.do(ctx, op, vars, &page); err != nil {
		return table.Result{}, err
	}
	return table.Result{Rows: page.Data, PageInfo: page.PageInfo}, nil
}

func (g *GraphQL) Create(ctx context.Context, op *operation.Operation, values record.Row) (record.Row, error) {
	var created record.Row
	err := g.do(ctx, op, map[string]any{"input": input(values)}, &created)
	return created, err
}

func (g *GraphQL) Update(ctx context.Context, op *operation.Operation, id string, values record.Row) (record.Row, error) {
	var updated record.Row
	err := g.do(ctx, op, map[string]any{"id": id, "input": input(values)}, &updated)
	return updated, err
}

func (g *GraphQL) Delete(ctx context.Context, op *operation.Operation, id string) error {
	return g.do(ctx, op, map[string]any{"id": id}, nil)
}

func (g *GraphQL) BulkCreate(ctx context.Context, op *operation.Operation, rows []record.Row) (BulkResult, error) {
	inputs := make([]record.Row, len(rows))
	for i, r := range rows {
		inputs[i] = input(r)
	}
	var res BulkResult
	err := g.do(ctx, op, map[string]any{"inputs": inputs}, &res)
	return res, err
}

// input strips metadata keys and the id from a row sent as mutation input.
func input(values record.Row) record.Row {
	in := record.StripMeta(values)
	in.Delete("id")
	return in
}
