// ABOUTME: Stateful generic table: current table, page, page size and search term.
// ABOUTME: Fetch completions for a request that is no longer current are discarded.

package table

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/ekoru/admin/internal/record"
)

// ErrStale is returned by Load when the table, page or page size changed
// while the fetch was in flight, or a newer fetch already completed. The
// result has been discarded; callers normally ignore this error.
var ErrStale = errors.New("table: stale fetch discarded")

// DefaultPageSize is used when a table is created with a non-positive page size.
const DefaultPageSize = 10

// State is what the table should display.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateError
	StateEmpty
	StateRows
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateEmpty:
		return "empty"
	case StateRows:
		return "rows"
	default:
		return "idle"
	}
}

// View is a consistent snapshot of the table for rendering.
type View struct {
	Table    string
	State    State
	Rows     []record.Row // after search filtering
	Schema   Schema
	PageInfo *PageInfo
	Search   string
	Err      error
}

// Table holds the display state of one generic table.
type Table struct {
	src DataSource

	mu       sync.Mutex
	req      Request
	search   string
	issued   uint64 // sequence of the latest fetch started
	applied  uint64 // sequence of the latest fetch applied
	inflight int
	rows     []record.Row
	pageInfo *PageInfo
	err      error
}

// New creates a table over src with no table selected.
func New(src DataSource, pageSize int) *Table {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Table{
		src: src,
		req: Request{Page: 1, PageSize: pageSize},
	}
}

// SetTable switches to another table. The page resets to 1, the search
// term is cleared and rows held for the previous table are dropped.
func (t *Table) SetTable(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if name == t.req.Table {
		return
	}
	t.req.Table = name
	t.req.Page = 1
	t.search = ""
	t.rows = nil
	t.pageInfo = nil
	t.err = nil
}

// SetPage selects a 1-based page. Values below 1 select the first page.
func (t *Table) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	t.mu.Lock()
	t.req.Page = page
	t.mu.Unlock()
}

// SetPageSize changes the page size and returns to the first page.
func (t *Table) SetPageSize(size int) {
	if size < 1 {
		size = DefaultPageSize
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if size == t.req.PageSize {
		return
	}
	t.req.PageSize = size
	t.req.Page = 1
}

// SetSearch sets the client-side search term for the current page.
func (t *Table) SetSearch(term string) {
	t.mu.Lock()
	t.search = term
	t.mu.Unlock()
}

// Request returns the request the next Load will issue.
func (t *Table) Request() Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.req
}

// Load fetches the current page. Errors are kept for display and returned;
// they are never retried automatically.
func (t *Table) Load(ctx context.Context) error {
	t.mu.Lock()
	req := t.req
	if req.Table == "" {
		t.rows, t.pageInfo, t.err = nil, nil, nil
		t.mu.Unlock()
		return nil
	}
	t.issued++
	seq := t.issued
	t.inflight++
	t.mu.Unlock()

	res, err := t.src.Fetch(ctx, req)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight--

	if req != t.req || seq < t.applied {
		log.Printf("table: discarding stale fetch of %s page %d (current %s page %d)",
			req.Table, req.Page, t.req.Table, t.req.Page)
		return ErrStale
	}
	t.applied = seq

	if err != nil {
		log.Printf("table: fetch %s page %d failed: %v", req.Table, req.Page, err)
		t.err = err
		return err
	}
	t.err = nil
	t.rows = res.Rows
	t.pageInfo = res.PageInfo
	return nil
}

// Refetch reloads the current page. It is the manual retry after an error.
func (t *Table) Refetch(ctx context.Context) error {
	return t.Load(ctx)
}

// View returns what should be displayed now.
func (t *Table) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows := Filter(t.rows, t.search)
	v := View{
		Table:  t.req.Table,
		Rows:   rows,
		Schema: InferSchema(rows),
		Search: t.search,
		Err:    t.err,
	}
	if t.pageInfo != nil {
		pi := *t.pageInfo
		v.PageInfo = &pi
	}

	switch {
	case t.req.Table == "":
		v.State = StateIdle
	case t.inflight > 0 && t.rows == nil:
		v.State = StateLoading
	case t.err != nil:
		v.State = StateError
	case len(rows) == 0:
		v.State = StateEmpty
	default:
		v.State = StateRows
	}
	return v
}
