// ABOUTME: Data source contract for the generic table and pagination metadata.
// ABOUTME: The table knows only how to ask for a page, never how the page is fetched.

package table

import (
	"context"
	"fmt"

	"github.com/ekoru/admin/internal/record"
)

// Request identifies one page of one table. Page is 1-based.
type Request struct {
	Table    string
	Page     int
	PageSize int
}

// Result is one fetched page. PageInfo is nil when the source does not paginate.
type Result struct {
	Rows     []record.Row
	PageInfo *PageInfo
}

// DataSource fetches pages of rows. Implementations must return an empty
// result and no error for an empty table name.
type DataSource interface {
	Fetch(ctx context.Context, req Request) (Result, error)
}

// PageInfo describes where a page sits in the full result set.
type PageInfo struct {
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	CurrentPage     int  `json:"currentPage"`
	PageSize        int  `json:"pageSize"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPageInfo computes pagination for total rows. The page is clamped to
// [1, max(totalPages, 1)] so CurrentPage never exceeds TotalPages when there are rows.
func NewPageInfo(total, page, pageSize int) PageInfo {
	if pageSize < 1 {
		pageSize = 1
	}
	if total < 0 {
		total = 0
	}
	totalPages := (total + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = max(totalPages, 1)
	}
	return PageInfo{
		TotalCount:      total,
		TotalPages:      totalPages,
		CurrentPage:     page,
		PageSize:        pageSize,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// Offset returns the zero-based index of the page's first row.
func (p PageInfo) Offset() int {
	return (p.CurrentPage - 1) * p.PageSize
}

// FetchAll walks every page of table and returns all rows in order. A
// result without PageInfo ends the walk.
func FetchAll(ctx context.Context, src DataSource, table string, pageSize int) ([]record.Row, error) {
	if pageSize < 1 {
		pageSize = 100
	}
	var all []record.Row
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := src.Fetch(ctx, Request{Table: table, Page: page, PageSize: pageSize})
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", table, page, err)
		}
		all = append(all, res.Rows...)

		// A source without PageInfo returns its whole result set at once.
		if res.PageInfo == nil {
			return all, nil
		}
		if !res.PageInfo.HasNextPage || page >= res.PageInfo.TotalPages {
			return all, nil
		}
	}
}
