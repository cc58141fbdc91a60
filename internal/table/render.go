// ABOUTME: HTML rendering of a table view with Tailwind CSS.
// ABOUTME: Row actions appear only when the caller supplies them.

package table

import (
	"fmt"
	"html"
	"strings"

	"github.com/ekoru/admin/internal/record"
)

// RenderOptions supplies the links the rendered table needs. Edit and
// Delete receive the full row and return the action URL; a nil func
// hides that action.
type RenderOptions struct {
	Edit     func(row record.Row) string
	Delete   func(row record.Row) string
	PageURL  func(page int) string
	RetryURL string
}

// Render generates the table for v.
func Render(v View, opts RenderOptions) string {
	var sb strings.Builder

	switch v.State {
	case StateIdle:
		return ""
	case StateLoading:
		return `<div class="p-6 text-center text-gray-500">Loading...</div>`
	case StateError:
		sb.WriteString(`<div class="bg-red-50 border border-red-200 rounded p-4">`)
		sb.WriteString(fmt.Sprintf(`<p class="text-sm text-red-700">%s</p>`, html.EscapeString(v.Err.Error())))
		if opts.RetryURL != "" {
			sb.WriteString(fmt.Sprintf(`<a href="%s" class="mt-2 inline-block px-3 py-1 bg-red-600 text-white rounded hover:bg-red-700">Retry</a>`,
				html.EscapeString(opts.RetryURL)))
		}
		sb.WriteString(`</div>`)
		return sb.String()
	case StateEmpty:
		msg := "No records found"
		if v.Search != "" {
			msg = fmt.Sprintf("No records on this page match %q", v.Search)
		}
		return fmt.Sprintf(`<div class="p-6 text-center text-gray-500">%s</div>`, html.EscapeString(msg))
	}

	hasActions := opts.Edit != nil || opts.Delete != nil

	sb.WriteString(`<table class="min-w-full divide-y divide-gray-200">`)
	sb.WriteString(`<thead class="bg-gray-50"><tr>`)
	for _, col := range v.Schema.Columns {
		sb.WriteString(fmt.Sprintf(`<th class="px-6 py-3 text-left text-xs font-medium text-gray-500 uppercase">%s</th>`,
			html.EscapeString(col)))
	}
	if hasActions {
		sb.WriteString(`<th class="px-6 py-3 text-right text-xs font-medium text-gray-500 uppercase">Actions</th>`)
	}
	sb.WriteString(`</tr></thead>`)

	sb.WriteString(`<tbody class="bg-white divide-y divide-gray-200">`)
	for _, row := range v.Rows {
		sb.WriteString(`<tr>`)
		for _, col := range v.Schema.Columns {
			sb.WriteString(fmt.Sprintf(`<td class="px-6 py-4 whitespace-nowrap text-sm text-gray-900">%s</td>`,
				html.EscapeString(FormatCell(row.Value(col)))))
		}
		if hasActions {
			sb.WriteString(`<td class="px-6 py-4 whitespace-nowrap text-right text-sm space-x-3">`)
			sb.WriteString(renderActions(row, opts))
			sb.WriteString(`</td>`)
		}
		sb.WriteString(`</tr>`)
	}
	sb.WriteString(`</tbody></table>`)

	if v.PageInfo != nil && opts.PageURL != nil {
		sb.WriteString(renderPager(*v.PageInfo, opts.PageURL))
	}
	return sb.String()
}

func renderActions(row record.Row, opts RenderOptions) string {
	var parts []string
	if opts.Edit != nil {
		parts = append(parts, fmt.Sprintf(`<a href="%s" title="Edit" class="text-blue-600 hover:text-blue-900">✎</a>`,
			html.EscapeString(opts.Edit(row))))
	}
	if opts.Delete != nil {
		parts = append(parts, fmt.Sprintf(`<button hx-delete="%s" hx-confirm="Delete this item?" title="Delete" class="text-red-600 hover:text-red-900">🗑</button>`,
			html.EscapeString(opts.Delete(row))))
	}
	return strings.Join(parts, " ")
}

func renderPager(p PageInfo, pageURL func(int) string) string {
	var sb strings.Builder
	sb.WriteString(`<div class="flex items-center justify-between mt-4 text-sm text-gray-600">`)
	sb.WriteString(fmt.Sprintf(`<span>Page %d of %d (%d records)</span>`, p.CurrentPage, p.TotalPages, p.TotalCount))
	sb.WriteString(`<div class="space-x-2">`)
	if p.HasPreviousPage {
		sb.WriteString(fmt.Sprintf(`<a href="%s" class="px-3 py-1 bg-gray-200 rounded hover:bg-gray-300">Previous</a>`,
			html.EscapeString(pageURL(p.CurrentPage-1))))
	}
	if p.HasNextPage {
		sb.WriteString(fmt.Sprintf(`<a href="%s" class="px-3 py-1 bg-gray-200 rounded hover:bg-gray-300">Next</a>`,
			html.EscapeString(pageURL(p.CurrentPage+1))))
	}
	sb.WriteString(`</div></div>`)
	return sb.String()
}
