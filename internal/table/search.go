// ABOUTME: Client-side search over the rows of the current page.
// ABOUTME: Matching is case and accent insensitive substring search.

package table

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ekoru/admin/internal/record"
)

// Filter returns the rows where any column value contains term. It never
// queries the source, so only the current page is searched.
func Filter(rows []record.Row, term string) []record.Row {
	needle := fold(strings.TrimSpace(term))
	if needle == "" {
		return rows
	}
	out := make([]record.Row, 0, len(rows))
	for _, row := range rows {
		if matches(row, needle) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row record.Row, needle string) bool {
	for _, k := range row.Keys() {
		if record.IsMetaKey(k) {
			continue
		}
		if strings.Contains(fold(record.Stringify(row.Value(k))), needle) {
			return true
		}
	}
	return false
}

// fold strips accents and case-folds s, so "PERÚ" matches "peru".
func fold(s string) string {
	if s == "" {
		return s
	}
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}
