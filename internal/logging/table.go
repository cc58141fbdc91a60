// ABOUTME: Table detection for request logging.
// ABOUTME: Resolves which admin table a request targets from its URL path.

package logging

import (
	"strings"

	"github.com/ekoru/admin/internal/fields"
)

// TableFromPath returns the registered table named by an /admin/{table}
// path, or "" for any other path.
func TableFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/admin/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	if !fields.HasFieldConfig(name) {
		return ""
	}
	return name
}
