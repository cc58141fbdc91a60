// ABOUTME: Ordered row type shared by the table, form and transfer packages, backed by an ordered map.
// ABOUTME: Keeps key insertion order through JSON and owns the metadata key prefix.

package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MetaPrefix marks backend metadata keys (e.g. "__typename") that are never
// shown as columns, exported, or imported.
const MetaPrefix = "__"

// IsMetaKey reports whether key is a metadata key.
func IsMetaKey(key string) bool {
	return strings.HasPrefix(key, MetaPrefix)
}

// Row is a mapping from column name to value that remembers the order in
// which keys were first set. The zero value is an empty row ready to use.
// Copies of a Row share storage; use Clone for an independent copy.
type Row struct {
	m *orderedmap.OrderedMap[string, any]
}

// New returns an empty row with room for n keys.
func New(n int) Row {
	return Row{m: orderedmap.New[string, any](n)}
}

// FromPairs builds a row from alternating key/value arguments.
// It panics on an odd argument count or a non-string key.
func FromPairs(kv ...any) Row {
	if len(kv)%2 != 0 {
		panic("record: FromPairs needs an even number of arguments")
	}
	r := New(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("record: key at position %d is %T, not string", i, kv[i]))
		}
		r.Set(k, kv[i+1])
	}
	return r
}

// FromMap builds a row from m. Keys listed in order come first, in that
// order; remaining keys follow sorted by name so output is deterministic.
func FromMap(m map[string]any, order []string) Row {
	r := New(len(m))
	for _, k := range order {
		if v, ok := m[k]; ok {
			r.Set(k, v)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !r.Has(k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		r.Set(k, m[k])
	}
	return r
}

// Set assigns v to key, appending key to the order if it is new.
func (r *Row) Set(key string, v any) {
	if r.m == nil {
		r.m = orderedmap.New[string, any]()
	}
	r.m.Set(key, v)
}

// Get returns the value for key and whether it was present.
func (r Row) Get(key string) (any, bool) {
	if r.m == nil {
		return nil, false
	}
	return r.m.Get(key)
}

// Value returns the value for key or nil.
func (r Row) Value(key string) any {
	v, _ := r.Get(key)
	return v
}

// Has reports whether key is present.
func (r Row) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Delete removes key, preserving the order of the remaining keys.
func (r *Row) Delete(key string) {
	if r.m != nil {
		r.m.Delete(key)
	}
}

// Keys returns the keys in insertion order.
func (r Row) Keys() []string {
	out := make([]string, 0, r.Len())
	for p := r.oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Len returns the number of keys.
func (r Row) Len() int {
	if r.m == nil {
		return 0
	}
	return r.m.Len()
}

func (r Row) oldest() *orderedmap.Pair[string, any] {
	if r.m == nil {
		return nil
	}
	return r.m.Oldest()
}

// ID returns the row's "id" value formatted as a string, or "" when absent.
func (r Row) ID() string {
	v, ok := r.Get("id")
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Map returns a shallow copy of the row as a plain map.
func (r Row) Map() map[string]any {
	out := make(map[string]any, r.Len())
	for p := r.oldest(); p != nil; p = p.Next() {
		out[p.Key] = p.Value
	}
	return out
}

// Clone returns a shallow copy that can be mutated independently.
func (r Row) Clone() Row {
	c := New(r.Len())
	for p := r.oldest(); p != nil; p = p.Next() {
		c.Set(p.Key, p.Value)
	}
	return c
}

// StripMeta returns a copy of r without metadata keys.
func StripMeta(r Row) Row {
	out := New(r.Len())
	for p := r.oldest(); p != nil; p = p.Next() {
		if IsMetaKey(p.Key) {
			continue
		}
		out.Set(p.Key, p.Value)
	}
	return out
}

// MarshalJSON encodes the row as a JSON object in key order.
func (r Row) MarshalJSON() ([]byte, error) {
	if r.m == nil {
		return []byte("{}"), nil
	}
	return r.m.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping top-level key order.
// Nested objects decode to map[string]any and numbers to float64.
func (r *Row) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*r = Row{}
		return nil
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("record: expected JSON object, got %.20s", trimmed)
	}
	m := orderedmap.New[string, any]()
	if err := m.UnmarshalJSON(trimmed); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	*r = Row{m: m}
	return nil
}

// Stringify renders a cell value the way search and CSV output see it:
// nil is empty, strings are as-is, objects and arrays are JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case Row:
		b, _ := json.Marshal(t)
		return string(b)
	case map[string]any, []any, []string, []map[string]any, []int, []float64:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// IsComposite reports whether v is an object or array value.
func IsComposite(v any) bool {
	switch v.(type) {
	case Row, map[string]any, []any, []string, []map[string]any, []int, []float64:
		return true
	}
	return false
}
