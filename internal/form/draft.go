// ABOUTME: Draft record held by a form between opening and submission.
// ABOUTME: Seeds from initial values or defaults and coerces raw input per field kind.

package form

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ekoru/admin/internal/fields"
	"github.com/ekoru/admin/internal/record"
)

// Draft holds in-progress field values, keyed by field name in descriptor order.
type Draft struct {
	fields map[string]fields.Descriptor
	values record.Row

	// coercion problems that validation reports on submit
	invalid map[string]string
}

// NewDraft seeds a draft: initial[name] when present, else the field's
// default, else the field is left unset.
func NewDraft(descriptors []fields.Descriptor, initial record.Row) *Draft {
	d := &Draft{
		fields:  make(map[string]fields.Descriptor, len(descriptors)),
		values:  record.New(len(descriptors)),
		invalid: make(map[string]string),
	}
	for _, f := range descriptors {
		d.fields[f.Name] = f
		if v, ok := initial.Get(f.Name); ok {
			d.values.Set(f.Name, v)
			continue
		}
		if f.Default != nil {
			d.values.Set(f.Name, f.Default)
		}
	}
	return d
}

// Set coerces raw according to the field's kind and stores it. Unknown
// field names are ignored and reported as false.
func (d *Draft) Set(name string, raw any) bool {
	f, ok := d.fields[name]
	if !ok {
		return false
	}
	v, problem := fields.Visit[coercion](f, coercer{})(raw)
	if problem != "" {
		d.invalid[name] = problem
	} else {
		delete(d.invalid, name)
	}
	d.values.Set(name, v)
	return true
}

// Get returns the current value of a field.
func (d *Draft) Get(name string) (any, bool) {
	return d.values.Get(name)
}

// Values returns a copy of the draft as a row.
func (d *Draft) Values() record.Row {
	return d.values.Clone()
}

// coercion turns raw input into a stored value and an optional problem
// message that validation turns into a field error.
type coercion func(raw any) (any, string)

// coercer maps each kind to its coercion.
type coercer struct{}

func identity(raw any) (any, string) { return raw, "" }

func (coercer) Text(fields.Descriptor) coercion     { return identity }
func (coercer) Email(fields.Descriptor) coercion    { return trimmed }
func (coercer) Password(fields.Descriptor) coercion { return identity }
func (coercer) Textarea(fields.Descriptor) coercion { return identity }
func (coercer) Date(fields.Descriptor) coercion     { return trimmed }
func (coercer) Datetime(fields.Descriptor) coercion { return trimmed }
func (coercer) Relation(fields.Descriptor) coercion { return trimmed }
func (coercer) Image(fields.Descriptor) coercion    { return trimmed }

func (coercer) Number(fields.Descriptor) coercion {
	return func(raw any) (any, string) {
		switch v := raw.(type) {
		case nil:
			return nil, ""
		case float64:
			return v, ""
		case float32:
			return float64(v), ""
		case int:
			return float64(v), ""
		case int64:
			return float64(v), ""
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				return nil, ""
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return float64(0), ""
			}
			return f, ""
		default:
			return float64(0), ""
		}
	}
}

func (coercer) Select(d fields.Descriptor) coercion {
	return func(raw any) (any, string) {
		return optionValue(d.Options, raw), ""
	}
}

func (coercer) Multiselect(d fields.Descriptor) coercion {
	return func(raw any) (any, string) {
		var picked []string
		switch v := raw.(type) {
		case nil:
			return []any{}, ""
		case []string:
			picked = v
		case []any:
			for _, item := range v {
				picked = append(picked, fmt.Sprint(item))
			}
		case string:
			picked = splitList(v)
		default:
			return raw, ""
		}
		out := make([]any, 0, len(picked))
		for _, p := range picked {
			out = append(out, optionValue(d.Options, p))
		}
		return out, ""
	}
}

func (coercer) Boolean(fields.Descriptor) coercion {
	return func(raw any) (any, string) {
		switch v := raw.(type) {
		case bool:
			return v, ""
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "on", "1", "yes":
				return true, ""
			}
			return false, ""
		case nil:
			return false, ""
		default:
			return raw, ""
		}
	}
}

func (coercer) JSON(d fields.Descriptor) coercion {
	return func(raw any) (any, string) {
		s, ok := raw.(string)
		if !ok {
			return raw, ""
		}
		if strings.TrimSpace(s) == "" {
			return nil, ""
		}
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			// keep the user's text so the form can show it again
			return s, d.DisplayLabel() + " must be valid JSON"
		}
		return parsed, ""
	}
}

func (coercer) Array(fields.Descriptor) coercion {
	return func(raw any) (any, string) {
		switch v := raw.(type) {
		case string:
			return splitList(v), ""
		case []string:
			return splitList(strings.Join(v, ",")), ""
		default:
			return raw, ""
		}
	}
}

func trimmed(raw any) (any, string) {
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s), ""
	}
	return raw, ""
}

// splitList splits a comma-separated string into trimmed, non-empty items.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// optionValue maps a submitted string back to the option's typed value.
func optionValue(options []fields.Option, raw any) any {
	s, ok := raw.(string)
	if !ok {
		return raw
	}
	for _, o := range options {
		if fmt.Sprint(o.Value) == s {
			return o.Value
		}
	}
	return s
}
