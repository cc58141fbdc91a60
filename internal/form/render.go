// ABOUTME: HTML rendering of a form from its field descriptors.
// ABOUTME: Generates semantic HTML with Tailwind CSS, one control per field kind.

package form

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/ekoru/admin/internal/fields"
	"github.com/ekoru/admin/internal/record"
)

const inputClass = "mt-1 block w-full rounded border-gray-300 shadow-sm px-3 py-2 border"

// Render generates the form. action is the POST target and cancelURL the
// link behind the Cancel button.
func (f *Form) Render(action, cancelURL string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<form method="post" action="%s" class="bg-white rounded-lg shadow p-6 space-y-4 max-w-2xl">`,
		html.EscapeString(action)))

	for _, d := range f.fields {
		if d.Hidden {
			continue
		}
		value, _ := f.draft.Get(d.Name)
		r := fieldRenderer{
			value:    value,
			options:  f.relations[d.Name],
			disabled: d.Disabled || f.loading,
		}

		sb.WriteString(`<div>`)
		sb.WriteString(fmt.Sprintf(`<label for="%s" class="block text-sm font-medium text-gray-700">%s%s</label>`,
			html.EscapeString(d.Name),
			html.EscapeString(d.DisplayLabel()),
			requiredMark(d.Required)))
		sb.WriteString(fields.Visit[string](d, r))
		if msg, ok := f.errors[d.Name]; ok {
			sb.WriteString(fmt.Sprintf(`<p class="mt-1 text-sm text-red-600">%s</p>`, html.EscapeString(msg)))
		}
		sb.WriteString(`</div>`)
	}

	submitLabel := "Save"
	if f.loading {
		submitLabel = "Saving..."
	}
	sb.WriteString(`<div class="flex gap-4">`)
	sb.WriteString(fmt.Sprintf(`<button type="submit"%s class="px-4 py-2 bg-green-600 text-white rounded hover:bg-green-700">%s</button>`,
		disabledAttr(f.loading), submitLabel))
	sb.WriteString(fmt.Sprintf(`<a href="%s" class="px-4 py-2 bg-gray-200 text-gray-700 rounded hover:bg-gray-300">Cancel</a>`,
		html.EscapeString(cancelURL)))
	sb.WriteString(`</div>`)

	sb.WriteString(`</form>`)
	return sb.String()
}

// fieldRenderer renders the control for one field.
type fieldRenderer struct {
	value    any
	options  []fields.Option // relation choices
	disabled bool
}

func (r fieldRenderer) input(typ string, d fields.Descriptor, extra string) string {
	return fmt.Sprintf(`<input type="%s" id="%s" name="%s"%s%s%s%s%s class="%s">`,
		typ,
		html.EscapeString(d.Name),
		html.EscapeString(d.Name),
		valueAttr(r.text()),
		placeholderAttr(d.Placeholder),
		requiredAttr(d.Required),
		disabledAttr(r.disabled),
		extra,
		inputClass)
}

func (r fieldRenderer) text() string {
	if r.value == nil {
		return ""
	}
	return record.Stringify(r.value)
}

func (r fieldRenderer) Text(d fields.Descriptor) string  { return r.input("text", d, "") }
func (r fieldRenderer) Email(d fields.Descriptor) string { return r.input("email", d, "") }
func (r fieldRenderer) Image(d fields.Descriptor) string { return r.input("url", d, "") }
func (r fieldRenderer) Date(d fields.Descriptor) string  { return r.input("date", d, "") }

func (r fieldRenderer) Password(d fields.Descriptor) string {
	// never echo a stored password back into the page
	r.value = nil
	return r.input("password", d, ` autocomplete="new-password"`)
}

func (r fieldRenderer) Datetime(d fields.Descriptor) string {
	return r.input("datetime-local", d, "")
}

func (r fieldRenderer) Number(d fields.Descriptor) string {
	var extra strings.Builder
	if d.Min != nil {
		extra.WriteString(fmt.Sprintf(` min="%g"`, *d.Min))
	}
	if d.Max != nil {
		extra.WriteString(fmt.Sprintf(` max="%g"`, *d.Max))
	}
	extra.WriteString(` step="any"`)
	return r.input("number", d, extra.String())
}

func (r fieldRenderer) Textarea(d fields.Descriptor) string {
	return fmt.Sprintf(`<textarea id="%s" name="%s" rows="4"%s%s%s class="%s">%s</textarea>`,
		html.EscapeString(d.Name),
		html.EscapeString(d.Name),
		placeholderAttr(d.Placeholder),
		requiredAttr(d.Required),
		disabledAttr(r.disabled),
		inputClass,
		html.EscapeString(r.text()))
}

func (r fieldRenderer) JSON(d fields.Descriptor) string {
	text := r.text()
	if s, ok := r.value.(string); ok {
		text = s
	} else if r.value != nil {
		if b, err := json.MarshalIndent(r.value, "", "  "); err == nil {
			text = string(b)
		}
	}
	return fmt.Sprintf(`<textarea id="%s" name="%s" rows="6"%s%s%s class="%s font-mono text-xs">%s</textarea>`,
		html.EscapeString(d.Name),
		html.EscapeString(d.Name),
		placeholderAttr(d.Placeholder),
		requiredAttr(d.Required),
		disabledAttr(r.disabled),
		inputClass,
		html.EscapeString(text))
}

func (r fieldRenderer) Array(d fields.Descriptor) string {
	r.value = joinList(r.value)
	return r.input("text", d, "")
}

func (r fieldRenderer) Boolean(d fields.Descriptor) string {
	checked := ""
	if b, ok := r.value.(bool); ok && b {
		checked = " checked"
	}
	return fmt.Sprintf(`<input type="checkbox" id="%s" name="%s" value="true"%s%s class="mt-1 rounded border-gray-300">`,
		html.EscapeString(d.Name),
		html.EscapeString(d.Name),
		checked,
		disabledAttr(r.disabled))
}

func (r fieldRenderer) Select(d fields.Descriptor) string {
	return r.selectBox(d, d.Options, false)
}

func (r fieldRenderer) Multiselect(d fields.Descriptor) string {
	return r.selectBox(d, d.Options, true)
}

func (r fieldRenderer) Relation(d fields.Descriptor) string {
	if len(r.options) == 0 {
		return r.input("text", d, fmt.Sprintf(` data-related-table="%s"`, html.EscapeString(d.RelatedTable)))
	}
	return r.selectBox(d, r.options, false)
}

func (r fieldRenderer) selectBox(d fields.Descriptor, options []fields.Option, multiple bool) string {
	var sb strings.Builder

	multipleAttr := ""
	if multiple {
		multipleAttr = " multiple"
	}
	sb.WriteString(fmt.Sprintf(`<select id="%s" name="%s"%s%s%s class="%s">`,
		html.EscapeString(d.Name),
		html.EscapeString(d.Name),
		multipleAttr,
		requiredAttr(d.Required),
		disabledAttr(r.disabled),
		inputClass))

	if !multiple {
		sb.WriteString(`<option value="">Select...</option>`)
	}

	selected := selectedSet(r.value)
	for _, o := range options {
		v := fmt.Sprint(o.Value)
		sel := ""
		if selected[v] {
			sel = " selected"
		}
		sb.WriteString(fmt.Sprintf(`<option value="%s"%s>%s</option>`,
			html.EscapeString(v), sel, html.EscapeString(o.Label)))
	}

	sb.WriteString(`</select>`)
	return sb.String()
}

// Helper functions

func selectedSet(v any) map[string]bool {
	set := make(map[string]bool)
	switch t := v.(type) {
	case nil:
	case []any:
		for _, item := range t {
			set[fmt.Sprint(item)] = true
		}
	case []string:
		for _, item := range t {
			set[item] = true
		}
	default:
		set[fmt.Sprint(t)] = true
	}
	return set
}

func joinList(v any) any {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	}
	return v
}

func valueAttr(value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf(` value="%s"`, html.EscapeString(value))
}

func placeholderAttr(p string) string {
	if p == "" {
		return ""
	}
	return fmt.Sprintf(` placeholder="%s"`, html.EscapeString(p))
}

func requiredAttr(required bool) string {
	if required {
		return " required"
	}
	return ""
}

func disabledAttr(disabled bool) string {
	if disabled {
		return " disabled"
	}
	return ""
}

func requiredMark(required bool) string {
	if required {
		return ` <span class="text-red-500">*</span>`
	}
	return ""
}
