// ABOUTME: Field descriptor definitions for metadata-driven forms.
// ABOUTME: Tables declare descriptors, the form and import packages consume them.

package fields

// Descriptor defines one editable attribute of a record.
type Descriptor struct {
	Name        string // unique within the table
	Label       string // "Nombre", "Region"
	Kind        Kind
	Required    bool
	Placeholder string
	Default     any
	Options     []Option // select and multiselect only

	RelatedTable      string // relation only
	RelatedLabelField string // column shown for related rows, defaults to "name"

	Min *float64 // number only
	Max *float64

	Disabled   bool
	Hidden     bool
	Validation *Rules
}

// Option is one choice of a select or multiselect field.
type Option struct {
	Label string
	Value any
}

// Rules are optional string constraints checked on submit.
type Rules struct {
	Pattern   string
	MinLength *int
	MaxLength *int
	Message   string // replaces the generated message when set
}

// Float returns a pointer to v, for Descriptor.Min and Descriptor.Max.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for Rules.MinLength and Rules.MaxLength.
func Int(v int) *int { return &v }

// DisplayLabel returns Label, falling back to Name.
func (d Descriptor) DisplayLabel() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}

// LabelField returns the related column used as an option label.
func (d Descriptor) LabelField() string {
	if d.RelatedLabelField != "" {
		return d.RelatedLabelField
	}
	return "name"
}

// Names returns the descriptor names in order, skipping hidden fields.
func Names(descriptors []Descriptor) []string {
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		if d.Hidden {
			continue
		}
		names = append(names, d.Name)
	}
	return names
}
