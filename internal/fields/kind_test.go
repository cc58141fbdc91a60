// ABOUTME: Tests for kind validation and exhaustive visitor dispatch.
// ABOUTME: Every declared kind must reach its own visitor method.

package fields

import "testing"

type kindNamer struct{}

func (kindNamer) Text(Descriptor) string        { return "text" }
func (kindNamer) Number(Descriptor) string      { return "number" }
func (kindNamer) Email(Descriptor) string       { return "email" }
func (kindNamer) Password(Descriptor) string    { return "password" }
func (kindNamer) Textarea(Descriptor) string    { return "textarea" }
func (kindNamer) Select(Descriptor) string      { return "select" }
func (kindNamer) Multiselect(Descriptor) string { return "multiselect" }
func (kindNamer) Boolean(Descriptor) string     { return "boolean" }
func (kindNamer) Date(Descriptor) string        { return "date" }
func (kindNamer) Datetime(Descriptor) string    { return "datetime" }
func (kindNamer) JSON(Descriptor) string        { return "json" }
func (kindNamer) Array(Descriptor) string       { return "array" }
func (kindNamer) Relation(Descriptor) string    { return "relation" }
func (kindNamer) Image(Descriptor) string       { return "image" }

func TestVisitDispatchesEveryKind(t *testing.T) {
	for _, k := range Kinds {
		got := Visit[string](Descriptor{Name: "f", Kind: k}, kindNamer{})
		if got != string(k) {
			t.Errorf("Visit(%q) dispatched to %q", k, got)
		}
	}
}

func TestVisitUnknownKindPanics(t *testing.T) {
	expectPanic(t, "unknown kind", func() {
		Visit[string](Descriptor{Name: "f", Kind: "color"}, kindNamer{})
	})
}

func TestKindValid(t *testing.T) {
	if !KindJSON.Valid() {
		t.Error("KindJSON.Valid() = false")
	}
	if Kind("color").Valid() {
		t.Error(`Kind("color").Valid() = true`)
	}
}

func TestDescriptorHelpers(t *testing.T) {
	d := Descriptor{Name: "region_id"}
	if d.DisplayLabel() != "region_id" {
		t.Errorf("DisplayLabel() = %q, want name fallback", d.DisplayLabel())
	}
	if d.LabelField() != "name" {
		t.Errorf("LabelField() = %q, want name", d.LabelField())
	}

	names := Names([]Descriptor{{Name: "a"}, {Name: "b", Hidden: true}, {Name: "c"}})
	if len(names) != 2 || names[0] != "a" || names[1] != "c" {
		t.Errorf("Names() = %v, want [a c]", names)
	}
}
