// ABOUTME: Closed set of field kinds and the exhaustive visitor used to dispatch on them.
// ABOUTME: Adding a kind means adding a Visitor method, so every renderer must handle it.

package fields

import "fmt"

// Kind selects the input control and value coercion for a field.
type Kind string

const (
	KindText        Kind = "text"
	KindNumber      Kind = "number"
	KindEmail       Kind = "email"
	KindPassword    Kind = "password"
	KindTextarea    Kind = "textarea"
	KindSelect      Kind = "select"
	KindMultiselect Kind = "multiselect"
	KindBoolean     Kind = "boolean"
	KindDate        Kind = "date"
	KindDatetime    Kind = "datetime"
	KindJSON        Kind = "json"
	KindArray       Kind = "array"
	KindRelation    Kind = "relation"
	KindImage       Kind = "image"
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	KindText, KindNumber, KindEmail, KindPassword, KindTextarea,
	KindSelect, KindMultiselect, KindBoolean, KindDate, KindDatetime,
	KindJSON, KindArray, KindRelation, KindImage,
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// HasOptions reports whether the kind reads Descriptor.Options.
func (k Kind) HasOptions() bool {
	return k == KindSelect || k == KindMultiselect
}

// Visitor has one method per Kind.
type Visitor[T any] interface {
	Text(d Descriptor) T
	Number(d Descriptor) T
	Email(d Descriptor) T
	Password(d Descriptor) T
	Textarea(d Descriptor) T
	Select(d Descriptor) T
	Multiselect(d Descriptor) T
	Boolean(d Descriptor) T
	Date(d Descriptor) T
	Datetime(d Descriptor) T
	JSON(d Descriptor) T
	Array(d Descriptor) T
	Relation(d Descriptor) T
	Image(d Descriptor) T
}

// Visit calls the Visitor method matching d.Kind. Descriptors that went
// through Register always carry a valid kind; anything else panics.
func Visit[T any](d Descriptor, v Visitor[T]) T {
	switch d.Kind {
	case KindText:
		return v.Text(d)
	case KindNumber:
		return v.Number(d)
	case KindEmail:
		return v.Email(d)
	case KindPassword:
		return v.Password(d)
	case KindTextarea:
		return v.Textarea(d)
	case KindSelect:
		return v.Select(d)
	case KindMultiselect:
		return v.Multiselect(d)
	case KindBoolean:
		return v.Boolean(d)
	case KindDate:
		return v.Date(d)
	case KindDatetime:
		return v.Datetime(d)
	case KindJSON:
		return v.JSON(d)
	case KindArray:
		return v.Array(d)
	case KindRelation:
		return v.Relation(d)
	case KindImage:
		return v.Image(d)
	}
	panic(fmt.Sprintf("fields: unknown kind %q for field %q", d.Kind, d.Name))
}
