// ABOUTME: Metadata-driven form lifecycle: seed, edit, validate, submit or cancel.
// ABOUTME: Holds only local state; persistence is left to the submit callback.

package form

import (
	"context"
	"errors"
	"net/url"

	"github.com/ekoru/admin/internal/fields"
	"github.com/ekoru/admin/internal/record"
)

// ErrBusy is returned by Submit while a previous submission is running.
var ErrBusy = errors.New("form: submission in progress")

// SubmitFunc receives the full draft when validation passes.
type SubmitFunc func(ctx context.Context, values record.Row) error

// Form is one open create or edit form.
type Form struct {
	fields    []fields.Descriptor
	draft     *Draft
	errors    map[string]string
	relations map[string][]fields.Option
	onSubmit  SubmitFunc
	onCancel  func()
	loading   bool
}

// New opens a form over descriptors seeded from initial. Either callback may be nil.
func New(descriptors []fields.Descriptor, initial record.Row, onSubmit SubmitFunc, onCancel func()) *Form {
	return &Form{
		fields:    descriptors,
		draft:     NewDraft(descriptors, initial),
		errors:    make(map[string]string),
		relations: make(map[string][]fields.Option),
		onSubmit:  onSubmit,
		onCancel:  onCancel,
	}
}

// Fields returns the form's descriptors.
func (f *Form) Fields() []fields.Descriptor {
	return f.fields
}

// Change updates exactly one field and clears any error shown for it.
func (f *Form) Change(name string, raw any) {
	if f.draft.Set(name, raw) {
		delete(f.errors, name)
	}
}

// Bind applies submitted form values for every visible, enabled field.
// Checkboxes absent from the submission count as unchecked.
func (f *Form) Bind(values url.Values) {
	for _, d := range f.fields {
		if d.Hidden || d.Disabled {
			continue
		}
		switch d.Kind {
		case fields.KindBoolean:
			f.Change(d.Name, values.Get(d.Name))
		case fields.KindMultiselect:
			f.Change(d.Name, values[d.Name])
		default:
			if _, ok := values[d.Name]; ok {
				f.Change(d.Name, values.Get(d.Name))
			}
		}
	}
}

// Values returns a copy of the current draft.
func (f *Form) Values() record.Row {
	return f.draft.Values()
}

// Errors returns a copy of the errors from the last submit attempt,
// minus fields edited since.
func (f *Form) Errors() map[string]string {
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// SetRelationOptions supplies the choices rendered for a relation field.
func (f *Form) SetRelationOptions(field string, options []fields.Option) {
	f.relations[field] = options
}

// SetLoading marks the form as waiting on its parent.
func (f *Form) SetLoading(loading bool) {
	f.loading = loading
}

// IsLoading reports whether a submission is running.
func (f *Form) IsLoading() bool {
	return f.loading
}

// Submit validates the draft. On failure it records the field errors and
// returns a *ValidationError without calling onSubmit. Otherwise the full
// draft is passed to onSubmit and its error is returned.
func (f *Form) Submit(ctx context.Context) error {
	if f.loading {
		return ErrBusy
	}

	if verr := Validate(f.fields, f.draft); verr != nil {
		f.errors = verr.Map()
		return verr
	}
	f.errors = make(map[string]string)

	if f.onSubmit == nil {
		return nil
	}
	f.loading = true
	defer func() { f.loading = false }()
	return f.onSubmit(ctx, f.draft.Values())
}

// Cancel discards the draft and notifies the parent.
func (f *Form) Cancel() {
	f.draft = NewDraft(f.fields, record.Row{})
	f.errors = make(map[string]string)
	if f.onCancel != nil {
		f.onCancel()
	}
}
