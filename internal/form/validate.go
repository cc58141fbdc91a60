// ABOUTME: Submit-time validation of a draft against its field descriptors.
// ABOUTME: Checks run per field in descriptor order and stop at the first failure.

package form

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ekoru/admin/internal/fields"
	"github.com/ekoru/admin/internal/record"
)

// ErrInvalid is wrapped by every ValidationError.
var ErrInvalid = errors.New("form: validation failed")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldError is a validation message for one field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists field errors in descriptor order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		msgs[i] = fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Map returns the errors keyed by field name.
func (e *ValidationError) Map() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, fe := range e.Fields {
		m[fe.Field] = fe.Message
	}
	return m
}

// Validate checks the draft and returns nil when every field passes.
func Validate(descriptors []fields.Descriptor, d *Draft) *ValidationError {
	var errs []FieldError
	for _, f := range descriptors {
		if f.Hidden {
			continue
		}
		v, _ := d.Get(f.Name)
		if msg := validateField(f, v, d.invalid[f.Name]); msg != "" {
			errs = append(errs, FieldError{Field: f.Name, Message: msg})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}

func validateField(f fields.Descriptor, v any, coerceProblem string) string {
	label := f.DisplayLabel()

	if isEmpty(v) {
		if f.Required {
			return label + " is required"
		}
		return ""
	}

	if f.Kind == fields.KindEmail {
		if s, ok := v.(string); ok && !emailPattern.MatchString(s) {
			return label + " is invalid"
		}
	}

	if f.Validation != nil {
		if msg := checkRules(label, f.Validation, v); msg != "" {
			return msg
		}
	}

	if f.Kind == fields.KindNumber {
		if n, ok := asNumber(v); ok {
			if f.Min != nil && n < *f.Min {
				return fmt.Sprintf("%s must be at least %g", label, *f.Min)
			}
			if f.Max != nil && n > *f.Max {
				return fmt.Sprintf("%s must be at most %g", label, *f.Max)
			}
		}
	}

	return coerceProblem
}

func checkRules(label string, rules *fields.Rules, v any) string {
	if record.IsComposite(v) {
		return ""
	}
	s := record.Stringify(v)
	fail := func(generated string) string {
		if rules.Message != "" {
			return rules.Message
		}
		return generated
	}

	if rules.Pattern != "" {
		re, err := compilePattern(rules.Pattern)
		if err != nil {
			log.Printf("form: ignoring invalid pattern %q for %s: %v", rules.Pattern, label, err)
		} else if !re.MatchString(s) {
			return fail(label + " has an invalid format")
		}
	}
	n := utf8.RuneCountInString(s)
	if rules.MinLength != nil && n < *rules.MinLength {
		return fail(fmt.Sprintf("%s must be at least %d characters", label, *rules.MinLength))
	}
	if rules.MaxLength != nil && n > *rules.MaxLength {
		return fail(fmt.Sprintf("%s must be at most %d characters", label, *rules.MaxLength))
	}
	return ""
}

var patternCache sync.Map // string -> *regexp.Regexp

func compilePattern(p string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(p); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, err
	}
	patternCache.Store(p, re)
	return re, nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
