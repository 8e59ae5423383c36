// Package form tracks the value and validity of a small fixed set of named
// text fields.
package form

import (
	"errors"
	"fmt"

	"github.com/mark3labs/msgkit/internal/validate"
)

// ErrUnknownField is returned when a caller addresses a field that was not
// registered in New. It signals a programming error, not bad user input.
var ErrUnknownField = errors.New("form: unknown field")

// Field is the registration of one input: its starting value, whether that
// value is considered valid before any input arrives, and the rules run on
// every later change.
type Field struct {
	Value string
	Valid bool
	Rules []validate.Rule
}

type entry struct {
	value string
	valid bool
	rules []validate.Rule
}

// Form holds the current state of its fields. The zero value has no fields;
// use New.
type Form struct {
	fields map[string]*entry
	valid  bool
}

// New registers the given fields. Rule sets are fixed for the form's lifetime.
func New(fields map[string]Field) *Form {
	f := &Form{fields: make(map[string]*entry, len(fields))}
	for name, spec := range fields {
		f.fields[name] = &entry{
			value: spec.Value,
			valid: spec.Valid,
			rules: spec.Rules,
		}
	}
	f.recompute()
	return f
}

// Set stores value for the named field, reruns that field's rules, and
// recomputes the aggregate validity.
func (f *Form) Set(name, value string) error {
	e, ok := f.fields[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	e.value = value
	e.valid = validate.Valid(value, e.rules...)
	f.recompute()
	return nil
}

// Reset re-seeds a field with value, validating it the same way Set does.
// Flows use it to start from the current message on every open.
func (f *Form) Reset(name, value string) error {
	return f.Set(name, value)
}

// Valid reports whether every registered field is valid. A form with no
// fields is valid.
func (f *Form) Valid() bool {
	return f.valid
}

// Value returns the current value of the named field, or "" if it is not
// registered.
func (f *Form) Value(name string) string {
	if e, ok := f.fields[name]; ok {
		return e.value
	}
	return ""
}

// FieldValid reports the validity of a single field. Unknown fields are
// reported invalid.
func (f *Form) FieldValid(name string) bool {
	if e, ok := f.fields[name]; ok {
		return e.valid
	}
	return false
}

func (f *Form) recompute() {
	valid := true
	for _, e := range f.fields {
		if !e.valid {
			valid = false
			break
		}
	}
	f.valid = valid
}
