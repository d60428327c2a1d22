// internal/form/submit.go
//
// Forms subsystem: consolidated Submit helper.
//
// Context
//   Most handlers want one call that parses the POST body, validates input,
//   executes configured actions, and returns the clean map or a
//   *ValidationError.  Submit provides that so component code stays terse.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"net/http"
	"sort"
)

// Submit parses r, validates it, runs the form's actions, and returns the
// sanitized data.  Field problems come back as *ValidationError; anything
// else is a system failure.
func (f *Form) Submit(r *http.Request) (map[string]any, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	clean, errs := f.Validate(r.Context(), r.PostForm)
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	f.executeActions(r.Context(), clean)
	return clean, nil
}

// IsValidationError reports whether err came from failed validation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FieldErrors extracts the field list from a validation error, or nil.
func FieldErrors(err error) []ErrorField {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// Prefill converts posted values into render pre-fill data.
func Prefill(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// ErrorsFrom orders a field→message map by the form's field order.  Keys
// that are not fields of f become form-level errors at the end.
func (f *Form) ErrorsFrom(m map[string]string) []ErrorField {
	out := make([]ErrorField, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, fd := range f.Fields {
		if msg, ok := m[fd.Name]; ok {
			out = append(out, ErrorField{fd.Name, msg})
			seen[fd.Name] = true
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		out = append(out, ErrorField{"", m[k]})
	}
	return out
}
