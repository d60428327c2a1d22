package model

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterStructValidation(publishWindow, Publishable{})
	return v
}

func publishWindow(sl validator.StructLevel) {
	p := sl.Current().Interface().(Publishable)
	if p.PublishedAt != nil && p.PublishedUntil != nil && p.PublishedUntil.Before(*p.PublishedAt) {
		sl.ReportError(p.PublishedUntil, "published_until", "PublishedUntil", "publish_window", "")
	}
}

// FieldErrors maps a JSON field name to a user-facing message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + fe[k]
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

// FieldMap exposes the map to packages that must not import model.
func (fe FieldErrors) FieldMap() map[string]string { return fe }

// Validate runs struct tags plus the publish-window rule.  Repositories
// call it before every insert and update.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "oneof":
		return "Select a valid choice."
	case "publish_window":
		return "Publish end must not be before publish start."
	default:
		return "Enter a valid value."
	}
}
