// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `Load()` calls `validateStruct` right after defaults and secret
// resolution.  Any tag mismatch aborts startup, so the binary never runs
// with partial or malformed configuration.
//
// Custom rules
// ------------
//   • dsn_verbs – the database DSN may contain at most one `%s` verb,
//     which receives Database.Password.

package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("dsn_verbs", func(fl validator.FieldLevel) bool {
		return strings.Count(fl.Field().String(), "%s") <= 1
	})
	return val
}

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
