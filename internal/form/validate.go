// internal/form/validate.go
//
// Forms subsystem: server-side validation and sanitization.
//
// Context
//   When the browser posts user input, Validate verifies the submission:
//   CSRF, timing, required fields, type constraints, regex patterns,
//   option values, length limits, and finally the CAPTCHA token.  It
//   returns a cleaned map that business logic and actions can trust.
//
// Workflow
//   •  Form-level checks (CSRF, render timestamp) short-circuit.
//   •  Each field is validated by type.  Errors are collected in
//      []ErrorField so templates can highlight exact issues.
//   •  The CAPTCHA field, when present, is verified through the provider
//      and its failure message is shown on that field.
//   •  Callers wrap a non-empty []ErrorField in *ValidationError (see
//      submit.go) and treat it as a user error, not a 500.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrorField describes a single validation failure.  Name is empty for
// form-level problems.
type ErrorField struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ValidationError wraps []ErrorField and satisfies the error interface.
type ValidationError struct{ Fields []ErrorField }

func (ve *ValidationError) Error() string { return "form validation failed" }

// userMessenger is implemented by provider errors that carry display text.
type userMessenger interface{ UserMessage() string }

const captchaFallbackMsg = "CAPTCHA verification failed."

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Validate checks posted values.  A non-empty error slice means the form
// must be re-rendered.
func (f *Form) Validate(ctx context.Context, posted url.Values) (map[string]any, []ErrorField) {
	if f.csrf != nil {
		if tok := posted.Get("csrf_token"); tok == "" || !f.csrf.Verify(f.Def.ID, tok) {
			return nil, []ErrorField{{"", "Security token invalid.  Please refresh and try again."}}
		}
		if msg := checkTiming(posted.Get("render_ts"), f.minAge); msg != "" {
			return nil, []ErrorField{{"", msg}}
		}
	}

	var errs []ErrorField
	clean := make(map[string]any, len(f.Fields))

	for _, fd := range f.Fields {
		if fd.Type == "captcha" {
			if msg := f.verifyCaptcha(ctx, posted.Get(fd.Name)); msg != "" {
				errs = append(errs, ErrorField{fd.Name, msg})
			}
			continue
		}

		raw := strings.TrimSpace(posted.Get(fd.Name))
		if raw == "" {
			if fd.Required {
				errs = append(errs, ErrorField{fd.Name, requiredMsg(&fd)})
			} else if fd.Type == "checkbox" {
				clean[fd.Name] = false
			}
			continue
		}

		val, msg := validateValue(&fd, raw)
		if msg != "" {
			errs = append(errs, ErrorField{fd.Name, msg})
			continue
		}
		clean[fd.Name] = val
	}
	return clean, errs
}

// -----------------------------------------------------------------------------
// Form-level helpers
// -----------------------------------------------------------------------------

func (f *Form) verifyCaptcha(ctx context.Context, token string) string {
	err := f.captcha.Verify(ctx, token)
	if err == nil {
		return ""
	}
	var um userMessenger
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return captchaFallbackMsg
}

// checkTiming rejects forms submitted faster than minAge or after 30
// minutes.  Returns a user-visible message on failure.
func checkTiming(tsRaw string, minAge time.Duration) string {
	if tsRaw == "" {
		return "Timestamp missing.  Please reload the page."
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return "Bad timestamp.  Please retry."
	}
	delta := time.Since(time.UnixMicro(ts))
	switch {
	case delta < minAge:
		return "Form submitted too quickly.  Please enter the fields manually."
	case delta > 30*time.Minute:
		return "Form expired.  Please reload and submit again."
	default:
		return ""
	}
}

// -----------------------------------------------------------------------------
// Field-level helpers
// -----------------------------------------------------------------------------

func validateValue(fd *FieldDef, val string) (any, string) {
	switch fd.Type {
	case "text", "textarea":
		if msg := lengthCheck(fd, val); msg != "" {
			return nil, msg
		}
		if fd.Pattern != "" && !regexp.MustCompile(fd.Pattern).MatchString(val) {
			return nil, patternMsg(fd)
		}
		return val, ""

	case "email":
		if msg := lengthCheck(fd, val); msg != "" {
			return nil, msg
		}
		addr, err := mail.ParseAddress(val)
		if err != nil || addr.Address != val {
			return nil, invalidMsg(fd, "Enter a valid email address.")
		}
		return normalizeEmail(val), ""

	case "password":
		if msg := lengthCheck(fd, val); msg != "" {
			return nil, msg
		}
		return val, ""

	case "number":
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return nil, invalidMsg(fd, "Enter a whole number.")
		}
		return n, ""

	case "date":
		d, err := time.Parse("2006-01-02", val)
		if err != nil {
			return nil, invalidMsg(fd, "Enter a valid date.")
		}
		return d, ""

	case "checkbox":
		return true, ""

	case "select", "radio":
		for _, o := range fd.Options {
			if o.Value == val {
				return val, ""
			}
		}
		return nil, invalidMsg(fd, "Select a valid choice.")

	default:
		return nil, fmt.Sprintf("Unsupported field type %q.", fd.Type)
	}
}

// lengthCheck validates minlength / maxlength in characters.
// normalizeEmail lowercases the domain part and keeps the local part as typed.
func normalizeEmail(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return addr
	}
	return addr[:at] + strings.ToLower(addr[at:])
}

func lengthCheck(fd *FieldDef, s string) string {
	n := utf8.RuneCountInString(s)
	if fd.MinLength > 0 && n < fd.MinLength {
		return fmt.Sprintf("Ensure this value has at least %d characters.", fd.MinLength)
	}
	if fd.MaxLength > 0 && n > fd.MaxLength {
		return fmt.Sprintf("Ensure this value has at most %d characters.", fd.MaxLength)
	}
	return ""
}

func requiredMsg(fd *FieldDef) string {
	if fd.ErrorMsg != "" {
		return fd.ErrorMsg
	}
	return "This field is required."
}

func invalidMsg(fd *FieldDef, def string) string {
	if fd.ErrorMsg != "" {
		return fd.ErrorMsg
	}
	return def
}

func patternMsg(fd *FieldDef) string {
	if fd.ErrorMsg != "" {
		return fd.ErrorMsg
	}
	return "Input does not match required format."
}
