// internal/form/builder.go
//
// Forms subsystem: per-request form construction.
//
// Context
//   A FormDef is static.  A Form is what a handler renders and validates:
//   the definition's fields plus, when requested, the CAPTCHA field.  The
//   decision is made here, once, from an explicit flag, so the rendered
//   markup and the validated field set can never disagree.
//
// Workflow
//   •  Build(id, captchaEnabled) looks up the definition and copies its
//      fields.
//   •  The CAPTCHA field is appended only when the definition opts in,
//      captchaEnabled is true, and the Captcha has a site key.
//   •  The resulting *Form carries everything Render, Validate, and
//      Submit need.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adept-starter/internal/message"
)

// Captcha is the human-verification provider.  *turnstile.Verifier
// satisfies it.
type Captcha interface {
	Enabled() bool
	Widget() template.HTML
	Verify(ctx context.Context, token string) error
}

// captchaField is appended to opted-in forms.
var captchaField = FieldDef{
	Name:     "turnstile",
	Label:    "",
	Type:     "captcha",
	Help:     "Please verify you are human.",
	Required: true,
}

// ActionDeps are the collaborators post-submit actions may use.
type ActionDeps struct {
	Outbox      message.Enqueuer
	DB          *sqlx.DB
	AdminEmails []string
	// SubjectPrefix is written as "[prefix] " before every email subject.
	SubjectPrefix string
}

// Builder constructs Forms.  Create one at start-up and share it.
type Builder struct {
	defs    *Registry
	csrf    *CSRF
	captcha Captcha
	actions ActionDeps
	minAge  time.Duration
}

// BuilderOption customises a Builder.
type BuilderOption func(*Builder)

// WithActions supplies action collaborators.
func WithActions(d ActionDeps) BuilderOption { return func(b *Builder) { b.actions = d } }

// WithMinAge sets how long a form must be on screen before it may be
// submitted.  Zero disables the check.
func WithMinAge(d time.Duration) BuilderOption { return func(b *Builder) { b.minAge = d } }

// NewBuilder wires a Builder.  captcha may be nil.
func NewBuilder(defs *Registry, csrf *CSRF, captcha Captcha, opts ...BuilderOption) *Builder {
	b := &Builder{defs: defs, csrf: csrf, captcha: captcha, minAge: 2 * time.Second}
	for _, o := range opts {
		o(b)
	}
	return b
}

// CaptchaAvailable reports whether a provider with a site key is wired.
func (b *Builder) CaptchaAvailable() bool {
	return b.captcha != nil && b.captcha.Enabled()
}

// Build returns the form id with the CAPTCHA field included iff the
// definition allows it, captchaEnabled is set, and a site key exists.
func (b *Builder) Build(id string, captchaEnabled bool) (*Form, error) {
	fd, ok := b.defs.Get(id)
	if !ok {
		return nil, fmt.Errorf("form: unknown form %q", id)
	}

	f := &Form{
		Def:     fd,
		Fields:  append([]FieldDef(nil), fd.Fields...),
		csrf:    b.csrf,
		minAge:  b.minAge,
		actions: b.actions,
	}
	if fd.Captcha && captchaEnabled && b.CaptchaAvailable() {
		f.Fields = append(f.Fields, captchaField)
		f.captcha = b.captcha
	}
	return f, nil
}

// Form is one buildable instance of a FormDef.
type Form struct {
	Def    *FormDef
	Fields []FieldDef

	captcha Captcha
	csrf    *CSRF
	minAge  time.Duration
	actions ActionDeps
}

// HasCaptcha reports whether the CAPTCHA field is part of this form.
func (f *Form) HasCaptcha() bool { return f.captcha != nil }

// RequiredFields lists the names of every required field, in order.
func (f *Form) RequiredFields() []string {
	var out []string
	for _, fd := range f.Fields {
		if fd.Required {
			out = append(out, fd.Name)
		}
	}
	return out
}

// Field returns the named field definition.
func (f *Form) Field(name string) (FieldDef, bool) {
	for _, fd := range f.Fields {
		if fd.Name == name {
			return fd, true
		}
	}
	return FieldDef{}, false
}
