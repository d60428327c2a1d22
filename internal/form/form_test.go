package form

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/adept-starter/internal/message"
)

const contactYAML = `
id: core/contact
title: Contact
captcha: true
fields:
  - {name: name, label: Name, type: text, required: true, maxlength: 100}
  - {name: email, label: Email, type: email, required: true}
  - name: category
    label: Category
    type: select
    required: true
    options:
      - general
      - {value: bug, label: Bug report}
  - {name: message, label: Message, type: textarea, required: true, minlength: 5}
actions:
  - {type: email, to: admins, subject: New contact}
`

const profileYAML = `
id: accounts/profile
title: Profile
fields:
  - {name: first_name, label: First name, type: text, maxlength: 30}
  - {name: email_notifications, label: Email notifications, type: checkbox}
`

// fakeCaptcha records tokens and returns a scripted error.
type fakeCaptcha struct {
	siteKey string
	err     error

	mu     sync.Mutex
	tokens []string
}

func (c *fakeCaptcha) Enabled() bool { return c.siteKey != "" }
func (c *fakeCaptcha) Widget() template.HTML {
	return template.HTML(`<div class="cf-turnstile" data-sitekey="` + c.siteKey + `"></div>`)
}
func (c *fakeCaptcha) Verify(_ context.Context, token string) error {
	c.mu.Lock()
	c.tokens = append(c.tokens, token)
	c.mu.Unlock()
	return c.err
}

type msgErr struct{ msg string }

func (e msgErr) Error() string       { return "captcha: " + e.msg }
func (e msgErr) UserMessage() string { return e.msg }

type recordingOutbox struct{ sent []message.Email }

func (o *recordingOutbox) EnqueueEmail(_ context.Context, m message.Email) error {
	o.sent = append(o.sent, m)
	return nil
}

func registry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Load(fstest.MapFS{
		"forms/contact.yaml": {Data: []byte(contactYAML)},
		"forms/profile.yaml": {Data: []byte(profileYAML)},
		"forms/README.md":    {Data: []byte("ignored")},
	}, "forms"))
	return reg
}

func validPost() url.Values {
	return url.Values{
		"name":      {"Ada"},
		"email":     {"Ada@Example.com"},
		"category":  {"bug"},
		"message":   {"Hello there"},
		"turnstile": {"tok"},
	}
}

func TestBuildCaptchaInclusion(t *testing.T) {
	reg := registry(t)

	tests := []struct {
		name     string
		captcha  Captcha
		enabled  bool
		formID   string
		included bool
	}{
		{"site key and flag", &fakeCaptcha{siteKey: "k"}, true, "core/contact", true},
		{"flag off", &fakeCaptcha{siteKey: "k"}, false, "core/contact", false},
		{"no site key", &fakeCaptcha{}, true, "core/contact", false},
		{"no provider", nil, true, "core/contact", false},
		{"form not opted in", &fakeCaptcha{siteKey: "k"}, true, "accounts/profile", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewBuilder(reg, nil, tt.captcha).Build(tt.formID, tt.enabled)
			require.NoError(t, err)

			assert.Equal(t, tt.included, f.HasCaptcha())
			_, has := f.Field("turnstile")
			assert.Equal(t, tt.included, has)
			assert.Equal(t, tt.included, contains(f.RequiredFields(), "turnstile"))

			html, err := f.Render(RenderOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.included, strings.Contains(string(html), "cf-turnstile"))
		})
	}
}

func TestBuildDoesNotMutateDefinition(t *testing.T) {
	reg := registry(t)
	b := NewBuilder(reg, nil, &fakeCaptcha{siteKey: "k"})
	_, err := b.Build("core/contact", true)
	require.NoError(t, err)

	fd, _ := reg.Get("core/contact")
	assert.Len(t, fd.Fields, 4)

	_, err = b.Build("nope", true)
	assert.Error(t, err)
}

func TestValidateWithoutCaptchaIgnoresToken(t *testing.T) {
	fc := &fakeCaptcha{}
	f, err := NewBuilder(registry(t), nil, fc).Build("core/contact", true)
	require.NoError(t, err)

	post := validPost()
	post.Del("turnstile")
	clean, errs := f.Validate(context.Background(), post)
	assert.Empty(t, errs)
	assert.Equal(t, "Ada@example.com", clean["email"])
	assert.Empty(t, fc.tokens)
}

func TestValidateEmailLowercasesDomainOnly(t *testing.T) {
	fd := &FieldDef{Name: "email", Type: "email"}
	for in, want := range map[string]string{
		"Ann@Example.COM":     "Ann@example.com",
		"ann.lee@example.com": "ann.lee@example.com",
		"Bob.K@Mail.Example":  "Bob.K@mail.example",
	} {
		got, msg := validateValue(fd, in)
		assert.Empty(t, msg, in)
		assert.Equal(t, want, got, in)
	}
}

func TestValidateCaptchaOutcomes(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		fc := &fakeCaptcha{siteKey: "k"}
		f, _ := NewBuilder(registry(t), nil, fc).Build("core/contact", true)
		clean, errs := f.Validate(context.Background(), validPost())
		assert.Empty(t, errs)
		assert.Equal(t, []string{"tok"}, fc.tokens)
		assert.NotContains(t, clean, "turnstile")
	})

	t.Run("rejected with message", func(t *testing.T) {
		fc := &fakeCaptcha{siteKey: "k", err: msgErr{"Invalid CAPTCHA response."}}
		f, _ := NewBuilder(registry(t), nil, fc).Build("core/contact", true)
		_, errs := f.Validate(context.Background(), validPost())
		assert.Equal(t, []ErrorField{{Name: "turnstile", Message: "Invalid CAPTCHA response."}}, errs)
	})

	t.Run("empty token reaches provider", func(t *testing.T) {
		fc := &fakeCaptcha{siteKey: "k", err: msgErr{"Please complete the CAPTCHA."}}
		f, _ := NewBuilder(registry(t), nil, fc).Build("core/contact", true)
		post := validPost()
		post.Del("turnstile")
		_, errs := f.Validate(context.Background(), post)
		require.Len(t, errs, 1)
		assert.Equal(t, "Please complete the CAPTCHA.", errs[0].Message)
		assert.Equal(t, []string{""}, fc.tokens)
	})
}

func TestValidateFieldRules(t *testing.T) {
	f, _ := NewBuilder(registry(t), nil, nil).Build("core/contact", false)

	post := url.Values{
		"name":     {strings.Repeat("x", 101)},
		"email":    {"not-an-email"},
		"category": {"spam"},
		"message":  {"hi"},
	}
	_, errs := f.Validate(context.Background(), post)
	got := map[string]string{}
	for _, e := range errs {
		got[e.Name] = e.Message
	}
	assert.Equal(t, "Ensure this value has at most 100 characters.", got["name"])
	assert.Equal(t, "Enter a valid email address.", got["email"])
	assert.Equal(t, "Select a valid choice.", got["category"])
	assert.Equal(t, "Ensure this value has at least 5 characters.", got["message"])

	_, errs = f.Validate(context.Background(), url.Values{})
	assert.Len(t, errs, 4)
}

func TestValidateCheckboxDefaultsFalse(t *testing.T) {
	f, _ := NewBuilder(registry(t), nil, nil).Build("accounts/profile", false)
	clean, errs := f.Validate(context.Background(), url.Values{})
	assert.Empty(t, errs)
	assert.Equal(t, false, clean["email_notifications"])
}

func TestCSRFAndTiming(t *testing.T) {
	csrf := NewCSRF([]byte("0123456789abcdef0123456789abcdef"))
	f, _ := NewBuilder(registry(t), csrf, nil, WithMinAge(time.Second)).Build("core/contact", false)

	post := validPost()
	_, errs := f.Validate(context.Background(), post)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "Security token invalid")

	tok, err := csrf.Token("core/contact")
	require.NoError(t, err)
	post.Set("csrf_token", tok)
	post.Set("render_ts", strconv.FormatInt(time.Now().UnixMicro(), 10))
	_, errs = f.Validate(context.Background(), post)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "too quickly")

	post.Set("render_ts", strconv.FormatInt(time.Now().Add(-5*time.Second).UnixMicro(), 10))
	_, errs = f.Validate(context.Background(), post)
	assert.Empty(t, errs)

	other := NewCSRF([]byte("ffffffffffffffffffffffffffffffff"))
	assert.False(t, other.Verify("core/contact", tok))

	expired := NewCSRF([]byte("0123456789abcdef0123456789abcdef"))
	expired.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	assert.False(t, expired.Verify("core/contact", tok))
}

func TestCSRFTokenBoundToForm(t *testing.T) {
	csrf := NewCSRF([]byte("0123456789abcdef0123456789abcdef"))
	tok, err := csrf.Token("core/contact")
	require.NoError(t, err)
	assert.True(t, csrf.Verify("core/contact", tok))
	assert.False(t, csrf.Verify("accounts/profile", tok))

	f, _ := NewBuilder(registry(t), csrf, nil, WithMinAge(0)).Build("accounts/profile", false)
	_, errs := f.Validate(context.Background(), url.Values{"csrf_token": {tok}})
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "Security token invalid")
}

func TestSubmitRunsEmailAction(t *testing.T) {
	out := &recordingOutbox{}
	b := NewBuilder(registry(t), nil, nil, WithActions(ActionDeps{
		Outbox:        out,
		AdminEmails:   []string{"admin@example.com"},
		SubjectPrefix: "Starter",
	}))
	f, _ := b.Build("core/contact", false)

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(validPost().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	clean, err := f.Submit(req)
	require.NoError(t, err)
	assert.Equal(t, "bug", clean["category"])

	require.Len(t, out.sent, 1)
	assert.Equal(t, []string{"admin@example.com"}, out.sent[0].To)
	assert.Equal(t, "[Starter] New contact", out.sent[0].Subject)
	assert.Contains(t, out.sent[0].Text, "message: Hello there")
}

func TestSubmitValidationError(t *testing.T) {
	f, _ := NewBuilder(registry(t), nil, nil).Build("core/contact", false)
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err := f.Submit(req)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.NotEmpty(t, FieldErrors(err))
	assert.Equal(t, "x", Prefill(req)["name"])
}

func TestStoreAction(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	reg := NewRegistry()
	fd, err := ParseFormDef([]byte(`
id: core/newsletter
fields:
  - {name: email, label: Email, type: email, required: true}
actions:
  - {type: store}
`), "newsletter.yaml")
	require.NoError(t, err)
	reg.Add(fd)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO form_submissions (form_id, submitted_at, data) VALUES (?, ?, ?)")).
		WithArgs("core/newsletter", sqlmock.AnyArg(), []byte(`{"email":"a@b.co"}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	b := NewBuilder(reg, nil, nil, WithActions(ActionDeps{DB: sqlx.NewDb(sqlDB, "mysql")}))
	f, _ := b.Build("core/newsletter", true)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("email=a@b.co"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, err = f.Submit(req)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseFormDefErrors(t *testing.T) {
	bad := map[string]string{
		"missing id":     `fields: [{name: a, label: A, type: text}]`,
		"no fields":      `id: x`,
		"dup field":      `{id: x, fields: [{name: a, label: A, type: text}, {name: a, label: B, type: text}]}`,
		"reserved name":  `{id: x, fields: [{name: turnstile, label: T, type: text}]}`,
		"bad type":       `{id: x, fields: [{name: a, label: A, type: color}]}`,
		"bad pattern":    `{id: x, fields: [{name: a, label: A, type: text, pattern: "("}]}`,
		"select no opts": `{id: x, fields: [{name: a, label: A, type: select}]}`,
		"unknown action": `{id: x, fields: [{name: a, label: A, type: text}], actions: [{type: pdf}]}`,
		"min beyond max": `{id: x, fields: [{name: a, label: A, type: text, minlength: 5, maxlength: 2}]}`,
	}
	for name, doc := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFormDef([]byte(doc), name)
			assert.Error(t, err)
		})
	}
}

func TestRenderShowsErrorsAndPrefill(t *testing.T) {
	f, _ := NewBuilder(registry(t), NewCSRF([]byte("k")), nil).Build("core/contact", false)
	html, err := f.Render(RenderOptions{
		Prefill: map[string]string{"name": `<Ada>`, "category": "bug"},
		Errors:  []ErrorField{{Name: "email", Message: "Enter a valid email address."}, {Message: "Try again."}},
	})
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, `value="&lt;Ada&gt;"`)
	assert.Contains(t, s, `<option value="bug" selected>Bug report</option>`)
	assert.Contains(t, s, `Enter a valid email address.`)
	assert.Contains(t, s, `<p class="form-error">Try again.</p>`)
	assert.Contains(t, s, `name="csrf_token"`)
}

func TestViewAndErrorsFrom(t *testing.T) {
	f, err := NewBuilder(registry(t), nil, nil).Build("core/contact", false)
	require.NoError(t, err)

	v, err := f.View(RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Contact", v.Title)
	assert.Equal(t, "Submit", v.Submit)
	assert.Contains(t, string(v.Body), `data-form="core/contact"`)

	errs := f.ErrorsFrom(map[string]string{
		"message": "Too short.",
		"name":    "Required.",
		"__all__": "Nope.",
	})
	assert.Equal(t, []ErrorField{
		{"name", "Required."},
		{"message", "Too short."},
		{"", "Nope."},
	}, errs)
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
