// internal/form/renderer.go
//
// Forms subsystem: HTML renderer.
//
// Context
//   Converts a built Form into safe, accessible HTML markup.  The renderer
//   applies HTML5 validation attributes, injects the CSRF token and render
//   timestamp hidden inputs, honours pre-fill data, and writes server-side
//   error messages next to the offending field.  The surrounding template
//   supplies the <form> element and submit button.
//
// Style
//   Output HTML is deliberately plain so themes can style via element
//   selectors.  Each input gets id="fld-{name}" and is wrapped in
//   <div class="form-field">.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"
	"time"
)

// RenderOptions bundles optional parameters influencing HTML output.
type RenderOptions struct {
	Prefill map[string]string
	Errors  []ErrorField
}

// View is what a page template needs to draw a complete form.
type View struct {
	ID     string
	Title  string
	Submit string
	Body   template.HTML
}

// View renders f and wraps it with its title and submit label.
func (f *Form) View(opts RenderOptions) (*View, error) {
	body, err := f.Render(opts)
	if err != nil {
		return nil, err
	}
	submit := f.Def.Submit
	if submit == "" {
		submit = "Submit"
	}
	return &View{ID: f.Def.ID, Title: f.Def.Title, Submit: submit, Body: body}, nil
}

// Render returns the inner markup of the form.
func (f *Form) Render(opts RenderOptions) (template.HTML, error) {
	errs := make(map[string]string, len(opts.Errors))
	var buf bytes.Buffer
	buf.WriteString(`<div class="adept-form" data-form="` + html.EscapeString(f.Def.ID) + `">` + "\n")

	for _, e := range opts.Errors {
		if e.Name == "" {
			buf.WriteString(`<p class="form-error">` + html.EscapeString(e.Message) + `</p>` + "\n")
			continue
		}
		if _, seen := errs[e.Name]; !seen {
			errs[e.Name] = e.Message
		}
	}

	for _, fd := range f.Fields {
		if err := f.writeField(&buf, &fd, opts.Prefill[fd.Name], errs[fd.Name]); err != nil {
			return "", err
		}
	}

	if f.csrf != nil {
		tok, err := f.csrf.Token(f.Def.ID)
		if err != nil {
			return "", fmt.Errorf("form: csrf token: %w", err)
		}
		buf.WriteString(`<input type="hidden" name="csrf_token" value="` + tok + `">` + "\n")
		buf.WriteString(`<input type="hidden" name="render_ts" value="` + strconv.FormatInt(time.Now().UnixMicro(), 10) + `">` + "\n")
	}

	buf.WriteString(`</div>`)
	return template.HTML(buf.String()), nil
}

// writeField emits HTML for one field.
func (f *Form) writeField(buf *bytes.Buffer, fd *FieldDef, val, errMsg string) error {
	name := html.EscapeString(fd.Name)
	idAttr := `id="fld-` + name + `"`
	nameAttr := `name="` + name + `"`

	buf.WriteString(`<div class="form-field">` + "\n")
	if fd.Label != "" {
		buf.WriteString(`<label for="fld-` + name + `">` + html.EscapeString(fd.Label) + `</label>` + "\n")
	}

	switch fd.Type {
	case "text", "email", "password", "number", "date":
		buf.WriteString(`<input ` + idAttr + ` ` + nameAttr + ` type="` + fd.Type + `"`)
		writeConstraints(buf, fd)
		if val != "" && fd.Type != "password" {
			buf.WriteString(` value="` + html.EscapeString(val) + `"`)
		}
		buf.WriteString(`>` + "\n")

	case "textarea":
		buf.WriteString(`<textarea ` + idAttr + ` ` + nameAttr)
		writeConstraints(buf, fd)
		buf.WriteString(`>` + html.EscapeString(val) + `</textarea>` + "\n")

	case "select":
		buf.WriteString(`<select ` + idAttr + ` ` + nameAttr)
		if fd.Required {
			buf.WriteString(` required`)
		}
		buf.WriteString(`>` + "\n")
		for _, opt := range fd.Options {
			sel := ""
			if val == opt.Value {
				sel = ` selected`
			}
			buf.WriteString(`<option value="` + html.EscapeString(opt.Value) + `"` + sel + `>` + html.EscapeString(opt.Label) + `</option>` + "\n")
		}
		buf.WriteString(`</select>` + "\n")

	case "radio":
		for i, opt := range fd.Options {
			radioID := fmt.Sprintf("fld-%s-%d", name, i)
			checked := ""
			if val == opt.Value {
				checked = ` checked`
			}
			buf.WriteString(`<div class="radio-option"><input id="` + radioID + `" ` + nameAttr + ` type="radio" value="` + html.EscapeString(opt.Value) + `"` + checked)
			if fd.Required {
				buf.WriteString(` required`)
			}
			buf.WriteString(`><label for="` + radioID + `">` + html.EscapeString(opt.Label) + `</label></div>` + "\n")
		}

	case "checkbox":
		checked := ""
		if val != "" && strings.ToLower(val) != "false" {
			checked = ` checked`
		}
		buf.WriteString(`<input ` + idAttr + ` ` + nameAttr + ` type="checkbox"` + checked)
		if fd.Required {
			buf.WriteString(` required`)
		}
		buf.WriteString(`>` + "\n")

	case "captcha":
		if f.captcha == nil {
			return fmt.Errorf("form %s: captcha field without provider", f.Def.ID)
		}
		buf.WriteString(string(f.captcha.Widget()) + "\n")

	default:
		return fmt.Errorf("form %s: unsupported field type %q on %s", f.Def.ID, fd.Type, fd.Name)
	}

	if fd.Help != "" {
		buf.WriteString(`<small class="help">` + html.EscapeString(fd.Help) + `</small>` + "\n")
	}
	buf.WriteString(`<span class="error" aria-live="polite">` + html.EscapeString(errMsg) + `</span>` + "\n")
	buf.WriteString(`</div>` + "\n")
	return nil
}

func writeConstraints(buf *bytes.Buffer, fd *FieldDef) {
	if fd.Placeholder != "" {
		buf.WriteString(` placeholder="` + html.EscapeString(fd.Placeholder) + `"`)
	}
	if fd.Required {
		buf.WriteString(` required`)
	}
	if fd.MinLength > 0 {
		buf.WriteString(` minlength="` + strconv.Itoa(fd.MinLength) + `"`)
	}
	if fd.MaxLength > 0 {
		buf.WriteString(` maxlength="` + strconv.Itoa(fd.MaxLength) + `"`)
	}
	if fd.Pattern != "" {
		buf.WriteString(` pattern="` + html.EscapeString(fd.Pattern) + `"`)
	}
}
