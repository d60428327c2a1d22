// internal/component/forms.go
//
// Form page helpers shared by HTML components.
//
// Workflow
//   •  BuildForm looks up the definition with the CAPTCHA flag on; the
//      builder still drops the field for forms that did not opt in or when
//      no site key is configured.
//   •  RenderForm draws the built form inside <comp>/<name>.html.
//   •  FormFailed re-renders after Submit fails, or answers 500 for
//      anything that is not a validation error.
//
//------------------------------------------------------------------------------

package component

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/form"
	"github.com/yanizio/adept-starter/internal/logger"
)

// FormPage is the payload of every template that draws one form.
type FormPage struct {
	Form  *form.View
	Extra any
}

// BuildForm returns the form id, or writes a 500 and returns nil.
func (d *Deps) BuildForm(w http.ResponseWriter, r *http.Request, id string) *form.Form {
	f, err := d.Forms.Build(id, true)
	if err != nil {
		logger.FromContext(r.Context()).Error("form build failed", zap.String("form", id), zap.Error(err))
		d.View.Error(w, r, http.StatusInternalServerError)
		return nil
	}
	return f
}

// RenderForm draws f inside comp/name.
func (d *Deps) RenderForm(w http.ResponseWriter, r *http.Request, f *form.Form, comp, name string,
	prefill map[string]string, errs []form.ErrorField, extra any) {
	fv, err := f.View(form.RenderOptions{Prefill: prefill, Errors: errs})
	if err != nil {
		logger.FromContext(r.Context()).Error("form render failed", zap.String("form", f.Def.ID), zap.Error(err))
		d.View.Error(w, r, http.StatusInternalServerError)
		return
	}
	d.View.Render(w, r, comp, name, f.Def.Title, FormPage{Form: fv, Extra: extra})
}

// FormFailed handles a non-nil error from Submit or from the service call
// that follows it.  Field maps (model.FieldErrors) are shown inline.
func (d *Deps) FormFailed(w http.ResponseWriter, r *http.Request, f *form.Form, comp, name string, err error, extra any) {
	var errs []form.ErrorField
	switch {
	case form.IsValidationError(err):
		errs = form.FieldErrors(err)
	case asFieldMap(err) != nil:
		errs = f.ErrorsFrom(asFieldMap(err))
	default:
		logger.FromContext(r.Context()).Error("form submit failed", zap.String("form", f.Def.ID), zap.Error(err))
		d.View.Error(w, r, http.StatusInternalServerError)
		return
	}
	d.RenderForm(w, r, f, comp, name, form.Prefill(r), errs, extra)
}

type fieldMapper interface{ FieldMap() map[string]string }

func asFieldMap(err error) map[string]string {
	var fm fieldMapper
	if errors.As(err, &fm) {
		return fm.FieldMap()
	}
	return nil
}

// Str reads a cleaned string value.
func Str(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// Bool reads a cleaned checkbox value.
func Bool(data map[string]any, key string) bool {
	b, _ := data[key].(bool)
	return b
}
