package turnstile

import (
	"fmt"
	"html/template"
)

// FieldName is the form field the widget posts its token under.
const FieldName = "turnstile"

const scriptURL = "https://challenges.cloudflare.com/turnstile/v0/api.js"

// Widget renders the challenge container and loader script.  It is empty
// when no site key is configured.
func (v *Verifier) Widget() template.HTML {
	if !v.Enabled() {
		return ""
	}
	return template.HTML(fmt.Sprintf(
		`<div class="cf-turnstile" data-sitekey="%s" data-theme="%s" data-size="%s" data-response-field-name="%s"></div>`+
			`<script src="%s" async defer></script>`,
		template.HTMLEscapeString(v.cfg.SiteKey),
		template.HTMLEscapeString(v.cfg.Theme),
		template.HTMLEscapeString(v.cfg.Size),
		FieldName,
		scriptURL,
	))
}
