// components/core/core.go
//
// Core component: home page, static pages, FAQ, and the contact form.
//
// Context
//   Mounted at "/".  Pages and FAQs are read-only here; only rows that are
//   published and inside their publish window are shown.  The contact form
//   carries the CAPTCHA, pre-fills name and email for signed-in users,
//   queues the admin notification through its form action, and stores a
//   Contact row with the client's IP and user agent.
//
//------------------------------------------------------------------------------

package core

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/apperr"
	"github.com/yanizio/adept-starter/internal/auth"
	"github.com/yanizio/adept-starter/internal/component"
	"github.com/yanizio/adept-starter/internal/content"
	"github.com/yanizio/adept-starter/internal/logger"
	"github.com/yanizio/adept-starter/internal/metrics"
	"github.com/yanizio/adept-starter/internal/requestinfo"
	"github.com/yanizio/adept-starter/internal/view"
)

const formContact = "core/contact"

var _ component.Component = (*Component)(nil)

// Component serves the public site.
type Component struct {
	d        *component.Deps
	pages    *content.PageRepo
	faqs     *content.FAQRepo
	contacts *content.ContactRepo
}

func (c *Component) Name() string         { return "core" }
func (c *Component) Prefix() string       { return "/" }
func (c *Component) Migrations() []string { return migrations }

func (c *Component) Init(d *component.Deps) error {
	c.d = d
	c.pages = content.NewPageRepo(d.DB)
	c.faqs = content.NewFAQRepo(d.DB)
	c.contacts = content.NewContactRepo(d.DB)
	return nil
}

func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", c.home)
	r.Get("/pages/{slug}", c.page)
	r.Get("/faq", c.faq)
	r.Get("/contact", c.contactGET)
	r.Post("/contact", c.contactPOST)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		c.d.View.Error(w, r, http.StatusNotFound)
	})
	return r
}

func init() { component.Register(&Component{}) }

/*──────────────────────────── pages ───────────────────────────────────────*/

func (c *Component) home(w http.ResponseWriter, r *http.Request) {
	pages, err := c.pages.ListActive(r.Context(), c.d.Now()())
	if err != nil {
		c.fail(w, r, "page list failed", err)
		return
	}
	c.d.View.Render(w, r, "core", "home", "Home", pages)
}

func (c *Component) page(w http.ResponseWriter, r *http.Request) {
	p, err := c.pages.ActiveBySlug(r.Context(), chi.URLParam(r, "slug"), c.d.Now()())
	if errors.Is(err, apperr.ErrNotFound) {
		c.d.View.Error(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		c.fail(w, r, "page load failed", err)
		return
	}
	c.d.View.Render(w, r, "core", "page", p.Title, p)
}

type faqPage struct {
	Groups     []content.FAQGroup
	Categories []content.Choice
	Selected   string
}

func (c *Component) faq(w http.ResponseWriter, r *http.Request) {
	cat := r.URL.Query().Get("category")
	if content.Label(content.FAQCategories, cat) == cat {
		cat = "" // unknown or empty: show all
	}
	faqs, err := c.faqs.ListActive(r.Context(), c.d.Now()(), cat)
	if err != nil {
		c.fail(w, r, "faq list failed", err)
		return
	}
	c.d.View.Render(w, r, "core", "faq", "Frequently Asked Questions", faqPage{
		Groups:     content.GroupFAQs(faqs),
		Categories: content.FAQCategories,
		Selected:   cat,
	})
}

/*──────────────────────────── contact ─────────────────────────────────────*/

func (c *Component) contactGET(w http.ResponseWriter, r *http.Request) {
	f := c.d.BuildForm(w, r, formContact)
	if f == nil {
		return
	}
	prefill := map[string]string{"category": "general"}
	if u, ok := auth.CurrentUser(r.Context()); ok {
		prefill["name"] = u.FullName()
		prefill["email"] = u.Email
	}
	c.d.RenderForm(w, r, f, "core", "contact", prefill, nil, nil)
}

func (c *Component) contactPOST(w http.ResponseWriter, r *http.Request) {
	f := c.d.BuildForm(w, r, formContact)
	if f == nil {
		return
	}
	data, err := f.Submit(r)
	if err != nil {
		c.d.FormFailed(w, r, f, "core", "contact", err, nil)
		return
	}

	ct := &content.Contact{
		Name:      component.Str(data, "name"),
		Email:     component.Str(data, "email"),
		Category:  component.Str(data, "category"),
		Subject:   component.Str(data, "subject"),
		Message:   component.Str(data, "message"),
		IPAddress: requestinfo.IP(r),
		UserAgent: requestinfo.UserAgent(r),
	}
	if ct.Category == "" {
		ct.Category = "general"
	}
	if id, ok := auth.UserID(r.Context()); ok {
		ct.UserID = &id
	}
	if err := c.contacts.Create(r.Context(), ct, c.d.Now()()); err != nil {
		c.d.FormFailed(w, r, f, "core", "contact", err, nil)
		return
	}
	metrics.ContactSubmissions.WithLabelValues(ct.Category).Inc()
	logger.FromContext(r.Context()).Info("contact received",
		zap.Int64("contact_id", ct.ID), zap.String("category", ct.Category))

	view.SetFlash(w, "Thank you for your message.  We will get back to you soon.")
	http.Redirect(w, r, "/contact", http.StatusSeeOther)
}

func (c *Component) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.FromContext(r.Context()).Error(msg, zap.Error(err))
	c.d.View.Error(w, r, http.StatusInternalServerError)
}
