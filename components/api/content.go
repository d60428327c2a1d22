package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (c *Component) faqList(w http.ResponseWriter, r *http.Request) {
	faqs, err := c.faqs.ListActive(r.Context(), c.d.Now()(), r.URL.Query().Get("category"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, faqs)
}

// faqDetail counts a view on every successful read.
func (c *Component) faqDetail(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	f, err := c.faqs.ActiveByID(r.Context(), id, c.d.Now()())
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := c.faqs.IncrementViews(r.Context(), f.ID); err != nil {
		fail(w, r, err)
		return
	}
	f.ViewCount++
	writeJSON(w, http.StatusOK, f)
}

func (c *Component) pageList(w http.ResponseWriter, r *http.Request) {
	pages, err := c.pages.ListActive(r.Context(), c.d.Now()())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

func (c *Component) pageDetail(w http.ResponseWriter, r *http.Request) {
	p, err := c.pages.ActiveBySlug(r.Context(), chi.URLParam(r, "slug"), c.d.Now()())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (c *Component) dashboardStats(w http.ResponseWriter, r *http.Request) {
	st, err := c.stats.APIStats(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (c *Component) dashboardChart(w http.ResponseWriter, r *http.Request) {
	ch, err := c.stats.Chart(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}
