package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/apperr"
	"github.com/yanizio/adept-starter/internal/auth"
	"github.com/yanizio/adept-starter/internal/content"
	"github.com/yanizio/adept-starter/internal/logger"
	"github.com/yanizio/adept-starter/internal/metrics"
	"github.com/yanizio/adept-starter/internal/requestinfo"
)

type contactInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Category string `json:"category"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
}

func (c *Component) contactCreate(w http.ResponseWriter, r *http.Request) {
	var in contactInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	ct := &content.Contact{
		Name:      strings.TrimSpace(in.Name),
		Email:     in.Email,
		Category:  in.Category,
		Subject:   strings.TrimSpace(in.Subject),
		Message:   strings.TrimSpace(in.Message),
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
		fail(w, r, err)
		return
	}
	metrics.ContactSubmissions.WithLabelValues(ct.Category).Inc()
	logger.FromContext(r.Context()).Info("contact received",
		zap.Int64("contact_id", ct.ID), zap.String("category", ct.Category), zap.String("via", "api"))
	writeJSON(w, http.StatusCreated, ct)
}

// contactScope limits non-staff callers to contacts sent from their own
// email address.
func contactScope(r *http.Request) content.ContactFilter {
	var f content.ContactFilter
	u := user(r)
	if !u.IsStaff {
		f.Email = u.Email
	}
	if s := r.URL.Query().Get("status"); s != "" {
		f.Statuses = strings.Split(s, ",")
	}
	return f
}

func (c *Component) contactList(w http.ResponseWriter, r *http.Request) {
	f := contactScope(r)
	n, err := c.contacts.Count(r.Context(), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	pg := page(r, n)
	rows, err := c.contacts.List(r.Context(), f, pg.Limit(), pg.Offset())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list[content.Contact]{Meta: pg.Meta(), Results: rows})
}

// visibleContact loads {id} and hides it from non-staff callers who did
// not send it.
func (c *Component) visibleContact(r *http.Request) (*content.Contact, error) {
	id, err := int64Param(r, "id")
	if err != nil {
		return nil, err
	}
	ct, err := c.contacts.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if u := user(r); !u.IsStaff && !strings.EqualFold(ct.Email, u.Email) {
		return nil, apperr.NotFound("Contact")
	}
	return ct, nil
}

func (c *Component) contactGet(w http.ResponseWriter, r *http.Request) {
	ct, err := c.visibleContact(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ct)
}

func (c *Component) contactResolve(w http.ResponseWriter, r *http.Request) {
	ct, err := c.visibleContact(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	ct.Resolve(c.d.Now()())
	if err := c.contacts.Update(r.Context(), ct, c.d.Now()()); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": content.StatusResolved})
}

// contactPatch carries the staff-editable fields that were sent.
type contactPatch struct {
	Status     *string `json:"status"`
	Notes      *string `json:"notes"`
	AssignedTo *int64  `json:"assigned_to"`
	Category   *string `json:"category"`
}

func (c *Component) contactPatch(w http.ResponseWriter, r *http.Request) {
	ct, err := c.visibleContact(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var in contactPatch
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	now := c.d.Now()()
	if in.Status != nil && *in.Status != ct.Status {
		if *in.Status == content.StatusResolved {
			ct.Resolve(now)
		} else {
			ct.Status = *in.Status
		}
	}
	if in.Notes != nil {
		ct.Notes = *in.Notes
	}
	if in.AssignedTo != nil {
		ct.AssignedTo = in.AssignedTo
	}
	if in.Category != nil {
		ct.Category = *in.Category
	}
	if err := c.contacts.Update(r.Context(), ct, now); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ct)
}

func (c *Component) contactDelete(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := c.contacts.Delete(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
