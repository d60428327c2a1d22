// components/api/api.go
//
// JSON API under /api/v1.
//
// Context
//   Authentication rides on the browser session loaded by auth.Load, so the
//   API shares sign-in with the HTML site.  Every endpoint except the FAQ
//   and page reads and contact creation requires a signed-in user; staff
//   see every row, everyone else sees their own.
//
// Workflow
//   Handlers decode a size-capped JSON body, call the repositories or the
//   accounts service, and write either the value or an apperr envelope.
//   Lists are wrapped in the pagination meta block with a "results" array.
//
// Notes
//   Contact creation is open to anonymous callers and is rate limited per
//   client IP instead.
//
//------------------------------------------------------------------------------

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/accounts"
	"github.com/yanizio/adept-starter/internal/apperr"
	"github.com/yanizio/adept-starter/internal/auth"
	"github.com/yanizio/adept-starter/internal/component"
	"github.com/yanizio/adept-starter/internal/content"
	"github.com/yanizio/adept-starter/internal/dashboard"
	"github.com/yanizio/adept-starter/internal/logger"
	"github.com/yanizio/adept-starter/internal/middleware"
	"github.com/yanizio/adept-starter/internal/pagination"
)

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

var _ component.Component = (*Component)(nil)

// Component serves /api/v1.
type Component struct {
	d           *component.Deps
	contacts    *content.ContactRepo
	faqs        *content.FAQRepo
	pages       *content.PageRepo
	attachments *content.AttachmentRepo
	images      *content.ImageRepo
	stats       *dashboard.Service
	limit       func(http.Handler) http.Handler
}

func (c *Component) Name() string         { return "api" }
func (c *Component) Prefix() string       { return "/api/v1" }
func (c *Component) Migrations() []string { return nil }

func (c *Component) Init(d *component.Deps) error {
	c.d = d
	c.contacts = content.NewContactRepo(d.DB)
	c.faqs = content.NewFAQRepo(d.DB)
	c.pages = content.NewPageRepo(d.DB)
	c.attachments = content.NewAttachmentRepo(d.DB)
	c.images = content.NewImageRepo(d.DB)
	c.stats = dashboard.New(d.DB, d.Now())
	c.limit = middleware.RateLimit(middleware.RateLimitConfig{
		Burst:        10,
		RefillPerMin: 10,
		MaxEntries:   10_000,
		TrustProxy:   d.Config != nil && d.Config.HTTP.TrustProxy,
		Methods:      []string{http.MethodPost},
	})
	return nil
}

func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apperr.Write(w, apperr.NotFound("Endpoint"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apperr.Write(w, &apperr.Error{Code: "METHOD_NOT_ALLOWED", Message: "Method not allowed.", Status: http.StatusMethodNotAllowed})
	})

	// Open endpoints.
	r.Get("/faqs", c.faqList)
	r.Get("/faqs/{id}", c.faqDetail)
	r.Get("/pages", c.pageList)
	r.Get("/pages/{slug}", c.pageDetail)
	r.With(c.limit).Post("/contacts", c.contactCreate)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAPIUser)

		r.Get("/profile", c.profileGet)
		r.Patch("/profile", c.profilePatch)
		r.Post("/password", c.passwordChange)
		r.Get("/activities", c.activities)
		r.Get("/users", c.userList)

		r.Get("/contacts", c.contactList)
		r.Get("/contacts/{id}", c.contactGet)
		r.Post("/contacts/{id}/resolve", c.contactResolve)
		r.With(requireStaff).Patch("/contacts/{id}", c.contactPatch)
		r.With(requireStaff).Delete("/contacts/{id}", c.contactDelete)

		r.Get("/dashboard/stats", c.dashboardStats)
		r.Get("/dashboard/chart", c.dashboardChart)

		r.Get("/attachments", c.attachmentList)
		r.Post("/attachments", c.attachmentUpload)
		r.Get("/attachments/{id}", c.attachmentGet)
		r.Get("/attachments/{id}/download", c.attachmentDownload)
		r.Delete("/attachments/{id}", c.attachmentDelete)
		r.With(requireStaff).Post("/attachments/{id}/restore", c.attachmentRestore)

		r.Get("/images", c.imageList)
		r.Post("/images", c.imageUpload)
		r.Get("/images/{id}", c.imageGet)
		r.Delete("/images/{id}", c.imageDelete)
	})
	return r
}

func init() { component.Register(&Component{}) }

/*──────────────────────────── helpers ─────────────────────────────────────*/

// list is the paginated envelope.
type list[T any] struct {
	pagination.Meta
	Results []T `json:"results"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail writes err, logging server-side failures with request context.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	if ae := apperr.From(err); ae.Status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("api request failed",
			zap.String("path", r.URL.Path), zap.Error(err))
	}
	apperr.Write(w, err)
}

// decode reads a JSON body of at most maxBody bytes into dst.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperr.TooLarge("Request body too large.")
		}
		return apperr.Validation("Malformed JSON body.").WithDetail("reason", err.Error())
	}
	return nil
}

// page resolves ?page= and ?per_page= against count.
func page(r *http.Request, count int) pagination.Page {
	return pagination.New(count, pagination.PerPage(r)).Page(r.URL.Query().Get("page"))
}

// user returns the signed-in user.  Only call behind RequireAPIUser.
func user(r *http.Request) *accounts.User {
	u, _ := auth.CurrentUser(r.Context())
	return u
}

func int64Param(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.NotFound("Resource")
	}
	return id, nil
}

func requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := auth.CurrentUser(r.Context()); !ok || !u.IsStaff {
			apperr.Write(w, apperr.Forbidden("You do not have permission to perform this action."))
			return
		}
		next.ServeHTTP(w, r)
	})
}
