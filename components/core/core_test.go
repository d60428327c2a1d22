package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/adept-starter/internal/accounts"
	"github.com/yanizio/adept-starter/internal/auth"
	"github.com/yanizio/adept-starter/internal/component"
	"github.com/yanizio/adept-starter/internal/form"
	"github.com/yanizio/adept-starter/internal/message"
	"github.com/yanizio/adept-starter/internal/view"
	"github.com/yanizio/adept-starter/web"
)

var now = time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)

var (
	pageCols = []string{
		"id", "slug", "title", "content", "meta_description",
		"is_published", "published_at", "published_until", "created_at", "updated_at",
	}
	faqCols = []string{
		"id", "category", "question", "answer", "is_featured", "view_count",
		"is_published", "published_at", "published_until", "sort_order", "created_at", "updated_at",
	}
)

type outbox struct {
	mu   sync.Mutex
	sent []message.Email
}

func (o *outbox) EnqueueEmail(_ context.Context, e message.Email) error {
	o.mu.Lock()
	o.sent = append(o.sent, e)
	o.mu.Unlock()
	return nil
}

type fixture struct {
	h    http.Handler
	mock sqlmock.Sqlmock
	mail *outbox
	as   *accounts.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	db := sqlx.NewDb(raw, "mysql")

	reg := form.NewRegistry()
	require.NoError(t, reg.Load(web.Forms(), "."))

	f := &fixture{mock: mock, mail: &outbox{}}
	deps := &component.Deps{
		DB:   db,
		View: view.New(web.Templates(), view.Options{Site: view.SiteInfo{Name: "Starter"}}),
		Forms: form.NewBuilder(reg, nil, nil, form.WithActions(form.ActionDeps{
			Outbox:        f.mail,
			AdminEmails:   []string{"admin@example.com"},
			SubjectPrefix: "Starter",
		})),
		Clock: func() time.Time { return now },
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if f.as != nil {
				req = req.WithContext(auth.WithUser(req.Context(), f.as))
			}
			next.ServeHTTP(w, req)
		})
	})
	require.NoError(t, component.Mount(r, deps, &Component{}))
	f.h = r
	return f
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHomeListsActivePages(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("FROM pages WHERE").
		WithArgs(true, now, now).
		WillReturnRows(sqlmock.NewRows(pageCols).
			AddRow(1, "about", "About us", "We build things.", "Who we are", true, nil, nil, now, now))

	rec := f.get("/")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `href="/pages/about"`)
	assert.Contains(t, rec.Body.String(), "Welcome to Starter")
}

func TestPageDetail(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("FROM pages WHERE slug = \\?").
		WillReturnRows(sqlmock.NewRows(pageCols).
			AddRow(1, "terms", "Terms of Service", "Line one\nLine two", "The rules", true, nil, nil, now, now))

	rec := f.get("/pages/terms")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Terms of Service</h1>")
	assert.Contains(t, body, "Line one<br>")
	assert.Contains(t, body, `<meta name="description" content="The rules">`)
}

func TestPageOutsideWindowIs404(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("FROM pages WHERE slug = \\?").WillReturnRows(sqlmock.NewRows(pageCols))

	rec := f.get("/pages/privacy")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}

func TestUnknownPathIs404Page(t *testing.T) {
	f := newFixture(t)
	rec := f.get("/no/such/thing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}

func TestFAQGroupsAndFilter(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("FROM faqs WHERE .* AND category = \\?").
		WithArgs(true, now, now, "billing").
		WillReturnRows(sqlmock.NewRows(faqCols).
			AddRow(1, "billing", "How do refunds work?", "Ask us.", true, 0, true, nil, nil, 0, now, now))

	rec := f.get("/faq?category=billing")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "<h2>Billing</h2>")
	assert.Contains(t, body, "How do refunds work?")
	assert.Contains(t, body, `href="/faq?category=billing" class="active"`)
}

func TestFAQUnknownCategoryShowsAll(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("FROM faqs WHERE .* ORDER BY category").
		WithArgs(true, now, now).
		WillReturnRows(sqlmock.NewRows(faqCols))

	rec := f.get("/faq?category=nonsense")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "No questions here yet.")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestContactPrefillsSignedInUser(t *testing.T) {
	f := newFixture(t)
	f.as = &accounts.User{ID: 7, Email: "ann@example.com", Username: "ann", FirstName: "Ann", LastName: "Lee"}

	rec := f.get("/contact")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, `value="Ann Lee"`)
	assert.Contains(t, body, `value="ann@example.com"`)
	assert.Contains(t, body, `<option value="general" selected>`)
}

func TestContactSubmitStoresAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.as = &accounts.User{ID: 7, Email: "ann@example.com", Username: "ann"}
	f.mock.ExpectExec("INSERT INTO contacts").
		WithArgs("Ann", "ann@example.com", "bug", "It broke", "Details here", "new",
			int64(7), nil, "", sqlmock.AnyArg(), "test-agent", nil, now, now).
		WillReturnResult(sqlmock.NewResult(4, 1))

	vals := url.Values{
		"name": {"Ann"}, "email": {"Ann@Example.com"}, "category": {"bug"},
		"subject": {"It broke"}, "message": {"Details here"},
	}
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/contact", rec.Header().Get("Location"))
	assert.NoError(t, f.mock.ExpectationsWereMet())

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, []string{"admin@example.com"}, f.mail.sent[0].To)
	assert.Equal(t, "[Starter] New contact", f.mail.sent[0].Subject)
	assert.Contains(t, f.mail.sent[0].Text, "subject: It broke")
}

func TestContactInvalidRerendersWithErrors(t *testing.T) {
	f := newFixture(t)
	vals := url.Values{"name": {"Ann"}, "email": {"nope"}, "category": {"general"}, "subject": {"Hi"}, "message": {"x"}}
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter a valid email address.")
	assert.Empty(t, f.mail.sent)
}
