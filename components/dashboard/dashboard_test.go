package dashboard

import (
	"net/http"
	"net/http/httptest"
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
	"github.com/yanizio/adept-starter/internal/view"
	"github.com/yanizio/adept-starter/web"
)

func newRouter(t *testing.T, as *accounts.User) http.Handler {
	t.Helper()
	raw, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	deps := &component.Deps{
		DB:    sqlx.NewDb(raw, "mysql"),
		View:  view.New(web.Templates(), view.Options{Site: view.SiteInfo{Name: "Starter"}}),
		Clock: func() time.Time { return time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC) },
	}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if as != nil {
				req = req.WithContext(auth.WithUser(req.Context(), as))
			}
			next.ServeHTTP(w, req)
		})
	})
	require.NoError(t, component.Mount(r, deps, &Component{}))
	return r
}

func TestDashboardRequiresLogin(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/accounts/login?next=")
}

func TestDashboardStatsFailureIs500(t *testing.T) {
	u := &accounts.User{ID: 1, Email: "ann@example.com", Username: "ann", IsActive: true}
	rec := httptest.NewRecorder()
	newRouter(t, u).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
