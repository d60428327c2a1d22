package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/accounts"
	"github.com/yanizio/adept-starter/internal/component"
	"github.com/yanizio/adept-starter/internal/config"
	"github.com/yanizio/adept-starter/internal/form"
	"github.com/yanizio/adept-starter/internal/media"
	"github.com/yanizio/adept-starter/internal/message"
	"github.com/yanizio/adept-starter/internal/session"
	"github.com/yanizio/adept-starter/internal/turnstile"
	"github.com/yanizio/adept-starter/internal/view"
	"github.com/yanizio/adept-starter/web"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var userCols = []string{
	"id", "email", "username", "password_hash", "first_name", "last_name",
	"avatar", "bio", "phone_number", "is_staff", "is_active", "is_verified",
	"email_notifications", "last_login", "date_joined", "created_at", "updated_at",
}

type app struct {
	h        chi.Router
	mock     sqlmock.Sqlmock
	sessions *session.Manager
}

// newApp wires every registered component the way run does, over sqlmock.
func newApp(t *testing.T) *app {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	db := sqlx.NewDb(raw, "mysql")

	cfg := &config.Config{}
	cfg.Session.Secret = testSecret
	cfg.Site.Name = "Starter"
	cfg.Media.URL = "/media/"
	mediaRoot := t.TempDir()

	reg := form.NewRegistry()
	require.NoError(t, reg.Load(web.Forms(), "."))

	sessions := session.NewManager(session.NewCookieStore([]byte(testSecret)), session.Options{})
	users := accounts.NewRepository(db)
	activity := accounts.NewActivityLog(db)
	svc := accounts.NewService(users, activity, accounts.Config{Secret: []byte(testSecret), Mail: message.LogOutbox{}})
	forms := form.NewBuilder(reg, form.NewCSRF([]byte(testSecret)), turnstile.New(turnstile.Config{}))
	renderer := view.New(web.Templates(), view.Options{Site: view.SiteInfo{Name: cfg.Site.Name}})
	deps := &component.Deps{
		Config:   cfg,
		DB:       db,
		Log:      zap.NewNop(),
		View:     renderer,
		Forms:    forms,
		Sessions: sessions,
		Accounts: svc,
		Activity: activity,
		Users:    users,
		Media:    media.NewStorage(mediaRoot, cfg.Media.URL, 1<<20),
		Outbox:   message.LogOutbox{},
	}
	require.NoError(t, os.WriteFile(filepath.Join(mediaRoot, "hello.txt"), []byte("hi"), 0o644))

	r, err := newRouter(cfg, deps, component.All())
	require.NoError(t, err)
	return &app{h: r, mock: mock, sessions: sessions}
}

func (a *app) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func TestRouterMountsEveryComponent(t *testing.T) {
	a := newApp(t)

	rec := a.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = a.get("/accounts/login")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `name="csrf_token"`)

	assert.Equal(t, http.StatusSeeOther, a.get("/dashboard/").Code)
	assert.Equal(t, http.StatusUnauthorized, a.get("/api/v1/profile").Code)
	assert.Equal(t, http.StatusOK, a.get("/metrics").Code)

	rec = a.get("/media/hello.txt")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi", rec.Body.String())
}

func TestRouterLoadsSessionUser(t *testing.T) {
	a := newApp(t)

	login := httptest.NewRecorder()
	require.NoError(t, a.sessions.Login(login, httptest.NewRequest(http.MethodPost, "/accounts/login", nil), 7))
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)

	now := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	a.mock.ExpectQuery("FROM users WHERE id = \\?").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			7, "ann@example.com", "ann", "x", "Ann", "Lee", "", "", "",
			false, true, false, true, nil, now, now, now))

	rec := a.get("/api/v1/profile", cookies...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"email":"ann@example.com"`)
	assert.NoError(t, a.mock.ExpectationsWereMet())
}
