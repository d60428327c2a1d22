package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yanizio/adept-starter/internal/accounts"
	"github.com/yanizio/adept-starter/internal/apperr"
)

type fixedSession struct {
	id int64
	ok bool
}

func (s fixedSession) UserID(*http.Request) (int64, bool) { return s.id, s.ok }

type users map[int64]*accounts.User

func (u users) User(_ context.Context, id int64) (*accounts.User, error) {
	if usr, ok := u[id]; ok {
		return usr, nil
	}
	return nil, apperr.NotFound("User")
}

func whoami(w http.ResponseWriter, r *http.Request) {
	if u, ok := CurrentUser(r.Context()); ok {
		_, _ = w.Write([]byte(u.Email))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
}

func TestLoad(t *testing.T) {
	db := users{
		1: {ID: 1, Email: "a@example.com", IsActive: true},
		2: {ID: 2, Email: "b@example.com", IsActive: false},
	}
	cases := []struct {
		name string
		sess fixedSession
		want string
	}{
		{"no session", fixedSession{}, "anonymous"},
		{"active user", fixedSession{1, true}, "a@example.com"},
		{"inactive user", fixedSession{2, true}, "anonymous"},
		{"deleted user", fixedSession{3, true}, "anonymous"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := Load(c.sess, db)(http.HandlerFunc(whoami))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, c.want, rec.Body.String())
		})
	}
}

func TestRequireLogin(t *testing.T) {
	h := RequireLogin(http.HandlerFunc(whoami))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard?tab=1", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/accounts/login?next=%2Fdashboard%3Ftab%3D1", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(WithUser(req.Context(), &accounts.User{ID: 1, Email: "a@example.com"}))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireStaff(t *testing.T) {
	h := RequireStaff(http.HandlerFunc(whoami))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req = req.WithContext(WithUser(req.Context(), &accounts.User{ID: 1}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = req.WithContext(WithUser(req.Context(), &accounts.User{ID: 1, IsStaff: true}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAPIUser(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireAPIUser(http.HandlerFunc(whoami)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), apperr.CodeUnauthorized)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/dashboard", SafeNext("", "/dashboard"))
	assert.Equal(t, "/faq", SafeNext("/faq", "/dashboard"))
	assert.Equal(t, "/dashboard", SafeNext("//evil.com", "/dashboard"))
	assert.Equal(t, "/dashboard", SafeNext("https://evil.com", "/dashboard"))
	assert.Equal(t, "/dashboard", SafeNext("/\\evil.com", "/dashboard"))
}
