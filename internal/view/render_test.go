package view

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/adept-starter/internal/accounts"
	"github.com/yanizio/adept-starter/internal/auth"
	"github.com/yanizio/adept-starter/internal/requestinfo"
)

var tree = fstest.MapFS{
	"layout.html": {Data: []byte(
		`<title>{{ .Title }} | {{ .Site.Name }}</title>{{ template "partials/flash.html" . }}{{ block "content" . }}{{ end }}`)},
	"partials/flash.html": {Data: []byte(`{{ range .Flash }}<p class="flash">{{ . }}</p>{{ end }}`)},
	"core/faq.html": {Data: []byte(
		`{{ define "content" }}{{ if .User }}hi {{ .User.ShortName }}{{ end }}{{ range .Page }}<q>{{ . }}</q>{{ end }}{{ end }}`)},
	"core/broken.html": {Data: []byte(`{{ define "content" }}{{ .Page.Missing.Field }}{{ end }}`)},
	"errors/404.html":  {Data: []byte(`{{ define "content" }}nothing here{{ end }}`)},
}

func TestRender(t *testing.T) {
	v := New(tree, Options{Site: SiteInfo{Name: "Starter"}})

	req := httptest.NewRequest(http.MethodGet, "/faq", nil)
	req = req.WithContext(auth.WithUser(req.Context(), &accounts.User{ID: 1, FirstName: "Ann"}))
	rec := httptest.NewRecorder()
	v.Render(rec, req, "core", "faq", "FAQ", []string{"<b>q1</b>"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<title>FAQ | Starter</title>")
	assert.Contains(t, body, "hi Ann")
	assert.Contains(t, body, "<q>&lt;b&gt;q1&lt;/b&gt;</q>")
	assert.Equal(t, 1, v.sets.Len())
}

func TestConcurrentRendersShareOneSet(t *testing.T) {
	v := New(tree, Options{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			v.Render(rec, httptest.NewRequest(http.MethodGet, "/faq", nil), "core", "faq", "FAQ", nil)
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, v.sets.Len())
}

func TestRenderErrorsAreNotPartial(t *testing.T) {
	v := New(tree, Options{})
	rec := httptest.NewRecorder()
	v.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), "core", "broken", "x", 42)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<title>")

	rec = httptest.NewRecorder()
	v.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), "core", "missing", "x", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestErrorPage(t *testing.T) {
	v := New(tree, Options{})
	rec := httptest.NewRecorder()
	v.Error(rec, httptest.NewRequest(http.MethodGet, "/nope", nil), http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "nothing here")

	rec = httptest.NewRecorder()
	v.Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusForbidden)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Forbidden")
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "core"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core", "faq.html"),
		[]byte(`{{ define "content" }}overridden{{ end }}`), 0o644))

	v := New(tree, Options{OverrideDir: dir, Reload: true})
	rec := httptest.NewRecorder()
	v.Render(rec, httptest.NewRequest(http.MethodGet, "/faq", nil), "core", "faq", "FAQ", nil)
	assert.Contains(t, rec.Body.String(), "overridden")
	assert.Equal(t, 0, v.sets.Len())
}

func TestFlashRoundTrip(t *testing.T) {
	v := New(tree, Options{})

	rec := httptest.NewRecorder()
	SetFlash(rec, "Logged in; welcome back!")
	c := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/faq", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	v.Render(rec, req, "core", "faq", "FAQ", nil)

	assert.Contains(t, rec.Body.String(), `<p class="flash">Logged in; welcome back!</p>`)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestFuncs(t *testing.T) {
	assert.Equal(t, "a&lt;b<br>\nc", string(linebreaks("a<b\r\nc")))
	assert.Equal(t, "héll…", truncate("héllo world", 4))
	assert.Equal(t, "short", truncate("short", 10))

	ts := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-02-03", date(ts, "2006-01-02"))
	assert.Equal(t, "", date((*time.Time)(nil), "2006"))
	assert.Equal(t, "", date(time.Time{}, "2006"))

	u, _ := url.Parse("/faq?category=billing&page=1")
	assert.Equal(t, "/faq?category=billing&page=3", pageURL(u, 3))

	assert.Equal(t, map[string]any{"a": 1}, dict("a", 1, "dangling"))
	assert.Equal(t, "", funcMap()["browser"].(func(*requestinfo.RequestInfo) string)(nil))
	assert.Equal(t, "", uaOS(nil))
	assert.False(t, uaIsBot(nil))
}
