// internal/view/render.go
//
// Central view engine: template lookup, override chain, func-map injection,
// and an LRU of parsed *template.Template* sets.
//
// Public helpers
// --------------
//   - Render       – write a full page (layout + page template) to w.
//   - RenderStatus – Render with an explicit status code.
//   - Error        – render errors/<status>.html, falling back to plain text.
//   - SetFlash     – queue a one-shot message for the next rendered page.
//
// Template layout
// ---------------
//   layout.html            root document; executes {{ block "content" . }}
//   partials/*.html        shared fragments (nav, flash, pagination)
//   <comp>/<name>.html     page body; wraps markup in {{ define "content" }}
//
// Lookup precedence (first hit wins, per file):
//   1. <override dir>/<path>     on-disk copy, for site-specific tweaks
//   2. embedded web/templates    compiled into the binary
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/adept-starter/internal/accounts"
	"github.com/yanizio/adept-starter/internal/auth"
	"github.com/yanizio/adept-starter/internal/cache"
	"github.com/yanizio/adept-starter/internal/logger"
	"github.com/yanizio/adept-starter/internal/requestinfo"
)

// SiteInfo is the per-site constant part of every page.
type SiteInfo struct {
	Name    string
	BaseURL string
}

// Data is what every page template receives as ".".
type Data struct {
	Site    SiteInfo
	Title   string
	User    *accounts.User
	Request *requestinfo.RequestInfo
	Flash   []string
	Path    string
	URL     *url.URL
	Now     time.Time
	Page    any // handler-specific payload
}

// Options configures a Renderer.
type Options struct {
	Site SiteInfo
	// OverrideDir is checked before the embedded templates.  Empty disables.
	OverrideDir string
	// Reload bypasses the parsed-set cache (development).
	Reload bool
	// CacheSize bounds the parsed-set LRU.
	CacheSize int
}

// Renderer owns the template sets.
type Renderer struct {
	files fs.FS
	opts  Options
	sets  *cache.LRU[string, *template.Template]
	group singleflight.Group
}

// New returns a Renderer over the embedded template tree.
func New(embedded fs.FS, opts Options) *Renderer {
	if opts.CacheSize < 1 {
		opts.CacheSize = 256
	}
	var files fs.FS = embedded
	if opts.OverrideDir != "" {
		files = layered{top: os.DirFS(opts.OverrideDir), base: embedded}
	}
	return &Renderer{
		files: files,
		opts:  opts,
		sets:  cache.New[string, *template.Template](opts.CacheSize),
	}
}

//
// public helpers
//

// Render writes comp/name inside the layout with status 200.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, comp, name, title string, page any) {
	v.RenderStatus(w, r, http.StatusOK, comp, name, title, page)
}

// RenderStatus renders into a buffer first so a template error never leaves
// a half-written page behind.
func (v *Renderer) RenderStatus(w http.ResponseWriter, r *http.Request, status int, comp, name, title string, page any) {
	t, err := v.load(comp + "/" + name + ".html")
	if err != nil {
		v.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", v.data(w, r, title, page)); err != nil {
		v.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Error renders errors/<status>.html, or plain text when that page is
// missing.
func (v *Renderer) Error(w http.ResponseWriter, r *http.Request, status int) {
	name := fmt.Sprintf("errors/%d.html", status)
	if _, err := fs.Stat(v.files, name); err != nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	v.RenderStatus(w, r, status, "errors", fmt.Sprint(status), http.StatusText(status), nil)
}

func (v *Renderer) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).Error("template render failed", zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (v *Renderer) data(w http.ResponseWriter, r *http.Request, title string, page any) Data {
	u, _ := auth.CurrentUser(r.Context())
	return Data{
		Site:    v.opts.Site,
		Title:   title,
		User:    u,
		Request: requestinfo.FromContext(r.Context()),
		Flash:   takeFlash(w, r),
		Path:    r.URL.Path,
		URL:     r.URL,
		Now:     time.Now().UTC(),
		Page:    page,
	}
}

//
// internal: load
//

// load returns the parsed set for one page file: layout, partials, and the
// page itself.
func (v *Renderer) load(page string) (*template.Template, error) {
	if v.opts.Reload {
		return v.parse(page)
	}
	if t, ok := v.sets.Get(page); ok {
		return t, nil
	}

	// Concurrent misses for the same page share one parse.
	res, err, _ := v.group.Do(page, func() (any, error) {
		if t, ok := v.sets.Get(page); ok {
			return t, nil
		}
		t, err := v.parse(page)
		if err != nil {
			return nil, err
		}
		v.sets.Add(page, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*template.Template), nil
}

func (v *Renderer) parse(page string) (*template.Template, error) {
	partials, err := fs.Glob(v.files, "partials/*.html")
	if err != nil {
		return nil, err
	}

	t := template.New("page").Funcs(funcMap())
	for _, name := range append([]string{"layout.html", page}, partials...) {
		src, err := fs.ReadFile(v.files, name)
		if err != nil {
			return nil, fmt.Errorf("view: %s: %w", name, err)
		}
		if _, err := t.New(name).Parse(string(src)); err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", name, err)
		}
	}
	return t, nil
}

// layered serves files from top when present, else from base.
type layered struct {
	top, base fs.FS
}

func (l layered) Open(name string) (fs.File, error) {
	if f, err := l.top.Open(name); err == nil {
		return f, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return l.base.Open(name)
}

// Glob lists base only; the override tree is per-file.
func (l layered) Glob(pattern string) ([]string, error) {
	return fs.Glob(l.base, pattern)
}

//
// flash messages
//

const flashCookie = "adept_flash"

// SetFlash queues msg for the next rendered page.
func SetFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    encodeFlash(msg),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

func takeFlash(w http.ResponseWriter, r *http.Request) []string {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})
	if msg, ok := decodeFlash(c.Value); ok {
		return []string{msg}
	}
	return nil
}

// Flash values are base64url so any text survives the cookie octet rules.
func encodeFlash(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

func decodeFlash(v string) (string, bool) {
	b, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}
