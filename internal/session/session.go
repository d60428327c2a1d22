// internal/session/session.go
//
// Login sessions.
//
// Context
//   A session records which user is logged in.  The Manager owns the cookie
//   and delegates persistence to a Store:
//
//   •  CookieStore – the whole session lives in the cookie, HMAC-signed with
//      the configured secret.  No server state; default for development.
//   •  RedisStore  – the cookie holds an opaque random ID; the payload lives
//      in Redis under `session:<id>` with a TTL.  Logout revokes it
//      server-side.  Used in production.
//
// Workflow
//   •  Login(w, r, userID) discards any previous session and issues a new
//      one, so a pre-login cookie can never be promoted.
//   •  UserID(r) returns the logged-in user, or false.
//   •  Logout(w, r) deletes the stored session and expires the cookie.
//
//------------------------------------------------------------------------------

package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"
)

// Data is the persisted session payload.
type Data struct {
	UserID  int64 `json:"uid"`
	Expires int64 `json:"exp"` // unix seconds
}

// ErrInvalid is returned by stores for tampered, expired, or unknown
// sessions.
var ErrInvalid = errors.New("session: invalid")

// Store persists session data behind a cookie value.
type Store interface {
	// Save persists d and returns the cookie value to send.
	Save(ctx context.Context, d Data, ttl time.Duration) (string, error)
	// Load resolves a cookie value.  ErrInvalid means "no session".
	Load(ctx context.Context, value string) (Data, error)
	// Delete revokes the session.  Stateless stores return nil.
	Delete(ctx context.Context, value string) error
}

// Options configures the Manager's cookie.
type Options struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

// Manager issues and reads session cookies.
type Manager struct {
	store Store
	opts  Options
	now   func() time.Time
}

// NewManager returns a Manager over store.
func NewManager(store Store, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "adept_session"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 24 * time.Hour
	}
	return &Manager{store: store, opts: opts, now: time.Now}
}

// Login starts a fresh session for userID.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	if c, err := r.Cookie(m.opts.CookieName); err == nil && c.Value != "" {
		_ = m.store.Delete(r.Context(), c.Value)
	}

	d := Data{UserID: userID, Expires: m.now().Add(m.opts.MaxAge).Unix()}
	val, err := m.store.Save(r.Context(), d, m.opts.MaxAge)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.opts.Secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.opts.MaxAge / time.Second),
	})
	return nil
}

// Logout revokes the session and expires the cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	var err error
	if c, cerr := r.Cookie(m.opts.CookieName); cerr == nil && c.Value != "" {
		err = m.store.Delete(r.Context(), c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return err
}

// UserID returns the logged-in user for r.
func (m *Manager) UserID(r *http.Request) (int64, bool) {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	d, err := m.store.Load(r.Context(), c.Value)
	if err != nil || d.UserID == 0 {
		return 0, false
	}
	if d.Expires != 0 && m.now().Unix() > d.Expires {
		return 0, false
	}
	return d.UserID, true
}

// newID returns 32 random bytes, base64url encoded.
func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
