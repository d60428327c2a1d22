// internal/auth/middleware.go
//
// Authentication middleware.
//
// Workflow
//   1. Load runs on every request: it resolves the session cookie to a user
//      and attaches it with WithUser.  Unknown or inactive users are treated
//      as anonymous.
//   2. Route groups then gate access:
//        • RequireLogin    – HTML pages; redirects to /accounts/login?next=…
//        • RequireStaff    – HTML pages; 403 for logged-in non-staff.
//        • RequireAPIUser  – JSON API; 401 with the apperr envelope.
//
//------------------------------------------------------------------------------

package auth

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/accounts"
	"github.com/yanizio/adept-starter/internal/apperr"
	"github.com/yanizio/adept-starter/internal/logger"
)

// LoginPath is where RequireLogin sends anonymous visitors.
const LoginPath = "/accounts/login"

// Sessions is satisfied by *session.Manager.
type Sessions interface {
	UserID(r *http.Request) (int64, bool)
}

// UserLoader is satisfied by *accounts.Service.
type UserLoader interface {
	User(ctx context.Context, id int64) (*accounts.User, error)
}

// Load attaches the session user, if any.
func Load(sessions Sessions, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := sessions.UserID(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			u, err := users.User(r.Context(), id)
			if err != nil || !u.IsActive {
				if err != nil {
					logger.FromContext(r.Context()).Debug("session user not loaded",
						zap.Int64("user_id", id), zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithUser(r.Context(), u)
			ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.Int64("user_id", u.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLogin redirects anonymous visitors to the login page.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r.Context()); !ok {
			http.Redirect(w, r, LoginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff is RequireLogin plus an is_staff check.
func RequireStaff(next http.Handler) http.Handler {
	return RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, _ := CurrentUser(r.Context()); !u.IsStaff {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RequireAPIUser rejects anonymous API calls with 401 JSON.
func RequireAPIUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r.Context()); !ok {
			apperr.Write(w, apperr.Unauthorized("Authentication credentials were not provided."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SafeNext returns next when it is a same-site absolute path, else def.
func SafeNext(next, def string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return def
	}
	return next
}
