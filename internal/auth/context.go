// internal/auth/context.go
//
// Request-scoped user helpers.
//
// Usage
// -----
//     // Load middleware attaches the session user.
//     ctx = auth.WithUser(ctx, u)
//
//     // Downstream code retrieves it.
//     u, ok := auth.CurrentUser(ctx)
//
// Notes
// -----
// • Only Load should call WithUser outside tests.
// • Oxford commas, two spaces after periods.

package auth

import (
	"context"

	"github.com/yanizio/adept-starter/internal/accounts"
)

// userKey is unexported to avoid context-key collisions.
type userKey struct{}

// WithUser returns a new context carrying u.
func WithUser(ctx context.Context, u *accounts.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// CurrentUser extracts the logged-in user.  It returns (nil, false) for
// anonymous requests.
func CurrentUser(ctx context.Context) (*accounts.User, bool) {
	u, ok := ctx.Value(userKey{}).(*accounts.User)
	return u, ok && u != nil
}

// UserID is CurrentUser reduced to the id.
func UserID(ctx context.Context) (int64, bool) {
	if u, ok := CurrentUser(ctx); ok {
		return u.ID, true
	}
	return 0, false
}
