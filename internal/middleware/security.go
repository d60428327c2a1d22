// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects industry-standard headers on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years + preload)
//   • Content-Security-Policy   –  self-only policy plus the Turnstile
//                                  challenge origin
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  drops path/query from Referer
//   • Permissions-Policy        –  disables powerful features by default
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP; once a handler writes the
//   status line, later header changes are lost.  Handlers that need a
//   different value (e.g. a looser CSP) simply Set their own.
// • If Adept is running behind a TLS-terminating proxy, HSTS is still useful
//   because browsers see the site's domain as HTTPS.
// • The Turnstile widget loads a script from and renders an iframe on
//   challenges.cloudflare.com, so that origin is allowed for script-src and
//   frame-src.
// • Oxford commas, two spaces after periods.

package middleware

import "net/http"

const turnstileOrigin = "https://challenges.cloudflare.com"

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		hsts = "max-age=63072000; includeSubDomains; preload"
		csp  = "default-src 'self'; img-src 'self' data:; object-src 'none'; " +
			"script-src 'self' " + turnstileOrigin + "; frame-src " + turnstileOrigin + "; " +
			"connect-src 'self' " + turnstileOrigin + "; " +
			"base-uri 'self'; frame-ancestors 'none'"
		xfo   = "DENY"
		nosn  = "nosniff"
		refer = "strict-origin-when-cross-origin"
		perm  = "geolocation=(), microphone=(), camera=()"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Strict-Transport-Security", hsts)
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Frame-Options", xfo)
		h.Set("X-Content-Type-Options", nosn)
		h.Set("Referrer-Policy", refer)
		h.Set("Permissions-Policy", perm)

		next.ServeHTTP(w, r)
	})
}
