// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"net/http"
	"strings"
)

// ForceHTTPS returns a wrapper that, for plain-HTTP requests to any host
// other than localhost, issues a 308 Permanent Redirect to the HTTPS version
// of the same URL.  With trustProxy, X-Forwarded-Proto=https counts as TLS.
func ForceHTTPS(trustProxy bool) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isTLS(r, trustProxy) || isLocal(stripPort(r.Host)) {
				h.ServeHTTP(w, r)
				return
			}
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
		})
	}
}

func isTLS(r *http.Request, trustProxy bool) bool {
	if r.TLS != nil {
		return true
	}
	return trustProxy && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func isLocal(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1" || host == "[::1]"
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if strings.HasPrefix(h, "[") {
		if i := strings.IndexByte(h, ']'); i != -1 {
			return h[:i+1]
		}
	}
	if i := strings.IndexByte(h, ':'); i != -1 {
		return h[:i]
	}
	return h
}
