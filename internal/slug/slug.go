// internal/slug/slug.go
//
// Slug helper.
//
// • Make(title) converts arbitrary text into a URL-safe slug restricted to
//   ASCII a-z, 0-9, and "-".  Used for page slugs and for the stem of stored
//   upload filenames.
//
// Rules
// -----
// 1. Lower-case everything.
// 2. Convert any run of non-[a-z0-9] characters to one "-".  That strips
//    spaces, punctuation, emoji, and non-ASCII.
// 3. Trim leading / trailing "-".
// 4. If the result is empty, return the fallback ("item" by default).
// 5. Cap at MaxLen bytes, re-trimming a dangling "-".
//
// Notes
// -----
// • No Unicode transliteration; the site is English-only.

package slug

import "strings"

// MaxLen caps slug length; the pages.slug column is VARCHAR(100).
const MaxLen = 100

// Make converts title → lower-kebab ASCII, or "item" when nothing survives.
func Make(title string) string { return MakeOr(title, "item") }

// MakeOr is Make with a caller-chosen fallback.
func MakeOr(title, fallback string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastWasDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			if !lastWasDash {
				b.WriteRune('-')
				lastWasDash = true
			}
		}
	}

	s := strings.Trim(b.String(), "-")
	if s == "" {
		return fallback
	}
	if len(s) > MaxLen {
		s = strings.TrimRight(s[:MaxLen], "-")
	}
	return s
}

// Valid reports whether s is already a canonical slug.
func Valid(s string) bool {
	return s != "" && Make(s) == s
}
