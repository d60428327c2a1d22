// internal/view/funcs.go
//
// Template func-map.  Pages can call:
//
//	{{ dict "k" 1 "k2" "v" }}
//	{{ date .CreatedAt "2006-01-02" }}   {{ linebreaks .Answer }}
//	{{ truncate .Message 80 }}           {{ pageURL $.URL 3 }}
//	{{ browser .Request }} {{ os .Request }} {{ device .Request }}
//	{{ if isBot .Request }}Robot!{{ end }}
package view

import (
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yanizio/adept-starter/internal/requestinfo"
)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"dict":       dict,
		"date":       date,
		"linebreaks": linebreaks,
		"truncate":   truncate,
		"pageURL":    pageURL,

		// User-agent helpers; all accept a nil *RequestInfo.
		"browser": uaBrowser,
		"os":      uaOS,
		"device":  uaDevice,
		"isBot":   uaIsBot,
	}
}

func uaBrowser(ri *requestinfo.RequestInfo) string {
	return uaField(ri, func(u requestinfo.UA) string { return u.Browser })
}

func uaOS(ri *requestinfo.RequestInfo) string {
	return uaField(ri, func(u requestinfo.UA) string { return u.OS })
}

func uaDevice(ri *requestinfo.RequestInfo) string {
	return uaField(ri, func(u requestinfo.UA) string { return u.Device })
}

func uaIsBot(ri *requestinfo.RequestInfo) bool { return ri != nil && ri.UA.IsBot }

func uaField(ri *requestinfo.RequestInfo, f func(requestinfo.UA) string) string {
	if ri == nil {
		return ""
	}
	return f(ri.UA)
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}

// date formats t, or a *time.Time when non-nil.
func date(v any, layout string) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(layout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(layout)
	}
	return ""
}

// linebreaks escapes s and turns newlines into <br>.
func linebreaks(s string) template.HTML {
	esc := template.HTMLEscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(esc, "\n", "<br>\n"))
}

// truncate cuts s to n runes, appending "…" when shortened.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "…"
}

// pageURL rewrites the page query parameter of current.
func pageURL(current *url.URL, n int) string {
	q := current.Query()
	q.Set("page", strconv.Itoa(n))
	return current.Path + "?" + q.Encode()
}
