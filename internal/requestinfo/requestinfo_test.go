package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.6367.91 Safari/537.36"

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:51234"
	req.Header.Set("X-Forwarded-For", "garbage, 203.0.113.7, 10.0.0.1")
	req.Header.Set("X-Real-Ip", "198.51.100.2")

	assert.Equal(t, "10.0.0.5", ClientIP(req, false))
	assert.Equal(t, "203.0.113.7", ClientIP(req, true))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "198.51.100.2", ClientIP(req, true))

	req.Header.Del("X-Real-Ip")
	assert.Equal(t, "10.0.0.5", ClientIP(req, true))
}

func TestEnrich(t *testing.T) {
	var got *RequestInfo
	h := Enrich(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/contact?x=1", nil)
	req.RemoteAddr = "192.0.2.10:4000"
	req.Header.Set("User-Agent", chromeMac)
	req.Header.Set("Accept-Language", "ja-JP;q=0.9,en;q=0.8")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "192.0.2.10", got.IP())
	assert.Equal(t, "Chrome", got.UA.Browser)
	assert.Equal(t, "Desktop", got.UA.Device)
	assert.Equal(t, "ja-jp", got.UA.PrimaryLang)
	assert.Equal(t, chromeMac, got.UA.Raw)
	assert.Equal(t, "/contact", got.URL.Path)
}

func TestHelpersWithoutEnrich(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1"
	req.Header.Set("User-Agent", "curl/8.0")
	assert.Equal(t, "192.0.2.1", IP(req))
	assert.Equal(t, "curl/8.0", UserAgent(req))
	assert.Equal(t, "", (*RequestInfo)(nil).IP())
}

func TestVersionAndLang(t *testing.T) {
	assert.Equal(t, "", primaryLang(""))
	assert.Equal(t, "en-us", primaryLang("en-US,en;q=0.5"))
	assert.NoError(t, InitGeo(""))
}
