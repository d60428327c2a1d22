package turnstile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// provider is a fake siteverify endpoint that counts calls.
type provider struct {
	srv   *httptest.Server
	calls atomic.Int32
	last  atomic.Value // url.Values as map[string]string
}

func newProvider(t *testing.T, body string) *provider {
	t.Helper()
	p := &provider{}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.calls.Add(1)
		require.NoError(t, r.ParseForm())
		p.last.Store(map[string]string{
			"method":   r.Method,
			"ctype":    r.Header.Get("Content-Type"),
			"secret":   r.PostForm.Get("secret"),
			"response": r.PostForm.Get("response"),
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func cfgFor(p *provider) Config {
	return Config{SiteKey: "site", SecretKey: "secret", VerifyURL: p.srv.URL}
}

func TestVerifyEmptyTokenAlwaysMissing(t *testing.T) {
	p := newProvider(t, `{"success":true}`)
	configs := map[string]Config{
		"full":      cfgFor(p),
		"bypass":    {SiteKey: "site", SecretKey: "secret", VerifyURL: p.srv.URL, Bypass: true},
		"no secret": {SiteKey: "site", VerifyURL: p.srv.URL},
		"nothing":   {},
	}
	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			err := New(cfg).Verify(context.Background(), "")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingToken)

			var te *Error
			require.True(t, errors.As(err, &te))
			assert.Equal(t, MsgRequired, te.UserMessage())
		})
	}
	assert.Zero(t, p.calls.Load())
}

func TestVerifyWithoutSecretMakesNoCall(t *testing.T) {
	p := newProvider(t, `{"success":true}`)
	v := New(Config{SiteKey: "site", VerifyURL: p.srv.URL})

	err := v.Verify(context.Background(), "token")
	assert.ErrorIs(t, err, ErrProviderMisconfigured)
	assert.Equal(t, MsgNotConfigured, err.(*Error).UserMessage())
	assert.Zero(t, p.calls.Load())
}

func TestVerifyBypassAcceptsAnyToken(t *testing.T) {
	p := newProvider(t, `{"success":false,"error-codes":["invalid-input-response"]}`)
	v := New(Config{SiteKey: "site", VerifyURL: p.srv.URL, Bypass: true})

	for _, tok := range []string{"x", "anything at all", "XXXX.DUMMY.TOKEN.XXXX"} {
		assert.NoError(t, v.Verify(context.Background(), tok))
	}
	assert.Zero(t, p.calls.Load())
}

func TestVerifySuccess(t *testing.T) {
	p := newProvider(t, `{"success":true,"challenge_ts":"2025-01-01T00:00:00Z","hostname":"example.com"}`)
	v := New(cfgFor(p))

	require.NoError(t, v.Verify(context.Background(), "tok-123"))
	assert.Equal(t, int32(1), p.calls.Load())

	sent := p.last.Load().(map[string]string)
	assert.Equal(t, http.MethodPost, sent["method"])
	assert.Equal(t, "application/x-www-form-urlencoded", sent["ctype"])
	assert.Equal(t, "secret", sent["secret"])
	assert.Equal(t, "tok-123", sent["response"])
}

func TestVerifyErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind error
		msg  string
	}{
		{"invalid token", `{"success":false,"error-codes":["invalid-input-response"]}`, ErrInvalidToken, MsgInvalid},
		{"missing secret at provider", `{"success":false,"error-codes":["missing-input-secret"]}`, ErrProviderMisconfigured, MsgConfigError},
		{"timeout or duplicate", `{"success":false,"error-codes":["timeout-or-duplicate"]}`, ErrTimeoutOrDuplicate, MsgTimeoutOrDup},
		{"unknown code", `{"success":false,"error-codes":["internal-error"]}`, ErrVerificationFailed, MsgFailed},
		{"no codes", `{"success":false}`, ErrVerificationFailed, MsgFailed},
		{"precedence", `{"success":false,"error-codes":["timeout-or-duplicate","invalid-input-response"]}`, ErrInvalidToken, MsgInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProvider(t, tt.body)
			err := New(cfgFor(p)).Verify(context.Background(), "tok")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.msg, err.(*Error).UserMessage())
			assert.Equal(t, int32(1), p.calls.Load())
		})
	}
}

func TestVerifyUnavailable(t *testing.T) {
	t.Run("non json body", func(t *testing.T) {
		p := newProvider(t, `<html>bad gateway</html>`)
		err := New(cfgFor(p)).Verify(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrVerificationUnavailable)
		assert.Equal(t, MsgUnavailable, err.(*Error).UserMessage())
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		err := New(Config{SecretKey: "s", VerifyURL: url}).Verify(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrVerificationUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		v := New(Config{SecretKey: "s", VerifyURL: srv.URL, Timeout: 50 * time.Millisecond})
		start := time.Now()
		err := v.Verify(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrVerificationUnavailable)
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, int32(1), calls.Load(), "no retry")
	})
}

func TestNewDefaults(t *testing.T) {
	v := New(Config{})
	assert.Equal(t, DefaultVerifyURL, v.cfg.VerifyURL)
	assert.Equal(t, DefaultTimeout, v.cfg.Timeout)
	assert.False(t, v.Enabled())
}

func TestWidget(t *testing.T) {
	assert.Empty(t, New(Config{}).Widget())

	html := string(New(Config{SiteKey: `k"<x>`, Theme: "dark"}).Widget())
	assert.Contains(t, html, `class="cf-turnstile"`)
	assert.Contains(t, html, `data-theme="dark"`)
	assert.Contains(t, html, `data-size="normal"`)
	assert.Contains(t, html, `data-response-field-name="turnstile"`)
	assert.NotContains(t, html, `<x>`)
	assert.True(t, strings.Contains(html, scriptURL))
}
