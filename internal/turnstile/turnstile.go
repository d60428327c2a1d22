// internal/turnstile/turnstile.go
//
// Cloudflare Turnstile verification.
//
// Context
// -------
// A form that opts into CAPTCHA protection renders Widget() and, on
// submit, hands the posted token to Verify.  The Verifier is built from
// an explicit Config; it never reads global settings, so two verifiers
// with different keys can coexist (tests do exactly that).
//
// Workflow
// --------
//  1. Empty token             → ErrMissingToken.
//  2. Config.Bypass           → accepted, no network call.
//  3. No secret key           → ErrProviderMisconfigured, no network call.
//  4. One POST {secret, response} to VerifyURL, bounded by Timeout.
//     Transport error or a body that is not JSON → ErrVerificationUnavailable.
//  5. success:false           → kind chosen from error-codes.
//
// Notes
// -----
//   - No retries.  A transient provider failure surfaces to the submitter.
//   - The secret key is never logged.
package turnstile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/metrics"
)

// DefaultVerifyURL is Cloudflare's siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// DefaultTimeout bounds one verification round trip.
const DefaultTimeout = 5 * time.Second

// Config is everything the verifier needs.  Zero values for VerifyURL,
// Timeout, Theme, and Size take the defaults.
type Config struct {
	SiteKey   string
	SecretKey string
	VerifyURL string
	Bypass    bool
	Timeout   time.Duration
	Theme     string
	Size      string
}

// Doer is the subset of *http.Client the verifier uses.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Option customises a Verifier.
type Option func(*Verifier)

// WithHTTPClient replaces the default client.
func WithHTTPClient(d Doer) Option { return func(v *Verifier) { v.client = d } }

// WithLogger replaces zap.L().
func WithLogger(l *zap.Logger) Option { return func(v *Verifier) { v.log = l } }

// Verifier checks tokens against the provider.  Safe for concurrent use.
type Verifier struct {
	cfg    Config
	client Doer
	log    *zap.Logger
}

// New returns a Verifier for cfg.
func New(cfg Config, opts ...Option) *Verifier {
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = DefaultVerifyURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Theme == "" {
		cfg.Theme = "light"
	}
	if cfg.Size == "" {
		cfg.Size = "normal"
	}
	v := &Verifier{cfg: cfg, log: zap.L()}
	for _, o := range opts {
		o(v)
	}
	if v.client == nil {
		v.client = &http.Client{Timeout: cfg.Timeout}
	}
	return v
}

// Enabled reports whether forms should carry the widget.
func (v *Verifier) Enabled() bool { return v.cfg.SiteKey != "" }

// SiteKey is the public key embedded in rendered markup.
func (v *Verifier) SiteKey() string { return v.cfg.SiteKey }

// siteverify response body.
type verifyResponse struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
}

// Verify validates token.  The returned error, if any, is an *Error.
func (v *Verifier) Verify(ctx context.Context, token string) error {
	bypassed, err := v.verify(ctx, token)
	label := outcome(err)
	if bypassed {
		label = "bypass"
	}
	metrics.TurnstileVerifications.WithLabelValues(label).Inc()
	return err
}

func (v *Verifier) verify(ctx context.Context, token string) (bypassed bool, err error) {
	if token == "" {
		return false, &Error{Kind: ErrMissingToken, Message: MsgRequired}
	}
	if v.cfg.Bypass {
		return true, nil
	}
	if v.cfg.SecretKey == "" {
		v.log.Warn("turnstile secret key not configured")
		return false, &Error{Kind: ErrProviderMisconfigured, Message: MsgNotConfigured}
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	form := url.Values{"secret": {v.cfg.SecretKey}, "response": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, v.unavailable(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := v.client.Do(req)
	metrics.TurnstileLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return false, v.unavailable(err)
	}
	defer resp.Body.Close()

	var out verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return false, v.unavailable(fmt.Errorf("decode siteverify (status %d): %w", resp.StatusCode, err))
	}
	if out.Success {
		return false, nil
	}

	e := classify(out.ErrorCodes)
	v.log.Info("turnstile rejected token", zap.Strings("codes", out.ErrorCodes))
	return false, e
}

func (v *Verifier) unavailable(err error) *Error {
	v.log.Warn("turnstile verification unavailable", zap.Error(err))
	return &Error{Kind: ErrVerificationUnavailable, Message: MsgUnavailable, Err: err}
}
