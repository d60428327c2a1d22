package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// CookieStore keeps the session in the cookie itself:
//
//	base64url(json) "." base64url(HMAC_SHA256(secret, json))
type CookieStore struct {
	secret []byte
	now    func() time.Time
}

// NewCookieStore returns a stateless store keyed by secret.
func NewCookieStore(secret []byte) *CookieStore {
	return &CookieStore{secret: secret, now: time.Now}
}

func (s *CookieStore) Save(_ context.Context, d Data, _ time.Duration) (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw) + "." +
		base64.RawURLEncoding.EncodeToString(s.sign(raw)), nil
}

func (s *CookieStore) Load(_ context.Context, value string) (Data, error) {
	payload, sig, ok := strings.Cut(value, ".")
	if !ok {
		return Data{}, ErrInvalid
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Data{}, ErrInvalid
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(got, s.sign(raw)) {
		return Data{}, ErrInvalid
	}

	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return Data{}, ErrInvalid
	}
	if d.Expires != 0 && s.now().Unix() > d.Expires {
		return Data{}, ErrInvalid
	}
	return d, nil
}

// Delete is a no-op; the Manager expires the cookie.
func (s *CookieStore) Delete(context.Context, string) error { return nil }

func (s *CookieStore) sign(raw []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(raw)
	return mac.Sum(nil)
}
