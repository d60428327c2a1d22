package accounts

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ResetTokenTTL is how long a password-reset link stays valid.
const ResetTokenTTL = 24 * time.Hour

// ErrBadResetToken covers malformed, forged, expired, and already-used
// tokens.
var ErrBadResetToken = errors.New("accounts: invalid or expired reset token")

// resetSigner issues tokens of the form
//
//	<user id>.<expiry unix>.<base64url HMAC>
//
// The MAC covers the current password hash, so a token dies as soon as the
// password changes.
type resetSigner struct {
	secret []byte
}

func (s resetSigner) issue(u *User, now time.Time) string {
	exp := now.Add(ResetTokenTTL).Unix()
	id := strconv.FormatInt(u.ID, 10)
	return id + "." + strconv.FormatInt(exp, 10) + "." +
		base64.RawURLEncoding.EncodeToString(s.mac(u.ID, exp, u.PasswordHash))
}

// userID extracts the id without checking the MAC.
func (s resetSigner) userID(tok string) (int64, error) {
	idPart, _, ok := strings.Cut(tok, ".")
	if !ok {
		return 0, ErrBadResetToken
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadResetToken
	}
	return id, nil
}

func (s resetSigner) check(tok string, u *User, now time.Time) error {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return ErrBadResetToken
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || now.Unix() > exp {
		return ErrBadResetToken
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil || !hmac.Equal(sig, s.mac(u.ID, exp, u.PasswordHash)) {
		return ErrBadResetToken
	}
	return nil
}

func (s resetSigner) mac(id, exp int64, hash string) []byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(id))
	binary.BigEndian.PutUint64(buf[8:], uint64(exp))
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte("password-reset"))
	m.Write(buf[:])
	m.Write([]byte(hash))
	return m.Sum(nil)
}
