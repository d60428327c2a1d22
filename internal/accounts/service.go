// internal/accounts/service.go
//
// Account workflows: signup, login, password change, password reset, and
// profile edits.
//
// Context
//   Handlers (HTML and JSON) call the Service; it owns hashing, the
//   duplicate-email rule, reset-token signing, and the activity log.
//   Field-level problems come back as model.FieldErrors keyed by the form
//   field name, so both front ends can attach them to the right input.
//
// Notes
//   • Authenticate gives the same answer for an unknown email, a wrong
//     password, and an inactive account.
//   • RequestPasswordReset succeeds silently for unknown emails.
//
//------------------------------------------------------------------------------

package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/adept-starter/internal/apperr"
	"github.com/yanizio/adept-starter/internal/logger"
	"github.com/yanizio/adept-starter/internal/message"
	"github.com/yanizio/adept-starter/internal/model"
)

const (
	MinPasswordLen = 8
	maxPasswordLen = 72 // bcrypt input limit

	MsgDuplicateEmail  = "This email address is already registered."
	MsgBadCredentials  = "Please enter a correct email and password."
	MsgPasswordShort   = "This password is too short. It must contain at least 8 characters."
	MsgPasswordLong    = "This password is too long."
	MsgPasswordMatch   = "The two password fields didn't match."
	MsgOldPasswordBad  = "Your old password was entered incorrectly."
	MsgResetLinkBroken = "The password reset link was invalid, possibly because it has already been used."
)

// UserStore is the persistence the Service needs.  *Repository satisfies it.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u *User) error
	UpdateProfile(ctx context.Context, u *User) error
	SetPassword(ctx context.Context, id int64, hash string, now time.Time) error
	TouchLastLogin(ctx context.Context, id int64, now time.Time) error
}

// ActivityRecorder is satisfied by *ActivityLog.
type ActivityRecorder interface {
	Record(ctx context.Context, a Activity) error
}

// Config carries the non-store dependencies.
type Config struct {
	Secret   []byte // signs reset tokens
	BaseURL  string // absolute origin for emailed links
	SiteName string
	Mail     message.Enqueuer
}

// Option tweaks a Service.
type Option func(*Service)

// WithClock pins time for tests.
func WithClock(c model.Clock) Option { return func(s *Service) { s.now = c } }

// WithHashCost overrides the bcrypt cost (tests use bcrypt.MinCost).
func WithHashCost(cost int) Option { return func(s *Service) { s.cost = cost } }

// Service implements the account workflows.
type Service struct {
	users    UserStore
	activity ActivityRecorder
	cfg      Config
	reset    resetSigner
	now      model.Clock
	cost     int

	dummyOnce sync.Once
	dummy     []byte
}

func NewService(users UserStore, activity ActivityRecorder, cfg Config, opts ...Option) *Service {
	s := &Service{
		users:    users,
		activity: activity,
		cfg:      cfg,
		reset:    resetSigner{secret: cfg.Secret},
		now:      model.UTCNow,
		cost:     bcrypt.DefaultCost,
	}
	if s.cfg.Mail == nil {
		s.cfg.Mail = message.LogOutbox{}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// User loads a user by id.
func (s *Service) User(ctx context.Context, id int64) (*User, error) {
	return s.users.GetByID(ctx, id)
}

/*──────────────────────────── signup ──────────────────────────────────────*/

// SignupInput mirrors the signup form.
type SignupInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password1 string
	Password2 string
}

// Signup creates an active, unverified account.
func (s *Service) Signup(ctx context.Context, in SignupInput, ip string) (*User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	fe := model.FieldErrors{}
	checkNewPassword(fe, "password1", "password2", in.Password1, in.Password2)

	exists, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		fe["email"] = MsgDuplicateEmail
	}

	now := s.now()
	u := &User{
		Email:              in.Email,
		Username:           in.Username,
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		IsActive:           true,
		EmailNotifications: true,
		DateJoined:         now,
	}
	u.Touch(now)

	if err := model.Validate(u); err != nil {
		var ve model.FieldErrors
		if !errors.As(err, &ve) {
			return nil, err
		}
		for k, v := range ve {
			if _, seen := fe[k]; !seen {
				fe[k] = v
			}
		}
	}
	if len(fe) > 0 {
		return nil, fe
	}

	if u.PasswordHash, err = s.hash(in.Password1); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.record(ctx, u.ID, ActionSignup, "Account created", ip)
	return u, nil
}

/*──────────────────────────── login ───────────────────────────────────────*/

// Authenticate checks credentials and stamps last_login.
func (s *Service) Authenticate(ctx context.Context, email, password, ip string) (*User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// Equalise timing with the found-user path.
			_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(password))
			return nil, apperr.Unauthorized(MsgBadCredentials)
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil || !u.IsActive {
		return nil, apperr.Unauthorized(MsgBadCredentials)
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now

	s.record(ctx, u.ID, ActionLogin, "Logged in", ip)
	return u, nil
}

// RecordLogout logs the logout activity.
func (s *Service) RecordLogout(ctx context.Context, userID int64, ip string) {
	s.record(ctx, userID, ActionLogout, "Logged out", ip)
}

/*──────────────────────────── password change ─────────────────────────────*/

// ChangePassword verifies old and stores new.
func (s *Service) ChangePassword(ctx context.Context, u *User, oldPw, newPw, confirm, ip string) error {
	fe := model.FieldErrors{}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPw)) != nil {
		fe["old_password"] = MsgOldPasswordBad
	}
	checkNewPassword(fe, "new_password", "confirm_password", newPw, confirm)
	if len(fe) > 0 {
		return fe
	}

	if err := s.setPassword(ctx, u, newPw); err != nil {
		return err
	}
	s.record(ctx, u.ID, ActionPasswordChanged, "Password changed", ip)
	return nil
}

/*──────────────────────────── password reset ──────────────────────────────*/

// RequestPasswordReset emails a reset link when email belongs to an active
// user.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			logger.FromContext(ctx).Info("password reset for unknown email")
			return nil
		}
		return err
	}
	if !u.IsActive {
		return nil
	}

	link := strings.TrimRight(s.cfg.BaseURL, "/") + "/accounts/password-reset/confirm?token=" +
		url.QueryEscape(s.reset.issue(u, s.now()))

	return s.cfg.Mail.EnqueueEmail(ctx, message.Email{
		To:      []string{u.Email},
		Subject: "Password reset on " + s.cfg.SiteName,
		Text: fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password.  "+
			"It expires in 24 hours.\n\n%s\n\nIf you did not ask for this, ignore this email.\n",
			u.ShortName(), link),
	})
}

// CheckResetToken resolves a token to its user without consuming it.
func (s *Service) CheckResetToken(ctx context.Context, tok string) (*User, error) {
	id, err := s.reset.userID(tok)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrBadResetToken
		}
		return nil, err
	}
	if err := s.reset.check(tok, u, s.now()); err != nil {
		return nil, err
	}
	return u, nil
}

// ResetPassword sets a new password from a valid token.  The token stops
// working once the hash changes.
func (s *Service) ResetPassword(ctx context.Context, tok, newPw, confirm, ip string) error {
	u, err := s.CheckResetToken(ctx, tok)
	if err != nil {
		return err
	}
	fe := model.FieldErrors{}
	checkNewPassword(fe, "new_password", "confirm_password", newPw, confirm)
	if len(fe) > 0 {
		return fe
	}
	if err := s.setPassword(ctx, u, newPw); err != nil {
		return err
	}
	s.record(ctx, u.ID, ActionPasswordReset, "Password reset by email link", ip)
	return nil
}

/*──────────────────────────── profile ─────────────────────────────────────*/

// UpdateProfile validates and saves p onto u.
func (s *Service) UpdateProfile(ctx context.Context, u *User, p Profile, ip string) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.PhoneNumber = strings.TrimSpace(p.PhoneNumber)
	if err := model.Validate(p); err != nil {
		return err
	}

	p.Apply(u)
	u.Touch(s.now())
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return err
	}
	s.record(ctx, u.ID, ActionProfileUpdated, "Profile updated", ip)
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// dummyHash is compared against when the email is unknown.  It uses the
// service cost so both paths take the same time.
func (s *Service) dummyHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummy, _ = bcrypt.GenerateFromPassword([]byte("adept-dummy-password"), s.cost)
	})
	return s.dummy
}

func checkNewPassword(fe model.FieldErrors, field, confirmField, pw, confirm string) {
	switch {
	case len(pw) < MinPasswordLen:
		fe[field] = MsgPasswordShort
	case len(pw) > maxPasswordLen:
		fe[field] = MsgPasswordLong
	}
	if pw != confirm {
		fe[confirmField] = MsgPasswordMatch
	}
}

func (s *Service) hash(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *Service) setPassword(ctx context.Context, u *User, pw string) error {
	h, err := s.hash(pw)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, u.ID, h, s.now()); err != nil {
		return err
	}
	u.PasswordHash = h
	return nil
}

// record writes an activity entry; failures are logged, not returned.
func (s *Service) record(ctx context.Context, userID int64, action, desc, ip string) {
	if s.activity == nil {
		return
	}
	err := s.activity.Record(ctx, Activity{
		UserID:      userID,
		Action:      action,
		Description: desc,
		IPAddress:   ip,
		CreatedAt:   s.now(),
	})
	if err != nil {
		logger.FromContext(ctx).Warn("activity not recorded",
			zap.String("action", action), zap.Int64("user_id", userID), zap.Error(err))
	}
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
