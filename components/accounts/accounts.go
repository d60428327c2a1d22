// components/accounts/accounts.go
//
// Accounts component: login, signup, logout, password reset, password
// change, and the profile pages.
//
// Context
//   Mounted at /accounts.  Form handling goes through internal/form, so
//   CSRF, the render-time check, and the CAPTCHA field (login, signup,
//   password reset) are enforced before any account logic runs.  The
//   account rules themselves live in internal/accounts.
//
// Notes
//   • Login and password-reset POSTs share one per-IP token bucket.
//   • Signed-in visitors are bounced from login and signup to the
//     dashboard.
//
//------------------------------------------------------------------------------

package accounts

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	acct "github.com/yanizio/adept-starter/internal/accounts"
	"github.com/yanizio/adept-starter/internal/apperr"
	"github.com/yanizio/adept-starter/internal/auth"
	"github.com/yanizio/adept-starter/internal/component"
	"github.com/yanizio/adept-starter/internal/form"
	"github.com/yanizio/adept-starter/internal/logger"
	"github.com/yanizio/adept-starter/internal/metrics"
	"github.com/yanizio/adept-starter/internal/middleware"
	"github.com/yanizio/adept-starter/internal/requestinfo"
	"github.com/yanizio/adept-starter/internal/view"
)

const (
	formLogin          = "accounts/login"
	formSignup         = "accounts/signup"
	formPasswordReset  = "accounts/password_reset"
	formResetConfirm   = "accounts/password_reset_confirm"
	formPasswordChange = "accounts/password_change"
	formProfile        = "accounts/profile"

	dashboardPath = "/dashboard"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves /accounts.
type Component struct {
	d     *component.Deps
	limit func(http.Handler) http.Handler
}

func (c *Component) Name() string         { return "accounts" }
func (c *Component) Prefix() string       { return "/accounts" }
func (c *Component) Migrations() []string { return migrations }

// Init keeps deps and builds the credential rate limiter.
func (c *Component) Init(d *component.Deps) error {
	c.d = d
	trust := d.Config != nil && d.Config.HTTP.TrustProxy
	c.limit = middleware.RateLimit(middleware.RateLimitConfig{
		Burst:        5,
		RefillPerMin: 5,
		MaxEntries:   10_000,
		TrustProxy:   trust,
		Methods:      []string{http.MethodPost},
	})
	return nil
}

// Routes builds the router mounted at /accounts.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(c.limit)
		r.Get("/login", c.loginGET)
		r.Post("/login", c.loginPOST)
		r.Get("/password-reset", c.resetGET)
		r.Post("/password-reset", c.resetPOST)
	})
	r.Get("/signup", c.signupGET)
	r.Post("/signup", c.signupPOST)
	r.Get("/password-reset/confirm", c.resetConfirmGET)
	r.Post("/password-reset/confirm", c.resetConfirmPOST)
	r.Post("/logout", c.logout)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin)
		r.Get("/profile", c.profile)
		r.Get("/profile/edit", c.profileEditGET)
		r.Post("/profile/edit", c.profileEditPOST)
		r.Get("/password-change", c.passwordChangeGET)
		r.Post("/password-change", c.passwordChangePOST)
	})
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── login ───────────────────────────────────────*/

type loginPage struct{ Next string }

func (c *Component) loginGET(w http.ResponseWriter, r *http.Request) {
	if redirectSignedIn(w, r) {
		return
	}
	if f := c.d.BuildForm(w, r, formLogin); f != nil {
		c.d.RenderForm(w, r, f, "accounts", "login", nil, nil, loginPage{Next: r.URL.Query().Get("next")})
	}
}

func (c *Component) loginPOST(w http.ResponseWriter, r *http.Request) {
	f := c.d.BuildForm(w, r, formLogin)
	if f == nil {
		return
	}
	page := loginPage{Next: r.FormValue("next")}

	data, err := f.Submit(r)
	if err != nil {
		c.d.FormFailed(w, r, f, "accounts", "login", err, page)
		return
	}

	u, err := c.d.Accounts.Authenticate(r.Context(),
		component.Str(data, "email"), component.Str(data, "password"), requestinfo.IP(r))
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Status == http.StatusUnauthorized {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			c.d.RenderForm(w, r, f, "accounts", "login", form.Prefill(r),
				[]form.ErrorField{{Message: ae.Message}}, page)
			return
		}
		c.d.FormFailed(w, r, f, "accounts", "login", err, page)
		return
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	if err := c.d.Sessions.Login(w, r, u.ID); err != nil {
		c.fail(w, r, "session login failed", err)
		return
	}
	view.SetFlash(w, "Welcome back, "+u.ShortName()+"!")
	http.Redirect(w, r, auth.SafeNext(page.Next, dashboardPath), http.StatusSeeOther)
}

func (c *Component) logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.UserID(r.Context()); ok {
		c.d.Accounts.RecordLogout(r.Context(), id, requestinfo.IP(r))
	}
	if err := c.d.Sessions.Logout(w, r); err != nil {
		logger.FromContext(r.Context()).Warn("session logout failed", zap.Error(err))
	}
	view.SetFlash(w, "You have been signed out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

/*──────────────────────────── signup ──────────────────────────────────────*/

func (c *Component) signupGET(w http.ResponseWriter, r *http.Request) {
	if redirectSignedIn(w, r) {
		return
	}
	if f := c.d.BuildForm(w, r, formSignup); f != nil {
		c.d.RenderForm(w, r, f, "accounts", "signup", nil, nil, nil)
	}
}

func (c *Component) signupPOST(w http.ResponseWriter, r *http.Request) {
	if redirectSignedIn(w, r) {
		return
	}
	f := c.d.BuildForm(w, r, formSignup)
	if f == nil {
		return
	}
	data, err := f.Submit(r)
	if err != nil {
		c.d.FormFailed(w, r, f, "accounts", "signup", err, nil)
		return
	}

	u, err := c.d.Accounts.Signup(r.Context(), acct.SignupInput{
		Email:     component.Str(data, "email"),
		Username:  component.Str(data, "username"),
		FirstName: component.Str(data, "first_name"),
		LastName:  component.Str(data, "last_name"),
		Password1: component.Str(data, "password1"),
		Password2: component.Str(data, "password2"),
	}, requestinfo.IP(r))
	if err != nil {
		c.d.FormFailed(w, r, f, "accounts", "signup", err, nil)
		return
	}

	if err := c.d.Sessions.Login(w, r, u.ID); err != nil {
		c.fail(w, r, "session login failed", err)
		return
	}
	view.SetFlash(w, "Your account has been created.")
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

/*──────────────────────────── password reset ──────────────────────────────*/

func (c *Component) resetGET(w http.ResponseWriter, r *http.Request) {
	if f := c.d.BuildForm(w, r, formPasswordReset); f != nil {
		c.d.RenderForm(w, r, f, "accounts", "password_reset", nil, nil, nil)
	}
}

func (c *Component) resetPOST(w http.ResponseWriter, r *http.Request) {
	f := c.d.BuildForm(w, r, formPasswordReset)
	if f == nil {
		return
	}
	data, err := f.Submit(r)
	if err != nil {
		c.d.FormFailed(w, r, f, "accounts", "password_reset", err, nil)
		return
	}
	if err := c.d.Accounts.RequestPasswordReset(r.Context(), component.Str(data, "email")); err != nil {
		c.fail(w, r, "password reset request failed", err)
		return
	}
	c.d.View.Render(w, r, "accounts", "password_reset_done", "Password reset sent", nil)
}

type confirmPage struct {
	Token string
	Valid bool
}

func (c *Component) resetConfirmGET(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if _, err := c.d.Accounts.CheckResetToken(r.Context(), tok); err != nil {
		c.badResetLink(w, r, err)
		return
	}
	if f := c.d.BuildForm(w, r, formResetConfirm); f != nil {
		c.d.RenderForm(w, r, f, "accounts", "password_reset_confirm", nil, nil, confirmPage{Token: tok, Valid: true})
	}
}

func (c *Component) resetConfirmPOST(w http.ResponseWriter, r *http.Request) {
	f := c.d.BuildForm(w, r, formResetConfirm)
	if f == nil {
		return
	}
	tok := r.URL.Query().Get("token")
	page := confirmPage{Token: tok, Valid: true}

	data, err := f.Submit(r)
	if err != nil {
		c.d.FormFailed(w, r, f, "accounts", "password_reset_confirm", err, page)
		return
	}
	err = c.d.Accounts.ResetPassword(r.Context(), tok,
		component.Str(data, "new_password"), component.Str(data, "confirm_password"), requestinfo.IP(r))
	if errors.Is(err, acct.ErrBadResetToken) {
		c.badResetLink(w, r, err)
		return
	}
	if err != nil {
		c.d.FormFailed(w, r, f, "accounts", "password_reset_confirm", err, page)
		return
	}
	view.SetFlash(w, "Your password has been set.  You may sign in now.")
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

func (c *Component) badResetLink(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, acct.ErrBadResetToken) {
		c.fail(w, r, "reset token check failed", err)
		return
	}
	c.d.View.RenderStatus(w, r, http.StatusBadRequest, "accounts", "password_reset_invalid",
		"Password reset", acct.MsgResetLinkBroken)
}

/*──────────────────────────── profile ─────────────────────────────────────*/

type profilePage struct {
	User       *acct.User
	Activities []acct.Activity
}

func (c *Component) profile(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r.Context())
	acts, err := c.d.Activity.ForUser(r.Context(), u.ID)
	if err != nil {
		c.fail(w, r, "activity load failed", err)
		return
	}
	c.d.View.Render(w, r, "accounts", "profile", "Profile", profilePage{User: u, Activities: acts})
}

func (c *Component) profileEditGET(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r.Context())
	f := c.d.BuildForm(w, r, formProfile)
	if f == nil {
		return
	}
	p := acct.ProfileOf(u)
	prefill := map[string]string{
		"first_name":   p.FirstName,
		"last_name":    p.LastName,
		"bio":          p.Bio,
		"phone_number": p.PhoneNumber,
	}
	if p.EmailNotifications {
		prefill["email_notifications"] = "on"
	}
	c.d.RenderForm(w, r, f, "accounts", "profile_edit", prefill, nil, nil)
}

func (c *Component) profileEditPOST(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r.Context())
	f := c.d.BuildForm(w, r, formProfile)
	if f == nil {
		return
	}
	data, err := f.Submit(r)
	if err != nil {
		c.d.FormFailed(w, r, f, "accounts", "profile_edit", err, nil)
		return
	}
	err = c.d.Accounts.UpdateProfile(r.Context(), u, acct.Profile{
		FirstName:          component.Str(data, "first_name"),
		LastName:           component.Str(data, "last_name"),
		Bio:                component.Str(data, "bio"),
		PhoneNumber:        component.Str(data, "phone_number"),
		EmailNotifications: component.Bool(data, "email_notifications"),
	}, requestinfo.IP(r))
	if err != nil {
		c.d.FormFailed(w, r, f, "accounts", "profile_edit", err, nil)
		return
	}
	view.SetFlash(w, "Your profile has been updated.")
	http.Redirect(w, r, "/accounts/profile", http.StatusSeeOther)
}

func (c *Component) passwordChangeGET(w http.ResponseWriter, r *http.Request) {
	if f := c.d.BuildForm(w, r, formPasswordChange); f != nil {
		c.d.RenderForm(w, r, f, "accounts", "password_change", nil, nil, nil)
	}
}

func (c *Component) passwordChangePOST(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r.Context())
	f := c.d.BuildForm(w, r, formPasswordChange)
	if f == nil {
		return
	}
	data, err := f.Submit(r)
	if err != nil {
		c.d.FormFailed(w, r, f, "accounts", "password_change", err, nil)
		return
	}
	err = c.d.Accounts.ChangePassword(r.Context(), u,
		component.Str(data, "old_password"), component.Str(data, "new_password"),
		component.Str(data, "confirm_password"), requestinfo.IP(r))
	if err != nil {
		c.d.FormFailed(w, r, f, "accounts", "password_change", err, nil)
		return
	}
	// The session outlives the password change; only reset tokens are bound
	// to the hash.
	view.SetFlash(w, "Your password has been changed.")
	http.Redirect(w, r, "/accounts/profile", http.StatusSeeOther)
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func redirectSignedIn(w http.ResponseWriter, r *http.Request) bool {
	if _, ok := auth.CurrentUser(r.Context()); ok {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return true
	}
	return false
}

func (c *Component) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.FromContext(r.Context()).Error(msg, zap.Error(err))
	c.d.View.Error(w, r, http.StatusInternalServerError)
}
