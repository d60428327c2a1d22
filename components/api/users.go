package api

import (
	"net/http"

	sq "github.com/Masterminds/squirrel"

	"github.com/yanizio/adept-starter/internal/accounts"
	"github.com/yanizio/adept-starter/internal/requestinfo"
)

// userView adds derived fields to accounts.User.
type userView struct {
	*accounts.User
	FullName string `json:"full_name"`
}

func viewOf(u *accounts.User) userView { return userView{User: u, FullName: u.FullName()} }

func (c *Component) profileGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(user(r)))
}

// profilePatch carries only the fields the caller sent.
type profilePatch struct {
	FirstName          *string `json:"first_name"`
	LastName           *string `json:"last_name"`
	Bio                *string `json:"bio"`
	PhoneNumber        *string `json:"phone_number"`
	EmailNotifications *bool   `json:"email_notifications"`
}

func (p profilePatch) apply(dst *accounts.Profile) {
	if p.FirstName != nil {
		dst.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		dst.LastName = *p.LastName
	}
	if p.Bio != nil {
		dst.Bio = *p.Bio
	}
	if p.PhoneNumber != nil {
		dst.PhoneNumber = *p.PhoneNumber
	}
	if p.EmailNotifications != nil {
		dst.EmailNotifications = *p.EmailNotifications
	}
}

func (c *Component) profilePatch(w http.ResponseWriter, r *http.Request) {
	var in profilePatch
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	u := *user(r)
	p := accounts.ProfileOf(&u)
	in.apply(&p)
	if err := c.d.Accounts.UpdateProfile(r.Context(), &u, p, requestinfo.IP(r)); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(&u))
}

type passwordInput struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (c *Component) passwordChange(w http.ResponseWriter, r *http.Request) {
	var in passwordInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	u := *user(r)
	if err := c.d.Accounts.ChangePassword(r.Context(), &u, in.OldPassword, in.NewPassword, in.ConfirmPassword, requestinfo.IP(r)); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Password updated."})
}

func (c *Component) activities(w http.ResponseWriter, r *http.Request) {
	acts, err := c.d.Activity.ForUser(r.Context(), user(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acts)
}

func (c *Component) userList(w http.ResponseWriter, r *http.Request) {
	var where sq.Sqlizer
	if !user(r).IsStaff {
		where = sq.Eq{"is_active": true}
	}
	n, err := c.d.Users.Count(r.Context(), where)
	if err != nil {
		fail(w, r, err)
		return
	}
	pg := page(r, n)
	users, err := c.d.Users.List(r.Context(), where, pg.Limit(), pg.Offset())
	if err != nil {
		fail(w, r, err)
		return
	}
	out := list[userView]{Meta: pg.Meta(), Results: make([]userView, 0, len(users))}
	for i := range users {
		out.Results = append(out.Results, viewOf(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
