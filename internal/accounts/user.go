// internal/accounts/user.go
//
// User model.
//
// Context
//   Users log in with their email address.  Username is a display handle and
//   need not be unique.  Passwords are stored as bcrypt hashes only.
//
//------------------------------------------------------------------------------

package accounts

import (
	"strings"
	"time"

	"github.com/yanizio/adept-starter/internal/model"
)

// User is one row of the users table.
type User struct {
	ID                 int64      `db:"id"                  json:"id"`
	Email              string     `db:"email"               json:"email"        validate:"required,email,max=254"`
	Username           string     `db:"username"            json:"username"     validate:"required,max=150"`
	PasswordHash       string     `db:"password_hash"       json:"-"`
	FirstName          string     `db:"first_name"          json:"first_name"   validate:"max=150"`
	LastName           string     `db:"last_name"           json:"last_name"    validate:"max=150"`
	Avatar             string     `db:"avatar"              json:"avatar"`
	Bio                string     `db:"bio"                 json:"bio"          validate:"max=500"`
	PhoneNumber        string     `db:"phone_number"        json:"phone_number" validate:"max=17"`
	IsStaff            bool       `db:"is_staff"            json:"is_staff"`
	IsActive           bool       `db:"is_active"           json:"is_active"`
	IsVerified         bool       `db:"is_verified"         json:"is_verified"`
	EmailNotifications bool       `db:"email_notifications" json:"email_notifications"`
	LastLogin          *time.Time `db:"last_login"          json:"last_login,omitempty"`
	DateJoined         time.Time  `db:"date_joined"         json:"date_joined"`
	model.Timestamps
}

// FullName is "First Last", or the username when both are blank.
func (u *User) FullName() string {
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	return u.Username
}

// ShortName is the first name, else the username up to any "@".
func (u *User) ShortName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	name, _, _ := strings.Cut(u.Username, "@")
	return name
}

// Profile is the editable subset of User.
type Profile struct {
	FirstName          string `json:"first_name"          validate:"max=150"`
	LastName           string `json:"last_name"           validate:"max=150"`
	Bio                string `json:"bio"                 validate:"max=500"`
	PhoneNumber        string `json:"phone_number"        validate:"max=17"`
	EmailNotifications bool   `json:"email_notifications"`
}

// Apply copies p onto u.
func (p Profile) Apply(u *User) {
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.Bio = p.Bio
	u.PhoneNumber = p.PhoneNumber
	u.EmailNotifications = p.EmailNotifications
}

// ProfileOf extracts the editable fields of u.
func ProfileOf(u *User) Profile {
	return Profile{
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		Bio:                u.Bio,
		PhoneNumber:        u.PhoneNumber,
		EmailNotifications: u.EmailNotifications,
	}
}
