package model

import (
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Publishable gates visibility on a flag and an optional window.  Both
// window bounds are inclusive.
type Publishable struct {
	IsPublished    bool       `db:"is_published"    json:"is_published"`
	PublishedAt    *time.Time `db:"published_at"    json:"published_at,omitempty"`
	PublishedUntil *time.Time `db:"published_until" json:"published_until,omitempty"`
}

// IsActiveAt reports whether the record is visible at now.
func (p Publishable) IsActiveAt(now time.Time) bool {
	if !p.IsPublished {
		return false
	}
	if p.PublishedAt != nil && p.PublishedAt.After(now) {
		return false
	}
	if p.PublishedUntil != nil && p.PublishedUntil.Before(now) {
		return false
	}
	return true
}

// IsActive is IsActiveAt against the wall clock.
func (p Publishable) IsActive() bool { return p.IsActiveAt(UTCNow()) }

// ActiveAt is the SQL form of IsActiveAt.  column names are unqualified;
// pass a table prefix ("p.") when joining.
func ActiveAt(now time.Time, prefix ...string) sq.Sqlizer {
	var pf string
	if len(prefix) > 0 {
		pf = prefix[0]
	}
	return sq.And{
		sq.Eq{pf + "is_published": true},
		sq.Or{sq.Eq{pf + "published_at": nil}, sq.LtOrEq{pf + "published_at": now}},
		sq.Or{sq.Eq{pf + "published_until": nil}, sq.GtOrEq{pf + "published_until": now}},
	}
}
