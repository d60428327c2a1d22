package model

import "time"

// Clock returns the current time.  Services take one so tests can pin it.
type Clock func() time.Time

// UTCNow is the production Clock.
func UTCNow() time.Time { return time.Now().UTC() }

// Timestamps is stamped by repositories on insert and update.
type Timestamps struct {
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Touch sets CreatedAt when unset and always refreshes UpdatedAt.
func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}
