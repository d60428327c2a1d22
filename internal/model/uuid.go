package model

import "github.com/google/uuid"

// UUID is the primary key mixin for file-backed records.
type UUID struct {
	ID uuid.UUID `db:"id" json:"id"`
}

// EnsureID assigns a time-ordered v7 UUID when the key is still nil.
func (u *UUID) EnsureID() error {
	if u.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}
