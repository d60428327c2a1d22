package model

import (
	"time"

	sq "github.com/Masterminds/squirrel"
)

// SoftDelete marks a record hidden instead of removing the row.
//
// Repositories exclude deleted rows from default reads with NotDeleted;
// callers opt back in explicitly.
type SoftDelete struct {
	IsDeleted bool       `db:"is_deleted" json:"is_deleted"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy *int64     `db:"deleted_by" json:"deleted_by,omitempty"`
}

// MarkDeleted flags the record.  actor may be nil.
func (s *SoftDelete) MarkDeleted(now time.Time, actor *int64) {
	s.IsDeleted = true
	s.DeletedAt = &now
	s.DeletedBy = actor
}

// Restore clears all three deletion fields.
func (s *SoftDelete) Restore() {
	s.IsDeleted = false
	s.DeletedAt = nil
	s.DeletedBy = nil
}

// NotDeleted is the default read filter.
func NotDeleted() sq.Sqlizer {
	return sq.Eq{"is_deleted": false}
}

// SetDeletion writes the current deletion state of s onto an UPDATE.
func SetDeletion(b sq.UpdateBuilder, s SoftDelete) sq.UpdateBuilder {
	return b.
		Set("is_deleted", s.IsDeleted).
		Set("deleted_at", s.DeletedAt).
		Set("deleted_by", s.DeletedBy)
}
