package content

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adept-starter/internal/model"
)

// Attachment is an uploaded file.  The bytes live in media storage under
// FilePath.
type Attachment struct {
	model.UUID
	FilePath         string `db:"file_path"         json:"file_path"`
	OriginalFilename string `db:"original_filename" json:"original_filename" validate:"required,max=255"`
	FileSize         int64  `db:"file_size"         json:"file_size"         validate:"gte=0"`
	MIMEType         string `db:"mime_type"         json:"mime_type"         validate:"max=100"`
	Description      string `db:"description"       json:"description"       validate:"max=500"`
	UploadedBy       *int64 `db:"uploaded_by"       json:"uploaded_by,omitempty"`
	IsPublic         bool   `db:"is_public"         json:"is_public"`
	DownloadCount    int    `db:"download_count"    json:"download_count"`
	model.Timestamps
	model.SoftDelete
}

// SizeDisplay renders FileSize as "12.3 KB".
func (a Attachment) SizeDisplay() string { return SizeDisplay(a.FileSize) }

// SizeDisplay formats n bytes with one decimal, stepping through units
// of 1024.
func SizeDisplay(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}

// CanModify reports whether user may change or delete a.
func (a Attachment) CanModify(userID int64, staff bool) bool {
	return staff || (a.UploadedBy != nil && *a.UploadedBy == userID)
}

// CanView reports whether user may read a.
func (a Attachment) CanView(userID int64, staff bool) bool {
	return a.IsPublic || a.CanModify(userID, staff)
}

// AttachmentFilter narrows reads.
type AttachmentFilter struct {
	// VisibleTo limits results to public rows and rows uploaded by this
	// user.  Zero means no restriction.
	VisibleTo      int64
	IncludeDeleted bool
}

func (f AttachmentFilter) where() sq.Sqlizer {
	w := sq.And{}
	if !f.IncludeDeleted {
		w = append(w, model.NotDeleted())
	}
	if f.VisibleTo != 0 {
		w = append(w, sq.Or{sq.Eq{"is_public": true}, sq.Eq{"uploaded_by": f.VisibleTo}})
	}
	if len(w) == 0 {
		return nil
	}
	return w
}

var attachmentColumns = []string{
	"id", "file_path", "original_filename", "file_size", "mime_type", "description",
	"uploaded_by", "is_public", "download_count", "created_at", "updated_at",
	"is_deleted", "deleted_at", "deleted_by",
}

// AttachmentRepo stores attachment rows.
type AttachmentRepo struct{ base }

func NewAttachmentRepo(db *sqlx.DB) *AttachmentRepo { return &AttachmentRepo{base{db}} }

func (r *AttachmentRepo) Create(ctx context.Context, a *Attachment, now time.Time) error {
	if err := a.EnsureID(); err != nil {
		return fmt.Errorf("attachment id: %w", err)
	}
	if err := model.Validate(a); err != nil {
		return err
	}
	a.Touch(now)
	query, args, err := sq.Insert("attachments").
		Columns(attachmentColumns...).
		Values(a.ID, a.FilePath, a.OriginalFilename, a.FileSize, a.MIMEType, a.Description,
			a.UploadedBy, a.IsPublic, a.DownloadCount, a.CreatedAt, a.UpdatedAt,
			a.IsDeleted, a.DeletedAt, a.DeletedBy).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

// Get loads one attachment.  Deleted rows are returned only when
// includeDeleted is set.
func (r *AttachmentRepo) Get(ctx context.Context, id uuid.UUID, includeDeleted bool) (*Attachment, error) {
	var a Attachment
	q := sq.Select(attachmentColumns...).From("attachments").Where(sq.Eq{"id": id})
	if !includeDeleted {
		q = q.Where(model.NotDeleted())
	}
	if err := r.get(ctx, "Attachment", &a, q); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttachmentRepo) List(ctx context.Context, f AttachmentFilter, limit, offset uint64) ([]Attachment, error) {
	out := []Attachment{}
	q := sq.Select(attachmentColumns...).From("attachments").
		Where(f.where()).
		OrderBy("created_at DESC").
		Limit(limit).Offset(offset)
	if err := r.selectAll(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return out, nil
}

func (r *AttachmentRepo) Count(ctx context.Context, f AttachmentFilter) (int, error) {
	return r.count(ctx, "attachments", f.where())
}

// IncrementDownloads bumps download_count in the database without a
// read-modify-write.
func (r *AttachmentRepo) IncrementDownloads(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, "Attachment", sq.Update("attachments").
		Set("download_count", sq.Expr("download_count + 1")).
		Where(sq.Eq{"id": id}))
}

// SaveDeletion persists a's soft-delete fields after MarkDeleted or Restore.
func (r *AttachmentRepo) SaveDeletion(ctx context.Context, a *Attachment, now time.Time) error {
	a.Touch(now)
	b := sq.Update("attachments").Set("updated_at", a.UpdatedAt).Where(sq.Eq{"id": a.ID})
	return r.exec(ctx, "Attachment", model.SetDeletion(b, a.SoftDelete))
}
