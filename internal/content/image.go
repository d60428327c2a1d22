package content

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adept-starter/internal/model"
)

// Image is an uploaded picture with display metadata.
type Image struct {
	model.UUID
	FilePath   string `db:"file_path"   json:"file_path"`
	Title      string `db:"title"       json:"title"    validate:"max=200"`
	AltText    string `db:"alt_text"    json:"alt_text" validate:"max=200"`
	Caption    string `db:"caption"     json:"caption"`
	Width      *int   `db:"width"       json:"width,omitempty"`
	Height     *int   `db:"height"      json:"height,omitempty"`
	UploadedBy *int64 `db:"uploaded_by" json:"uploaded_by,omitempty"`
	model.Timestamps
	model.SoftDelete
}

// FillDimensions sets Width and Height from the image header in r when
// either is unset.  Formats without a registered decoder (svg, webp) are
// left alone.
func (im *Image) FillDimensions(r io.Reader) {
	if im.Width != nil && im.Height != nil {
		return
	}
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return
	}
	w, h := cfg.Width, cfg.Height
	im.Width, im.Height = &w, &h
}

var imageColumns = []string{
	"id", "file_path", "title", "alt_text", "caption", "width", "height", "uploaded_by",
	"created_at", "updated_at", "is_deleted", "deleted_at", "deleted_by",
}

// ImageRepo stores image rows.
type ImageRepo struct{ base }

func NewImageRepo(db *sqlx.DB) *ImageRepo { return &ImageRepo{base{db}} }

func (r *ImageRepo) Create(ctx context.Context, im *Image, now time.Time) error {
	if err := im.EnsureID(); err != nil {
		return fmt.Errorf("image id: %w", err)
	}
	if err := model.Validate(im); err != nil {
		return err
	}
	im.Touch(now)
	query, args, err := sq.Insert("images").
		Columns(imageColumns...).
		Values(im.ID, im.FilePath, im.Title, im.AltText, im.Caption, im.Width, im.Height,
			im.UploadedBy, im.CreatedAt, im.UpdatedAt, im.IsDeleted, im.DeletedAt, im.DeletedBy).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

func (r *ImageRepo) Get(ctx context.Context, id uuid.UUID) (*Image, error) {
	var im Image
	q := sq.Select(imageColumns...).From("images").Where(sq.Eq{"id": id}).Where(model.NotDeleted())
	if err := r.get(ctx, "Image", &im, q); err != nil {
		return nil, err
	}
	return &im, nil
}

// List returns live images, newest first.
func (r *ImageRepo) List(ctx context.Context, limit, offset uint64) ([]Image, error) {
	out := []Image{}
	q := sq.Select(imageColumns...).From("images").
		Where(model.NotDeleted()).
		OrderBy("created_at DESC").
		Limit(limit).Offset(offset)
	if err := r.selectAll(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return out, nil
}

func (r *ImageRepo) Count(ctx context.Context) (int, error) {
	return r.count(ctx, "images", model.NotDeleted())
}

func (r *ImageRepo) SaveDeletion(ctx context.Context, im *Image, now time.Time) error {
	im.Touch(now)
	b := sq.Update("images").Set("updated_at", im.UpdatedAt).Where(sq.Eq{"id": im.ID})
	return r.exec(ctx, "Image", model.SetDeletion(b, im.SoftDelete))
}
