package content

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adept-starter/internal/model"
)

// Page slugs.  Pages are fixed, one per slug.
const (
	PageTerms   = "terms"
	PagePrivacy = "privacy"
	PageAbout   = "about"
	PageHelp    = "help"
	PageContact = "contact"
)

// PageSlugs lists every allowed slug in display order.
var PageSlugs = []string{PageTerms, PagePrivacy, PageAbout, PageHelp, PageContact}

// Page is a static, publishable document.
type Page struct {
	ID              int64  `db:"id"               json:"id"`
	Slug            string `db:"slug"             json:"slug"             validate:"required,oneof=terms privacy about help contact"`
	Title           string `db:"title"            json:"title"            validate:"required,max=200"`
	Content         string `db:"content"          json:"content"          validate:"required"`
	MetaDescription string `db:"meta_description" json:"meta_description" validate:"max=160"`
	model.Publishable
	model.Timestamps
}

var pageColumns = []string{
	"id", "slug", "title", "content", "meta_description",
	"is_published", "published_at", "published_until", "created_at", "updated_at",
}

// PageRepo reads and writes pages.
type PageRepo struct{ base }

func NewPageRepo(db *sqlx.DB) *PageRepo { return &PageRepo{base{db}} }

// ListActive returns pages visible at now, ordered by slug.
func (r *PageRepo) ListActive(ctx context.Context, now time.Time) ([]Page, error) {
	out := []Page{}
	err := r.selectAll(ctx, &out, sq.Select(pageColumns...).From("pages").
		Where(model.ActiveAt(now)).
		OrderBy("slug"))
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return out, nil
}

// ActiveBySlug returns the page only when it is visible at now.
func (r *PageRepo) ActiveBySlug(ctx context.Context, slug string, now time.Time) (*Page, error) {
	var p Page
	err := r.get(ctx, "Page", &p, sq.Select(pageColumns...).From("pages").
		Where(sq.Eq{"slug": slug}).
		Where(model.ActiveAt(now)))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountPublished counts pages with the published flag set.
func (r *PageRepo) CountPublished(ctx context.Context) (int, error) {
	return r.count(ctx, "pages", sq.Eq{"is_published": true})
}

// Save inserts p or replaces the page with the same slug.
func (r *PageRepo) Save(ctx context.Context, p *Page, now time.Time) error {
	if err := model.Validate(p); err != nil {
		return err
	}
	p.Touch(now)
	query, args, err := sq.Insert("pages").
		Columns("slug", "title", "content", "meta_description",
			"is_published", "published_at", "published_until", "created_at", "updated_at").
		Values(p.Slug, p.Title, p.Content, p.MetaDescription,
			p.IsPublished, p.PublishedAt, p.PublishedUntil, p.CreatedAt, p.UpdatedAt).
		Suffix("ON DUPLICATE KEY UPDATE title = VALUES(title), content = VALUES(content), " +
			"meta_description = VALUES(meta_description), is_published = VALUES(is_published), " +
			"published_at = VALUES(published_at), published_until = VALUES(published_until), " +
			"updated_at = VALUES(updated_at)").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save page: %w", err)
	}
	return nil
}
