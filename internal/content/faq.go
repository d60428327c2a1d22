package content

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adept-starter/internal/model"
)

// FAQ categories in display order.
var FAQCategories = []Choice{
	{"general", "General"},
	{"account", "Account"},
	{"billing", "Billing"},
	{"technical", "Technical"},
	{"other", "Other"},
}

// Choice is a stored value with its display label.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Label finds the label for value, or value itself.
func Label(choices []Choice, value string) string {
	for _, c := range choices {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}

// FAQ is one question and answer.
type FAQ struct {
	ID         int64  `db:"id"          json:"id"`
	Category   string `db:"category"    json:"category"    validate:"required,oneof=general account billing technical other"`
	Question   string `db:"question"    json:"question"    validate:"required"`
	Answer     string `db:"answer"      json:"answer"      validate:"required"`
	IsFeatured bool   `db:"is_featured" json:"is_featured"`
	ViewCount  int    `db:"view_count"  json:"view_count"`
	model.Publishable
	model.Orderable
	model.Timestamps
}

// CategoryLabel is the display name of f.Category.
func (f FAQ) CategoryLabel() string { return Label(FAQCategories, f.Category) }

// FAQGroup is one category's visible FAQs.
type FAQGroup struct {
	Category Choice
	Items    []FAQ
}

// GroupFAQs buckets faqs by category in FAQCategories order, skipping
// empty categories.  Input order within a category is kept.
func GroupFAQs(faqs []FAQ) []FAQGroup {
	by := map[string][]FAQ{}
	for _, f := range faqs {
		by[f.Category] = append(by[f.Category], f)
	}
	var out []FAQGroup
	for _, c := range FAQCategories {
		if items := by[c.Value]; len(items) > 0 {
			out = append(out, FAQGroup{Category: c, Items: items})
		}
	}
	return out
}

var faqColumns = []string{
	"id", "category", "question", "answer", "is_featured", "view_count",
	"is_published", "published_at", "published_until", "sort_order", "created_at", "updated_at",
}

// FAQRepo reads and writes FAQs.
type FAQRepo struct{ base }

func NewFAQRepo(db *sqlx.DB) *FAQRepo { return &FAQRepo{base{db}} }

// ListActive returns FAQs visible at now, optionally for one category,
// ordered by category, sort order, newest first.
func (r *FAQRepo) ListActive(ctx context.Context, now time.Time, category string) ([]FAQ, error) {
	q := sq.Select(faqColumns...).From("faqs").Where(model.ActiveAt(now))
	if category != "" {
		q = q.Where(sq.Eq{"category": category})
	}
	q = q.OrderBy("category").OrderBy(model.OrderableSort...)

	out := []FAQ{}
	if err := r.selectAll(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	return out, nil
}

// ActiveByID returns one visible FAQ.
func (r *FAQRepo) ActiveByID(ctx context.Context, id int64, now time.Time) (*FAQ, error) {
	var f FAQ
	err := r.get(ctx, "FAQ", &f, sq.Select(faqColumns...).From("faqs").
		Where(sq.Eq{"id": id}).
		Where(model.ActiveAt(now)))
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// IncrementViews bumps view_count in one statement.
func (r *FAQRepo) IncrementViews(ctx context.Context, id int64) error {
	return r.exec(ctx, "FAQ", sq.Update("faqs").
		Set("view_count", sq.Expr("view_count + 1")).
		Where(sq.Eq{"id": id}))
}

// Create inserts f.
func (r *FAQRepo) Create(ctx context.Context, f *FAQ, now time.Time) error {
	if err := model.Validate(f); err != nil {
		return err
	}
	f.Touch(now)
	query, args, err := sq.Insert("faqs").
		Columns("category", "question", "answer", "is_featured", "view_count",
			"is_published", "published_at", "published_until", "sort_order", "created_at", "updated_at").
		Values(f.Category, f.Question, f.Answer, f.IsFeatured, f.ViewCount,
			f.IsPublished, f.PublishedAt, f.PublishedUntil, f.Order, f.CreatedAt, f.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert faq: %w", err)
	}
	f.ID, err = res.LastInsertId()
	return err
}
