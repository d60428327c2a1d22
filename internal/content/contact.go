package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adept-starter/internal/model"
)

// Contact statuses.
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

var ContactStatuses = []Choice{
	{StatusNew, "New"},
	{StatusInProgress, "In Progress"},
	{StatusResolved, "Resolved"},
	{StatusClosed, "Closed"},
}

var ContactCategories = []Choice{
	{"general", "General Inquiry"},
	{"bug", "Bug Report"},
	{"feature", "Feature Request"},
	{"billing", "Billing Question"},
	{"other", "Other"},
}

// Contact is one enquiry from the contact form or the API.
type Contact struct {
	ID         int64      `db:"id"          json:"id"`
	Name       string     `db:"name"        json:"name"        validate:"required,max=100"`
	Email      string     `db:"email"       json:"email"       validate:"required,email,max=254"`
	Category   string     `db:"category"    json:"category"    validate:"required,oneof=general bug feature billing other"`
	Subject    string     `db:"subject"     json:"subject"     validate:"required,max=200"`
	Message    string     `db:"message"     json:"message"     validate:"required"`
	Status     string     `db:"status"      json:"status"      validate:"required,oneof=new in_progress resolved closed"`
	UserID     *int64     `db:"user_id"     json:"user,omitempty"`
	AssignedTo *int64     `db:"assigned_to" json:"assigned_to,omitempty"`
	Notes      string     `db:"notes"       json:"notes"`
	IPAddress  string     `db:"ip_address"  json:"ip_address,omitempty"`
	UserAgent  string     `db:"user_agent"  json:"user_agent,omitempty"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	model.Timestamps
}

// Resolve marks the contact resolved at now.
func (c *Contact) Resolve(now time.Time) {
	c.Status = StatusResolved
	c.ResolvedAt = &now
}

func (c Contact) StatusLabel() string   { return Label(ContactStatuses, c.Status) }
func (c Contact) CategoryLabel() string { return Label(ContactCategories, c.Category) }

// ContactFilter narrows List and Count.  Zero values match everything.
type ContactFilter struct {
	Email    string
	Statuses []string
}

func (f ContactFilter) where() sq.Sqlizer {
	w := sq.And{}
	if f.Email != "" {
		w = append(w, sq.Eq{"email": strings.ToLower(f.Email)})
	}
	if len(f.Statuses) > 0 {
		w = append(w, sq.Eq{"status": f.Statuses})
	}
	if len(w) == 0 {
		return nil
	}
	return w
}

const maxUserAgent = 512

var contactColumns = []string{
	"id", "name", "email", "category", "subject", "message", "status",
	"user_id", "assigned_to", "notes", "ip_address", "user_agent", "resolved_at",
	"created_at", "updated_at",
}

// ContactRepo stores contacts.
type ContactRepo struct{ base }

func NewContactRepo(db *sqlx.DB) *ContactRepo { return &ContactRepo{base{db}} }

// Create validates and inserts c.  An empty status becomes new.
func (r *ContactRepo) Create(ctx context.Context, c *Contact, now time.Time) error {
	if c.Status == "" {
		c.Status = StatusNew
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if len(c.UserAgent) > maxUserAgent {
		c.UserAgent = c.UserAgent[:maxUserAgent]
	}
	if err := model.Validate(c); err != nil {
		return err
	}
	c.Touch(now)
	query, args, err := sq.Insert("contacts").
		Columns(contactColumns[1:]...).
		Values(c.Name, c.Email, c.Category, c.Subject, c.Message, c.Status,
			c.UserID, c.AssignedTo, c.Notes, c.IPAddress, c.UserAgent, c.ResolvedAt,
			c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (r *ContactRepo) Get(ctx context.Context, id int64) (*Contact, error) {
	var c Contact
	if err := r.get(ctx, "Contact", &c, sq.Select(contactColumns...).From("contacts").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns one page of contacts, newest first.
func (r *ContactRepo) List(ctx context.Context, f ContactFilter, limit, offset uint64) ([]Contact, error) {
	out := []Contact{}
	q := sq.Select(contactColumns...).From("contacts").
		Where(f.where()).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).Offset(offset)
	if err := r.selectAll(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return out, nil
}

func (r *ContactRepo) Count(ctx context.Context, f ContactFilter) (int, error) {
	return r.count(ctx, "contacts", f.where())
}

// Update writes the staff-editable fields of c.
func (r *ContactRepo) Update(ctx context.Context, c *Contact, now time.Time) error {
	if err := model.Validate(c); err != nil {
		return err
	}
	c.Touch(now)
	return r.exec(ctx, "Contact", sq.Update("contacts").
		Set("name", c.Name).
		Set("email", c.Email).
		Set("category", c.Category).
		Set("subject", c.Subject).
		Set("message", c.Message).
		Set("status", c.Status).
		Set("assigned_to", c.AssignedTo).
		Set("notes", c.Notes).
		Set("resolved_at", c.ResolvedAt).
		Set("updated_at", c.UpdatedAt).
		Where(sq.Eq{"id": c.ID}))
}

func (r *ContactRepo) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, "Contact", sq.Delete("contacts").Where(sq.Eq{"id": id}))
}
