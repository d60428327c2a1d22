package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adept-starter/internal/apperr"
)

const usersTable = "users"

var userColumns = []string{
	"id", "email", "username", "password_hash", "first_name", "last_name",
	"avatar", "bio", "phone_number", "is_staff", "is_active", "is_verified",
	"email_notifications", "last_login", "date_joined", "created_at", "updated_at",
}

// Repository is the sqlx-backed user store.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository { return &Repository{db: db} }

func (r *Repository) baseSelect() sq.SelectBuilder {
	return sq.Select(userColumns...).From(usersTable)
}

func (r *Repository) get(ctx context.Context, q sq.SelectBuilder) (*User, error) {
	query, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var u User
	if err := r.db.GetContext(ctx, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.get(ctx, r.baseSelect().Where(sq.Eq{"id": id}))
}

// GetByEmail matches case-insensitively; emails are stored lower-cased.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.get(ctx, r.baseSelect().Where(sq.Eq{"email": normalizeEmail(email)}))
}

// EmailExists backs the signup uniqueness check.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").From(usersTable).
		Where(sq.Eq{"email": normalizeEmail(email)}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return false, fmt.Errorf("email exists: %w", err)
	}
	return n > 0, nil
}

// Create inserts u and sets u.ID.
func (r *Repository) Create(ctx context.Context, u *User) error {
	query, args, err := sq.Insert(usersTable).
		Columns("email", "username", "password_hash", "first_name", "last_name",
			"is_staff", "is_active", "is_verified", "email_notifications",
			"date_joined", "created_at", "updated_at").
		Values(u.Email, u.Username, u.PasswordHash, u.FirstName, u.LastName,
			u.IsStaff, u.IsActive, u.IsVerified, u.EmailNotifications,
			u.DateJoined, u.CreatedAt, u.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

// UpdateProfile writes the editable profile columns.
func (r *Repository) UpdateProfile(ctx context.Context, u *User) error {
	return r.exec(ctx, "update profile", sq.Update(usersTable).
		Set("first_name", u.FirstName).
		Set("last_name", u.LastName).
		Set("avatar", u.Avatar).
		Set("bio", u.Bio).
		Set("phone_number", u.PhoneNumber).
		Set("email_notifications", u.EmailNotifications).
		Set("updated_at", u.UpdatedAt).
		Where(sq.Eq{"id": u.ID}))
}

func (r *Repository) SetPassword(ctx context.Context, id int64, hash string, now time.Time) error {
	return r.exec(ctx, "set password", sq.Update(usersTable).
		Set("password_hash", hash).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}))
}

func (r *Repository) TouchLastLogin(ctx context.Context, id int64, now time.Time) error {
	return r.exec(ctx, "touch last_login", sq.Update(usersTable).
		Set("last_login", now).
		Where(sq.Eq{"id": id}))
}

// List returns users matching where (nil for all), newest first.
func (r *Repository) List(ctx context.Context, where sq.Sqlizer, limit, offset uint64) ([]User, error) {
	q := r.baseSelect()
	if where != nil {
		q = q.Where(where)
	}
	query, args, err := q.
		OrderBy("created_at DESC").
		Limit(limit).Offset(offset).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	out := []User{}
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// Count returns the number of users matching where (nil for all).
func (r *Repository) Count(ctx context.Context, where sq.Sqlizer) (int, error) {
	q := sq.Select("COUNT(*)").From(usersTable)
	if where != nil {
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *Repository) exec(ctx context.Context, op string, b sq.UpdateBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
