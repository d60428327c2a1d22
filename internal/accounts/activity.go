package accounts

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Activity actions.
const (
	ActionLogin           = "login"
	ActionLogout          = "logout"
	ActionSignup          = "signup"
	ActionPasswordChanged = "password_changed"
	ActionPasswordReset   = "password_reset"
	ActionProfileUpdated  = "profile_updated"
)

// activityLimit caps the per-user activity feed.
const activityLimit = 50

// Activity is an audit entry shown on the user's dashboard.
type Activity struct {
	ID          int64     `db:"id"          json:"id"`
	UserID      int64     `db:"user_id"     json:"user"`
	Action      string    `db:"action"      json:"action"`
	Description string    `db:"description" json:"description"`
	IPAddress   string    `db:"ip_address"  json:"ip_address"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
}

// ActivityLog appends to and reads from the activities table.
type ActivityLog struct {
	db *sqlx.DB
}

func NewActivityLog(db *sqlx.DB) *ActivityLog { return &ActivityLog{db: db} }

// Record inserts one entry.
func (l *ActivityLog) Record(ctx context.Context, a Activity) error {
	query, args, err := sq.Insert("activities").
		Columns("user_id", "action", "description", "ip_address", "created_at").
		Values(a.UserID, a.Action, a.Description, a.IPAddress, a.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// ForUser returns the newest entries for userID.
func (l *ActivityLog) ForUser(ctx context.Context, userID int64) ([]Activity, error) {
	query, args, err := sq.Select("id", "user_id", "action", "description", "ip_address", "created_at").
		From("activities").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(activityLimit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	out := []Activity{}
	if err := l.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return out, nil
}
