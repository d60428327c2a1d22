package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adept-starter/internal/apperr"
)

// base carries the helpers every repository shares.
type base struct {
	db *sqlx.DB
}

func (b base) get(ctx context.Context, entity string, dst any, q sq.SelectBuilder) error {
	query, args, err := q.Limit(1).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := b.db.GetContext(ctx, dst, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound(entity)
		}
		return fmt.Errorf("get %s: %w", entity, err)
	}
	return nil
}

func (b base) selectAll(ctx context.Context, dst any, q sq.SelectBuilder) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return b.db.SelectContext(ctx, dst, query, args...)
}

func (b base) count(ctx context.Context, table string, where sq.Sqlizer) (int, error) {
	q := sq.Select("COUNT(*)").From(table)
	if where != nil {
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var n int
	if err := b.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// exec runs a write and maps "no rows affected" to NotFound.
func (b base) exec(ctx context.Context, entity string, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("write %s: %w", entity, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound(entity)
	}
	return nil
}
