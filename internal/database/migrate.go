// internal/database/migrate.go
//
// Minimal forward-only migrator.
//
// Each component returns an ordered list of SQL statements from
// Migrations().  Statement N (1-based) is applied at most once per
// component and recorded in `schema_migrations`.  Statements are never
// edited in place; new schema changes are appended.

package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Source is satisfied by every registered component.
type Source interface {
	Name() string
	Migrations() []string
}

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	component  VARCHAR(64) NOT NULL,
	version    INT         NOT NULL,
	applied_at DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (component, version)
)`

// Migrate applies pending statements for every source, in order.
func Migrate(ctx context.Context, db *sqlx.DB, sources ...Source) error {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, src := range sources {
		stmts := src.Migrations()
		if len(stmts) == 0 {
			continue
		}

		var applied int
		if err := db.GetContext(ctx, &applied,
			`SELECT COALESCE(MAX(version), 0) FROM schema_migrations WHERE component = ?`,
			src.Name()); err != nil {
			return fmt.Errorf("read version for %s: %w", src.Name(), err)
		}

		for i := applied; i < len(stmts); i++ {
			if err := apply(ctx, db, src.Name(), i+1, stmts[i]); err != nil {
				return err
			}
			zap.S().Infow("migration applied", "component", src.Name(), "version", i+1)
		}
	}
	return nil
}

func apply(ctx context.Context, db *sqlx.DB, name string, version int, stmt string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("migrate %s v%d: %w", name, version, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (component, version) VALUES (?, ?)`,
		name, version); err != nil {
		return fmt.Errorf("record %s v%d: %w", name, version, err)
	}
	return tx.Commit()
}
