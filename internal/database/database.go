// Package database centralises sqlx connection helpers.  The driver is
// go-sql-driver/mysql, which also works with MariaDB.
//
// Public entry points:
//
//	Open(dsn)                     – quick helper with conservative pool sizes.
//	OpenWithOptions(dsn, Options) – fine-grained control.
//	Migrate(ctx, db, sources...)  – apply component schema statements once.
//
// Open helpers Ping the database before returning so callers can fail
// fast during bootstrap.  Callers should Close() the returned *sqlx.DB.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Options tunes the connection pool.
type Options struct {
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

// Open returns a *sqlx.DB with sane defaults: 15 max open, 5 idle, and a
// 30-minute connection lifetime.
func Open(dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(dsn, Options{MaxOpen: 15, MaxIdle: 5})
}

// OpenWithOptions opens and pings a pool tuned by opts.
func OpenWithOptions(dsn string, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	if opts.ConnMaxLifetime == 0 {
		opts.ConnMaxLifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(opts.MaxOpen)
	db.SetMaxIdleConns(opts.MaxIdle)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// DSN substitutes password into a template containing one `%s` verb.
// Templates without a verb are returned unchanged.
func DSN(template, password string) string {
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, password)
}
