package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name  string
	stmts []string
}

func (f fakeSource) Name() string         { return f.name }
func (f fakeSource) Migrations() []string { return f.stmts }

func TestMigrateAppliesPending(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db := sqlx.NewDb(sqlDB, "mysql")

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")).
		WithArgs("core").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(1))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE faqs")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations")).
		WithArgs("core", 2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	src := fakeSource{name: "core", stmts: []string{"CREATE TABLE pages (id INT)", "CREATE TABLE faqs (id INT)"}}
	require.NoError(t, Migrate(context.Background(), db, src, fakeSource{name: "empty"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "app:pw@tcp(db)/app", DSN("app:%s@tcp(db)/app", "pw"))
	assert.Equal(t, "app@tcp(db)/app", DSN("app@tcp(db)/app", "pw"))
}
