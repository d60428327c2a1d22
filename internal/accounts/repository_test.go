package accounts

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/adept-starter/internal/apperr"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "mysql"), mock
}

func TestRepositoryGetByEmailNormalises(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRepository(db)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(userColumns).AddRow(
		1, "a@example.com", "a", "hash", "", "", "", "", "", false, true, false,
		true, nil, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ? LIMIT 1")).
		WithArgs("a@example.com").
		WillReturnRows(rows)

	u, err := repo.GetByEmail(context.Background(), "  A@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Nil(t, u.LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM users WHERE id = \\?").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := NewRepository(db).GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRepositoryCreate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(42, 1))

	u := &User{Email: "b@example.com", Username: "b", IsActive: true}
	require.NoError(t, NewRepository(db).Create(context.Background(), u))
	assert.Equal(t, int64(42), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityLogForUser(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM activities WHERE user_id = ? ORDER BY created_at DESC LIMIT 50")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "action", "description", "ip_address", "created_at"}).
			AddRow(1, 3, ActionLogin, "Logged in", "127.0.0.1", now))

	got, err := NewActivityLog(db).ForUser(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ActionLogin, got[0].Action)
}

func TestRepositoryListActiveOnly(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE is_active = ? ORDER BY created_at DESC LIMIT 20 OFFSET 20")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(userColumns))

	got, err := NewRepository(db).List(context.Background(), sq.Eq{"is_active": true}, 20, 20)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
