package dashboard

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now   = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	today = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
)

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	mock.MatchExpectationsInOrder(false)
	return New(sqlx.NewDb(raw, "mysql"), func() time.Time { return now }), mock
}

func exact(sql string) string { return "^" + regexp.QuoteMeta(sql) + "$" }

func countRows(n int) *sqlmock.Rows { return sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(n) }

func dayRows(pairs ...any) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"day", "n"})
	for i := 0; i < len(pairs); i += 2 {
		rows.AddRow(pairs[i], pairs[i+1])
	}
	return rows
}

const (
	dailyUsers    = "SELECT DATE_FORMAT(date_joined, '%Y-%m-%d') AS day, COUNT(*) AS n FROM users WHERE date_joined >= ? GROUP BY day"
	dailyContacts = "SELECT DATE_FORMAT(created_at, '%Y-%m-%d') AS day, COUNT(*) AS n FROM contacts WHERE created_at >= ? GROUP BY day"
)

func TestStats(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(exact("SELECT COUNT(*) FROM users")).WillReturnRows(countRows(40))
	mock.ExpectQuery(exact("SELECT COUNT(*) FROM users WHERE last_login >= ?")).
		WithArgs(today.AddDate(0, 0, -7)).WillReturnRows(countRows(12))
	mock.ExpectQuery(exact("SELECT COUNT(*) FROM users WHERE date_joined >= ?")).
		WithArgs(today.AddDate(0, 0, -30)).WillReturnRows(countRows(5))
	mock.ExpectQuery(exact("SELECT COUNT(*) FROM contacts")).WillReturnRows(countRows(9))
	mock.ExpectQuery(exact("SELECT COUNT(*) FROM contacts WHERE (status IN (?))")).
		WithArgs("new").WillReturnRows(countRows(4))
	mock.ExpectQuery(exact("SELECT COUNT(*) FROM contacts WHERE (status IN (?))")).
		WithArgs("in_progress").WillReturnRows(countRows(2))
	mock.ExpectQuery("FROM contacts WHERE \\(status IN \\(\\?,\\?\\)\\) ORDER BY created_at DESC, id DESC LIMIT 5").
		WithArgs("new", "in_progress").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "category", "subject", "message", "status",
			"user_id", "assigned_to", "notes", "ip_address", "user_agent", "resolved_at", "created_at", "updated_at"}).
			AddRow(3, "Ann", "ann@example.com", "bug", "s", "m", "new", nil, nil, "", "", "", nil, now, now))
	mock.ExpectQuery(exact(dailyUsers)).
		WithArgs(today.AddDate(0, 0, -6)).
		WillReturnRows(dayRows("2025-03-04", 2, "2025-03-10", 1))

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, st.TotalUsers)
	assert.Equal(t, 12, st.ActiveUsers)
	assert.Equal(t, 5, st.NewUsersThisMonth)
	assert.Equal(t, 9, st.TotalContacts)
	assert.Equal(t, 4, st.NewContacts)
	assert.Equal(t, 2, st.InProgressContacts)
	require.Len(t, st.RecentContacts, 1)
	assert.Equal(t, []DayCount{
		{"03/04", 2}, {"03/05", 0}, {"03/06", 0}, {"03/07", 0},
		{"03/08", 0}, {"03/09", 0}, {"03/10", 1},
	}, st.UserChart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIStats(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(exact("SELECT COUNT(*) FROM users")).WillReturnRows(countRows(10))
	mock.ExpectQuery(exact("SELECT COUNT(*) FROM users WHERE date_joined >= ?")).
		WithArgs(today).WillReturnRows(countRows(1))
	mock.ExpectQuery(exact("SELECT COUNT(*) FROM users WHERE last_login >= ?")).
		WithArgs(now.AddDate(0, 0, -30)).WillReturnRows(countRows(6))
	mock.ExpectQuery(exact("SELECT COUNT(*) FROM contacts")).WillReturnRows(countRows(8))
	mock.ExpectQuery(exact("SELECT COUNT(*) FROM contacts WHERE (status IN (?))")).
		WithArgs("new").WillReturnRows(countRows(3))
	mock.ExpectQuery(exact("SELECT COUNT(*) FROM pages WHERE is_published = ?")).
		WithArgs(true).WillReturnRows(countRows(5))

	st, err := svc.APIStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, APIStats{
		TotalUsers: 10, NewUsersToday: 1, ActiveUsers: 6,
		TotalContacts: 8, PendingContacts: 3, TotalPages: 5,
	}, *st)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChart(t *testing.T) {
	svc, mock := newService(t)
	mock.ExpectQuery(exact(dailyUsers)).WillReturnRows(dayRows("2025-03-09", 4))
	mock.ExpectQuery(exact(dailyContacts)).WillReturnRows(dayRows("2025-03-04", 1, "2025-03-09", 2))

	ch, err := svc.Chart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"03/04", "03/05", "03/06", "03/07", "03/08", "03/09", "03/10"}, ch.Labels)
	require.Len(t, ch.Datasets, 2)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 4, 0}, ch.Datasets[0].Data)
	assert.Equal(t, []int{1, 0, 0, 0, 0, 2, 0}, ch.Datasets[1].Data)
}

func TestChartPropagatesErrors(t *testing.T) {
	svc, mock := newService(t)
	mock.ExpectQuery(exact(dailyUsers)).WillReturnError(errors.New("boom"))
	mock.ExpectQuery(exact(dailyContacts)).WillReturnRows(dayRows())

	_, err := svc.Chart(context.Background())
	assert.ErrorContains(t, err, "boom")
}
