// internal/dashboard/dashboard.go
//
// Aggregate counts for the staff dashboard and its JSON endpoints.
//
// Context
// -------
// Every figure is an independent COUNT, so each call fans the queries out
// through an errgroup and fails as a whole on the first error.  Day
// boundaries are UTC midnights.
//
// Notes
// -----
//   - Per-day series come from one GROUP BY query per table; days with no
//     rows are filled with zero here, oldest first.
package dashboard

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/adept-starter/internal/accounts"
	"github.com/yanizio/adept-starter/internal/content"
	"github.com/yanizio/adept-starter/internal/model"
)

const (
	ChartDays    = 7
	recentLimit  = 5
	dayLabel     = "01/02"
	dayKeyFormat = "2006-01-02"
)

// DayCount is one bar of the registration chart.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats backs the dashboard index page.
type Stats struct {
	TotalUsers         int
	ActiveUsers        int
	NewUsersThisMonth  int
	TotalContacts      int
	NewContacts        int
	InProgressContacts int
	RecentContacts     []content.Contact
	UserChart          []DayCount
}

// APIStats is the /api/v1/dashboard/stats payload.
type APIStats struct {
	TotalUsers      int `json:"total_users"`
	NewUsersToday   int `json:"new_users_today"`
	ActiveUsers     int `json:"active_users"`
	TotalContacts   int `json:"total_contacts"`
	PendingContacts int `json:"pending_contacts"`
	TotalPages      int `json:"total_pages"`
}

// Dataset is one chart series.
type Dataset struct {
	Label           string `json:"label"`
	Data            []int  `json:"data"`
	BorderColor     string `json:"borderColor"`
	BackgroundColor string `json:"backgroundColor"`
}

// Chart is the /api/v1/dashboard/chart payload.
type Chart struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Service computes dashboard figures.
type Service struct {
	db       *sqlx.DB
	users    *accounts.Repository
	contacts *content.ContactRepo
	pages    *content.PageRepo
	now      model.Clock
}

// New builds a Service over db.  now may be nil.
func New(db *sqlx.DB, now model.Clock) *Service {
	if now == nil {
		now = model.UTCNow
	}
	return &Service{
		db:       db,
		users:    accounts.NewRepository(db),
		contacts: content.NewContactRepo(db),
		pages:    content.NewPageRepo(db),
		now:      now,
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Stats gathers the dashboard index figures.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	today := startOfDay(s.now())
	out := &Stats{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalUsers, err = s.users.Count(ctx, nil)
		return err
	})
	g.Go(func() (err error) {
		out.ActiveUsers, err = s.users.Count(ctx, sq.GtOrEq{"last_login": today.AddDate(0, 0, -7)})
		return err
	})
	g.Go(func() (err error) {
		out.NewUsersThisMonth, err = s.users.Count(ctx, sq.GtOrEq{"date_joined": today.AddDate(0, 0, -30)})
		return err
	})
	g.Go(func() (err error) {
		out.TotalContacts, err = s.contacts.Count(ctx, content.ContactFilter{})
		return err
	})
	g.Go(func() (err error) {
		out.NewContacts, err = s.contacts.Count(ctx, content.ContactFilter{Statuses: []string{content.StatusNew}})
		return err
	})
	g.Go(func() (err error) {
		out.InProgressContacts, err = s.contacts.Count(ctx, content.ContactFilter{Statuses: []string{content.StatusInProgress}})
		return err
	})
	g.Go(func() (err error) {
		out.RecentContacts, err = s.contacts.List(ctx,
			content.ContactFilter{Statuses: []string{content.StatusNew, content.StatusInProgress}}, recentLimit, 0)
		return err
	})
	g.Go(func() error {
		days, counts, err := s.daily(ctx, "users", "date_joined", today)
		if err != nil {
			return err
		}
		out.UserChart = make([]DayCount, len(days))
		for i := range days {
			out.UserChart[i] = DayCount{Date: days[i], Count: counts[i]}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return out, nil
}

// APIStats gathers the summary exposed over the REST API.
func (s *Service) APIStats(ctx context.Context) (*APIStats, error) {
	now := s.now().UTC()
	out := &APIStats{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalUsers, err = s.users.Count(ctx, nil)
		return err
	})
	g.Go(func() (err error) {
		out.NewUsersToday, err = s.users.Count(ctx, sq.GtOrEq{"date_joined": startOfDay(now)})
		return err
	})
	g.Go(func() (err error) {
		out.ActiveUsers, err = s.users.Count(ctx, sq.GtOrEq{"last_login": now.AddDate(0, 0, -30)})
		return err
	})
	g.Go(func() (err error) {
		out.TotalContacts, err = s.contacts.Count(ctx, content.ContactFilter{})
		return err
	})
	g.Go(func() (err error) {
		out.PendingContacts, err = s.contacts.Count(ctx, content.ContactFilter{Statuses: []string{content.StatusNew}})
		return err
	})
	g.Go(func() (err error) {
		out.TotalPages, err = s.pages.CountPublished(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard api stats: %w", err)
	}
	return out, nil
}

// Chart returns new users and contacts per day for the last ChartDays days.
func (s *Service) Chart(ctx context.Context) (*Chart, error) {
	today := startOfDay(s.now())
	var (
		labels         []string
		users, contact []int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		labels, users, err = s.daily(ctx, "users", "date_joined", today)
		return err
	})
	g.Go(func() (err error) {
		_, contact, err = s.daily(ctx, "contacts", "created_at", today)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard chart: %w", err)
	}
	return &Chart{
		Labels: labels,
		Datasets: []Dataset{
			{Label: "New users", Data: users, BorderColor: "rgb(59, 130, 246)", BackgroundColor: "rgba(59, 130, 246, 0.5)"},
			{Label: "Contacts", Data: contact, BorderColor: "rgb(16, 185, 129)", BackgroundColor: "rgba(16, 185, 129, 0.5)"},
		},
	}, nil
}

// daily counts rows of table per UTC day of column over the ChartDays
// days ending today.  Labels are MM/DD, oldest first.
func (s *Service) daily(ctx context.Context, table, column string, today time.Time) ([]string, []int, error) {
	since := today.AddDate(0, 0, -(ChartDays - 1))
	query, args, err := sq.Select("DATE_FORMAT("+column+", '%Y-%m-%d') AS day", "COUNT(*) AS n").
		From(table).
		Where(sq.GtOrEq{column: since}).
		GroupBy("day").
		ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("build query: %w", err)
	}
	var rows []struct {
		Day string `db:"day"`
		N   int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, nil, fmt.Errorf("daily %s: %w", table, err)
	}
	byDay := make(map[string]int, len(rows))
	for _, r := range rows {
		byDay[r.Day] = r.N
	}

	labels := make([]string, ChartDays)
	counts := make([]int, ChartDays)
	for i := 0; i < ChartDays; i++ {
		d := since.AddDate(0, 0, i)
		labels[i] = d.Format(dayLabel)
		counts[i] = byDay[d.Format(dayKeyFormat)]
	}
	return labels, counts, nil
}
