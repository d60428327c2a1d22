// internal/component/deps.go
package component

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/accounts"
	"github.com/yanizio/adept-starter/internal/config"
	"github.com/yanizio/adept-starter/internal/form"
	"github.com/yanizio/adept-starter/internal/media"
	"github.com/yanizio/adept-starter/internal/message"
	"github.com/yanizio/adept-starter/internal/model"
	"github.com/yanizio/adept-starter/internal/session"
	"github.com/yanizio/adept-starter/internal/view"
)

// Deps exposes shared resources to Components during Init.  cmd/web builds
// exactly one.
type Deps struct {
	Config   *config.Config
	DB       *sqlx.DB
	Log      *zap.Logger
	View     *view.Renderer
	Forms    *form.Builder
	Sessions *session.Manager
	Accounts *accounts.Service
	Activity ActivityFeed
	Users    *accounts.Repository
	Media    *media.Storage
	Outbox   message.Enqueuer
	Clock    model.Clock
}

// ActivityFeed reads a user's recent activity.  *accounts.ActivityLog
// satisfies it.
type ActivityFeed interface {
	ForUser(ctx context.Context, userID int64) ([]accounts.Activity, error)
}

// Now returns the current time through Clock, defaulting to UTC wall time.
func (d *Deps) Now() model.Clock {
	if d.Clock == nil {
		return model.UTCNow
	}
	return d.Clock
}
