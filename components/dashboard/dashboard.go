// components/dashboard/dashboard.go
//
// Dashboard component: the signed-in landing page with site statistics.
//
//------------------------------------------------------------------------------

package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/auth"
	"github.com/yanizio/adept-starter/internal/component"
	dash "github.com/yanizio/adept-starter/internal/dashboard"
	"github.com/yanizio/adept-starter/internal/logger"
)

var _ component.Component = (*Component)(nil)

// Component serves /dashboard.
type Component struct {
	d     *component.Deps
	stats *dash.Service
}

func (c *Component) Name() string         { return "dashboard" }
func (c *Component) Prefix() string       { return "/dashboard" }
func (c *Component) Migrations() []string { return nil }

func (c *Component) Init(d *component.Deps) error {
	c.d = d
	c.stats = dash.New(d.DB, d.Now())
	return nil
}

func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireLogin)
	r.Get("/", c.index)
	return r
}

func init() { component.Register(&Component{}) }

func (c *Component) index(w http.ResponseWriter, r *http.Request) {
	st, err := c.stats.Stats(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("dashboard stats failed", zap.Error(err))
		c.d.View.Error(w, r, http.StatusInternalServerError)
		return
	}
	c.d.View.Render(w, r, "dashboard", "index", "Dashboard", st)
}
