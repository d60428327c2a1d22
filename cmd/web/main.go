// cmd/web/main.go
//
// Adept Starter HTTP entry point.
//
// Start-up
// --------
//
//  1. Load configuration (conf/global.yaml, .env, ADEPT_* overrides,
//     optional Vault secrets).
//
//  2. Start the rotating zap logger and install it globally.
//
//  3. Open the MySQL pool and apply every component's migrations.
//
//  4. Build shared services: sessions (cookie or Redis), Turnstile,
//     form builder, renderer, accounts, media storage.
//
//  5. Assemble the chi router: request id, logging, recovery, security
//     headers, HTTPS redirect, request enrichment, session user.
//
//  6. Mount /healthz, /metrics, /media/, then every registered
//     component at its prefix.
//
//  7. Serve until SIGINT/SIGTERM, then drain for up to 15 s.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/accounts"
	"github.com/yanizio/adept-starter/internal/auth"
	"github.com/yanizio/adept-starter/internal/component"
	"github.com/yanizio/adept-starter/internal/config"
	"github.com/yanizio/adept-starter/internal/database"
	"github.com/yanizio/adept-starter/internal/form"
	"github.com/yanizio/adept-starter/internal/logger"
	"github.com/yanizio/adept-starter/internal/media"
	"github.com/yanizio/adept-starter/internal/message"
	"github.com/yanizio/adept-starter/internal/middleware"
	"github.com/yanizio/adept-starter/internal/requestinfo"
	"github.com/yanizio/adept-starter/internal/server"
	"github.com/yanizio/adept-starter/internal/session"
	"github.com/yanizio/adept-starter/internal/turnstile"
	"github.com/yanizio/adept-starter/internal/view"
	"github.com/yanizio/adept-starter/web"

	_ "github.com/yanizio/adept-starter/components/accounts"
	_ "github.com/yanizio/adept-starter/components/api"
	_ "github.com/yanizio/adept-starter/components/core"
	_ "github.com/yanizio/adept-starter/components/dashboard"
)

const shutdownGrace = 15 * time.Second

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logDir := cfg.Log.Dir
	if logDir == "" {
		logDir = "logs"
	}
	if !filepath.IsAbs(logDir) {
		logDir = filepath.Join(cfg.Paths.Root, logDir)
	}
	sugar, err := logger.New(logger.Options{Dir: logDir, Level: cfg.Log.Level, Tee: cfg.Log.Tee || runningInTTY()})
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = sugar.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, sugar.Desugar()); err != nil {
		sugar.Fatalw("server exited", "err", err)
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	//
	// ── 1.  Database ────────────────────────────────────────────────────
	//
	db, err := database.OpenWithOptions(database.DSN(cfg.Database.DSN, cfg.Database.Password), database.Options{
		MaxOpen:         cfg.Database.MaxOpen,
		MaxIdle:         cfg.Database.MaxIdle,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	zl.Info("database online")

	comps := component.All()
	sources := make([]database.Source, 0, len(comps))
	for _, c := range comps {
		sources = append(sources, c)
	}
	if err := database.Migrate(ctx, db, sources...); err != nil {
		return err
	}

	//
	// ── 2.  Shared services ─────────────────────────────────────────────
	//
	store, err := sessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	sessions := session.NewManager(store, session.Options{
		CookieName: cfg.Session.CookieName,
		MaxAge:     cfg.Session.MaxAge,
		Secure:     cfg.Session.Secure,
	})

	if cfg.GeoIP.CityDB != "" {
		if err := requestinfo.InitGeo(cfg.GeoIP.CityDB); err != nil {
			zl.Warn("geoip disabled", zap.String("path", cfg.GeoIP.CityDB), zap.Error(err))
		}
	}

	captcha := turnstile.New(turnstile.Config{
		SiteKey:   cfg.Turnstile.SiteKey,
		SecretKey: cfg.Turnstile.SecretKey,
		VerifyURL: cfg.Turnstile.VerifyURL,
		Bypass:    cfg.Turnstile.Bypass,
		Timeout:   cfg.Turnstile.Timeout,
		Theme:     cfg.Turnstile.Theme,
		Size:      cfg.Turnstile.Size,
	}, turnstile.WithLogger(zl))

	outbox := outboxFor(cfg, db)

	reg := form.NewRegistry()
	if err := reg.Load(web.Forms(), "."); err != nil {
		return err
	}
	forms := form.NewBuilder(reg, form.NewCSRF([]byte(cfg.Session.Secret)), captcha,
		form.WithActions(form.ActionDeps{
			Outbox:        outbox,
			DB:            db,
			AdminEmails:   cfg.Site.AdminEmails,
			SubjectPrefix: cfg.Site.Name,
		}))

	renderer := view.New(web.Templates(), view.Options{
		Site:        view.SiteInfo{Name: cfg.Site.Name, BaseURL: cfg.Site.BaseURL},
		OverrideDir: filepath.Join(cfg.Paths.Root, "templates"),
	})

	users := accounts.NewRepository(db)
	activity := accounts.NewActivityLog(db)
	svc := accounts.NewService(users, activity, accounts.Config{
		Secret:   []byte(cfg.Session.Secret),
		BaseURL:  cfg.Site.BaseURL,
		SiteName: cfg.Site.Name,
		Mail:     outbox,
	})

	mediaRoot := cfg.Media.Root
	if !filepath.IsAbs(mediaRoot) {
		mediaRoot = filepath.Join(cfg.Paths.Root, mediaRoot)
	}
	storage := media.NewStorage(mediaRoot, cfg.Media.URL, cfg.Media.MaxUploadBytes)

	deps := &component.Deps{
		Config:   cfg,
		DB:       db,
		Log:      zl,
		View:     renderer,
		Forms:    forms,
		Sessions: sessions,
		Accounts: svc,
		Activity: activity,
		Users:    users,
		Media:    storage,
		Outbox:   outbox,
	}

	r, err := newRouter(cfg, deps, comps)
	if err != nil {
		return err
	}

	//
	// ── 4.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r, server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	})
	return server.Run(ctx, srv, shutdownGrace)
}

// newRouter assembles the middleware chain, infrastructure endpoints, and
// every component in comps.
func newRouter(cfg *config.Config, deps *component.Deps, comps []component.Component) (chi.Router, error) {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg.HTTP.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLog(deps.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security)
	if cfg.HTTP.ForceHTTPS {
		r.Use(middleware.ForceHTTPS(cfg.HTTP.TrustProxy))
	}
	r.Use(requestinfo.Enrich(cfg.HTTP.TrustProxy))
	r.Use(auth.Load(deps.Sessions, deps.Accounts))

	r.Get("/healthz", health(deps.DB))
	r.Handle("/metrics", promhttp.Handler())
	r.Handle(cfg.Media.URL+"*", http.StripPrefix(cfg.Media.URL, http.FileServer(http.Dir(deps.Media.Root()))))

	if err := component.Mount(r, deps, comps...); err != nil {
		return nil, err
	}
	return r, nil
}

// sessionStore picks the backend named by session.store.
func sessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	if !cfg.Redis.Enabled {
		return session.NewCookieStore([]byte(cfg.Session.Secret)), nil
	}
	client, err := session.DialRedis(ctx, session.RedisOptions{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return session.NewRedisStore(client), nil
}

// outboxFor stores mail in email_outbox when a sender is configured and
// only logs it otherwise.
func outboxFor(cfg *config.Config, db *sqlx.DB) message.Enqueuer {
	if cfg.Site.FromEmail == "" {
		return message.LogOutbox{}
	}
	return message.NewOutbox(db, cfg.Site.FromEmail)
}

func health(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}
