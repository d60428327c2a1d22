// internal/config/model.go
//
// Typed configuration model for the starter site.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `ADEPT_`-prefixed environment overrides – highest precedence.
//
// String values of the form `vault:<path>#<key>` are replaced with the
// referenced Vault KV v2 field by `ResolveSecrets` before validation, so
// the rest of the program only ever sees plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml`
//     tags unless configured otherwise.
//   • `Paths` is filled at runtime; YAML must not try to set it.
//   • Durations accept Go syntax (“5s”, “24h”).

package config

import "time"

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	TrustProxy   bool          `koanf:"trust_proxy"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// Database holds the MySQL DSN and pool sizing.
//
// The DSN may contain a single `%s` verb for the password; `Password`
// is usually a `vault:` reference so credentials stay out of flat files.
type Database struct {
	DSN             string        `koanf:"dsn"               validate:"required,dsn_verbs"`
	Password        string        `koanf:"password"`
	MaxOpen         int           `koanf:"max_open"          validate:"gte=0"`
	MaxIdle         int           `koanf:"max_idle"          validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// Log controls the zap/lumberjack logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

// Session configures the login session manager.
type Session struct {
	Secret     string        `koanf:"secret"      validate:"required,min=32"`
	CookieName string        `koanf:"cookie_name"`
	MaxAge     time.Duration `koanf:"max_age"`
	Secure     bool          `koanf:"secure"`
	Store      string        `koanf:"store"       validate:"omitempty,oneof=cookie redis"`
}

// Redis is only dialled when Session.Store is "redis".
type Redis struct {
	Addr        string        `koanf:"addr"         validate:"required_if=Enabled true"`
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db"`
	DialTimeout time.Duration `koanf:"dial_timeout"`
	Enabled     bool          `koanf:"-"`
}

// Turnstile carries the CAPTCHA provider settings.  A blank SiteKey
// disables the widget on every form.
type Turnstile struct {
	SiteKey   string        `koanf:"site_key"`
	SecretKey string        `koanf:"secret_key"`
	VerifyURL string        `koanf:"verify_url" validate:"omitempty,url"`
	Bypass    bool          `koanf:"bypass"`
	Timeout   time.Duration `koanf:"timeout"`
	Theme     string        `koanf:"theme"      validate:"omitempty,oneof=light dark auto"`
	Size      string        `koanf:"size"       validate:"omitempty,oneof=normal compact flexible"`
}

// Media controls uploaded file storage.
type Media struct {
	Root           string `koanf:"root"`
	URL            string `koanf:"url"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes" validate:"gte=0"`
}

// Site holds presentation and notification details.
type Site struct {
	Name        string   `koanf:"name"`
	BaseURL     string   `koanf:"base_url"     validate:"omitempty,url"`
	FromEmail   string   `koanf:"from_email"   validate:"omitempty,email"`
	AdminEmails []string `koanf:"admin_emails" validate:"dive,email"`
}

// Vault enables `vault:` secret references.  Address and token come from
// the standard VAULT_ADDR / VAULT_TOKEN environment variables.
type Vault struct {
	Enabled bool          `koanf:"enabled"`
	Mount   string        `koanf:"mount"`
	TTL     time.Duration `koanf:"ttl"`
}

// GeoIP points at an optional MaxMind City database.
type GeoIP struct {
	CityDB string `koanf:"city_db"`
}

// Paths is resolved at runtime and never set in YAML or env.
type Paths struct {
	Root string // ADEPT_ROOT or discovered parent
}

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Log       Log       `koanf:"log"`
	Session   Session   `koanf:"session"`
	Redis     Redis     `koanf:"redis"`
	Turnstile Turnstile `koanf:"turnstile"`
	Media     Media     `koanf:"media"`
	Site      Site      `koanf:"site"`
	Vault     Vault     `koanf:"vault"`
	GeoIP     GeoIP     `koanf:"geoip"`
	Paths     Paths     `koanf:"-"`
}

// applyDefaults fills zero values that have a sensible fallback.
func (c *Config) applyDefaults() {
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 20
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "adept_session"
	}
	if c.Session.MaxAge == 0 {
		c.Session.MaxAge = 24 * time.Hour
	}
	if c.Session.Store == "" {
		c.Session.Store = "cookie"
	}
	c.Redis.Enabled = c.Session.Store == "redis"
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Turnstile.Timeout == 0 {
		c.Turnstile.Timeout = 5 * time.Second
	}
	if c.Turnstile.Theme == "" {
		c.Turnstile.Theme = "light"
	}
	if c.Turnstile.Size == "" {
		c.Turnstile.Size = "normal"
	}
	if c.Media.Root == "" {
		c.Media.Root = "media"
	}
	if c.Media.URL == "" {
		c.Media.URL = "/media/"
	}
	if c.Media.MaxUploadBytes == 0 {
		c.Media.MaxUploadBytes = 10 << 20
	}
	if c.Site.Name == "" {
		c.Site.Name = "Adept Starter"
	}
	if c.Vault.Mount == "" {
		c.Vault.Mount = "secret"
	}
	if c.Vault.TTL == 0 {
		c.Vault.TTL = 5 * time.Minute
	}
}
