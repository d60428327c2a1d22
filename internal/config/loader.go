// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `<root>/conf/.env` file.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `ADEPT_`, where `__` maps to “.”
     (e.g., `ADEPT_TURNSTILE__SECRET_KEY → turnstile.secret_key`).

After merging, the tree is unmarshalled into typed structs, defaults are
applied, `vault:` references are resolved, and the result is validated
and cached in an `atomic.Pointer` for lock-free reads.  `Reload()` calls
`Load()` again and swaps the pointer.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`, so
    `go run ./cmd/web` works from any sub-directory.
  • Logs use the global sugared logger so early boot issues surface even
    before the file logger is installed.
*/
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/vault"
)

const envPrefix = "ADEPT_"

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves ADEPT_ROOT or climbs directories until conf/global.yaml
// is found.
func rootDir() string {
	if r := os.Getenv("ADEPT_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves secrets, validates, and
// caches Config.
func Load() (*Config, error) {
	cfg, err := LoadFrom(rootDir())
	if err != nil {
		return nil, err
	}
	current.Store(cfg)
	return cfg, nil
}

// LoadFrom performs the same steps as Load against an explicit root and
// does not touch the cached pointer.
func LoadFrom(root string) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}
	cfg.Paths.Root = root
	cfg.applyDefaults()

	if cfg.Vault.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cli, err := vault.New(context.Background(), cfg.Vault.TTL)
		if err != nil {
			zap.S().Errorw("vault client init failed", "err", err)
			return nil, err
		}
		if err := resolveSecrets(ctx, &cfg, cli); err != nil {
			zap.S().Errorw("config secret resolution failed", "err", err)
			return nil, err
		}
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"session_store", cfg.Session.Store,
		"turnstile", cfg.Turnstile.SiteKey != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps ADEPT_HTTP__LISTEN_ADDR → http.listen_addr.
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
