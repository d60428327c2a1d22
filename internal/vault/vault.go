// internal/vault/vault.go
//
// Vault client wrapper.
//
// Context
// -------
//   - Concurrency-safe wrapper around the HashiCorp Vault Go SDK.
//   - Background token renewal, KV v2 reads, and per-key caching.
//   - Used by `internal/config` to resolve `vault:<path>#<key>` values, so
//     secrets such as the Turnstile secret key and the DB password never
//     live in YAML.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, ttl)              // during boot.
//  2. pw,  err := cli.Resolve(ctx, "secret/db#pw") // anywhere in the app.
//
// Environment expectations
// ------------------------
//   - VAULT_ADDR   – scheme and host of the Vault server.
//   - VAULT_TOKEN  – initial token.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client
	ttl time.Duration

	cacheMu sync.RWMutex
	cache   map[string]cached // path#key → value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a Vault client and starts the token renewal loop, which
// stops when ctx is cancelled.  ttl bounds how long resolved values are
// cached; zero disables caching.
func New(ctx context.Context, ttl time.Duration) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}

	c := &Client{
		api:   apiCli,
		ttl:   ttl,
		cache: make(map[string]cached),
	}
	go c.renewLoop(ctx)
	return c, nil
}

// Resolve reads the value addressed by ref, formatted "mount/path#key".
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	path, key, ok := strings.Cut(ref, "#")
	if !ok || path == "" || key == "" {
		return "", fmt.Errorf("vault: malformed reference %q", ref)
	}
	return c.GetKV(ctx, path, key)
}

// GetKV fetches a single key from a KV v2 secret, honouring the cache.
func (c *Client) GetKV(ctx context.Context, secretPath, key string) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("vault: secret path and key must be non-empty")
	}
	canonical := secretPath + "#" + key

	if c.ttl > 0 {
		c.cacheMu.RLock()
		cv, ok := c.cache[canonical]
		c.cacheMu.RUnlock()
		if ok && time.Now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}
	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("vault: key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault: value at %s is not a string", canonical)
	}

	if c.ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(c.ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

/*──────────────────────────── token renewal ───────────────────────────────*/

func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			zap.S().Warnw("vault token renew failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			zap.S().Infow("vault token not renewable, sleeping")
			backoff(ctx, time.Hour)
			continue
		}
		c.watch(ctx, sec)
		backoff(ctx, 15*time.Second)
	}
}

// watch blocks until the lifetime watcher stops or ctx ends.
func (c *Client) watch(ctx context.Context, sec *vault.Secret) {
	w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
	if err != nil {
		zap.S().Warnw("vault watcher init failed", "err", err)
		return
	}
	go w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				zap.S().Warnw("vault token renewal stopped", "err", err)
			}
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				zap.S().Debugw("vault token renewed", "ttl", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
