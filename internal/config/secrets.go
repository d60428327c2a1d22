// internal/config/secrets.go
//
// `vault:` reference resolution.
//
// Only the fields listed in secretFields are eligible; a reference
// anywhere else is left untouched and will usually fail validation.  A
// reference whose path has no mount segment ("vault:app#key") is read from
// vault.mount.

package config

import (
	"context"
	"fmt"
	"strings"
)

const secretPrefix = "vault:"

// SecretSource resolves a "mount/path#key" reference.  *vault.Client
// satisfies it.
type SecretSource interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

func secretFields(c *Config) map[string]*string {
	return map[string]*string{
		"database.password":    &c.Database.Password,
		"session.secret":       &c.Session.Secret,
		"redis.password":       &c.Redis.Password,
		"turnstile.secret_key": &c.Turnstile.SecretKey,
	}
}

func resolveSecrets(ctx context.Context, c *Config, src SecretSource) error {
	for name, ptr := range secretFields(c) {
		ref, ok := strings.CutPrefix(*ptr, secretPrefix)
		if !ok {
			continue
		}
		if path, _, _ := strings.Cut(ref, "#"); !strings.Contains(path, "/") && c.Vault.Mount != "" {
			ref = c.Vault.Mount + "/" + ref
		}
		val, err := src.Resolve(ctx, ref)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		*ptr = val
	}
	return nil
}
