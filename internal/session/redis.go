package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "session:"

// RedisStore keeps session payloads in Redis.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, d Data, ttl time.Duration) (string, error) {
	id, err := newID()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, keyPrefix+id, raw, ttl).Err(); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Load(ctx context.Context, value string) (Data, error) {
	raw, err := s.client.Get(ctx, keyPrefix+value).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Data{}, ErrInvalid
		}
		return Data{}, fmt.Errorf("load session: %w", err)
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return Data{}, ErrInvalid
	}
	return d, nil
}

func (s *RedisStore) Delete(ctx context.Context, value string) error {
	if err := s.client.Del(ctx, keyPrefix+value).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// RedisOptions configures DialRedis.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	// ConnectTimeout bounds the whole retry loop.
	ConnectTimeout time.Duration
}

// DialRedis connects and pings with exponential backoff until
// ConnectTimeout elapses.
func DialRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 30 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	wait := 500 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := client.Ping(ctx).Err()
		if err == nil {
			zap.S().Infow("redis connected", "addr", opts.Addr, "attempts", attempt)
			return client, nil
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			_ = client.Close()
			return nil, fmt.Errorf("redis unavailable at %s after %d attempts: %w", opts.Addr, attempt, err)
		case <-t.C:
			zap.S().Warnw("redis ping failed, retrying", "addr", opts.Addr, "attempt", attempt, "err", err)
			wait = min(wait*2, 5*time.Second)
		}
	}
}
