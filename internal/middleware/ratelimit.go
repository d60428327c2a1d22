// internal/middleware/ratelimit.go
//
// Per-client token-bucket rate limiter.
//
// Context
//   Wrapped around credential endpoints (login POST, password reset) to slow
//   brute force.  Each client IP owns a bucket of Burst tokens that refills
//   at RefillPerMin tokens per minute; a request spends one token.
//
// Notes
//   • Idle buckets are swept every SweepInterval, and eagerly when the map
//     reaches MaxEntries.
//   • Rejections answer 429 with Retry-After and X-RateLimit-* headers.  JSON
//     routes get the apperr envelope; HTML routes get plain text.
//
//------------------------------------------------------------------------------

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/apperr"
	"github.com/yanizio/adept-starter/internal/logger"
	"github.com/yanizio/adept-starter/internal/requestinfo"
)

// RateLimitConfig tunes RateLimit.
type RateLimitConfig struct {
	Burst         int
	RefillPerMin  int
	MaxEntries    int
	SweepInterval time.Duration
	IdleTTL       time.Duration
	TrustProxy    bool
	// Methods limits which methods spend tokens; empty means all.
	Methods []string
}

type bucket struct {
	mu       sync.Mutex
	tokens   float64
	lastRef  time.Time
	lastSeen time.Time
}

type limiter struct {
	cfg       RateLimitConfig
	rate      float64 // tokens per second
	capacity  float64
	now       func() time.Time
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	cfg.Burst = max(cfg.Burst, 1)
	cfg.RefillPerMin = max(cfg.RefillPerMin, 1)
	return &limiter{
		cfg:       cfg,
		rate:      float64(cfg.RefillPerMin) / 60.0,
		capacity:  float64(cfg.Burst),
		now:       time.Now,
		buckets:   make(map[string]*bucket, 256),
		lastSweep: time.Now(),
	}
}

func (l *limiter) getBucket(key string, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= l.cfg.SweepInterval ||
		(l.cfg.MaxEntries > 0 && len(l.buckets) >= l.cfg.MaxEntries) {
		l.sweepLocked(now)
	}
	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: l.capacity, lastRef: now, lastSeen: now}
		l.buckets[key] = b
	}
	return b
}

// allow spends one token for key.
func (l *limiter) allow(key string, now time.Time) (ok bool, remaining, retryAfterSec int) {
	b := l.getBucket(key, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.lastRef).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.rate)
		b.lastRef = now
	}
	b.lastSeen = now

	if b.tokens >= 1.0 {
		b.tokens--
		return true, int(math.Floor(b.tokens)), 0
	}
	sec := int(math.Ceil((1.0 - b.tokens) / l.rate))
	return false, 0, max(sec, 1)
}

func (l *limiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		b.mu.Lock()
		idle := now.Sub(b.lastSeen) > l.cfg.IdleTTL
		b.mu.Unlock()
		if idle {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *limiter) spends(method string) bool {
	if len(l.cfg.Methods) == 0 {
		return true
	}
	for _, m := range l.cfg.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// RateLimit returns the limiting middleware.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return newLimiter(cfg).middleware
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	limitStr := strconv.Itoa(l.cfg.Burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.spends(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		key := requestinfo.ClientIP(r, l.cfg.TrustProxy)
		ok, remaining, retry := l.allow(key, l.now())

		w.Header().Set("X-RateLimit-Limit", limitStr)
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("X-RateLimit-Remaining", "0")
			logger.FromContext(r.Context()).Warn("rate limited",
				zap.String("ip", key), zap.String("path", r.URL.Path), zap.Int("retry_after", retry))

			if wantsJSON(r) {
				apperr.Write(w, apperr.RateLimited())
				return
			}
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
