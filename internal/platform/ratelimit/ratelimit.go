// Package ratelimit wraps golang.org/x/time/rate for the HTTP
// ingestion surface, structured like an infrastructure/ratelimit
// package.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/cache"
)

// keyPrefix namespaces every counter this package writes into the
// shared Cache Contract, matching the analytics:rate_limit:<clientId>
// convention.
const keyPrefix = "analytics:rate_limit:"

// Config tunes the limiter's steady-state rate, burst/window cap, and
// the shared-counter window length.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	Window            time.Duration
}

// DefaultConfig sets conservative defaults: 100rps, burst 200, a 60s
// shared-counter window.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 100, Burst: 200, Window: 60 * time.Second}
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a per-key (e.g. per-IP, per-API-key) request limiter. A
// local token bucket absorbs bursts cheaply without a cache round
// trip; the shared Cache Contract's atomic incrementBy+TTL counter
// then enforces the window limit across every process reading from
// the same cache, so the limit holds cluster-wide and not just
// per-instance.
type Limiter struct {
	mu    sync.Mutex
	local map[string]*localBucket
	cache cache.Cache
	cfg   Config
}

// New creates a Limiter backed by c, using cfg for every key's bucket
// and window.
func New(c cache.Cache, cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 100
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond * 2)
	}
	if cfg.Window <= 0 {
		cfg.Window = 60 * time.Second
	}
	return &Limiter{local: make(map[string]*localBucket), cache: c, cfg: cfg}
}

func (l *Limiter) localFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.local[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.local[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

// Allow reports whether a request under key is allowed right now. A
// local token-bucket check rejects obvious bursts without touching the
// cache; a request the local bucket admits still has to clear the
// shared window counter, so the effective limit is shared across every
// process pointed at the same cache.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if !l.localFor(key).Allow() {
		return false, nil
	}
	n, err := l.cache.IncrementBy(ctx, keyPrefix+key, 1, l.cfg.Window)
	if err != nil {
		return false, err
	}
	return n <= int64(l.cfg.Burst), nil
}

// Reset clears key's local bucket and shared window counter,
// restarting its allowance immediately.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	delete(l.local, key)
	l.mu.Unlock()
	return l.cache.Delete(ctx, keyPrefix+key)
}

// Sweep removes local buckets untouched for longer than maxIdle,
// bounding memory growth across many distinct keys (e.g. IP
// addresses). The shared cache counter expires on its own TTL and
// needs no sweep.
func (l *Limiter) Sweep(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	for key, b := range l.local {
		if b.lastSeen.Before(cutoff) {
			delete(l.local, key)
		}
	}
}
