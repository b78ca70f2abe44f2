package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/cache"
)

func allow(t *testing.T, l *Limiter, key string) bool {
	t.Helper()
	ok, err := l.Allow(context.Background(), key)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	return ok
}

func TestAllowRespectsBurst(t *testing.T) {
	l := New(cache.NewMemory(), Config{RequestsPerSecond: 1, Burst: 3})

	allowed := 0
	for i := 0; i < 5; i++ {
		if allow(t, l, "client1") {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("expected exactly burst (3) requests allowed immediately, got %d", allowed)
	}
}

func TestAllowIsPerKey(t *testing.T) {
	l := New(cache.NewMemory(), Config{RequestsPerSecond: 1, Burst: 1})
	if !allow(t, l, "a") {
		t.Fatalf("expected first request for key a to be allowed")
	}
	if !allow(t, l, "b") {
		t.Fatalf("expected first request for a distinct key b to be allowed independently of a")
	}
	if allow(t, l, "a") {
		t.Fatalf("expected second immediate request for key a to be denied")
	}
}

func TestAllowEnforcesSharedWindowCounterAcrossLimiters(t *testing.T) {
	shared := cache.NewMemory()
	cfg := Config{RequestsPerSecond: 1000, Burst: 1, Window: time.Minute}
	a := New(shared, cfg)
	b := New(shared, cfg)

	if !allow(t, a, "client1") {
		t.Fatalf("expected first request (via limiter a) to be allowed")
	}
	if allow(t, b, "client1") {
		t.Fatalf("expected second request (via limiter b, same cache key) to be denied by the shared window counter")
	}
}

func TestResetRestoresBurst(t *testing.T) {
	l := New(cache.NewMemory(), Config{RequestsPerSecond: 1, Burst: 1})
	if !allow(t, l, "client1") {
		t.Fatalf("expected first request allowed")
	}
	if allow(t, l, "client1") {
		t.Fatalf("expected second immediate request denied")
	}
	if err := l.Reset(context.Background(), "client1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !allow(t, l, "client1") {
		t.Fatalf("expected request allowed again after reset")
	}
}

func TestSweepDropsIdleBuckets(t *testing.T) {
	l := New(cache.NewMemory(), DefaultConfig())
	allow(t, l, "idle-client")
	if len(l.local) != 1 {
		t.Fatalf("expected one local bucket tracked")
	}
	l.Sweep(0) // everything is "idle" with a zero cutoff window
	time.Sleep(time.Millisecond)
	l.Sweep(0)
	if len(l.local) != 0 {
		t.Fatalf("expected sweep to drop the idle bucket, got %d remaining", len(l.local))
	}
}

func TestDefaultConfigDerivesBurstFromRPS(t *testing.T) {
	l := New(cache.NewMemory(), Config{RequestsPerSecond: 50})
	if l.cfg.Burst != 100 {
		t.Fatalf("expected default burst to be 2x rps, got %d", l.cfg.Burst)
	}
}
