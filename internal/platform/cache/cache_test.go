package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemorySetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss on unset key, got ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, err := c.Get(ctx, "k"); err != nil || !ok || v != "v" {
		t.Fatalf("expected hit v=%q ok=%v err=%v", v, ok, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	if err := c.Set(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("expected key to have expired")
	}
}

func TestMemoryDeletePatternIsPrefixMatch(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	_ = c.Set(ctx, "analytics:rate_limit:a", "1", 0)
	_ = c.Set(ctx, "analytics:rate_limit:b", "1", 0)
	_ = c.Set(ctx, "analytics:other", "1", 0)

	if err := c.DeletePattern(ctx, "analytics:rate_limit:"); err != nil {
		t.Fatalf("delete pattern: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "analytics:rate_limit:a"); ok {
		t.Fatalf("expected prefix-matched key to be deleted")
	}
	if _, ok, _ := c.Get(ctx, "analytics:other"); !ok {
		t.Fatalf("expected non-matching key to survive")
	}
}

// TestIncrementByDoesNotReTTLOnHit exercises the
// "incrementBy with ttl only sets TTL on a fresh key" rule: a second
// increment within the original TTL window must not reset it.
func TestIncrementByDoesNotReTTLOnHit(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	n, err := c.IncrementBy(ctx, "rate_limit:client1", 1, 20*time.Millisecond)
	if err != nil || n != 1 {
		t.Fatalf("first increment: n=%d err=%v", n, err)
	}

	time.Sleep(15 * time.Millisecond)
	n, err = c.IncrementBy(ctx, "rate_limit:client1", 1, time.Hour)
	if err != nil || n != 2 {
		t.Fatalf("second increment: n=%d err=%v", n, err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "rate_limit:client1"); ok {
		t.Fatalf("expected key to expire on its original TTL, not be extended by the second increment")
	}
}

func TestIncrementByCreatesFreshKeyAtZero(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	n, err := c.IncrementBy(ctx, "counter", 5, 0)
	if err != nil || n != 5 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Fatalf("expected not to exist")
	}
	_ = c.Set(ctx, "k", "v", 0)
	if ok, _ := c.Exists(ctx, "k"); !ok {
		t.Fatalf("expected to exist")
	}
}
