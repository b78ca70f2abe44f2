package sessionstate

import (
	"context"
	"testing"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/session"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage/memory"
)

func TestOpenCreatesOpenSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := New(store, nil, time.Hour)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := m.Open(ctx, "u1", start, session.Session{UTMSource: "google"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !s.IsOpen() {
		t.Fatal("expected a newly opened session")
	}
	if s.UTMSource != "google" {
		t.Fatalf("expected attribution snapshot preserved, got %q", s.UTMSource)
	}
}

func TestEndClosesSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := New(store, nil, time.Hour)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := m.Open(ctx, "u1", start, session.Session{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.End(ctx, s.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	got, err := store.Sessions().GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsOpen() {
		t.Fatal("expected the session to be closed")
	}
}

func TestSweepIdleClosesStaleSessionsOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := New(store, nil, 30*time.Minute)

	now := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	stale, err := store.Sessions().Create(ctx, &session.Session{
		UserID: "u1", StartedAt: now.Add(-2 * time.Hour), LastActivityAt: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("create stale: %v", err)
	}
	fresh, err := store.Sessions().Create(ctx, &session.Session{
		UserID: "u2", StartedAt: now.Add(-time.Minute), LastActivityAt: now.Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	closed, err := m.SweepIdle(ctx, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if closed != 1 {
		t.Fatalf("expected 1 session closed, got %d", closed)
	}

	gotStale, err := store.Sessions().GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("get stale: %v", err)
	}
	if gotStale.IsOpen() {
		t.Fatal("expected stale session to be closed")
	}

	gotFresh, err := store.Sessions().GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if !gotFresh.IsOpen() {
		t.Fatal("expected fresh session to remain open")
	}
}
