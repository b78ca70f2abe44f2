package predictive

import (
	"context"
	"testing"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/session"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/user"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage/memory"
)

func TestPredictChurnRisesWithInactivity(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	active, err := store.Users().Create(ctx, &user.User{
		ExternalID:  "active-user",
		FirstSeenAt: now.Add(-60 * 24 * time.Hour),
		LastSeenAt:  now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("create active user: %v", err)
	}
	dormant, err := store.Users().Create(ctx, &user.User{
		ExternalID:  "dormant-user",
		FirstSeenAt: now.Add(-60 * 24 * time.Hour),
		LastSeenAt:  now.Add(-45 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create dormant user: %v", err)
	}

	s := New(store, nil)
	s.now = func() time.Time { return now }

	activeScore := s.PredictChurn(ctx, active.ID)
	dormantScore := s.PredictChurn(ctx, dormant.ID)
	if dormantScore <= activeScore {
		t.Fatalf("expected dormant user churn score (%v) to exceed active user's (%v)", dormantScore, activeScore)
	}
	if dormantScore < 0 || dormantScore > 1 {
		t.Fatalf("churn score out of [0,1] range: %v", dormantScore)
	}
}

func TestPredictChurnUnknownUserReturnsZero(t *testing.T) {
	s := New(memory.New(), nil)
	if got := s.PredictChurn(context.Background(), "missing"); got != 0 {
		t.Fatalf("expected 0 for unknown user, got %v", got)
	}
}

func TestPredictLTVScalesWithMonths(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	u, err := store.Users().Create(ctx, &user.User{
		ExternalID:    "payer",
		FirstSeenAt:   now.Add(-90 * 24 * time.Hour),
		LastSeenAt:    now,
		LifetimeValue: 90,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	s := New(store, nil)
	s.now = func() time.Time { return now }

	ltv6 := s.PredictLTV(ctx, u.ID, 6)
	ltv12 := s.PredictLTV(ctx, u.ID, 12)
	if ltv12 <= ltv6 {
		t.Fatalf("expected 12-month LTV (%v) to exceed 6-month LTV (%v)", ltv12, ltv6)
	}
	if ltv6 < 0 {
		t.Fatalf("expected non-negative LTV, got %v", ltv6)
	}
}

func TestPredictLTVDefaultsToTwelveMonths(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	u, err := store.Users().Create(ctx, &user.User{
		ExternalID:    "zero-months",
		FirstSeenAt:   now.Add(-30 * 24 * time.Hour),
		LastSeenAt:    now,
		LifetimeValue: 30,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	s := New(store, nil)
	s.now = func() time.Time { return now }

	if got, want := s.PredictLTV(ctx, u.ID, 0), s.PredictLTV(ctx, u.ID, 12); got != want {
		t.Fatalf("expected months<=0 to default to 12, got %v want %v", got, want)
	}
}

func TestEngagementScoreRewardsFrequentLongSessions(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	engaged, err := store.Users().Create(ctx, &user.User{ExternalID: "engaged", FirstSeenAt: now.Add(-60 * 24 * time.Hour), LastSeenAt: now})
	if err != nil {
		t.Fatalf("create engaged user: %v", err)
	}
	idle, err := store.Users().Create(ctx, &user.User{ExternalID: "idle", FirstSeenAt: now.Add(-60 * 24 * time.Hour), LastSeenAt: now.Add(-20 * 24 * time.Hour)})
	if err != nil {
		t.Fatalf("create idle user: %v", err)
	}

	for i := 0; i < 10; i++ {
		start := now.Add(-time.Duration(i) * 24 * time.Hour)
		if _, err := store.Sessions().Create(ctx, &session.Session{
			UserID:       engaged.ID,
			StartedAt:    start,
			DurationSecs: 900,
			UTMSource:    "organic",
		}); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	s := New(store, nil)
	s.now = func() time.Time { return now }

	engagedScore := s.EngagementScore(ctx, engaged.ID)
	idleScore := s.EngagementScore(ctx, idle.ID)
	if engagedScore <= idleScore {
		t.Fatalf("expected engaged user score (%v) to exceed idle user's (%v)", engagedScore, idleScore)
	}
	if engagedScore < 0 || engagedScore > 100 {
		t.Fatalf("engagement score out of [0,100] range: %v", engagedScore)
	}
}
