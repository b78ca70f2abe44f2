package cohort

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/session"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/user"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage/memory"
)

// TestAnalyzeMatchesS5Scenario replicates a 100-user cohort scenario:
// users acquired in week 0, half return in week 1, a fifth in week 2.
func TestAnalyzeMatchesS5Scenario(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	d := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) // midnight UTC
	week := 7 * 24 * time.Hour

	for i := 0; i < 100; i++ {
		uid := fmt.Sprintf("u%d", i)
		firstSeen := d.Add(time.Duration(i) * time.Minute) // uniformly within [d, d+1week)
		if _, err := store.Users().Create(ctx, &user.User{ID: uid, FirstSeenAt: firstSeen, LastSeenAt: firstSeen}); err != nil {
			t.Fatalf("create user %d: %v", i, err)
		}
		if _, err := store.Sessions().Create(ctx, &session.Session{UserID: uid, StartedAt: firstSeen, LastActivityAt: firstSeen}); err != nil {
			t.Fatalf("create initial session %d: %v", i, err)
		}
		if i < 50 {
			if _, err := store.Sessions().Create(ctx, &session.Session{UserID: uid, StartedAt: d.Add(week), LastActivityAt: d.Add(week)}); err != nil {
				t.Fatalf("create week1 session %d: %v", i, err)
			}
		}
		if i < 20 {
			if _, err := store.Sessions().Create(ctx, &session.Session{UserID: uid, StartedAt: d.Add(2 * week), LastActivityAt: d.Add(2 * week)}); err != nil {
				t.Fatalf("create week2 session %d: %v", i, err)
			}
		}
	}

	e := New(store, nil)
	analysis := e.Analyze(ctx, d, 3, "week")
	if analysis == nil {
		t.Fatal("expected a non-nil analysis")
	}
	if analysis.InitialUsers != 100 {
		t.Fatalf("expected 100 initial users, got %d", analysis.InitialUsers)
	}
	if len(analysis.Retention) != 3 {
		t.Fatalf("expected 3 periods, got %d", len(analysis.Retention))
	}
	if analysis.Retention[0].RetentionRate != 100.0 {
		t.Fatalf("expected period 0 retention 100.0, got %v", analysis.Retention[0].RetentionRate)
	}
	if analysis.Retention[1].RetentionRate != 50.0 {
		t.Fatalf("expected period 1 retention 50.0, got %v", analysis.Retention[1].RetentionRate)
	}
	if analysis.Retention[2].RetentionRate != 20.0 {
		t.Fatalf("expected period 2 retention 20.0, got %v", analysis.Retention[2].RetentionRate)
	}
	if analysis.AvgRetentionRate != 56.67 {
		t.Fatalf("expected avgRetentionRate=56.67, got %v", analysis.AvgRetentionRate)
	}
	if analysis.ChurnRate != 43.33 {
		t.Fatalf("expected churnRate=43.33, got %v", analysis.ChurnRate)
	}
}

func TestAnalyzeReturnsNilForEmptyCohort(t *testing.T) {
	store := memory.New()
	e := New(store, nil)
	got := e.Analyze(context.Background(), time.Now(), 3, "week")
	if got != nil {
		t.Fatalf("expected nil for an empty cohort, got %+v", got)
	}
}
