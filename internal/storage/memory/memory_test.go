package memory

import (
	"context"
	"testing"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/goal"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/user"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storeerr"
)

func TestEventCreateAndGetUnprocessed(t *testing.T) {
	ctx := context.Background()
	s := New()

	e := &event.Event{Name: "signup", Type: event.TypeFormSubmit, UserID: "u1", Timestamp: time.Now()}
	created, err := s.Events().Create(ctx, e)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated ID")
	}

	unproc, err := s.Events().GetUnprocessed(ctx, 10)
	if err != nil {
		t.Fatalf("GetUnprocessed: %v", err)
	}
	if len(unproc) != 1 {
		t.Fatalf("expected 1 unprocessed event, got %d", len(unproc))
	}

	n, err := s.Events().MarkProcessed(ctx, []string{created.ID}, time.Now())
	if err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 marked, got %d", n)
	}

	unproc, _ = s.Events().GetUnprocessed(ctx, 10)
	if len(unproc) != 0 {
		t.Fatalf("expected 0 unprocessed after mark, got %d", len(unproc))
	}
}

func TestEventGetByIDNotFound(t *testing.T) {
	s := New()
	_, err := s.Events().GetByID(context.Background(), "missing")
	if !storeerr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestUserCreateDuplicateExternalIDConflicts(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Users().Create(ctx, &user.User{ExternalID: "ext-1", FirstSeenAt: time.Now(), LastSeenAt: time.Now()})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err = s.Users().Create(ctx, &user.User{ExternalID: "ext-1", FirstSeenAt: time.Now(), LastSeenAt: time.Now()})
	if !storeerr.IsConflict(err) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestUserIncrementStats(t *testing.T) {
	ctx := context.Background()
	s := New()

	u, err := s.Users().Create(ctx, &user.User{ExternalID: "ext-2", FirstSeenAt: time.Now(), LastSeenAt: time.Now()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	now := time.Now()
	if err := s.Users().IncrementStats(ctx, u.ID, user.StatsDelta{Sessions: 1, Events: 3, Value: 9.5}, now); err != nil {
		t.Fatalf("IncrementStats: %v", err)
	}
	got, err := s.Users().GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.TotalSessions != 1 || got.TotalEvents != 3 || got.LifetimeValue != 9.5 {
		t.Fatalf("unexpected stats: %+v", got)
	}
	if !got.LastSeenAt.Equal(now) {
		t.Fatalf("expected LastSeenAt updated")
	}
}

func TestGoalConversionExistsPreventsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := New()

	g, err := s.Goals().Create(ctx, &goal.Goal{EventType: event.TypePurchase, Enabled: true})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	_, err = s.Goals().CreateConversion(ctx, &goal.Conversion{GoalID: g.ID, EventID: "e1", ConvertedAt: time.Now()})
	if err != nil {
		t.Fatalf("create conversion: %v", err)
	}
	exists, err := s.Goals().ConversionExists(ctx, g.ID, "e1")
	if err != nil || !exists {
		t.Fatalf("expected conversion to exist, err=%v exists=%v", err, exists)
	}

	_, err = s.Goals().CreateConversion(ctx, &goal.Conversion{GoalID: g.ID, EventID: "e1", ConvertedAt: time.Now()})
	if !storeerr.IsConflict(err) {
		t.Fatalf("expected Conflict on duplicate conversion, got %v", err)
	}
}

func TestStoreSatisfiesInterface(t *testing.T) {
	var _ storage.Store = New()
}
