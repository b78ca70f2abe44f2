package attribution

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/goal"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage/memory"
)

func approxEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// TestTimeDecayWeightsOlderTouchpointsLess exercises the timeDecay
// model over a three-touchpoint window: one channel 7 days out, the
// other's two touches at 3 days and 0.5 days. weight = exp(-daysAgo/7)
// normalized, so the nearer channel should collect the bulk of credit.
func TestTimeDecayWeightsOlderTouchpointsLess(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	convertedAt := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	mk := func(source string, daysAgo float64) {
		_, err := store.Events().Create(ctx, &event.Event{
			Name: "page_view", Type: event.TypePageView, UserID: "u1",
			UTMSource: source, Timestamp: convertedAt.Add(-time.Duration(daysAgo * float64(24*time.Hour))),
		})
		if err != nil {
			t.Fatalf("create touchpoint: %v", err)
		}
	}
	mk("google", 7)
	mk("facebook", 3)
	mk("facebook", 0.5)

	g, err := store.Goals().Create(ctx, &goal.Goal{Enabled: true, EventType: event.TypePurchase})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	conv, err := store.Goals().CreateConversion(ctx, &goal.Conversion{GoalID: g.ID, UserID: "u1", EventID: "e1", ConvertedAt: convertedAt})
	if err != nil {
		t.Fatalf("create conversion: %v", err)
	}

	e := New(store, nil)
	credit := e.Calculate(ctx, conv.ID, TimeDecay)

	if !approxEqual(credit["google"], 0.189, 1e-3) {
		t.Fatalf("expected google credit ~0.189, got %v", credit["google"])
	}
	if !approxEqual(credit["facebook"], 0.811, 1e-3) {
		t.Fatalf("expected facebook credit ~0.811, got %v", credit["facebook"])
	}
}

func TestCreditsSumToOneAcrossModels(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	convertedAt := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	sources := []string{"google", "facebook", "direct", "twitter"}
	for i, src := range sources {
		_, err := store.Events().Create(ctx, &event.Event{
			Name: "page_view", Type: event.TypePageView, UserID: "u1",
			UTMSource: src, Timestamp: convertedAt.Add(-time.Duration(i+1) * time.Hour),
		})
		if err != nil {
			t.Fatalf("create touchpoint: %v", err)
		}
	}
	g, err := store.Goals().Create(ctx, &goal.Goal{Enabled: true, EventType: event.TypePurchase})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	conv, err := store.Goals().CreateConversion(ctx, &goal.Conversion{GoalID: g.ID, UserID: "u1", EventID: "e1", ConvertedAt: convertedAt})
	if err != nil {
		t.Fatalf("create conversion: %v", err)
	}

	e := New(store, nil)
	for _, model := range []Model{FirstTouch, LastTouch, Linear, TimeDecay, PositionBased} {
		credit := e.Calculate(ctx, conv.ID, model)
		var sum float64
		for _, v := range credit {
			sum += v
		}
		if !approxEqual(sum, 1.0, 1e-9) {
			t.Fatalf("model %s: expected credits to sum to 1.0, got %v (%v)", model, sum, credit)
		}
	}
}

func TestEmptyTouchpointsReturnsEmptyMapping(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g, err := store.Goals().Create(ctx, &goal.Goal{Enabled: true, EventType: event.TypePurchase})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	conv, err := store.Goals().CreateConversion(ctx, &goal.Conversion{GoalID: g.ID, UserID: "u-no-touchpoints", EventID: "e1", ConvertedAt: time.Now()})
	if err != nil {
		t.Fatalf("create conversion: %v", err)
	}

	e := New(store, nil)
	credit := e.Calculate(ctx, conv.ID, Linear)
	if len(credit) != 0 {
		t.Fatalf("expected empty credit mapping, got %+v", credit)
	}
}
