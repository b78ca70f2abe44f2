package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage/memory"
)

func newEvent(name string) *event.Event {
	return &event.Event{Name: name, Type: event.TypePageView, Timestamp: time.Now().UTC()}
}

func TestTrackAssignsIDAndEnqueues(t *testing.T) {
	tr := New(memory.New(), nil, nil, Config{QueueSize: 10, BatchSize: 10, FlushInterval: time.Hour, MaxRetries: 3})
	id := tr.Track(newEvent("viewed_page"))
	if id == "" {
		t.Fatal("expected a non-empty id")
	}
	if tr.QueueSize() != 1 {
		t.Fatalf("expected queue size 1, got %d", tr.QueueSize())
	}
}

func TestTrackRejectsInvalidEvent(t *testing.T) {
	tr := New(memory.New(), nil, nil, DefaultConfig())
	id := tr.Track(&event.Event{Name: "", Type: event.TypePageView})
	if id != "" {
		t.Fatalf("expected rejection, got id %q", id)
	}
	if tr.QueueSize() != 0 {
		t.Fatal("rejected event must not be enqueued")
	}
}

func TestTrackDropsWhenQueueFull(t *testing.T) {
	tr := New(memory.New(), nil, nil, Config{QueueSize: 1, BatchSize: 10, FlushInterval: time.Hour, MaxRetries: 3})
	tr.Track(newEvent("a"))
	id := tr.Track(newEvent("b"))
	if id != "" {
		t.Fatal("expected the second event to be dropped")
	}
	if tr.Dropped() != 1 {
		t.Fatalf("expected 1 dropped event, got %d", tr.Dropped())
	}
}

func TestTrackBatchAllOrNone(t *testing.T) {
	tr := New(memory.New(), nil, nil, Config{QueueSize: 3, BatchSize: 10, FlushInterval: time.Hour, MaxRetries: 3})
	events := []*event.Event{newEvent("a"), newEvent("b"), newEvent("c"), newEvent("d")}
	n, err := tr.TrackBatch(events)
	if err == nil {
		t.Fatal("expected overflow rejection")
	}
	if n != 0 || tr.QueueSize() != 0 {
		t.Fatalf("expected no events enqueued on overflow, got n=%d size=%d", n, tr.QueueSize())
	}
}

// TestFlushBatching exercises a batch-size scenario: batchSize=10,
// 25 enqueued events, three flushes return 10, 10, 5.
func TestFlushBatching(t *testing.T) {
	store := memory.New()
	tr := New(store, nil, nil, Config{QueueSize: 100, BatchSize: 10, FlushInterval: time.Hour, MaxRetries: 3})
	for i := 0; i < 25; i++ {
		tr.Track(newEvent("e"))
	}

	ctx := context.Background()
	counts := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		n, err := tr.Flush(ctx)
		if err != nil {
			t.Fatalf("flush %d: %v", i, err)
		}
		counts = append(counts, n)
	}
	if counts[0] != 10 || counts[1] != 10 || counts[2] != 5 {
		t.Fatalf("expected [10 10 5], got %v", counts)
	}
	if tr.QueueSize() != 0 {
		t.Fatalf("expected empty queue after draining, got %d", tr.QueueSize())
	}
	total, err := store.Events().Count(ctx, nil)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 25 {
		t.Fatalf("expected 25 persisted rows, got %d", total)
	}
}

func TestStartStopFlushesRemaining(t *testing.T) {
	store := memory.New()
	tr := New(store, nil, nil, Config{QueueSize: 100, BatchSize: 10, FlushInterval: time.Hour, MaxRetries: 3})
	for i := 0; i < 5; i++ {
		tr.Track(newEvent("e"))
	}

	ctx := context.Background()
	if err := tr.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tr.Stop(ctx, true); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if tr.QueueSize() != 0 {
		t.Fatalf("expected drained queue, got %d", tr.QueueSize())
	}
	total, err := store.Events().Count(ctx, nil)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected 5 persisted rows, got %d", total)
	}
}
