// Package tracker implements the Event Tracker: a bounded, in-memory
// ingestion queue paired with a single background flusher goroutine.
// Producers call Track/TrackBatch; a ticker-driven loop drains the
// queue into the Store in batches.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/logging"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/metrics"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
	"github.com/google/uuid"
)

// tickInterval is the flusher's cooperative wake-up cadence.
const tickInterval = 100 * time.Millisecond

// maxBackoff caps the flusher's retry backoff after a failed flush.
const maxBackoff = 1 * time.Second

// Config tunes queue capacity and flush cadence.
type Config struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	MaxRetries    int // consecutive flush failures after which an error is logged; flushing keeps retrying
}

// DefaultConfig matches the documented defaults: batch 1000, tracker
// flush interval 5s, queue large enough to absorb a burst.
func DefaultConfig() Config {
	return Config{QueueSize: 10000, BatchSize: 1000, FlushInterval: 5 * time.Second, MaxRetries: 5}
}

// Tracker is the process-local bounded FIFO queue plus background
// flusher.
type Tracker struct {
	store   storage.Store
	metrics *metrics.Metrics
	log     *logging.Logger
	cfg     Config

	queueMu sync.Mutex
	queue   []*event.Event

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	droppedMu sync.Mutex
	dropped   int64

	lastFlush time.Time
}

// New builds a Tracker bound to store. metrics/log may be nil; a no-op
// metrics registry and a default logger are substituted.
func New(store storage.Store, m *metrics.Metrics, log *logging.Logger, cfg Config) *Tracker {
	if cfg.QueueSize <= 0 {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logging.New(logging.Config{Level: "info", Format: "text"})
	}
	return &Tracker{
		store:   store,
		metrics: m,
		log:     log,
		cfg:     cfg,
		queue:   make([]*event.Event, 0, cfg.QueueSize),
	}
}

func (t *Tracker) Name() string { return "event-tracker" }

// Track validates and enqueues a single event. It returns the assigned
// id on success, or "" if validation failed or the queue was full (the
// event is then dropped and counted). Non-blocking.
func (t *Tracker) Track(e *event.Event) string {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := e.Validate(); err != nil {
		t.log.WithField("error", err.Error()).Warn("tracker: rejected invalid event")
		return ""
	}

	t.queueMu.Lock()
	defer t.queueMu.Unlock()
	if len(t.queue) >= t.cfg.QueueSize {
		t.recordDrop("queue_full")
		t.log.Warn("tracker: queue full, dropping event")
		return ""
	}
	t.queue = append(t.queue, e)
	t.recordIngested(e.Type)
	t.updateQueueDepth(len(t.queue))
	return e.ID
}

// TrackBatch validates then enqueues events atomically: either every
// event is admitted or none are (if the batch would overflow the
// queue, the whole batch is rejected rather than partially enqueued).
func (t *Tracker) TrackBatch(events []*event.Event) (int, error) {
	now := time.Now().UTC()
	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if err := e.Validate(); err != nil {
			return 0, fmt.Errorf("event %q: %w", e.Name, err)
		}
	}

	t.queueMu.Lock()
	defer t.queueMu.Unlock()
	if len(t.queue)+len(events) > t.cfg.QueueSize {
		t.recordDrop("batch_would_overflow")
		return 0, fmt.Errorf("tracker: queue would overflow (depth=%d, incoming=%d, capacity=%d)",
			len(t.queue), len(events), t.cfg.QueueSize)
	}
	for _, e := range events {
		t.queue = append(t.queue, e)
		t.recordIngested(e.Type)
	}
	t.updateQueueDepth(len(t.queue))
	return len(events), nil
}

// QueueSize reports the current (estimated) queue depth.
func (t *Tracker) QueueSize() int {
	t.queueMu.Lock()
	defer t.queueMu.Unlock()
	return len(t.queue)
}

// Dropped reports the cumulative number of drops recorded since the
// Tracker was created: one per event Track rejected on a full queue,
// one per batch TrackBatch rejected for overflow, and one per Stop
// whose drain timed out, however many events that batch or drain held.
func (t *Tracker) Dropped() int64 {
	t.droppedMu.Lock()
	defer t.droppedMu.Unlock()
	return t.dropped
}

func (t *Tracker) recordDrop(reason string) {
	t.droppedMu.Lock()
	t.dropped++
	t.droppedMu.Unlock()
	if t.metrics != nil {
		t.metrics.EventsDroppedTotal.WithLabelValues(reason).Inc()
	}
}

func (t *Tracker) recordIngested(typ event.Type) {
	if t.metrics != nil {
		t.metrics.EventsIngestedTotal.WithLabelValues(string(typ)).Inc()
	}
}

func (t *Tracker) updateQueueDepth(n int) {
	if t.metrics != nil {
		t.metrics.QueueDepth.Set(float64(n))
	}
}

// dequeue removes and returns up to n events from the front of the
// queue, preserving enqueue order.
func (t *Tracker) dequeue(n int) []*event.Event {
	t.queueMu.Lock()
	defer t.queueMu.Unlock()
	if n > len(t.queue) {
		n = len(t.queue)
	}
	batch := make([]*event.Event, n)
	copy(batch, t.queue[:n])
	t.queue = t.queue[n:]
	t.updateQueueDepth(len(t.queue))
	return batch
}

// requeueFront puts a previously dequeued batch back at the front of
// the queue, preserving order, used when a flush attempt fails.
func (t *Tracker) requeueFront(batch []*event.Event) {
	t.queueMu.Lock()
	defer t.queueMu.Unlock()
	t.queue = append(batch, t.queue...)
	t.updateQueueDepth(len(t.queue))
}

// Flush drains up to BatchSize events and hands them to
// Event.BulkCreate inside one store session. It returns the number of
// events persisted. A flush failure does not dequeue the events
// permanently: they are requeued at the front for the next attempt.
func (t *Tracker) Flush(ctx context.Context) (int, error) {
	batch := t.dequeue(t.cfg.BatchSize)
	if len(batch) == 0 {
		return 0, nil
	}

	start := time.Now()
	err := t.store.WithSession(ctx, func(ctx context.Context) error {
		_, err := t.store.Events().BulkCreate(ctx, batch)
		return err
	})
	if t.metrics != nil {
		t.metrics.FlushDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		t.requeueFront(batch)
		if t.metrics != nil {
			t.metrics.FlushFailuresTotal.Inc()
		}
		return 0, fmt.Errorf("tracker: flush failed: %w", err)
	}
	t.lastFlush = time.Now()
	return len(batch), nil
}

// Start launches the background flusher goroutine. Calling Start twice
// on an already-running Tracker is a no-op.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true
	t.lastFlush = time.Now()
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(runCtx)

	t.log.Info("tracker started")
	return nil
}

// run is the flusher's cooperative loop: idle -> flushing -> retry[n],
// woken every tickInterval, flushing when the queue has reached
// BatchSize or FlushInterval has elapsed since the last flush.
func (t *Tracker) run(ctx context.Context) {
	defer t.wg.Done()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.shouldFlush() {
				continue
			}
			if _, err := t.Flush(ctx); err != nil {
				consecutiveFailures++
				backoff := t.backoffFor(consecutiveFailures)
				if consecutiveFailures == t.cfg.MaxRetries {
					t.log.WithField("consecutive_failures", consecutiveFailures).Error("tracker: repeated flush failures, continuing with queued events")
				}
				time.Sleep(backoff)
				continue
			}
			consecutiveFailures = 0
		}
	}
}

// backoffFor computes the flusher's exponential retry delay, capped at
// maxBackoff, per the 100ms -> 1s failure backoff policy.
func (t *Tracker) backoffFor(failures int) time.Duration {
	d := tickInterval
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func (t *Tracker) shouldFlush() bool {
	if t.QueueSize() >= t.cfg.BatchSize {
		return true
	}
	return time.Since(t.lastFlush) >= t.cfg.FlushInterval
}

// Stop halts the background flusher. When flushRemaining is true, it
// drains the queue to completion with a bounded join timeout (10s);
// after the timeout remaining events are dropped with a warning.
func (t *Tracker) Stop(ctx context.Context, flushRemaining bool) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	cancel := t.cancel
	t.running = false
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if flushRemaining {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer drainCancel()
		for t.QueueSize() > 0 {
			select {
			case <-drainCtx.Done():
				remaining := t.QueueSize()
				t.log.WithField("remaining", remaining).Warn("tracker: drain timeout exceeded, dropping remaining events")
				t.recordDrop("drain_timeout")
				return nil
			default:
			}
			if _, err := t.Flush(drainCtx); err != nil {
				t.log.WithField("error", err.Error()).Warn("tracker: drain flush failed")
				continue
			}
		}
	}

	t.log.Info("tracker stopped")
	return nil
}

// Ready reports whether the flusher goroutine is running.
func (t *Tracker) Ready() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return fmt.Errorf("tracker not running")
	}
	return nil
}
