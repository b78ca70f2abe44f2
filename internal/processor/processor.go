// Package processor implements the Event Processor: it consumes
// unprocessed events, upserts derived User/Session state, evaluates
// goal-conversion rules, and marks events processed.
package processor

import (
	"context"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/goal"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/user"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/logging"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/metrics"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storeerr"
	"github.com/google/uuid"
)

// DefaultBatchSize matches the scheduled processing tick's batch size.
const DefaultBatchSize = 1000

// Processor consumes unprocessed events and materializes derived
// state.
type Processor struct {
	store   storage.Store
	metrics *metrics.Metrics
	log     *logging.Logger
}

// New builds a Processor bound to store.
func New(store storage.Store, m *metrics.Metrics, log *logging.Logger) *Processor {
	if log == nil {
		log = logging.New(logging.Config{Level: "info", Format: "text"})
	}
	return &Processor{store: store, metrics: m, log: log}
}

// Result summarizes one processing pass.
type Result struct {
	Fetched   int
	Processed int
	Failed    int
}

// ProcessEvents runs one processing pass over up to batchSize
// unprocessed events. Faults on an individual event are logged and
// skipped; that event simply stays unprocessed. The batch of
// successfully processed ids is marked processed in one final call.
func (p *Processor) ProcessEvents(ctx context.Context, batchSize int) (Result, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
		}
	}()

	batch, err := p.store.Events().GetUnprocessed(ctx, batchSize)
	if err != nil {
		return Result{}, err
	}
	if len(batch) == 0 {
		return Result{}, nil
	}

	res := Result{Fetched: len(batch)}
	succeeded := make([]string, 0, len(batch))

	for _, e := range batch {
		if err := p.processOne(ctx, e); err != nil {
			res.Failed++
			p.recordError("process_event")
			p.log.WithField("event_id", e.ID).WithField("error", err.Error()).Warn("processor: failed to process event, leaving unprocessed")
			continue
		}
		succeeded = append(succeeded, e.ID)
	}

	if len(succeeded) > 0 {
		n, err := p.store.Events().MarkProcessed(ctx, succeeded, time.Now().UTC())
		if err != nil {
			return res, err
		}
		res.Processed = n
	}
	if p.metrics != nil {
		p.metrics.EventsProcessedTotal.WithLabelValues("processed").Add(float64(res.Processed))
		p.metrics.EventsProcessedTotal.WithLabelValues("failed").Add(float64(res.Failed))
	}
	return res, nil
}

// processOne runs every side effect for a single event inside one
// store session: user upsert, session update, goal evaluation.
func (p *Processor) processOne(ctx context.Context, e *event.Event) error {
	return p.store.WithSession(ctx, func(ctx context.Context) error {
		if e.UserID != "" {
			if err := p.upsertUser(ctx, e); err != nil {
				return err
			}
		}
		if e.SessionID != "" {
			if err := p.updateSession(ctx, e); err != nil {
				return err
			}
		}
		if err := p.evaluateGoals(ctx, e); err != nil {
			return err
		}
		return nil
	})
}

// upsertUser creates the user row if missing, then applies the
// additive events-delta via IncrementStats.
func (p *Processor) upsertUser(ctx context.Context, e *event.Event) error {
	_, err := p.store.Users().GetByID(ctx, e.UserID)
	if err != nil {
		if !isNotFound(err) {
			return err
		}
		_, err = p.store.Users().Create(ctx, &user.User{
			ID:          e.UserID,
			FirstSeenAt: e.Timestamp,
			LastSeenAt:  e.Timestamp,
		})
		if err != nil && !isConflict(err) {
			return err
		}
	}
	return p.store.Users().IncrementStats(ctx, e.UserID, user.StatsDelta{Events: 1}, e.Timestamp)
}

// updateSession only mutates a session that
// already exists (sessions are never auto-created by the processor).
func (p *Processor) updateSession(ctx context.Context, e *event.Event) error {
	s, err := p.store.Sessions().GetByID(ctx, e.SessionID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if s.LastActivityAt.Before(e.Timestamp) {
		s.LastActivityAt = e.Timestamp
	}
	s.EventsCount++
	if e.Type == event.TypePageView {
		s.PageViews++
	}
	s.RecomputeDuration()
	s.RecomputeBounce()
	return p.store.Sessions().Update(ctx, s)
}

// evaluateGoals applies every enabled goal whose event type matches e,
// firing at most one conversion per (goal, event) pair.
func (p *Processor) evaluateGoals(ctx context.Context, e *event.Event) error {
	goals, err := p.store.Goals().GetEnabledByEventType(ctx, e.Type)
	if err != nil {
		return err
	}
	for _, g := range goals {
		if !g.Matches(e) {
			continue
		}
		exists, err := p.store.Goals().ConversionExists(ctx, g.ID, e.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := p.fireConversion(ctx, g, e); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) fireConversion(ctx context.Context, g *goal.Goal, e *event.Event) error {
	value := 0.0
	if g.Value != nil {
		value = *g.Value
	}
	conv := &goal.Conversion{
		ID:          uuid.NewString(),
		GoalID:      g.ID,
		UserID:      e.UserID,
		SessionID:   e.SessionID,
		EventID:     e.ID,
		Value:       value,
		Properties:  e.Properties,
		ConvertedAt: e.Timestamp,
	}
	if _, err := p.store.Goals().CreateConversion(ctx, conv); err != nil {
		if isConflict(err) {
			return nil // another writer already recorded this (goal, event) pair
		}
		return err
	}
	if err := p.store.Goals().IncrementConversions(ctx, g.ID, value); err != nil {
		return err
	}
	if e.SessionID != "" {
		if err := p.markSessionConverted(ctx, e.SessionID, value); err != nil {
			return err
		}
	}
	if e.UserID != "" {
		if err := p.store.Users().IncrementStats(ctx, e.UserID, user.StatsDelta{Conversions: 1, Value: value}, e.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) markSessionConverted(ctx context.Context, sessionID string, value float64) error {
	s, err := p.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	s.Converted = true
	s.ConvValue += value
	return p.store.Sessions().Update(ctx, s)
}

func (p *Processor) recordError(stage string) {
	if p.metrics != nil {
		p.metrics.ProcessingErrors.WithLabelValues(stage).Inc()
	}
}

// Enrich fills geo/device/browser/OS enrichment fields on e before it
// is persisted. Enrichment failures are non-fatal: the event is still
// tracked with whatever fields resolved. geo/ua may be nil to skip
// their respective enrichment.
func Enrich(e *event.Event, geo GeoResolver, ua UserAgentResolver) {
	if geo != nil {
		if country, city, err := geo.Resolve(e.IPAddress); err == nil {
			e.Country, e.City = country, city
		}
	}
	if ua != nil {
		if device, browser, os, err := ua.Resolve(e.UserAgent); err == nil {
			e.DeviceType, e.Browser, e.OS = device, browser, os
		}
	}
}

// GeoResolver maps an IP address to a coarse country/city pair. An
// external collaborator (out of scope) supplies a concrete
// implementation; the processor only calls the interface.
type GeoResolver interface {
	Resolve(ip string) (country, city string, err error)
}

// UserAgentResolver maps a raw User-Agent string to device/browser/OS
// classifications.
type UserAgentResolver interface {
	Resolve(userAgent string) (deviceType, browser, os string, err error)
}

func isNotFound(err error) bool { return storeerr.IsNotFound(err) }

func isConflict(err error) bool { return storeerr.IsConflict(err) }
