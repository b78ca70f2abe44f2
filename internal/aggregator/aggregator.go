// Package aggregator implements the time-bucketed aggregation engine
// described here: event counts by period/type, session
// metrics, materialized time series, and dimensional breakdowns. Every
// exported call is a pure read (or a metric write) that returns an
// empty/zero result on fault rather than propagating an error to
// interactive callers, per the aggregator's fault policy.
package aggregator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/metric"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/logging"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
)

// Aggregator answers time-windowed analytical questions over the event
// and session history, and materializes Metric rows for later
// time-series reads.
type Aggregator struct {
	store storage.Store
	log   *logging.Logger
}

// New builds an Aggregator bound to store.
func New(store storage.Store, log *logging.Logger) *Aggregator {
	if log == nil {
		log = logging.New(logging.Config{Level: "info", Format: "text"})
	}
	return &Aggregator{store: store, log: log}
}

// EventBucket is one (period, eventType) aggregation row.
type EventBucket struct {
	Period        time.Time
	EventType     event.Type
	Count         int
	UniqueUsers   int
	UniqueSessions int
}

// AggregateEvents buckets events by date_trunc(period, timestamp) and
// eventType over [start, end), restricted to eventTypes when non-empty.
func (a *Aggregator) AggregateEvents(ctx context.Context, start, end time.Time, period metric.Period, eventTypes []event.Type) []EventBucket {
	events, err := a.store.Events().GetByDateRange(ctx, start, end, eventTypes)
	if err != nil {
		a.log.WithField("error", err.Error()).Warn("aggregator: AggregateEvents failed")
		return nil
	}

	type key struct {
		bucket time.Time
		typ    event.Type
	}
	counts := map[key]int{}
	users := map[key]map[string]bool{}
	sessions := map[key]map[string]bool{}
	order := make([]key, 0)

	for _, e := range events {
		k := key{bucket: truncate(e.Timestamp, period), typ: e.Type}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
			users[k] = map[string]bool{}
			sessions[k] = map[string]bool{}
		}
		counts[k]++
		if e.UserID != "" {
			users[k][e.UserID] = true
		}
		if e.SessionID != "" {
			sessions[k][e.SessionID] = true
		}
	}

	out := make([]EventBucket, 0, len(order))
	for _, k := range order {
		out = append(out, EventBucket{
			Period: k.bucket, EventType: k.typ, Count: counts[k],
			UniqueUsers: len(users[k]), UniqueSessions: len(sessions[k]),
		})
	}
	return out
}

// SessionMetrics summarizes session-level outcomes over a window.
type SessionMetrics struct {
	TotalSessions        int
	UniqueUsers           int
	AvgDurationSeconds    float64
	AvgPageViews          float64
	BounceRate            float64
	ConversionRate        float64
	TotalConversions      int
	TotalConversionValue  float64
}

// CalculateSessionMetrics summarizes sessions started in [start, end).
func (a *Aggregator) CalculateSessionMetrics(ctx context.Context, start, end time.Time) SessionMetrics {
	sessions, err := a.store.Sessions().GetByUserInRange(ctx, nil, start, end)
	if err != nil {
		a.log.WithField("error", err.Error()).Warn("aggregator: CalculateSessionMetrics failed")
		return SessionMetrics{}
	}
	if len(sessions) == 0 {
		return SessionMetrics{}
	}

	var (
		durationSum, pageViewSum float64
		bounces, converted       int
		convValueSum             float64
		users                    = map[string]bool{}
	)
	for _, s := range sessions {
		durationSum += float64(s.DurationSecs)
		pageViewSum += float64(s.PageViews)
		if s.IsBounce {
			bounces++
		}
		if s.Converted {
			converted++
			convValueSum += s.ConvValue
		}
		users[s.UserID] = true
	}

	n := float64(len(sessions))
	return SessionMetrics{
		TotalSessions:        len(sessions),
		UniqueUsers:          len(users),
		AvgDurationSeconds:   durationSum / n,
		AvgPageViews:         pageViewSum / n,
		BounceRate:           100 * float64(bounces) / n,
		ConversionRate:       100 * float64(converted) / n,
		TotalConversions:     converted,
		TotalConversionValue: convValueSum,
	}
}

// GenerateTimeSeries reads materialized Metric rows, ordered ascending.
func (a *Aggregator) GenerateTimeSeries(ctx context.Context, metricName string, start, end time.Time, period metric.Period) []metric.Point {
	points, err := a.store.Metrics().GetTimeSeries(ctx, metricName, start, end, period)
	if err != nil {
		a.log.WithField("error", err.Error()).Warn("aggregator: GenerateTimeSeries failed")
		return nil
	}
	return points
}

// SaveMetric materializes a single Metric row.
func (a *Aggregator) SaveMetric(ctx context.Context, name string, typ metric.Type, value float64, period metric.Period, dimensions map[string]any, module string, timestamp time.Time) bool {
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	m := &metric.Metric{
		ID: uuid.NewString(), Name: name, Type: typ, Value: value,
		Period: period, Dimensions: dimensions, Module: module, Timestamp: timestamp,
	}
	if _, err := a.store.Metrics().Create(ctx, m); err != nil {
		a.log.WithField("error", err.Error()).Warn("aggregator: SaveMetric failed")
		return false
	}
	return true
}

// dimensionFields whitelists the Event fields aggregateByDimension may
// group by.
var dimensionFields = map[string]func(*event.Event) string{
	"country":    func(e *event.Event) string { return e.Country },
	"deviceType": func(e *event.Event) string { return e.DeviceType },
	"browser":    func(e *event.Event) string { return e.Browser },
	"os":         func(e *event.Event) string { return e.OS },
	"module":     func(e *event.Event) string { return e.Module },
}

// DimensionBucket is one aggregateByDimension result row.
type DimensionBucket struct {
	Value string
	Count int
}

// AggregateByDimension groups events in [start, end) by a whitelisted
// field. An unrecognized dimension returns an empty result, no fault.
func (a *Aggregator) AggregateByDimension(ctx context.Context, dimension string, start, end time.Time, eventTypes []event.Type) []DimensionBucket {
	field, ok := dimensionFields[dimension]
	if !ok {
		return nil
	}
	events, err := a.store.Events().GetByDateRange(ctx, start, end, eventTypes)
	if err != nil {
		a.log.WithField("error", err.Error()).Warn("aggregator: AggregateByDimension failed")
		return nil
	}

	counts := map[string]int{}
	order := make([]string, 0)
	for _, e := range events {
		v := field(e)
		if v == "" {
			continue
		}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	out := make([]DimensionBucket, 0, len(order))
	for _, v := range order {
		out = append(out, DimensionBucket{Value: v, Count: counts[v]})
	}
	return out
}

// truncate buckets t to the start of its enclosing period.
func truncate(t time.Time, period metric.Period) time.Time {
	t = t.UTC()
	switch period {
	case metric.PeriodMinute:
		return t.Truncate(time.Minute)
	case metric.PeriodHour:
		return t.Truncate(time.Hour)
	case metric.PeriodDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case metric.PeriodWeek:
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := int(d.Weekday())
		return d.AddDate(0, 0, -offset)
	case metric.PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case metric.PeriodQuarter:
		q := ((int(t.Month()) - 1) / 3) * 3
		return time.Date(t.Year(), time.Month(q+1), 1, 0, 0, 0, 0, time.UTC)
	case metric.PeriodYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return t.Truncate(time.Hour)
	}
}
