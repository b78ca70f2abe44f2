// Package storage declares the repository interfaces every engine and
// service in the analytics core depends on, plus the Store Contract's
// scoped-transaction entry point. Two implementations exist:
// internal/storage/postgres (production) and internal/storage/memory
// (tests, local development).
package storage

import (
	"context"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/abtest"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/cohort"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/export"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/funnel"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/goal"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/metric"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/session"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/user"
)

// Filter is a loose bag of equality constraints used by the generic
// GetByFilters/Count operations. Keys are field names.
type Filter map[string]any

// EventRepository is the typed data-access surface over Event rows.
type EventRepository interface {
	Create(ctx context.Context, e *event.Event) (*event.Event, error)
	BulkCreate(ctx context.Context, events []*event.Event) (int, error)
	GetByID(ctx context.Context, id string) (*event.Event, error)
	GetByFilters(ctx context.Context, f Filter, limit, offset int) ([]*event.Event, error)
	Count(ctx context.Context, f Filter) (int, error)
	Delete(ctx context.Context, id string) error

	// GetUnprocessed returns rows with processed=false, ordered by
	// timestamp ascending.
	GetUnprocessed(ctx context.Context, limit int) ([]*event.Event, error)
	// MarkProcessed atomically sets processed=true, processedAt=now for
	// the given ids and returns the count actually updated.
	MarkProcessed(ctx context.Context, ids []string, now time.Time) (int, error)
	// GetByDateRange returns events with timestamp in [start, end),
	// optionally restricted to eventTypes (empty means all types).
	GetByDateRange(ctx context.Context, start, end time.Time, eventTypes []event.Type) ([]*event.Event, error)
}

// UserRepository is the typed data-access surface over User rows.
type UserRepository interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*user.User, error)
	Update(ctx context.Context, id string, patch map[string]any) error
	Count(ctx context.Context, f Filter) (int, error)

	// IncrementStats atomically applies delta and sets lastSeenAt=now.
	IncrementStats(ctx context.Context, userID string, delta user.StatsDelta, now time.Time) error

	// GetByFirstSeenRange returns users with firstSeenAt in [start, end),
	// the cohort-acquisition lookup the retention engine needs.
	GetByFirstSeenRange(ctx context.Context, start, end time.Time) ([]*user.User, error)
}

// SessionRepository is the typed data-access surface over Session rows.
type SessionRepository interface {
	Create(ctx context.Context, s *session.Session) (*session.Session, error)
	GetByID(ctx context.Context, id string) (*session.Session, error)
	Update(ctx context.Context, s *session.Session) error
	GetOpenIdleBefore(ctx context.Context, cutoff time.Time, limit int) ([]*session.Session, error)
	GetByUserInRange(ctx context.Context, userIDs []string, start, end time.Time) ([]*session.Session, error)
	CountByFilters(ctx context.Context, f Filter) (int, error)
}

// FunnelRepository is the typed data-access surface over Funnel rows.
type FunnelRepository interface {
	Create(ctx context.Context, f *funnel.Funnel) (*funnel.Funnel, error)
	GetByID(ctx context.Context, id string) (*funnel.Funnel, error)
}

// CohortRepository is the typed data-access surface over Cohort rows.
type CohortRepository interface {
	Create(ctx context.Context, c *cohort.Cohort) (*cohort.Cohort, error)
	GetByID(ctx context.Context, id string) (*cohort.Cohort, error)
}

// GoalRepository is the typed data-access surface over Goal rows.
type GoalRepository interface {
	Create(ctx context.Context, g *goal.Goal) (*goal.Goal, error)
	GetByID(ctx context.Context, id string) (*goal.Goal, error)
	GetEnabledByEventType(ctx context.Context, t event.Type) ([]*goal.Goal, error)
	IncrementConversions(ctx context.Context, goalID string, value float64) error

	CreateConversion(ctx context.Context, c *goal.Conversion) (*goal.Conversion, error)
	ConversionExists(ctx context.Context, goalID, eventID string) (bool, error)
	GetConversionByID(ctx context.Context, id string) (*goal.Conversion, error)
}

// ABTestRepository is the typed data-access surface over ABTest rows.
type ABTestRepository interface {
	Create(ctx context.Context, t *abtest.Test) (*abtest.Test, error)
	GetByID(ctx context.Context, id string) (*abtest.Test, error)
	GetAssignment(ctx context.Context, testID, userID string) (*abtest.Assignment, error)
	CreateAssignment(ctx context.Context, a *abtest.Assignment) error
}

// MetricRepository is the typed data-access surface over Metric rows.
type MetricRepository interface {
	Create(ctx context.Context, m *metric.Metric) (*metric.Metric, error)
	// BulkUpsert inserts or replaces metric rows keyed by
	// (name, period, timestamp, module), avoiding duplicate rows when
	// the same bucket is re-aggregated.
	BulkUpsert(ctx context.Context, rows []*metric.Metric) (int, error)
	GetTimeSeries(ctx context.Context, name string, start, end time.Time, period metric.Period) ([]metric.Point, error)
}

// ExportJobRepository is the typed data-access surface over ExportJob rows.
type ExportJobRepository interface {
	Create(ctx context.Context, j *export.Job) (*export.Job, error)
	GetExpired(ctx context.Context, now time.Time) ([]*export.Job, error)
	Delete(ctx context.Context, id string) error
}

// Store bundles every repository plus the scoped-transaction contract
// described here.
type Store interface {
	Events() EventRepository
	Users() UserRepository
	Sessions() SessionRepository
	Funnels() FunnelRepository
	Cohorts() CohortRepository
	Goals() GoalRepository
	ABTests() ABTestRepository
	Metrics() MetricRepository
	ExportJobs() ExportJobRepository

	// WithSession runs fn inside a serializable-or-read-committed
	// transaction: reads inside fn observe the session's own writes,
	// the transaction commits on normal return and rolls back on
	// error/panic. Concurrent sessions that conflict on the same row
	// surface a storeerr.ConflictError from fn or from WithSession
	// itself.
	WithSession(ctx context.Context, fn func(ctx context.Context) error) error

	// HealthCheck verifies connectivity with the underlying store.
	HealthCheck(ctx context.Context) error
}
