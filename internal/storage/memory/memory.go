// Package memory is an in-memory implementation of storage.Store. It is
// safe for concurrent use and is the primary fixture for this repo's
// unit tests: a mutex-guarded map-of-entity store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/abtest"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/cohort"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/export"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/funnel"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/goal"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/metric"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/session"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/user"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storeerr"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu sync.RWMutex

	events        map[string]*event.Event
	users         map[string]*user.User
	usersByExtID  map[string]string
	sessions      map[string]*session.Session
	funnels       map[string]*funnel.Funnel
	funnelSteps   map[string][]funnel.Step
	cohorts       map[string]*cohort.Cohort
	goals         map[string]*goal.Goal
	conversions   map[string]*goal.Conversion
	convKeys      map[string]bool // goalID+"/"+eventID -> exists
	abTests       map[string]*abtest.Test
	assignments   map[string]*abtest.Assignment // testID+"/"+userID
	metrics       []*metric.Metric
	exportJobs    map[string]*export.Job
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		events:       make(map[string]*event.Event),
		users:        make(map[string]*user.User),
		usersByExtID: make(map[string]string),
		sessions:     make(map[string]*session.Session),
		funnels:      make(map[string]*funnel.Funnel),
		funnelSteps:  make(map[string][]funnel.Step),
		cohorts:      make(map[string]*cohort.Cohort),
		goals:        make(map[string]*goal.Goal),
		conversions:  make(map[string]*goal.Conversion),
		convKeys:     make(map[string]bool),
		abTests:      make(map[string]*abtest.Test),
		assignments:  make(map[string]*abtest.Assignment),
		exportJobs:   make(map[string]*export.Job),
	}
}

// WithSession runs fn directly: the store's single mutex already gives
// every call read-your-writes consistency, so no separate transaction
// object is needed for the in-memory implementation.
func (s *Store) WithSession(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(ctx context.Context) error { return nil }

func (s *Store) Events() storage.EventRepository         { return (*eventRepo)(s) }
func (s *Store) Users() storage.UserRepository            { return (*userRepo)(s) }
func (s *Store) Sessions() storage.SessionRepository      { return (*sessionRepo)(s) }
func (s *Store) Funnels() storage.FunnelRepository        { return (*funnelRepo)(s) }
func (s *Store) Cohorts() storage.CohortRepository        { return (*cohortRepo)(s) }
func (s *Store) Goals() storage.GoalRepository             { return (*goalRepo)(s) }
func (s *Store) ABTests() storage.ABTestRepository         { return (*abTestRepo)(s) }
func (s *Store) Metrics() storage.MetricRepository         { return (*metricRepo)(s) }
func (s *Store) ExportJobs() storage.ExportJobRepository   { return (*exportRepo)(s) }

func newID() string { return uuid.NewString() }

// ---------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------

type eventRepo Store

func (r *eventRepo) store() *Store { return (*Store)(r) }

func (r *eventRepo) Create(ctx context.Context, e *event.Event) (*event.Event, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = newID()
	}
	cp := *e
	s.events[e.ID] = &cp
	return &cp, nil
}

func (r *eventRepo) BulkCreate(ctx context.Context, events []*event.Event) (int, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if e.ID == "" {
			e.ID = newID()
		}
		cp := *e
		s.events[e.ID] = &cp
	}
	return len(events), nil
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*event.Event, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, storeerr.NewNotFound("event", id)
	}
	cp := *e
	return &cp, nil
}

func (r *eventRepo) GetByFilters(ctx context.Context, f storage.Filter, limit, offset int) ([]*event.Event, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*event.Event
	for _, e := range s.events {
		if matchesEventFilter(e, f) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return paginate(out, limit, offset), nil
}

func matchesEventFilter(e *event.Event, f storage.Filter) bool {
	for k, v := range f {
		switch k {
		case "userId", "user_id":
			if e.UserID != v {
				return false
			}
		case "sessionId", "session_id":
			if e.SessionID != v {
				return false
			}
		case "type":
			if string(e.Type) != v {
				return false
			}
		case "processed":
			if e.Processed != v {
				return false
			}
		}
	}
	return true
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (r *eventRepo) Count(ctx context.Context, f storage.Filter) (int, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.events {
		if matchesEventFilter(e, f) {
			n++
		}
	}
	return n, nil
}

func (r *eventRepo) Delete(ctx context.Context, id string) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return storeerr.NewNotFound("event", id)
	}
	delete(s.events, id)
	return nil
}

func (r *eventRepo) GetUnprocessed(ctx context.Context, limit int) ([]*event.Event, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*event.Event
	for _, e := range s.events {
		if !e.Processed {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *eventRepo) MarkProcessed(ctx context.Context, ids []string, now time.Time) (int, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		e, ok := s.events[id]
		if !ok || e.Processed {
			continue
		}
		e.Processed = true
		t := now
		e.ProcessedAt = &t
		n++
	}
	return n, nil
}

func (r *eventRepo) GetByDateRange(ctx context.Context, start, end time.Time, eventTypes []event.Type) ([]*event.Event, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	typeSet := map[event.Type]bool{}
	for _, t := range eventTypes {
		typeSet[t] = true
	}
	var out []*event.Event
	for _, e := range s.events {
		if e.Timestamp.Before(start) || !e.Timestamp.Before(end) {
			continue
		}
		if len(typeSet) > 0 && !typeSet[e.Type] {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// ---------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------

type userRepo Store

func (r *userRepo) store() *Store { return (*Store)(r) }

func (r *userRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = newID()
	}
	if u.ExternalID != "" {
		if _, exists := s.usersByExtID[u.ExternalID]; exists {
			return nil, storeerr.NewConflict("user", "external_id already assigned")
		}
		s.usersByExtID[u.ExternalID] = u.ID
	}
	cp := *u
	s.users[u.ID] = &cp
	return &cp, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storeerr.NewNotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByExternalID(ctx context.Context, externalID string) (*user.User, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByExtID[externalID]
	if !ok {
		return nil, storeerr.NewNotFound("user", externalID)
	}
	cp := *s.users[id]
	return &cp, nil
}

func (r *userRepo) Update(ctx context.Context, id string, patch map[string]any) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storeerr.NewNotFound("user", id)
	}
	if v, ok := patch["email"].(string); ok {
		u.Email = v
	}
	if v, ok := patch["name"].(string); ok {
		u.Name = v
	}
	return nil
}

func (r *userRepo) Count(ctx context.Context, f storage.Filter) (int, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(f) == 0 {
		return len(s.users), nil
	}
	n := 0
	for _, u := range s.users {
		if firstSeenInRange(u, f) {
			n++
		}
	}
	return n, nil
}

func firstSeenInRange(u *user.User, f storage.Filter) bool {
	start, hasStart := f["firstSeenAtGte"].(time.Time)
	end, hasEnd := f["firstSeenAtLt"].(time.Time)
	if hasStart && u.FirstSeenAt.Before(start) {
		return false
	}
	if hasEnd && !u.FirstSeenAt.Before(end) {
		return false
	}
	return true
}

func (r *userRepo) IncrementStats(ctx context.Context, userID string, delta user.StatsDelta, now time.Time) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return storeerr.NewNotFound("user", userID)
	}
	u.TotalSessions += delta.Sessions
	u.TotalEvents += delta.Events
	u.TotalConversions += delta.Conversions
	u.LifetimeValue += delta.Value
	u.LastSeenAt = now
	return nil
}

func (r *userRepo) GetByFirstSeenRange(ctx context.Context, start, end time.Time) ([]*user.User, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*user.User
	for _, u := range s.users {
		if u.FirstSeenAt.Before(start) || !u.FirstSeenAt.Before(end) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeenAt.Before(out[j].FirstSeenAt) })
	return out, nil
}

// ---------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------

type sessionRepo Store

func (r *sessionRepo) store() *Store { return (*Store)(r) }

func (r *sessionRepo) Create(ctx context.Context, sess *session.Session) (*session.Session, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == "" {
		sess.ID = newID()
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return &cp, nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*session.Session, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, storeerr.NewNotFound("session", id)
	}
	cp := *sess
	return &cp, nil
}

func (r *sessionRepo) Update(ctx context.Context, sess *session.Session) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return storeerr.NewNotFound("session", sess.ID)
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (r *sessionRepo) GetOpenIdleBefore(ctx context.Context, cutoff time.Time, limit int) ([]*session.Session, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*session.Session
	for _, sess := range s.sessions {
		if sess.IsOpen() && sess.LastActivityAt.Before(cutoff) {
			cp := *sess
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivityAt.Before(out[j].LastActivityAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *sessionRepo) GetByUserInRange(ctx context.Context, userIDs []string, start, end time.Time) ([]*session.Session, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := map[string]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	var out []*session.Session
	for _, sess := range s.sessions {
		if len(want) > 0 && !want[sess.UserID] {
			continue
		}
		if sess.StartedAt.Before(start) || !sess.StartedAt.Before(end) {
			continue
		}
		cp := *sess
		out = append(out, &cp)
	}
	return out, nil
}

func (r *sessionRepo) CountByFilters(ctx context.Context, f storage.Filter) (int, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	start, hasStart := f["startedAtGte"].(time.Time)
	end, hasEnd := f["startedAtLt"].(time.Time)
	for _, sess := range s.sessions {
		if hasStart && sess.StartedAt.Before(start) {
			continue
		}
		if hasEnd && !sess.StartedAt.Before(end) {
			continue
		}
		n++
	}
	return n, nil
}

// ---------------------------------------------------------------------
// Funnels
// ---------------------------------------------------------------------

type funnelRepo Store

func (r *funnelRepo) store() *Store { return (*Store)(r) }

func (r *funnelRepo) Create(ctx context.Context, f *funnel.Funnel) (*funnel.Funnel, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = newID()
	}
	cp := *f
	s.funnels[f.ID] = &cp
	s.funnelSteps[f.ID] = append([]funnel.Step(nil), f.Steps...)
	return &cp, nil
}

func (r *funnelRepo) GetByID(ctx context.Context, id string) (*funnel.Funnel, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.funnels[id]
	if !ok {
		return nil, storeerr.NewNotFound("funnel", id)
	}
	cp := *f
	cp.Steps = append([]funnel.Step(nil), s.funnelSteps[id]...)
	return &cp, nil
}

// ---------------------------------------------------------------------
// Cohorts
// ---------------------------------------------------------------------

type cohortRepo Store

func (r *cohortRepo) store() *Store { return (*Store)(r) }

func (r *cohortRepo) Create(ctx context.Context, c *cohort.Cohort) (*cohort.Cohort, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	cp := *c
	s.cohorts[c.ID] = &cp
	return &cp, nil
}

func (r *cohortRepo) GetByID(ctx context.Context, id string) (*cohort.Cohort, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cohorts[id]
	if !ok {
		return nil, storeerr.NewNotFound("cohort", id)
	}
	cp := *c
	return &cp, nil
}

// ---------------------------------------------------------------------
// Goals
// ---------------------------------------------------------------------

type goalRepo Store

func (r *goalRepo) store() *Store { return (*Store)(r) }

func (r *goalRepo) Create(ctx context.Context, g *goal.Goal) (*goal.Goal, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = newID()
	}
	cp := *g
	s.goals[g.ID] = &cp
	return &cp, nil
}

func (r *goalRepo) GetByID(ctx context.Context, id string) (*goal.Goal, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[id]
	if !ok {
		return nil, storeerr.NewNotFound("goal", id)
	}
	cp := *g
	return &cp, nil
}

func (r *goalRepo) GetEnabledByEventType(ctx context.Context, t event.Type) ([]*goal.Goal, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*goal.Goal
	for _, g := range s.goals {
		if g.Enabled && g.EventType == t {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *goalRepo) IncrementConversions(ctx context.Context, goalID string, value float64) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[goalID]
	if !ok {
		return storeerr.NewNotFound("goal", goalID)
	}
	g.TotalConversions++
	g.TotalValue += value
	return nil
}

func (r *goalRepo) CreateConversion(ctx context.Context, c *goal.Conversion) (*goal.Conversion, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	key := c.GoalID + "/" + c.EventID
	if s.convKeys[key] {
		return nil, storeerr.NewConflict("goal_conversion", "goal+event pair already converted")
	}
	if c.ID == "" {
		c.ID = newID()
	}
	cp := *c
	s.conversions[c.ID] = &cp
	s.convKeys[key] = true
	return &cp, nil
}

func (r *goalRepo) ConversionExists(ctx context.Context, goalID, eventID string) (bool, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.convKeys[goalID+"/"+eventID], nil
}

func (r *goalRepo) GetConversionByID(ctx context.Context, id string) (*goal.Conversion, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversions[id]
	if !ok {
		return nil, storeerr.NewNotFound("goal_conversion", id)
	}
	cp := *c
	return &cp, nil
}

// ---------------------------------------------------------------------
// AB tests
// ---------------------------------------------------------------------

type abTestRepo Store

func (r *abTestRepo) store() *Store { return (*Store)(r) }

func (r *abTestRepo) Create(ctx context.Context, t *abtest.Test) (*abtest.Test, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = newID()
	}
	cp := *t
	s.abTests[t.ID] = &cp
	out := cp
	return &out, nil
}

func (r *abTestRepo) GetByID(ctx context.Context, id string) (*abtest.Test, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.abTests[id]
	if !ok {
		return nil, storeerr.NewNotFound("ab_test", id)
	}
	cp := *t
	return &cp, nil
}

func (r *abTestRepo) GetAssignment(ctx context.Context, testID, userID string) (*abtest.Assignment, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[testID+"/"+userID]
	if !ok {
		return nil, storeerr.NewNotFound("ab_test_assignment", testID+"/"+userID)
	}
	cp := *a
	return &cp, nil
}

func (r *abTestRepo) CreateAssignment(ctx context.Context, a *abtest.Assignment) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	key := a.TestID + "/" + a.UserID
	if _, exists := s.assignments[key]; exists {
		return storeerr.NewConflict("ab_test_assignment", "unique (test_id, user_id) violated")
	}
	cp := *a
	s.assignments[key] = &cp
	return nil
}

// ---------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------

type metricRepo Store

func (r *metricRepo) store() *Store { return (*Store)(r) }

func (r *metricRepo) Create(ctx context.Context, m *metric.Metric) (*metric.Metric, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = newID()
	}
	cp := *m
	s.metrics = append(s.metrics, &cp)
	return &cp, nil
}

func (r *metricRepo) BulkUpsert(ctx context.Context, rows []*metric.Metric) (int, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range rows {
		replaced := false
		for i, existing := range s.metrics {
			if existing.Name == m.Name && existing.Period == m.Period &&
				existing.Timestamp.Equal(m.Timestamp) && existing.Module == m.Module {
				cp := *m
				s.metrics[i] = &cp
				replaced = true
				break
			}
		}
		if !replaced {
			if m.ID == "" {
				m.ID = newID()
			}
			cp := *m
			s.metrics = append(s.metrics, &cp)
		}
		n++
	}
	return n, nil
}

func (r *metricRepo) GetTimeSeries(ctx context.Context, name string, start, end time.Time, period metric.Period) ([]metric.Point, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []metric.Point
	for _, m := range s.metrics {
		if m.Name != name {
			continue
		}
		if period != "" && m.Period != period {
			continue
		}
		if m.Timestamp.Before(start) || m.Timestamp.After(end) {
			continue
		}
		out = append(out, metric.Point{Timestamp: m.Timestamp, Value: m.Value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// ---------------------------------------------------------------------
// Export jobs
// ---------------------------------------------------------------------

type exportRepo Store

func (r *exportRepo) store() *Store { return (*Store)(r) }

func (r *exportRepo) Create(ctx context.Context, j *export.Job) (*export.Job, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.ID == "" {
		j.ID = newID()
	}
	cp := *j
	s.exportJobs[j.ID] = &cp
	return &cp, nil
}

func (r *exportRepo) GetExpired(ctx context.Context, now time.Time) ([]*export.Job, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*export.Job
	for _, j := range s.exportJobs {
		if j.Expired(now) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *exportRepo) Delete(ctx context.Context, id string) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exportJobs[id]; !ok {
		return storeerr.NewNotFound("export_job", id)
	}
	delete(s.exportJobs, id)
	return nil
}
