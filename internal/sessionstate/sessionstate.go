// Package sessionstate implements the session lifecycle state machine
// described here: sessions transition Open -> Closed either
// by an explicit end or by a janitor sweep that detects inactivity.
package sessionstate

import (
	"context"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/session"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/logging"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
)

// DefaultIdleTimeout is the inactivity window after which an open
// session is eligible for the janitor sweep to close it.
const DefaultIdleTimeout = 30 * time.Minute

// sweepLimit bounds how many idle sessions one sweep call closes, so a
// single tick cannot block indefinitely on an unbounded backlog.
const sweepLimit = 500

// Machine drives session Open/Closed transitions.
type Machine struct {
	store       storage.Store
	log         *logging.Logger
	idleTimeout time.Duration
}

// New builds a Machine with the given inactivity timeout. log may be
// nil; a default logger is substituted.
func New(store storage.Store, log *logging.Logger, idleTimeout time.Duration) *Machine {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if log == nil {
		log = logging.New(logging.Config{Level: "info", Format: "text"})
	}
	return &Machine{store: store, log: log, idleTimeout: idleTimeout}
}

// Open creates a new session in the Open state, starting and last-active
// at startedAt.
func (m *Machine) Open(ctx context.Context, userID string, startedAt time.Time, attribution session.Session) (*session.Session, error) {
	s := attribution
	s.ID = ""
	s.UserID = userID
	s.StartedAt = startedAt
	s.LastActivityAt = startedAt
	s.PageViews = 0
	s.EventsCount = 0
	s.IsBounce = true
	s.Converted = false
	return m.store.Sessions().Create(ctx, &s)
}

// End explicitly closes an open session (a "session ended" event or a
// direct session.end() call from the client), finalizing duration and
// bounce.
func (m *Machine) End(ctx context.Context, sessionID string) error {
	s, err := m.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !s.IsOpen() {
		return nil
	}
	s.Close()
	return m.store.Sessions().Update(ctx, s)
}

// SweepIdle closes every open session whose last activity is older
// than the configured idle timeout, returning the count closed. This is
// the janitor invoked by the scheduler's hourly aggregation tick.
func (m *Machine) SweepIdle(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-m.idleTimeout)
	stale, err := m.store.Sessions().GetOpenIdleBefore(ctx, cutoff, sweepLimit)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, s := range stale {
		s.Close()
		if err := m.store.Sessions().Update(ctx, s); err != nil {
			m.log.WithField("session_id", s.ID).WithField("error", err.Error()).Warn("sessionstate: failed to close idle session")
			continue
		}
		closed++
	}
	return closed, nil
}
