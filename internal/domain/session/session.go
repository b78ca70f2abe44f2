// Package session defines the Session entity and the bounce/close
// invariants the session state machine enforces.
package session

import "time"

// BounceDurationThreshold is the max duration (seconds) for a session
// with <=1 page view to still count as a bounce.
const BounceDurationThreshold = 30

// Session is a bounded window of one user's activity.
type Session struct {
	ID             string     `json:"id" db:"id"`
	UserID         string     `json:"user_id" db:"user_id"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	LastActivityAt time.Time  `json:"last_activity_at" db:"last_activity_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	DurationSecs   int        `json:"duration_seconds,omitempty" db:"duration_seconds"`

	PageViews   int     `json:"page_views" db:"page_views"`
	EventsCount int     `json:"events_count" db:"events_count"`
	IsBounce    bool    `json:"is_bounce" db:"is_bounce"`
	Converted   bool    `json:"converted" db:"converted"`
	ConvValue   float64 `json:"conversion_value,omitempty" db:"conversion_value"`

	UTMSource   string `json:"utm_source,omitempty" db:"utm_source"`
	UTMMedium   string `json:"utm_medium,omitempty" db:"utm_medium"`
	UTMCampaign string `json:"utm_campaign,omitempty" db:"utm_campaign"`
	Referrer    string `json:"referrer,omitempty" db:"referrer"`
	LandingPage string `json:"landing_page,omitempty" db:"landing_page"`
}

// RecomputeDuration sets DurationSecs = floor(LastActivityAt - StartedAt).
func (s *Session) RecomputeDuration() {
	s.DurationSecs = int(s.LastActivityAt.Sub(s.StartedAt).Seconds())
}

// RecomputeBounce applies the bounce invariant:
// isBounce <=> (pageViews <= 1 && durationSeconds < 30).
func (s *Session) RecomputeBounce() {
	s.IsBounce = s.PageViews <= 1 && s.DurationSecs < BounceDurationThreshold
}

// IsOpen reports whether the session has not yet been closed.
func (s *Session) IsOpen() bool { return s.EndedAt == nil }

// Close finalizes the session at its current LastActivityAt, per
// endedAt = lastActivityAt, duration/bounce locked.
func (s *Session) Close() {
	if !s.IsOpen() {
		return
	}
	ended := s.LastActivityAt
	s.EndedAt = &ended
	s.RecomputeDuration()
	s.RecomputeBounce()
}

// Idle reports whether the session has been inactive for longer than
// timeout, as of now.
func (s *Session) Idle(now time.Time, timeout time.Duration) bool {
	return s.IsOpen() && now.Sub(s.LastActivityAt) > timeout
}
