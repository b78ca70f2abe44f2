// Package predictive implements the heuristic churn/LTV/engagement
// scoring functions described here. Every function returns a
// scalar within a documented range and degrades to 0 on any fault.
package predictive

import (
	"context"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/logging"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
)

// lookbackWindow bounds the recent-session windows used to compute
// session-duration/frequency/trend sub-scores.
const lookbackWindow = 14 * 24 * time.Hour

// Scorer computes predictive scores from User state plus a handful of
// lightweight recent-window session queries.
type Scorer struct {
	store storage.Store
	log   *logging.Logger
	now   func() time.Time
}

// New builds a Scorer bound to store.
func New(store storage.Store, log *logging.Logger) *Scorer {
	if log == nil {
		log = logging.New(logging.Config{Level: "info", Format: "text"})
	}
	return &Scorer{store: store, log: log, now: time.Now}
}

// PredictChurn returns a churn-risk score in [0, 1] per the additive
// rubric below.
func (s *Scorer) PredictChurn(ctx context.Context, userID string) float64 {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		s.log.WithField("error", err.Error()).Warn("predictive: PredictChurn failed to load user")
		return 0
	}
	now := s.now()

	var score float64
	daysSince := u.DaysSinceLastSeen(now)
	switch {
	case daysSince > 30:
		score += 0.4
	case daysSince > 14:
		score += 0.2
	case daysSince > 7:
		score += 0.1
	}

	recentWindow, err := s.recentSessions(ctx, userID, now)
	if err != nil {
		s.log.WithField("error", err.Error()).Warn("predictive: PredictChurn failed to load sessions")
		return clamp01(score)
	}
	if avgSessionDuration(recentWindow) < 60 {
		score += 0.2
	}
	if sessionsPerWeek(recentWindow, lookbackWindow) < 1 {
		score += 0.2
	}
	if sessionCountTrend(ctx, s, userID, now) < -0.5 {
		score += 0.2
	}
	return clamp01(score)
}

// PredictLTV estimates lifetime value over the next `months` months.
func (s *Scorer) PredictLTV(ctx context.Context, userID string, months int) float64 {
	if months <= 0 {
		months = 12
	}
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		s.log.WithField("error", err.Error()).Warn("predictive: PredictLTV failed to load user")
		return 0
	}
	now := s.now()
	ageDays := u.AgeDays(now)
	avgMonthlyValue := (u.LifetimeValue / ageDays) * 30

	trend := sessionCountTrend(ctx, s, userID, now)
	growthFactor := 1 + 0.1*trend

	ltv := avgMonthlyValue * float64(months) * growthFactor
	if ltv < 0 {
		return 0
	}
	return ltv
}

// EngagementScore returns a weighted score in [0, 100].
func (s *Scorer) EngagementScore(ctx context.Context, userID string) float64 {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		s.log.WithField("error", err.Error()).Warn("predictive: EngagementScore failed to load user")
		return 0
	}
	now := s.now()

	recency := recencyScore(u.DaysSinceLastSeen(now))

	sessions, err := s.recentSessions(ctx, userID, now)
	if err != nil {
		s.log.WithField("error", err.Error()).Warn("predictive: EngagementScore failed to load sessions")
		sessions = nil
	}
	frequency := frequencyScore(sessionsPerWeek(sessions, lookbackWindow))
	duration := durationScore(avgSessionDuration(sessions))
	diversity := diversityScore(sessions)

	return clamp0100(100 * (0.3*recency + 0.3*frequency + 0.2*duration + 0.2*diversity))
}

func (s *Scorer) recentSessions(ctx context.Context, userID string, now time.Time) ([]sessionView, error) {
	sessions, err := s.store.Sessions().GetByUserInRange(ctx, []string{userID}, now.Add(-lookbackWindow), now.Add(time.Second))
	if err != nil {
		return nil, err
	}
	out := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionView{startedAt: sess.StartedAt, durationSecs: sess.DurationSecs, utmSource: sess.UTMSource})
	}
	return out, nil
}

// sessionView is the minimal projection the scoring functions need,
// kept independent of the session package so test doubles stay cheap.
type sessionView struct {
	startedAt    time.Time
	durationSecs int
	utmSource    string
}

func avgSessionDuration(sessions []sessionView) float64 {
	if len(sessions) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sessions {
		sum += float64(s.durationSecs)
	}
	return sum / float64(len(sessions))
}

func sessionsPerWeek(sessions []sessionView, window time.Duration) float64 {
	weeks := window.Hours() / (24 * 7)
	if weeks <= 0 {
		return 0
	}
	return float64(len(sessions)) / weeks
}

// sessionCountTrend compares the most recent 7-day session count
// against the prior 7-day count: (recent - previous) / max(previous, 1).
func sessionCountTrend(ctx context.Context, s *Scorer, userID string, now time.Time) float64 {
	recent, err := s.store.Sessions().GetByUserInRange(ctx, []string{userID}, now.Add(-7*24*time.Hour), now.Add(time.Second))
	if err != nil {
		return 0
	}
	previous, err := s.store.Sessions().GetByUserInRange(ctx, []string{userID}, now.Add(-14*24*time.Hour), now.Add(-7*24*time.Hour))
	if err != nil {
		return 0
	}
	base := float64(len(previous))
	if base < 1 {
		base = 1
	}
	return (float64(len(recent)) - float64(len(previous))) / base
}

func diversityScore(sessions []sessionView) float64 {
	channels := map[string]bool{}
	for _, s := range sessions {
		if s.utmSource != "" {
			channels[s.utmSource] = true
		}
	}
	switch len(channels) {
	case 0:
		return 0.1
	case 1:
		return 0.4
	case 2:
		return 0.7
	default:
		return 1.0
	}
}

// recencyScore buckets days-since-last-seen per the example
// table.
func recencyScore(daysSince float64) float64 {
	switch {
	case daysSince < 1:
		return 1.0
	case daysSince <= 1:
		return 0.9
	case daysSince <= 7:
		return 0.7
	case daysSince <= 14:
		return 0.5
	case daysSince <= 30:
		return 0.3
	default:
		return 0.1
	}
}

func frequencyScore(perWeek float64) float64 {
	switch {
	case perWeek >= 7:
		return 1.0
	case perWeek >= 3:
		return 0.7
	case perWeek >= 1:
		return 0.5
	case perWeek > 0:
		return 0.3
	default:
		return 0.1
	}
}

func durationScore(avgSecs float64) float64 {
	switch {
	case avgSecs >= 600:
		return 1.0
	case avgSecs >= 180:
		return 0.7
	case avgSecs >= 60:
		return 0.5
	case avgSecs > 0:
		return 0.3
	default:
		return 0.1
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp0100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
