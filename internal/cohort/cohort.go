// Package cohort implements the cohort/retention engine.
// The cumulativeRetention field intentionally equals retentionRate for
// every period after the first, a documented simplification carried
// over unchanged.
package cohort

import (
	"context"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/logging"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
)

// Engine analyzes cohort retention over the user/session history.
type Engine struct {
	store storage.Store
	log   *logging.Logger
}

// New builds an Engine bound to store.
func New(store storage.Store, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.New(logging.Config{Level: "info", Format: "text"})
	}
	return &Engine{store: store, log: log}
}

// PeriodStat is one period's retention outcome.
type PeriodStat struct {
	Period              int
	ActiveUsers         int
	RetentionRate       float64
	CumulativeRetention float64
}

// Analysis is the full result of one cohort retention analysis.
type Analysis struct {
	CohortDate      time.Time
	Periods         int
	InitialUsers    int
	Retention       []PeriodStat
	AvgRetentionRate float64
	ChurnRate        float64
}

func periodDelta(unit string) time.Duration {
	switch unit {
	case "week":
		return 7 * 24 * time.Hour
	case "month":
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Analyze runs the cohort retention algorithm. It returns nil if no
// users were first seen in the cohort's acquisition window.
func (e *Engine) Analyze(ctx context.Context, cohortDate time.Time, periods int, periodUnit string) *Analysis {
	cohortStart := time.Date(cohortDate.Year(), cohortDate.Month(), cohortDate.Day(), 0, 0, 0, 0, time.UTC)
	delta := periodDelta(periodUnit)

	cohortUsers, err := e.usersFirstSeenIn(ctx, cohortStart, cohortStart.Add(delta))
	if err != nil {
		e.log.WithField("error", err.Error()).Warn("cohort: analyze failed to load cohort users")
		return nil
	}
	if len(cohortUsers) == 0 {
		return nil
	}

	cohortUserIDs := make([]string, 0, len(cohortUsers))
	for id := range cohortUsers {
		cohortUserIDs = append(cohortUserIDs, id)
	}

	stats := make([]PeriodStat, 0, periods)
	var rateSum float64
	for i := 0; i < periods; i++ {
		windowStart := cohortStart.Add(time.Duration(i) * delta)
		windowEnd := windowStart.Add(delta)

		active, err := e.activeUsersInWindow(ctx, cohortUserIDs, windowStart, windowEnd)
		if err != nil {
			e.log.WithField("error", err.Error()).Warn("cohort: analyze failed to load active sessions")
			return nil
		}

		rate := round2(100 * float64(active) / float64(len(cohortUsers)))
		cumulative := 100.0
		if i > 0 {
			cumulative = rate
		}
		stats = append(stats, PeriodStat{Period: i, ActiveUsers: active, RetentionRate: rate, CumulativeRetention: cumulative})
		rateSum += rate
	}

	avg := round2(rateSum / float64(periods))
	return &Analysis{
		CohortDate: cohortStart, Periods: periods, InitialUsers: len(cohortUsers),
		Retention: stats, AvgRetentionRate: avg, ChurnRate: round2(100 - avg),
	}
}

func (e *Engine) usersFirstSeenIn(ctx context.Context, start, end time.Time) (map[string]bool, error) {
	users, err := e.store.Users().GetByFirstSeenRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(users))
	for _, u := range users {
		out[u.ID] = true
	}
	return out, nil
}

func (e *Engine) activeUsersInWindow(ctx context.Context, userIDs []string, start, end time.Time) (int, error) {
	sessions, err := e.store.Sessions().GetByUserInRange(ctx, userIDs, start, end)
	if err != nil {
		return 0, err
	}
	active := map[string]bool{}
	for _, s := range sessions {
		active[s.UserID] = true
	}
	return len(active), nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
