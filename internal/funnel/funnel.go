// Package funnel implements the funnel analysis engine: a loose,
// unordered-in-user-time per-step progression over a time window.
// Step completion is set membership within the
// window, not a strict in-order walk of a user's timeline -- that is
// intentional and preserved for compatibility.
package funnel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/cache"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/logging"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storeerr"
)

// resultTTL is how long a computed Analysis is considered a valid hot
// read before the next request recomputes it from the event history.
const resultTTL = 5 * time.Minute

// Engine analyzes configured funnels over the event history. c is
// optional: a nil cache disables the hot-read layer and every call
// recomputes from store.
type Engine struct {
	store storage.Store
	log   *logging.Logger
	cache cache.Cache
}

// New builds an Engine bound to store, caching Analyze results in c
// when c is non-nil.
func New(store storage.Store, log *logging.Logger, c cache.Cache) *Engine {
	if log == nil {
		log = logging.New(logging.Config{Level: "info", Format: "text"})
	}
	return &Engine{store: store, log: log, cache: c}
}

func resultKey(funnelID string, start, end time.Time) string {
	return fmt.Sprintf("analytics:funnel_analysis:%s:%d:%d", funnelID, start.Unix(), end.Unix())
}

// StepStats is the per-step outcome of a funnel analysis.
type StepStats struct {
	Order            int
	StepName         string
	EventType        string
	Entered          int
	Completed        int
	Dropped          int
	CompletionRate   float64
	DropOffRate      float64
}

// Analysis is the full result of one funnel analysis.
type Analysis struct {
	FunnelID              string
	FunnelName            string
	Start, End            time.Time
	TotalEntered          int
	TotalCompleted        int
	OverallConversionRate float64
	Steps                 []StepStats
}

// Analyze runs the funnel algorithm, serving a cached result when one
// exists for this (funnelID, start, end) key, and returns nil if the
// funnel does not exist or has no steps.
func (e *Engine) Analyze(ctx context.Context, funnelID string, start, end time.Time) *Analysis {
	key := resultKey(funnelID, start, end)
	if e.cache != nil {
		if raw, ok, err := e.cache.Get(ctx, key); err != nil {
			e.log.WithField("error", err.Error()).Warn("funnel: cache read failed")
		} else if ok {
			var cached Analysis
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached
			}
		}
	}

	analysis := e.analyze(ctx, funnelID, start, end)
	if analysis != nil && e.cache != nil {
		if raw, err := json.Marshal(analysis); err == nil {
			if err := e.cache.Set(ctx, key, string(raw), resultTTL); err != nil {
				e.log.WithField("error", err.Error()).Warn("funnel: cache write failed")
			}
		}
	}
	return analysis
}

func (e *Engine) analyze(ctx context.Context, funnelID string, start, end time.Time) *Analysis {
	f, err := e.store.Funnels().GetByID(ctx, funnelID)
	if err != nil {
		if !storeerr.IsNotFound(err) {
			e.log.WithField("error", err.Error()).Warn("funnel: analyze failed to load funnel")
		}
		return nil
	}
	steps := f.SortedSteps()
	if len(steps) == 0 {
		return nil
	}

	entered, err := usersForStep(ctx, e.store, event.Type(steps[0].EventType), start, end, nil)
	if err != nil {
		e.log.WithField("error", err.Error()).Warn("funnel: analyze failed to load step events")
		return nil
	}
	totalEntered := len(entered)

	current := entered
	stepStats := make([]StepStats, 0, len(steps))
	for _, step := range steps {
		completers, err := usersForStep(ctx, e.store, event.Type(step.EventType), start, end, current)
		if err != nil {
			e.log.WithField("error", err.Error()).Warn("funnel: analyze failed to load step events")
			return nil
		}
		enteredCount := len(current)
		completedCount := len(completers)
		stat := StepStats{
			Order: step.Order, StepName: step.Name, EventType: step.EventType,
			Entered: enteredCount, Completed: completedCount, Dropped: enteredCount - completedCount,
		}
		if enteredCount > 0 {
			stat.CompletionRate = 100 * float64(completedCount) / float64(enteredCount)
			stat.DropOffRate = 100 - stat.CompletionRate
		}
		stepStats = append(stepStats, stat)
		current = completers
	}

	analysis := &Analysis{
		FunnelID: f.ID, FunnelName: f.Name, Start: start, End: end,
		TotalEntered: totalEntered, TotalCompleted: len(current), Steps: stepStats,
	}
	if totalEntered > 0 {
		analysis.OverallConversionRate = 100 * float64(len(current)) / float64(totalEntered)
	}
	return analysis
}

// usersForStep returns the distinct set of userIDs with an event of
// typ in [start, end). When restrictTo is non-nil, only users already
// in that set are considered (step k+1 counts only users who reached
// step k).
func usersForStep(ctx context.Context, store storage.Store, typ event.Type, start, end time.Time, restrictTo map[string]bool) (map[string]bool, error) {
	events, err := store.Events().GetByDateRange(ctx, start, end, []event.Type{typ})
	if err != nil {
		return nil, err
	}
	out := map[string]bool{}
	for _, e := range events {
		if e.UserID == "" {
			continue
		}
		if restrictTo != nil && !restrictTo[e.UserID] {
			continue
		}
		out[e.UserID] = true
	}
	return out, nil
}
