// Package attribution implements the five-model attribution engine
// described here: apportioning conversion credit across the
// channels that preceded it within a 30-day look-back window.
package attribution

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/logging"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
)

// LookbackWindow bounds how far before a conversion a touchpoint may
// still receive credit.
const LookbackWindow = 30 * 24 * time.Hour

// timeDecayHalfLife approximates a 7-day half-life for the timeDecay
// model's exponential weighting.
const timeDecayHalfLife = 7 * 24 * time.Hour

// Model names the attribution models calculateAttribution supports.
type Model string

const (
	FirstTouch    Model = "firstTouch"
	LastTouch     Model = "lastTouch"
	Linear        Model = "linear"
	TimeDecay     Model = "timeDecay"
	PositionBased Model = "positionBased"
)

// Engine computes channel credit for a conversion.
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

// Calculate returns a channel -> credit mapping summing to 1.0 (within
// 1e-9) for a non-empty touchpoint set, or an empty map if the
// conversion cannot be resolved or has no touchpoints.
func (e *Engine) Calculate(ctx context.Context, conversionID string, model Model) map[string]float64 {
	conv, err := e.store.Goals().GetConversionByID(ctx, conversionID)
	if err != nil {
		e.log.WithField("error", err.Error()).Warn("attribution: calculate failed to load conversion")
		return map[string]float64{}
	}
	if conv.UserID == "" {
		return map[string]float64{}
	}

	windowStart := conv.ConvertedAt.Add(-LookbackWindow)
	events, err := e.store.Events().GetByDateRange(ctx, windowStart, conv.ConvertedAt.Add(time.Nanosecond), nil)
	if err != nil {
		e.log.WithField("error", err.Error()).Warn("attribution: calculate failed to load touchpoints")
		return map[string]float64{}
	}

	touchpoints := make([]*event.Event, 0, len(events))
	for _, ev := range events {
		if ev.UserID != conv.UserID || !ev.IsAttributionTouchpoint() {
			continue
		}
		touchpoints = append(touchpoints, ev)
	}
	sort.Slice(touchpoints, func(i, j int) bool { return touchpoints[i].Timestamp.Before(touchpoints[j].Timestamp) })
	if len(touchpoints) == 0 {
		return map[string]float64{}
	}

	switch model {
	case FirstTouch:
		return single(touchpoints[0].Channel())
	case LastTouch:
		return single(touchpoints[len(touchpoints)-1].Channel())
	case Linear:
		return linearCredit(touchpoints)
	case TimeDecay:
		return timeDecayCredit(touchpoints, conv.ConvertedAt)
	case PositionBased:
		return positionBasedCredit(touchpoints)
	default:
		return map[string]float64{}
	}
}

func single(channel string) map[string]float64 {
	return map[string]float64{channel: 1.0}
}

func linearCredit(touchpoints []*event.Event) map[string]float64 {
	credit := make(map[string]float64)
	share := 1.0 / float64(len(touchpoints))
	for _, tp := range touchpoints {
		credit[tp.Channel()] += share
	}
	return credit
}

func timeDecayCredit(touchpoints []*event.Event, convertedAt time.Time) map[string]float64 {
	weights := make([]float64, len(touchpoints))
	var sum float64
	for i, tp := range touchpoints {
		daysAgo := convertedAt.Sub(tp.Timestamp).Hours() / 24
		w := math.Exp(-daysAgo / (timeDecayHalfLife.Hours() / 24))
		weights[i] = w
		sum += w
	}
	credit := make(map[string]float64)
	for i, tp := range touchpoints {
		credit[tp.Channel()] += weights[i] / sum
	}
	return credit
}

func positionBasedCredit(touchpoints []*event.Event) map[string]float64 {
	credit := make(map[string]float64)
	n := len(touchpoints)
	switch {
	case n == 1:
		credit[touchpoints[0].Channel()] += 1.0
	case n == 2:
		credit[touchpoints[0].Channel()] += 0.5
		credit[touchpoints[1].Channel()] += 0.5
	default:
		credit[touchpoints[0].Channel()] += 0.4
		credit[touchpoints[n-1].Channel()] += 0.4
		middleShare := 0.2 / float64(n-2)
		for _, tp := range touchpoints[1 : n-1] {
			credit[tp.Channel()] += middleShare
		}
	}
	return credit
}
