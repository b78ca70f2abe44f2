// Package funnel defines the Funnel/FunnelStep configuration entities.
package funnel

import "sort"

// Funnel is a configured path definition analyzed by internal/funnel.
type Funnel struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Enabled bool   `json:"enabled" db:"enabled"`
	Steps   []Step `json:"steps,omitempty" db:"-"`
}

// Step is one ordered stage of a Funnel.
type Step struct {
	FunnelID  string `json:"funnel_id" db:"funnel_id"`
	Order     int    `json:"order" db:"step_order"`
	EventType string `json:"event_type" db:"event_type"`
	Name      string `json:"name" db:"name"`
}

// SortedSteps returns a copy of f.Steps sorted ascending by Order.
func (f *Funnel) SortedSteps() []Step {
	steps := make([]Step, len(f.Steps))
	copy(steps, f.Steps)
	sort.Slice(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	return steps
}

// ValidOrdering reports whether steps sorted by Order form a strictly
// increasing sequence starting at 0.
func (f *Funnel) ValidOrdering() bool {
	steps := f.SortedSteps()
	for i, s := range steps {
		if s.Order != i {
			return false
		}
	}
	return true
}
