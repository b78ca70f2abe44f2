// Package goal defines Goal and GoalConversion entities.
package goal

import (
	"strconv"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
)

// Goal is an enabled-or-disabled conversion rule matched against an
// incoming event's type and property conditions.
type Goal struct {
	ID         string            `json:"id" db:"id"`
	Enabled    bool              `json:"enabled" db:"enabled"`
	EventType  event.Type        `json:"event_type" db:"event_type"`
	Conditions map[string]string `json:"conditions,omitempty" db:"conditions"`
	Value      *float64          `json:"value,omitempty" db:"value"`

	TotalConversions int     `json:"total_conversions" db:"total_conversions"`
	TotalValue       float64 `json:"total_value" db:"total_value"`
}

// Matches reports whether e satisfies every (k, v) condition in g, per
// each condition key is checked against e.properties[k]
// first, falling back to the matching event field of the same name, and
// the goal fails to match if the key resolves nowhere at all.
func (g *Goal) Matches(e *event.Event) bool {
	if !g.Enabled || e.Type != g.EventType {
		return false
	}
	for k, want := range g.Conditions {
		got, ok := e.PropertyOrField(k)
		if !ok {
			return false
		}
		if toString(got) != want {
			return false
		}
	}
	return true
}

// toString renders a JSON-decoded value the way it would appear when
// compared against a goal condition's string value.
func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return ""
	}
}

// Conversion records a single (goal, event) conversion, fired at most
// once per pair (enforced by the processor plus, recommended, a unique
// DB constraint).
type Conversion struct {
	ID          string         `json:"id" db:"id"`
	GoalID      string         `json:"goal_id" db:"goal_id"`
	UserID      string         `json:"user_id,omitempty" db:"user_id"`
	SessionID   string         `json:"session_id,omitempty" db:"session_id"`
	EventID     string         `json:"event_id" db:"event_id"`
	Value       float64        `json:"value,omitempty" db:"value"`
	Properties  map[string]any `json:"properties,omitempty" db:"properties"`
	ConvertedAt time.Time      `json:"converted_at" db:"converted_at"`
}
