package httpapi

import (
	"errors"
	"testing"
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storeerr"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 200},
		{"not found", storeerr.NewNotFound("event", "e1"), 404},
		{"validation", storeerr.NewValidation("name", "must not be empty"), 422},
		{"conflict", storeerr.NewConflict("goal_conversion", "unique (goal_id, event_id)"), 409},
		{"timeout", fmtWrap(storeerr.ErrTimeout), 504},
		{"transient", fmtWrap(storeerr.ErrTransient), 503},
		{"fatal", fmtWrap(storeerr.ErrFatal), 500},
		{"unknown", errors.New("boom"), 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusCode(tc.err); got != tc.want {
				t.Fatalf("StatusCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func fmtWrap(err error) error {
	return errors.Join(err)
}

// TestEventCreateToEvent is a projection-preserving round-trip check
// every declared EventCreate field must survive into
// the domain Event.
func TestEventCreateToEvent(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := EventCreate{
		Name: "viewed_pricing", Type: event.TypePageView,
		UserID: "u1", SessionID: "s1", Module: "billing",
		Properties: event.Properties{"plan": "pro"},
		PageURL:    "/pricing", PageTitle: "Pricing", Referrer: "google.com",
		UserAgent: "curl/8", IPAddress: "203.0.113.9",
		Timestamp: ts,
	}
	got := in.ToEvent()

	if got.Name != in.Name || got.Type != in.Type || got.UserID != in.UserID ||
		got.SessionID != in.SessionID || got.Module != in.Module ||
		got.PageURL != in.PageURL || got.PageTitle != in.PageTitle ||
		got.Referrer != in.Referrer || got.UserAgent != in.UserAgent ||
		got.IPAddress != in.IPAddress || !got.Timestamp.Equal(in.Timestamp) {
		t.Fatalf("ToEvent did not preserve all fields: %+v", got)
	}
	if got.Properties["plan"] != "pro" {
		t.Fatalf("expected properties to round-trip, got %+v", got.Properties)
	}
}
