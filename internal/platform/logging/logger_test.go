package logging

import (
	"context"
	"testing"
)

func TestNewDefaultsOnInvalidLevel(t *testing.T) {
	l := New(Config{Level: "not-a-level", Format: "text"})
	if l.Logger == nil {
		t.Fatal("expected non-nil underlying logger")
	}
}

func TestWithContextRoundTrip(t *testing.T) {
	l := New(Config{Level: "debug", Format: "json"})
	ctx := WithContext(context.Background(), l)
	got := FromContext(ctx)
	if got != l {
		t.Fatalf("expected FromContext to return the attached logger")
	}
}

func TestFromContextDefaultsWhenUnset(t *testing.T) {
	got := FromContext(context.Background())
	if got == nil {
		t.Fatal("expected a default logger, got nil")
	}
}

func TestEntryAttachesCorrelationFields(t *testing.T) {
	l := New(Config{Level: "info", Format: "text"})
	entry := l.Entry("tracker", "trace-123", "user-1")
	if entry.Data["service"] != "tracker" {
		t.Fatalf("expected service field, got %+v", entry.Data)
	}
	if entry.Data["trace_id"] != "trace-123" {
		t.Fatalf("expected trace_id field, got %+v", entry.Data)
	}
	if entry.Data["user_id"] != "user-1" {
		t.Fatalf("expected user_id field, got %+v", entry.Data)
	}
}

func TestEntryOmitsEmptyOptionalFields(t *testing.T) {
	l := New(Config{Level: "info", Format: "text"})
	entry := l.Entry("scheduler", "", "")
	if _, ok := entry.Data["trace_id"]; ok {
		t.Fatalf("expected no trace_id field when empty, got %+v", entry.Data)
	}
	if _, ok := entry.Data["user_id"]; ok {
		t.Fatalf("expected no user_id field when empty, got %+v", entry.Data)
	}
}
