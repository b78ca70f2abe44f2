package event

import (
	"testing"
	"time"
)

func TestValidateRejectsUnknownType(t *testing.T) {
	e := &Event{Name: "x", Type: Type("bogus")}
	if err := e.Validate(); err == nil {
		t.Fatal("expected validation error for unknown type")
	}
}

func TestValidateRejectsEmptyName(t *testing.T) {
	e := &Event{Type: TypeClick}
	if err := e.Validate(); err == nil {
		t.Fatal("expected validation error for empty name")
	}
}

func TestValidateRejectsClockSkew(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := &Event{
		Name:      "x",
		Type:      TypeClick,
		Timestamp: now.Add(10 * time.Minute),
		CreatedAt: now,
	}
	if err := e.Validate(); err == nil {
		t.Fatal("expected validation error for clock skew")
	}
}

func TestValidateAcceptsWithinSkewTolerance(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := &Event{
		Name:      "x",
		Type:      TypeClick,
		Timestamp: now.Add(2 * time.Minute),
		CreatedAt: now,
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsTooManyProperties(t *testing.T) {
	props := make(Properties, MaxPropertyKeys+1)
	for i := 0; i < MaxPropertyKeys+1; i++ {
		props[string(rune('a'+i%26))+string(rune(i))] = i
	}
	e := &Event{Name: "x", Type: TypeClick, Properties: props}
	if err := e.Validate(); err == nil {
		t.Fatal("expected validation error for too many properties")
	}
}

func TestPropertyOrFieldPrefersProperty(t *testing.T) {
	e := &Event{
		Name:    "x",
		Type:    TypePurchase,
		Country: "US",
		Properties: Properties{
			"country": "CA",
		},
	}
	v, ok := e.PropertyOrField("country")
	if !ok || v != "CA" {
		t.Fatalf("expected property to win, got %v %v", v, ok)
	}
}

func TestPropertyOrFieldFallsBackToField(t *testing.T) {
	e := &Event{Name: "x", Type: TypePurchase, Country: "US"}
	v, ok := e.PropertyOrField("country")
	if !ok || v != "US" {
		t.Fatalf("expected field fallback, got %v %v", v, ok)
	}
}

func TestPropertyOrFieldNotFound(t *testing.T) {
	e := &Event{Name: "x", Type: TypePurchase}
	if _, ok := e.PropertyOrField("nonexistent"); ok {
		t.Fatal("expected not found")
	}
}

func TestChannelPrefersUTMSource(t *testing.T) {
	e := &Event{UTMSource: "google", Referrer: "https://bing.com"}
	if got := e.Channel(); got != "google" {
		t.Fatalf("got %q", got)
	}
}

func TestChannelFallsBackToReferrer(t *testing.T) {
	e := &Event{Referrer: "https://bing.com"}
	if got := e.Channel(); got != "https://bing.com" {
		t.Fatalf("got %q", got)
	}
}

func TestChannelDefaultsToDirect(t *testing.T) {
	e := &Event{}
	if got := e.Channel(); got != "direct" {
		t.Fatalf("got %q", got)
	}
}

func TestIsAttributionTouchpoint(t *testing.T) {
	cases := map[Type]bool{
		TypePageView:   true,
		TypeModuleOpen: true,
		TypePurchase:   false,
		TypeLogin:      false,
	}
	for typ, want := range cases {
		e := &Event{Type: typ}
		if got := e.IsAttributionTouchpoint(); got != want {
			t.Errorf("type %s: got %v want %v", typ, got, want)
		}
	}
}
