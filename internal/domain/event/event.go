// Package event defines the Event entity: the immutable atom of the
// analytics core's write path.
package event

import (
	"time"

	"github.com/tidwall/gjson"
)

// Type is the closed enum of event kinds the core understands.
type Type string

const (
	TypePageView    Type = "page_view"
	TypeClick       Type = "click"
	TypeFormSubmit  Type = "form_submit"
	TypePurchase    Type = "purchase"
	TypeSignup      Type = "signup"
	TypeLogin       Type = "login"
	TypeSearch      Type = "search"
	TypeError       Type = "error"
	TypeModuleOpen  Type = "module_open"
	TypeVideo       Type = "video"
	TypeCustom      Type = "custom"
	TypeAPIRequest  Type = "api_request"
	TypeButtonClick Type = "button_click"
	TypeLinkClick   Type = "link_click"
	TypeSearchQuery Type = "search_query"
)

// ValidTypes enumerates every type accepted by Validate.
var ValidTypes = map[Type]bool{
	TypePageView: true, TypeClick: true, TypeFormSubmit: true,
	TypePurchase: true, TypeSignup: true, TypeLogin: true,
	TypeSearch: true, TypeError: true, TypeModuleOpen: true,
	TypeVideo: true, TypeCustom: true, TypeAPIRequest: true,
	TypeButtonClick: true, TypeLinkClick: true, TypeSearchQuery: true,
}

// Limits on the free-form properties bag, per spec.
const (
	MaxPropertyKeys     = 100
	MaxPropertyKeyLen   = 255
	MaxPropertyValueLen = 4096
	ClockSkewTolerance  = 5 * time.Minute
)

// Properties is the free-form JSON property bag attached to an event.
type Properties map[string]any

// Event is the immutable atom recorded for a user action.
type Event struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Type Type   `json:"type" db:"type"`

	UserID    string `json:"user_id,omitempty" db:"user_id"`
	SessionID string `json:"session_id,omitempty" db:"session_id"`
	Module    string `json:"module,omitempty" db:"module"`

	Properties Properties `json:"properties,omitempty" db:"properties"`

	PageURL   string `json:"page_url,omitempty" db:"page_url"`
	PageTitle string `json:"page_title,omitempty" db:"page_title"`
	Referrer  string `json:"referrer,omitempty" db:"referrer"`
	UserAgent string `json:"user_agent,omitempty" db:"user_agent"`
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Enrichment, filled by Enrich() prior to processing.
	Country    string `json:"country,omitempty" db:"country"`
	City       string `json:"city,omitempty" db:"city"`
	DeviceType string `json:"device_type,omitempty" db:"device_type"`
	Browser    string `json:"browser,omitempty" db:"browser"`
	OS         string `json:"os,omitempty" db:"os"`

	// UTM / attribution snapshot captured at ingest time.
	UTMSource   string `json:"utm_source,omitempty" db:"utm_source"`
	UTMMedium   string `json:"utm_medium,omitempty" db:"utm_medium"`
	UTMCampaign string `json:"utm_campaign,omitempty" db:"utm_campaign"`

	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Processed   bool       `json:"processed" db:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}

// Validate enforces the structural invariants placed on an
// inbound event: known type, non-empty name, bounded property bag, and
// the clock-skew tolerance between event time and ingest time.
func (e *Event) Validate() error {
	if e.Name == "" {
		return newValidationError("name", "must not be empty")
	}
	if !ValidTypes[e.Type] {
		return newValidationError("type", "unknown event type: "+string(e.Type))
	}
	if len(e.Properties) > MaxPropertyKeys {
		return newValidationError("properties", "too many keys")
	}
	for k, v := range e.Properties {
		if len(k) > MaxPropertyKeyLen {
			return newValidationError("properties", "key too long: "+k)
		}
		if s, ok := v.(string); ok && len(s) > MaxPropertyValueLen {
			return newValidationError("properties", "value too long for key: "+k)
		}
	}
	if e.CreatedAt.IsZero() {
		return nil // CreatedAt is stamped by the tracker; skip the skew check until then.
	}
	if e.Timestamp.After(e.CreatedAt.Add(ClockSkewTolerance)) {
		return newValidationError("timestamp", "exceeds clock-skew tolerance")
	}
	return nil
}

func newValidationError(field, reason string) error {
	return &validationError{field: field, reason: reason}
}

type validationError struct {
	field  string
	reason string
}

func (e *validationError) Error() string { return e.field + ": " + e.reason }

// PropertyOrField resolves a lookup key against the event's properties
// bag first, falling back to the matching struct field by name, and
// finally reporting "not found". This single-namespace collapse is
// documented here and is relied on by goal-condition matching. A key
// that is not a top-level property is also tried as a gjson path (e.g.
// "geo.country") against a "_raw" property holding the raw properties
// JSON as a string; nested map values inside Properties are not walked
// by dotted path.
func (e *Event) PropertyOrField(key string) (any, bool) {
	if v, ok := e.Properties[key]; ok {
		return v, true
	}
	if raw, ok := e.Properties["_raw"]; ok {
		if s, ok := raw.(string); ok {
			if res := gjson.Get(s, key); res.Exists() {
				return res.Value(), true
			}
		}
	}
	switch key {
	case "name":
		return e.Name, true
	case "type":
		return string(e.Type), true
	case "userId", "user_id":
		return e.UserID, true
	case "sessionId", "session_id":
		return e.SessionID, true
	case "module":
		return e.Module, true
	case "pageUrl", "page_url":
		return e.PageURL, true
	case "pageTitle", "page_title":
		return e.PageTitle, true
	case "referrer":
		return e.Referrer, true
	case "country":
		return e.Country, true
	case "city":
		return e.City, true
	case "deviceType", "device_type":
		return e.DeviceType, true
	case "browser":
		return e.Browser, true
	case "os":
		return e.OS, true
	}
	return nil, false
}

// Channel returns the attribution channel for this event: the first
// non-empty of utm_source, referrer, else "direct".
func (e *Event) Channel() string {
	if e.UTMSource != "" {
		return e.UTMSource
	}
	if e.Referrer != "" {
		return e.Referrer
	}
	return "direct"
}

// IsAttributionTouchpoint reports whether this event type is eligible as
// an attribution touchpoint.
func (e *Event) IsAttributionTouchpoint() bool {
	switch e.Type {
	case TypePageView, TypeButtonClick, TypeLinkClick, TypeSearchQuery, TypeModuleOpen:
		return true
	default:
		return false
	}
}
