// Package httpapi declares the typed request/response contracts this
// core exposes to an out-of-scope HTTP router. No handler, router, or
// wire codec lives here -- only the input and output shapes and the
// status-code mapping from the storeerr taxonomy, so the router
// package can stay a thin translation layer.
package httpapi

import (
	"time"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/attribution"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/cohort"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/event"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/metric"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/funnel"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storeerr"
)

// EventCreate is the validated input to createEvent/batchEvents.
type EventCreate struct {
	Name       string             `json:"name"`
	Type       event.Type         `json:"type"`
	UserID     string             `json:"user_id,omitempty"`
	SessionID  string             `json:"session_id,omitempty"`
	Module     string             `json:"module,omitempty"`
	Properties event.Properties   `json:"properties,omitempty"`
	PageURL    string             `json:"page_url,omitempty"`
	PageTitle  string             `json:"page_title,omitempty"`
	Referrer   string             `json:"referrer,omitempty"`
	UserAgent  string             `json:"user_agent,omitempty"`
	IPAddress  string             `json:"ip_address,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// ToEvent converts the validated input into the domain entity the
// tracker enqueues. It does not assign an ID or CreatedAt -- the
// tracker's Track call does that at enqueue time.
func (c EventCreate) ToEvent() *event.Event {
	return &event.Event{
		Name:       c.Name,
		Type:       c.Type,
		UserID:     c.UserID,
		SessionID:  c.SessionID,
		Module:     c.Module,
		Properties: c.Properties,
		PageURL:    c.PageURL,
		PageTitle:  c.PageTitle,
		Referrer:   c.Referrer,
		UserAgent:  c.UserAgent,
		IPAddress:  c.IPAddress,
		Timestamp:  c.Timestamp,
	}
}

// BatchEventsRequest is the input to batchEvents.
type BatchEventsRequest struct {
	Events []EventCreate `json:"events"`
}

// BatchEventsResponse reports how many events were accepted.
type BatchEventsResponse struct {
	Created int `json:"created"`
}

// EventQuery is the input to queryEvents: a loose filter plus paging.
type EventQuery struct {
	UserID    string     `json:"user_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Type      event.Type `json:"type,omitempty"`
	Module    string     `json:"module,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}

// EventQueryResponse is the output of queryEvents.
type EventQueryResponse struct {
	Events []*event.Event `json:"events"`
	Total  int            `json:"total"`
}

// MetricCreate is the input to createMetric.
type MetricCreate struct {
	Name       string         `json:"name"`
	Type       metric.Type    `json:"type"`
	Value      float64        `json:"value"`
	Period     metric.Period  `json:"period,omitempty"`
	Dimensions map[string]any `json:"dimensions,omitempty"`
	Module     string         `json:"module,omitempty"`
	Timestamp  time.Time      `json:"timestamp,omitempty"`
}

// MetricQuery is the input to queryMetrics.
type MetricQuery struct {
	Name   string        `json:"name"`
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	Period metric.Period `json:"period,omitempty"`
}

// MetricQueryResponse is the output of queryMetrics.
type MetricQueryResponse struct {
	Metrics []metric.Point `json:"metrics"`
}

// FunnelQuery is the input to analyzeFunnel alongside the funnelId.
type FunnelQuery struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FunnelAnalysisResponse wraps the funnel engine's result for the wire.
type FunnelAnalysisResponse struct {
	*funnel.Analysis
}

// CohortQuery is the input to analyzeCohort.
type CohortQuery struct {
	CohortDate time.Time `json:"cohort_date"`
	Periods    int       `json:"periods"`
	PeriodUnit string    `json:"period_unit"`
}

// CohortAnalysisResponse wraps the cohort engine's result for the wire.
type CohortAnalysisResponse struct {
	*cohort.Analysis
}

// AttributionQuery is the input to the (supplemented) attribution
// endpoint: conversionId plus the model to apply.
type AttributionQuery struct {
	ConversionID string               `json:"conversion_id"`
	Model        attribution.Model    `json:"model"`
}

// AttributionResponse maps channel -> credit.
type AttributionResponse struct {
	Credits map[string]float64 `json:"credits"`
}

// HealthCheckResponse is the output of healthCheck.
type HealthCheckResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// StatusCode maps an error from the storeerr taxonomy to the HTTP
// status for its kind: 404 NotFound, 422 Validation, 409
// Conflict, 504 Timeout, 503 Transient, 500 everything else (Fatal
// included). nil maps to 200.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return 200
	case storeerr.IsNotFound(err):
		return 404
	case storeerr.IsValidation(err):
		return 422
	case storeerr.IsConflict(err):
		return 409
	case storeerr.IsTimeout(err):
		return 504
	case storeerr.IsTransient(err):
		return 503
	default:
		return 500
	}
}
