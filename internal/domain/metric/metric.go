// Package metric defines the Metric entity: a materialized numeric
// value produced by the aggregator and scheduled jobs.
package metric

import "time"

// Type is the kind of numeric series a Metric row represents.
type Type string

const (
	TypeGauge   Type = "gauge"
	TypeCounter Type = "counter"
	TypeTimer   Type = "timer"
)

// Period is the bucket granularity a Metric is stored at.
type Period string

const (
	PeriodMinute  Period = "minute"
	PeriodHour    Period = "hour"
	PeriodDay     Period = "day"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

// Metric is one materialized data point.
type Metric struct {
	ID         string         `json:"id" db:"id"`
	Name       string         `json:"name" db:"name"`
	Type       Type           `json:"type" db:"metric_type"`
	Value      float64        `json:"value" db:"value"`
	Period     Period         `json:"period,omitempty" db:"period"`
	Dimensions map[string]any `json:"dimensions,omitempty" db:"dimensions"`
	Module     string         `json:"module,omitempty" db:"module"`
	Timestamp  time.Time      `json:"timestamp" db:"timestamp"`
}

// Point is a single (timestamp, value) sample of a time series, as
// returned by Aggregator.GenerateTimeSeries.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
