package models

import "time"

// AlertType classifies what produced an alert.
type AlertType string

const (
	AlertTypeHealth      AlertType = "HEALTH"
	AlertTypeEnvironment AlertType = "ENVIRONMENT"
	AlertTypeSystem      AlertType = "SYSTEM"
)

// Severity ranks how urgently an alert needs attention.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists every severity from least to most urgent.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank returns the position of s in Severities, or -1 if unknown.
func (s Severity) Rank() int {
	for i, v := range Severities {
		if v == s {
			return i
		}
	}
	return -1
}

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "ACTIVE"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusResolved     AlertStatus = "RESOLVED"
)

// CanTransition reports whether an alert may move from one status to another.
// Status only moves forward and nothing leaves RESOLVED.
func CanTransition(from, to AlertStatus) bool {
	switch from {
	case AlertStatusActive:
		return to == AlertStatusAcknowledged || to == AlertStatusResolved
	case AlertStatusAcknowledged:
		return to == AlertStatusResolved
	}
	return false
}

// Alert records a threshold breach for a resident.
type Alert struct {
	ID         int64       `json:"id" example:"42"`
	ResidentID int64       `json:"resident_id" example:"7"`
	Type       AlertType   `json:"alert_type" example:"HEALTH"`
	Severity   Severity    `json:"severity" example:"HIGH"`
	Message    string      `json:"message" example:"High heart rate detected for Margaret Hale: 118 bpm"`
	Status     AlertStatus `json:"status" example:"ACTIVE"`
	CreatedAt  time.Time   `json:"created_at"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
	ResolvedBy *int64      `json:"resolved_by,omitempty"`
}

// SeverityCounts holds non-resolved alert counts indexed by Severity.Rank.
type SeverityCounts [4]int

// Get returns the count for s.
func (c SeverityCounts) Get(s Severity) int {
	if i := s.Rank(); i >= 0 {
		return c[i]
	}
	return 0
}

// Total sums all buckets.
func (c SeverityCounts) Total() int {
	return c[0] + c[1] + c[2] + c[3]
}
