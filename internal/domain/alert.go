package domain

import "time"

// AlertType enumerates the categories of operator alerts.
type AlertType string

const (
	AlertCredentialIssue AlertType = "CREDENTIAL_ISSUE"
	AlertAnomaly         AlertType = "ANOMALY"
	AlertSyncFailure     AlertType = "SYNC_FAILURE"
)

// AlertSeverity enumerates alert severities.
type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "low"
	SeverityMedium AlertSeverity = "medium"
	SeverityHigh   AlertSeverity = "high"
)

// Alert is an operator-facing notification raised by processors. Duplicate
// suppression is by (ClientID, Type, Metric) while an unresolved alert exists.
type Alert struct {
	ID         string        `json:"id" db:"id"`
	ClientID   string        `json:"client_id" db:"client_id"`
	Type       AlertType     `json:"type" db:"type"`
	Metric     string        `json:"metric" db:"metric"`
	Severity   AlertSeverity `json:"severity" db:"severity"`
	Message    string        `json:"message" db:"message"`
	Read       bool          `json:"read" db:"read"`
	Dismissed  bool          `json:"dismissed" db:"dismissed"`
	ResolvedAt *time.Time    `json:"resolved_at" db:"resolved_at"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// Resolved reports whether the alert has been closed.
func (a *Alert) Resolved() bool { return a.ResolvedAt != nil }

// Benchmark is one aggregated industry metric row produced by the analytics
// processor, keyed by (Industry, Metric, Period).
type Benchmark struct {
	ID           string    `json:"id" db:"id"`
	Industry     string    `json:"industry" db:"industry"`
	Metric       string    `json:"metric" db:"metric"`
	Period       string    `json:"period" db:"period"`
	Value        float64   `json:"value" db:"value"`
	SampleSize   int       `json:"sample_size" db:"sample_size"`
	CalculatedAt time.Time `json:"calculated_at" db:"calculated_at"`
}
