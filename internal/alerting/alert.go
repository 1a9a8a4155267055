// Package alerting translates registry and health signals into
// deduplicated, rate-limited notifications.
package alerting

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies how urgent an alert is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Type identifies the alert concern.
type Type string

const (
	TypeServiceDown         Type = "SERVICE_DOWN"
	TypeServiceRecovered    Type = "SERVICE_RECOVERED"
	TypeConsecutiveFailures Type = "CONSECUTIVE_FAILURES"
	TypeSlowResponse        Type = "SLOW_RESPONSE"
	TypeHighErrorRate       Type = "HIGH_ERROR_RATE"
	TypeCircuitOpen         Type = "CIRCUIT_OPEN"
)

// Alert is one dispatched notification. Only the acknowledged fields
// mutate after creation.
type Alert struct {
	ID             string                 `json:"id"`
	Type           Type                   `json:"type"`
	Severity       Severity               `json:"severity"`
	Message        string                 `json:"message"`
	Data           map[string]interface{} `json:"data,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	Acknowledged   bool                   `json:"acknowledged"`
	AcknowledgedAt *time.Time             `json:"acknowledgedAt,omitempty"`
}

// newAlert builds an alert with a fresh ID and timestamp.
func newAlert(t Type, severity Severity, message string, data map[string]interface{}) *Alert {
	return &Alert{
		ID:        uuid.New().String(),
		Type:      t,
		Severity:  severity,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}
}
